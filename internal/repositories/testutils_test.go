package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/sotopia-chat/internal/sqlite"
	"github.com/myrjola/sotopia-chat/internal/testhelpers"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	var (
		dbs *sqlite.Database
		err error
	)

	if dbs, err = sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard)); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err = dbs.ReadWrite.Close(); err != nil {
			t.Fatal(err)
		}
		if err = dbs.ReadOnly.Close(); err != nil {
			t.Fatal(err)
		}
	})

	return dbs
}

// newTestSession inserts a session row so that chats have something to hang
// off. The janitor deletes chats without a matching session.
func newTestSession(t *testing.T, dbs *sqlite.Database, token string) {
	t.Helper()
	stmt := `INSERT INTO sessions (token, data, expiry) VALUES (?, x'', julianday('now', '+1 hour'))`
	if _, err := dbs.ReadWrite.Exec(stmt, token); err != nil {
		t.Fatal(err)
	}
}
