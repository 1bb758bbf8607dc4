package sqlite

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/sotopia-chat/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestDatabase_migrateTo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
			wantErr:           false,
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"},
			testQueries: []string{
				"INSERT INTO test (name) VALUES ('test')",
				"SELECT * FROM test",
			},
			wantErr: false,
		},
		{
			name: "drop table",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"", // drop table
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "add column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "remove column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "create index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "drop index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     true,
		},
		{
			name: "update index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (id, name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     false,
		},
		{
			name: "create trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "delete trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				"CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT )",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "update trigger",
			schemaDefinitions: []string{
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`,
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT 1; END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     false,
		},
		{
			name: "rebuilt table keeps its index",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, email TEXT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{
				"INSERT INTO test (name, email) VALUES ('test', 'test@example.com')",
				"DROP INDEX test_name",
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			logger := testhelpers.NewLogger(io.Discard)
			db, err := connect(":memory:", logger)
			require.NoError(t, err)
			for _, schemaDefinition := range tt.schemaDefinitions {
				logger.LogAttrs(ctx, slog.LevelInfo, "migrating", slog.String("schema", schemaDefinition))
				err = db.migrateTo(ctx, schemaDefinition)
				require.NoError(t, err)
			}
			for _, query := range tt.testQueries {
				logger.LogAttrs(ctx, slog.LevelInfo, "executing", slog.String("query", query))
				_, err = db.ReadWrite.ExecContext(ctx, query)
				if tt.wantErr {
					require.Error(t, err)
				} else {
					require.NoError(t, err)
				}
			}
		})
	}
}

func TestDatabase_migrateTo_preservesData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)
	db, err := connect(":memory:", logger)
	require.NoError(t, err)

	require.NoError(t, db.migrateTo(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"))
	_, err = db.ReadWrite.ExecContext(ctx, "INSERT INTO test (name) VALUES ('kept')")
	require.NoError(t, err)

	// Adding a column rebuilds the table. Existing rows must survive.
	require.NoError(t, db.migrateTo(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, email TEXT)"))

	var name string
	require.NoError(t, db.ReadWrite.GetContext(ctx, &name, "SELECT name FROM test WHERE id = 1"))
	require.Equal(t, "kept", name)
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)
	db, err := NewDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)

	// The application schema is in place and writable through the write pool.
	_, err = db.ReadWrite.ExecContext(ctx,
		`INSERT INTO chats (id, session_token, environment_id, user_agent_id, bot_agent_id, model)
		 VALUES ('chat-1', 'token-1', 'env-1', 'agent-1', 'agent-2', 'test-model')`)
	require.NoError(t, err)

	// The read pool sees the same data but rejects writes.
	var count int
	require.NoError(t, db.ReadOnly.GetContext(ctx, &count, "SELECT count(*) FROM chats"))
	require.Equal(t, 1, count)
	_, err = db.ReadOnly.ExecContext(ctx, "DELETE FROM chats")
	require.Error(t, err)

	// Deleting a chat cascades to its turns.
	_, err = db.ReadWrite.ExecContext(ctx,
		`INSERT INTO chat_turns (chat_id, "order", message, reply) VALUES ('chat-1', 0, 'hi', 'hello')`)
	require.NoError(t, err)
	_, err = db.ReadWrite.ExecContext(ctx, "DELETE FROM chats WHERE id = 'chat-1'")
	require.NoError(t, err)
	require.NoError(t, db.ReadOnly.GetContext(ctx, &count, `SELECT count(*) FROM chat_turns`))
	require.Equal(t, 0, count)
}
