package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/sqlite"
	"github.com/myrjola/sotopia-chat/internal/testhelpers"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("SOTOPIA_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "SOTOPIA_SQLITE_URL not set")
		os.Exit(1)
	}

	// Opening the database synchronizes the schema, which is what we are here
	// to test against a copy of the production file.
	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Check that the migrated tables are queryable and report their sizes.
	var chatCount, turnCount int
	if err = db.ReadWrite.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&chatCount); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching chat count", errors.SlogError(err))
		os.Exit(1)
	}
	if err = db.ReadWrite.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_turns`).Scan(&turnCount); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching chat turn count", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "chat counts",
		slog.Int("chats", chatCount), slog.Int("turns", turnCount))

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
