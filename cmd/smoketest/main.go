package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/sotopia-chat/internal/e2etest"
	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/logging"
)

// TestWorkspace checks that a deployed instance serves the scenario picker
// and recomputes it when the scenario changes. It stops short of sending a
// chat message so that smoke tests do not burn inference quota.
func TestWorkspace(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return errors.Wrap(err, "get home page")
	}

	environments := doc.Find("#environment option")
	if environments.Length() == 0 {
		return errors.New("no scenarios in the dropdown")
	}
	if doc.Find("#user_agent option").Length() == 0 {
		return errors.New("no playable agents for the default scenario")
	}

	// Recompute the panel for the last scenario in the list.
	environmentID, ok := environments.Last().Attr("value")
	if !ok {
		return errors.New("scenario option has no value")
	}
	if doc, err = client.GetDoc(ctx, "/panel?environment="+environmentID); err != nil {
		return errors.Wrap(err, "get panel")
	}
	selected, ok := doc.Find("#environment option[selected]").Attr("value")
	if !ok || selected != environmentID {
		return errors.New("panel did not select the requested scenario",
			slog.String("requested", environmentID), slog.String("selected", selected))
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestWorkspace(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing workspace", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
