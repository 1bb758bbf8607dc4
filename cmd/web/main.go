package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/myrjola/sotopia-chat/internal/ai"
	"github.com/myrjola/sotopia-chat/internal/envstruct"
	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/logging"
	"github.com/myrjola/sotopia-chat/internal/pprofserver"
	"github.com/myrjola/sotopia-chat/internal/profiles"
	"github.com/myrjola/sotopia-chat/internal/prompt"
	"github.com/myrjola/sotopia-chat/internal/repositories"
	"github.com/myrjola/sotopia-chat/internal/sqlite"
)

type config struct {
	// Addr is the address the server listens on. Use localhost:0 to pick a
	// free port.
	Addr string `env:"SOTOPIA_ADDR" envDefault:"localhost:4000"`
	// PprofAddr enables a profiling server on the given loopback address.
	PprofAddr string `env:"SOTOPIA_PPROF_ADDR" envDefault:""`
	// SqliteURL is the path to the SQLite database file or ":memory:".
	SqliteURL string `env:"SOTOPIA_SQLITE_URL" envDefault:"./sotopia-chat.sqlite"`
	// ProfileDir overrides the bundled demo profiles with an on-disk set.
	ProfileDir string `env:"SOTOPIA_PROFILE_DIR" envDefault:""`
	// InferenceURL is the base URL of an OpenAI-compatible endpoint, e.g. a
	// vLLM server hosting the tuned model. Empty means the OpenAI API.
	InferenceURL    string `env:"SOTOPIA_INFERENCE_URL" envDefault:""`
	InferenceAPIKey string `env:"SOTOPIA_INFERENCE_API_KEY" envDefault:""`
	// Models is a comma-separated list of model identifiers offered in the
	// UI. They are passed through to the inference endpoint unchanged.
	Models string `env:"SOTOPIA_MODELS" envDefault:"cmu-lti/sotopia-pi-mistral-7b-BC_SR"`
	// MaxPromptChars bounds the rendered prompt. The oldest turns are dropped
	// when a conversation outgrows it.
	MaxPromptChars int `env:"SOTOPIA_MAX_PROMPT_CHARS" envDefault:"24000"`
}

type application struct {
	logger         *slog.Logger
	snapshot       *profiles.Snapshot
	composer       prompt.Composer
	aiClient       *ai.Client
	models         []string
	sessionManager *scs.SessionManager
	chats          *repositories.ChatRepository
	htmx           *htmx.HTMX
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "parse environment variables")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(cfg.PprofAddr, logger)
	}

	store := profiles.Embedded()
	if cfg.ProfileDir != "" {
		store = profiles.NewStore(os.DirFS(cfg.ProfileDir))
	}
	snapshot, err := store.Load(profiles.DefaultSources)
	if err != nil {
		return errors.Wrap(err, "load profiles", slog.String("profileDir", cfg.ProfileDir))
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "connect to database", slog.String("url", cfg.SqliteURL))
	}

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	chats := repositories.NewChatRepository(db, logger)
	go chats.StartJanitor(ctx)

	app := application{
		logger:         logger,
		snapshot:       snapshot,
		composer:       prompt.Composer{MaxChars: cfg.MaxPromptChars},
		aiClient:       ai.NewClient(cfg.InferenceURL, cfg.InferenceAPIKey),
		models:         splitModels(cfg.Models),
		sessionManager: sessionManager,
		chats:          chats,
		htmx:           htmx.New(),
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

// splitModels parses the comma-separated model list, ignoring empty entries.
func splitModels(models string) []string {
	var parsed []string
	for _, model := range strings.Split(models, ",") {
		if model = strings.TrimSpace(model); model != "" {
			parsed = append(parsed, model)
		}
	}
	return parsed
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{ //nolint:exhaustruct
		Level:     slog.LevelDebug,
		AddSource: true,
	}))
	logger := slog.New(loggerHandler)

	// A missing .env file is fine, the environment can be set by other means.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server failed", errors.SlogError(err))
		os.Exit(1)
	}
}
