package main

import (
	"cmp"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/rexcoach/internal/ai"
	"github.com/myrjola/rexcoach/internal/auth"
	"github.com/myrjola/rexcoach/internal/coach"
	"github.com/myrjola/rexcoach/internal/envstruct"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/flightrecorder"
	"github.com/myrjola/rexcoach/internal/logging"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/sqlite"
	"golang.org/x/sync/errgroup"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	auth           *auth.Authenticator
	coach          *coach.Service
	flightRecorder *flightrecorder.Recorder
	// aiTimeout is the bounded wait of a single generative service call.
	aiTimeout time.Duration
}

type config struct {
	// Addr is the address to listen on. localhost:0 picks a free port.
	Addr string `env:"COACH_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the path of the SQLite database or ":memory:" for an ephemeral one.
	SqliteURL string `env:"COACH_SQLITE_URL" envDefault:"./rexcoach.sqlite3"`
	// OpenAIAPIKey authenticates against the generative service. Without it every plan request falls back to the
	// starter plan.
	OpenAIAPIKey  string        `env:"COACH_OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL string        `env:"COACH_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel   string        `env:"COACH_OPENAI_MODEL" envDefault:"gpt-4o"`
	AITimeout     time.Duration `env:"COACH_AI_TIMEOUT" envDefault:"30s"`
	// SessionLifetime is how long a sign-in lasts.
	SessionLifetime time.Duration `env:"COACH_SESSION_LIFETIME" envDefault:"12h"`
	SecureCookies   bool          `env:"COACH_SECURE_COOKIES" envDefault:"true"`
	// TracesDirectory enables the flight recorder when set.
	TracesDirectory    string        `env:"COACH_TRACES_DIRECTORY" envDefault:""`
	AthleteIdleTimeout time.Duration `env:"COACH_ATHLETE_IDLE_TIMEOUT" envDefault:"12h"`
	// BcryptCost of zero uses the bcrypt default.
	BcryptCost int `env:"COACH_BCRYPT_COST" envDefault:"0"`
}

// loadConfig populates config from the environment, then the dotenv file, then the YAML file, then tag defaults.
func loadConfig(lookupEnv func(string) (string, bool)) (config, error) {
	var cfg config
	dotenvPath, ok := lookupEnv("COACH_DOTENV_FILE")
	if !ok {
		dotenvPath = ".env"
	}
	dotenv, err := envstruct.DotenvLookup(dotenvPath)
	if err != nil {
		return cfg, errors.Wrap(err, "load dotenv file")
	}
	yamlPath, _ := lookupEnv("COACH_CONFIG_FILE")
	yamlLookup, err := envstruct.YAMLLookup(yamlPath)
	if err != nil {
		return cfg, errors.Wrap(err, "load config file")
	}
	if err = envstruct.Populate(&cfg, envstruct.Chain(lookupEnv, dotenv, yamlLookup)); err != nil {
		return cfg, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(lookupEnv)
	if err != nil {
		return err
	}

	var recorder *flightrecorder.Recorder
	if cfg.TracesDirectory != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{ //nolint:exhaustruct // defaults.
			Logger:          logger,
			TracesDirectory: cfg.TracesDirectory,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(context.WithoutCancel(ctx))
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()

	sessionManager := auth.NewSessionManager(db, auth.SessionConfig{
		Lifetime:      cfg.SessionLifetime,
		SecureCookies: cfg.SecureCookies,
	})
	authenticator, err := auth.New(db, sessionManager, logger, cfg.BcryptCost)
	if err != nil {
		return errors.Wrap(err, "new authenticator")
	}

	aiClient := ai.NewOpenAIClient(ai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		MaxRetries: 1,
	}, logger)
	planCfg := plan.ClientConfig{
		Timeout: cfg.AITimeout,
		OnTimeout: func(ctx context.Context) {
			recorder.Capture(ctx, "ai-timeout")
		},
		NewID: nil,
	}
	coachService := coach.NewService(db, logger,
		plan.NewGenerator(aiClient, logger, planCfg),
		plan.NewAdapter(aiClient, logger, planCfg),
		coach.Config{IdleTimeout: cfg.AthleteIdleTimeout, Now: nil})

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		auth:           authenticator,
		coach:          coachService,
		flightRecorder: recorder,
		aiTimeout:      cfg.AITimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.configureAndStartServer(gctx, cfg.Addr, app.routes())
	})
	g.Go(func() error {
		return coachService.RunScheduler(gctx)
	})
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}

func main() {
	ctx := context.Background()
	level, err := logging.ParseLevel(cmp.Or(os.Getenv("COACH_LOG_LEVEL"), "info"))
	logger := logging.New(os.Stdout, logging.Options{Level: level, JSON: os.Getenv("COACH_LOG_JSON") == "true"})
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "falling back to info level", errors.SlogError(err))
	}
	if err = run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
