package main

import (
	"context"
	"github.com/joho/godotenv"
	"github.com/myrjola/whodunnit/internal/ai"
	"github.com/myrjola/whodunnit/internal/broker"
	"github.com/myrjola/whodunnit/internal/director"
	"github.com/myrjola/whodunnit/internal/envstruct"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/imagery"
	"github.com/myrjola/whodunnit/internal/logging"
	"github.com/myrjola/whodunnit/internal/pprofserver"
	"github.com/myrjola/whodunnit/internal/reconcile"
	"github.com/myrjola/whodunnit/internal/setup"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
	"os"
	"time"
)

type application struct {
	logger        *slog.Logger
	store         *gamestate.Store
	initializer   *setup.Initializer
	director      *director.Director
	engine        *reconcile.Engine
	illustrator   *imagery.Generator
	feed          *broker.UpdateFeed[string, reconcile.Notice]
	oracleTimeout time.Duration
}

type config struct {
	Addr          string        `env:"WHODUNNIT_ADDR" envDefault:"localhost:4000"`
	SQLiteURL     string        `env:"WHODUNNIT_SQLITE_URL" envDefault:"./whodunnit.sqlite"`
	PprofPort     string        `env:"WHODUNNIT_PPROF_PORT" envDefault:":6060"`
	OpenAIKey     string        `env:"OPENAI_API_KEY" envDefault:""`
	HistoryWindow int           `env:"WHODUNNIT_HISTORY_WINDOW" envDefault:"3"`
	OracleTimeout time.Duration `env:"WHODUNNIT_ORACLE_TIMEOUT" envDefault:"2m"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "parse environment")
	}

	// Initialise pprof listening on localhost so that it's not open to the world.
	// An empty port disables it, test servers would otherwise fight over the port.
	if cfg.PprofPort != "" {
		pprofserver.Launch(cfg.PprofPort, logger)
	}

	dbs, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SQLiteURL))
	}
	defer func() {
		if err := dbs.Close(); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(err))
		}
	}()
	go dbs.StartDatabaseOptimizer(ctx)

	client := ai.NewClient(cfg.OpenAIKey)
	store := gamestate.NewStore(dbs, logger)

	feed := broker.NewUpdateFeed[string, reconcile.Notice]()
	go feed.Start()
	defer feed.Stop()

	app := application{
		logger:        logger,
		store:         store,
		initializer:   setup.NewInitializer(ai.NewGameBuilder(client), store, logger),
		director:      director.NewDirector(store, client, ai.NewSummarizer(client), cfg.HistoryWindow, logger),
		engine:        reconcile.NewEngine(store, ai.NewAnalyst(client, logger), feed, logger),
		illustrator:   imagery.NewGenerator(client, store, logger),
		feed:          feed,
		oracleTimeout: cfg.OracleTimeout,
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

func main() {
	ctx := context.Background()
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	})))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.LogAttrs(ctx, slog.LevelError, "load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server failed", errors.SlogError(err))
		os.Exit(1)
	}
}
