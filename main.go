package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/commands"
	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/logging"
	"github.com/colonyops/yearn/internal/core/styles"
	"github.com/colonyops/yearn/internal/data/db"
	"github.com/colonyops/yearn/internal/data/memstore"
	"github.com/colonyops/yearn/internal/data/stores"
	"github.com/colonyops/yearn/internal/engine"
	"github.com/colonyops/yearn/internal/yearn"
	"github.com/colonyops/yearn/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

// busBuffer bounds queued events; publishers drop rather than block beyond it.
const busBuffer = 1024

func main() {
	ctx := context.Background()

	var (
		logCloser       func()
		narrativeCloser func()
		yearnApp        = &yearn.App{}
		database        *db.DB
		busCancel       context.CancelFunc
		busDone         chan struct{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "yearn",
		Usage:     "Grow, nurture and act on desires",
		UsageText: "yearn [global options] command [command options]",
		Description: `Yearn turns signals (goals, tasks, memories, reflections) into desires,
lets them strengthen or fade over repeated cycles, and executes the plans of
the ones you approve.

Run 'yearn cycle' to generate and evaluate desires once, 'yearn run' to keep
cycling on a schedule, and 'yearn ls' to see where every desire stands.`,
		Version:               build(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("YEARN_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/yearn.log)",
				Sources:     cli.EnvVars("YEARN_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("YEARN_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("YEARN_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.BoolFlag{
				Name:        "ephemeral",
				Usage:       "keep desires, metrics and locks in memory for this process only",
				Sources:     cli.EnvVars("YEARN_EPHEMERAL"),
				Destination: &flags.Ephemeral,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/yearn.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "yearn.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			// Event bus: debug logging plus the inner-dialogue narrative
			bus := eventbus.New(busBuffer)
			eventbus.RegisterDebugLogger(bus, logging.Component("eventbus"))

			narrative, nCloser, err := logutils.New("info", filepath.Join(cfg.DataDir, "inner-dialogue.log"))
			if err != nil {
				return ctx, fmt.Errorf("setup narrative log: %w", err)
			}
			narrativeCloser = nCloser
			eventbus.NewNarrativeRecorder(bus, narrative, yearn.NarrativeEnabled(cfg, logging.Component("narrative"))).Register()

			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			busDone = make(chan struct{})
			go func() {
				defer close(busDone)
				bus.Start(busCtx)
			}()

			opts := yearn.Options{Config: cfg, Bus: bus}

			if flags.Ephemeral {
				store := memstore.New()
				opts.Store = store
				opts.Locker = store
				opts.KV = memstore.NewKV()
				*yearnApp = *yearn.NewApp(opts)
				return ctx, nil
			}

			// Open database connection
			dbOpts := db.OpenOptions{
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				BusyTimeout:  cfg.Database.BusyTimeout,
			}
			database, err = db.Open(cfg.DataDir, dbOpts)
			if err != nil && stores.IsCorruptionError(err) {
				log.Warn().Err(err).Msg("database corrupted, moving it aside and starting fresh")
				if rerr := stores.RecoverFromCorruption(cfg.DataDir); rerr != nil {
					return ctx, fmt.Errorf("recover database: %w", rerr)
				}
				database, err = db.Open(cfg.DataDir, dbOpts)
			}
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			// Create stores
			kvStore := stores.NewKVStore(database)
			lockStore := stores.NewLockStore(database)

			opts.Store = stores.NewDesireStore(database)
			opts.Locker = lockStore
			opts.KV = kvStore
			opts.DB = database
			opts.Sweepers = []engine.Sweeper{kvStore, lockStore}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*yearnApp = *yearn.NewApp(opts)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Stop the bus and let it deliver what is still queued
			if busCancel != nil {
				busCancel()
				<-busDone
			}

			if narrativeCloser != nil {
				narrativeCloser()
			}

			// Close database connection
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.RegisterAll(app, flags, yearnApp)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
