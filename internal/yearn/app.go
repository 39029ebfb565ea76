// Package yearn assembles the engine, its collaborators and the desire
// services that commands consume.
package yearn

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/kv"
	"github.com/colonyops/yearn/internal/core/lock"
	"github.com/colonyops/yearn/internal/core/logging"
	"github.com/colonyops/yearn/internal/core/signal"
	"github.com/colonyops/yearn/internal/data/db"
	"github.com/colonyops/yearn/internal/engine"
	"github.com/colonyops/yearn/internal/integration/command"
	"github.com/colonyops/yearn/internal/integration/files"
	"github.com/colonyops/yearn/pkg/executil"
	"github.com/colonyops/yearn/pkg/tmpl"
)

// App is the central entry point for all yearn operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Desires   *DesireService
	Runner    *engine.Runner
	Scheduler *engine.Scheduler

	Config *config.Config
	KV     kv.KV
	Bus    *eventbus.EventBus
	DB     *db.DB // nil when running ephemeral
}

// Options are the explicit dependencies of an App.
type Options struct {
	Config *config.Config
	Store  desire.Store
	Locker lock.Locker
	KV     kv.KV
	Bus    *eventbus.EventBus
	DB     *db.DB

	// Exec runs classifier and skill commands. Defaults to executil.RealExecutor.
	Exec     executil.Executor
	Sweepers []engine.Sweeper
}

// userLister is implemented by stores that can report the namespaces they hold.
type userLister interface {
	Users(ctx context.Context) ([]string, error)
}

// NewApp wires the engine agents, the runner and the scheduler.
func NewApp(opts Options) *App {
	cfg := opts.Config
	if opts.Exec == nil {
		opts.Exec = &executil.RealExecutor{}
	}

	renderer := tmpl.New(tmpl.Config{DataDir: cfg.DataDir})
	gatherer := signal.NewGatherer(
		logging.Component("signals"),
		cfg.Signals.Limit,
		files.SignalProviders(cfg.UsersDir(), logging.Component("signal-files"))...,
	)
	classifier := command.NewClassifier(
		opts.Exec,
		renderer,
		cfg.Classifier,
		filepath.Join(cfg.DataDir, "tmp"),
		logging.Component("classifier"),
	)
	steps := command.NewStepRunner(opts.Exec, renderer, cfg.Skills)

	app := &App{
		Config: cfg,
		KV:     opts.KV,
		Bus:    opts.Bus,
		DB:     opts.DB,
	}

	users := func(ctx context.Context) ([]string, error) {
		return resolveUsers(ctx, cfg, opts.Store)
	}

	app.Runner = engine.NewRunner(engine.RunnerOptions{
		Store:     opts.Store,
		Locker:    opts.Locker,
		KV:        opts.KV,
		Bus:       opts.Bus,
		Users:     users,
		Engine:    cfg.LoadEngine,
		Generator: engine.NewGenerator(opts.Store, gatherer, classifier, opts.Bus, logging.Component("generator")),
		Nurture:   engine.NewNurture(opts.Store, gatherer, classifier, opts.Bus, logging.Component("nurture")),
		Activator: engine.NewActivator(opts.Store, opts.Bus, logging.Component("activator")),
		Executor:  engine.NewExecutor(opts.Store, steps.ForUser, opts.Bus, logging.Component("executor")),
		LockTTL:   cfg.Schedule.LockTTL,
	}, logging.Component("runner"))

	app.Scheduler = engine.NewScheduler(app.Runner, cfg.Schedule, logging.Component("scheduler"), opts.Sweepers...)
	app.Desires = NewDesireService(opts.Store, opts.KV, opts.Bus, users)

	return app
}

// resolveUsers returns the configured users. In all mode, namespaces the
// store already holds are appended after those found on disk.
func resolveUsers(ctx context.Context, cfg *config.Config, store desire.Store) ([]string, error) {
	users, err := files.Users(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Users.Mode != config.UsersAll {
		return users, nil
	}

	lister, ok := store.(userLister)
	if !ok {
		return users, nil
	}
	stored, err := lister.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range stored {
		if !slices.Contains(users, u) && config.ValidateUserName(u) == nil {
			users = append(users, u)
		}
	}
	return users, nil
}

// NarrativeEnabled reports whether a user's engine config asks for inner
// dialogue output. Users whose config cannot be loaded get none.
func NarrativeEnabled(cfg *config.Config, log zerolog.Logger) func(user string) bool {
	return func(user string) bool {
		eng, err := cfg.LoadEngine(user)
		if err != nil {
			log.Debug().Err(err).Str("user", user).Msg("narrative disabled, config unavailable")
			return false
		}
		return eng.Logging.LogToInnerDialogue
	}
}
