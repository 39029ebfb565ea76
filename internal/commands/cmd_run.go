package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/printer"
	"github.com/colonyops/yearn/internal/yearn"
)

type RunCmd struct {
	flags *Flags
	app   *yearn.App
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags, app *yearn.App) *RunCmd {
	return &RunCmd{flags: flags, app: app}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run cycles and executions on a schedule",
		UsageText: "yearn run",
		Description: `Runs a cycle and an execution pass immediately, then repeats them on the
intervals configured under schedule until interrupted. Expired locks and
KV entries are swept on the same loop.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := printer.Ctx(ctx)
	sched := cmd.flags.Config.Schedule
	p.Infof("Scheduler running (cycle every %s, execute every %s); press ctrl+c to stop",
		sched.CycleInterval, sched.ExecuteInterval)

	if err := cmd.app.Scheduler.Run(ctx); err != nil {
		return err
	}

	p.Infof("Scheduler stopped")
	return nil
}
