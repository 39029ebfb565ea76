package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/printer"
	"github.com/colonyops/yearn/internal/yearn"
)

// Cycle passes selectable with --pass.
const (
	passAll      = "all"
	passGenerate = "generate"
	passEvaluate = "evaluate"
)

type CycleCmd struct {
	flags *Flags
	app   *yearn.App

	users []string
	pass  string
}

// NewCycleCmd creates a new cycle command
func NewCycleCmd(flags *Flags, app *yearn.App) *CycleCmd {
	return &CycleCmd{flags: flags, app: app}
}

// Register adds the cycle command to the application
func (cmd *CycleCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "cycle",
		Usage:     "Run one generation and evaluation cycle",
		UsageText: "yearn cycle [--user <name>]... [--pass all|generate|evaluate]",
		Description: `Runs the desire generator, then the evaluator (nurture followed by
activation), once for every user.

Each agent holds a lock while it runs. If another process already holds it,
the pass is skipped without touching any state.`,
		Flags: []cli.Flag{
			usersFlag(&cmd.users),
			&cli.StringFlag{
				Name:        "pass",
				Usage:       "which pass to run (all, generate, evaluate)",
				Value:       passAll,
				Destination: &cmd.pass,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CycleCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	users, err := resolveUsers(ctx, cmd.app, cmd.users)
	if err != nil {
		return err
	}
	runner := cmd.app.Runner.ForUsers(users...)

	switch cmd.pass {
	case passAll:
		err = runner.Cycle(ctx)
	case passGenerate:
		err = runner.Generate(ctx)
	case passEvaluate:
		err = runner.Evaluate(ctx)
	default:
		return fmt.Errorf("unknown pass %q (want %s, %s or %s)", cmd.pass, passAll, passGenerate, passEvaluate)
	}
	if err != nil {
		return err
	}

	p.Successf("Cycle complete for %d user(s)", len(users))
	return nil
}
