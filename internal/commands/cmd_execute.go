package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/printer"
	"github.com/colonyops/yearn/internal/yearn"
)

type ExecuteCmd struct {
	flags *Flags
	app   *yearn.App

	users []string
}

// NewExecuteCmd creates a new execute command
func NewExecuteCmd(flags *Flags, app *yearn.App) *ExecuteCmd {
	return &ExecuteCmd{flags: flags, app: app}
}

// Register adds the execute command to the application
func (cmd *ExecuteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "execute",
		Usage:     "Run the plans of approved desires",
		UsageText: "yearn execute [--user <name>]...",
		Description: `Executes the attached plan of every approved desire, one step at a time.
A failing step stops that plan and marks the desire failed; other desires
still run.`,
		Flags:  []cli.Flag{usersFlag(&cmd.users)},
		Action: cmd.run,
	})

	return app
}

func (cmd *ExecuteCmd) run(ctx context.Context, c *cli.Command) error {
	users, err := resolveUsers(ctx, cmd.app, cmd.users)
	if err != nil {
		return err
	}

	if err := cmd.app.Runner.ForUsers(users...).Execute(ctx); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Execution pass complete for %d user(s)", len(users))
	return nil
}
