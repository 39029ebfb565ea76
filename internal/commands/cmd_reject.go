package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/printer"
	"github.com/colonyops/yearn/internal/yearn"
)

type RejectCmd struct {
	flags *Flags
	app   *yearn.App

	user   string
	reason string
	yes    bool
}

// NewRejectCmd creates a new reject command
func NewRejectCmd(flags *Flags, app *yearn.App) *RejectCmd {
	return &RejectCmd{flags: flags, app: app}
}

// Register adds the reject command to the application
func (cmd *RejectCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "reject",
		Usage:     "Reject a desire",
		UsageText: "yearn reject [--user <name>] [--reason <text>] [--yes] <id>",
		Description: `Moves a nascent, pending or approved desire to rejected. Desires with the
same title are not proposed again for 30 days.`,
		Flags: []cli.Flag{
			userFlag(&cmd.user),
			&cli.StringFlag{
				Name:        "reason",
				Aliases:     []string{"r"},
				Usage:       "why the desire is rejected",
				Destination: &cmd.reason,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "skip the interactive prompt",
				Destination: &cmd.yes,
			},
		},
		ShellComplete: DesireIDCompleter(cmd.app, desire.StatusNascent, desire.StatusPending, desire.StatusApproved),
		Action:        cmd.run,
	})

	return app
}

func (cmd *RejectCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one desire id")
	}

	user, err := resolveUser(ctx, cmd.app, cmd.user)
	if err != nil {
		return err
	}

	d, err := cmd.app.Desires.Resolve(ctx, user, c.Args().First())
	if err != nil {
		return err
	}

	if !cmd.yes {
		confirmed := true
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewText().
					Title("Reason").
					Description(fmt.Sprintf("Why reject %q? (optional)", d.Title)).
					Value(&cmd.reason),
				huh.NewConfirm().
					Title("Reject this desire?").
					Value(&confirmed),
			),
		).Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				p.Infof("Rejection cancelled")
				return nil
			}
			return err
		}
		if !confirmed {
			p.Infof("Rejection cancelled")
			return nil
		}
	}

	d, err = cmd.app.Desires.Reject(ctx, user, d.ID, cmd.reason)
	if err != nil {
		return err
	}

	p.Successf("Rejected %s (%s)", d.Title, d.ID)
	return nil
}
