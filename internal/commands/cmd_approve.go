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
	"github.com/colonyops/yearn/pkg/iojson"
)

type ApproveCmd struct {
	flags *Flags
	app   *yearn.App

	user  string
	trust string
	yes   bool
	plan  iojson.FileReader[desire.Plan]
}

// NewApproveCmd creates a new approve command
func NewApproveCmd(flags *Flags, app *yearn.App) *ApproveCmd {
	return &ApproveCmd{
		flags: flags,
		app:   app,
		plan:  iojson.FileReader[desire.Plan]{Name: "plan"},
	}
}

// Register adds the approve command to the application
func (cmd *ApproveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "approve",
		Usage:     "Approve an activated desire and attach its plan",
		UsageText: "yearn approve [--user <name>] [--trust <level>] [--plan plan.json | < plan.json] <id>",
		Description: `Moves an activated pending desire to approved and attaches a plan read as
JSON from --plan or stdin:

  {"steps": [{"order": 1, "action": "draft the email", "skill": "mail"}]}

The approver's --trust level must be at least the desire's required trust
level (suggest < supervised_auto < bounded_auto). Approved desires run on the
next execute pass.`,
		Flags: []cli.Flag{
			userFlag(&cmd.user),
			cmd.plan.Flag(),
			&cli.StringFlag{
				Name:        "trust",
				Usage:       "approver trust level (suggest, supervised_auto, bounded_auto)",
				Value:       string(desire.TrustSuggest),
				Sources:     cli.EnvVars("YEARN_TRUST"),
				Destination: &cmd.trust,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "skip the confirmation prompt",
				Destination: &cmd.yes,
			},
		},
		ShellComplete: DesireIDCompleter(cmd.app, desire.StatusPending),
		Action:        cmd.run,
	})

	return app
}

func (cmd *ApproveCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one desire id")
	}

	trust, err := desire.ParseTrustLevel(cmd.trust)
	if err != nil {
		return err
	}

	user, err := resolveUser(ctx, cmd.app, cmd.user)
	if err != nil {
		return err
	}

	d, err := cmd.app.Desires.Resolve(ctx, user, c.Args().First())
	if err != nil {
		return err
	}

	plan, err := cmd.plan.Read()
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}

	if !cmd.yes {
		ok, err := confirm(
			fmt.Sprintf("Approve %q?", d.Title),
			fmt.Sprintf("%d step(s) will run on the next execute pass.", len(plan.Steps)),
		)
		if err != nil {
			return err
		}
		if !ok {
			p.Infof("Approval cancelled")
			return nil
		}
	}

	d, err = cmd.app.Desires.Approve(ctx, user, d.ID, plan, trust)
	if err != nil {
		return err
	}

	p.Successf("Approved %s (%s)", d.Title, d.ID)
	return nil
}

// confirm asks a yes/no question. A user abort counts as no.
func confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
