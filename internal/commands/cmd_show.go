package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/styles"
	"github.com/colonyops/yearn/internal/yearn"
	"github.com/colonyops/yearn/pkg/iojson"
)

type ShowCmd struct {
	flags *Flags
	app   *yearn.App

	user       string
	jsonOutput bool
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags, app *yearn.App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a desire in detail",
		UsageText: "yearn show [--user <name>] [--json] <id>",
		Description: `Renders a desire with its reason, plan and execution trace. The id may be
any unique prefix of the full desire id.`,
		Flags: []cli.Flag{
			userFlag(&cmd.user),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the stored desire as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		ShellComplete: DesireIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
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

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteLine(out, d)
	}

	rendered, err := renderMarkdown(desireMarkdown(d), terminalWidth())
	if err != nil {
		return fmt.Errorf("render desire: %w", err)
	}
	_, _ = fmt.Fprint(out, rendered)
	return nil
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return min(w, 120)
	}
	return 80
}

func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.CurrentPalette.GlamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// desireMarkdown lays a desire out as a markdown document.
func desireMarkdown(d desire.Desire) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	fmt.Fprintf(&b, "`%s` · **%s** · source `%s` · risk `%s` · requires `%s`\n\n",
		d.ID, d.Status, d.Source, d.Risk, d.RequiredTrustLevel)

	fmt.Fprintf(&b, "| strength | effective | threshold | reinforcements | runs |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %.2f | %.2f | %.2f | %d | %d |\n\n",
		d.Strength, d.EffectiveStrength(), d.Threshold, d.Reinforcements, d.RunCount)

	fmt.Fprintf(&b, "Created %s", d.CreatedAt.Format(time.DateTime))
	if d.ActivatedAt != nil {
		fmt.Fprintf(&b, ", activated %s", d.ActivatedAt.Format(time.DateTime))
	}
	if d.CompletedAt != nil {
		fmt.Fprintf(&b, ", finished %s", d.CompletedAt.Format(time.DateTime))
	}
	b.WriteString(".\n\n")

	if d.Description != "" {
		fmt.Fprintf(&b, "## Description\n\n%s\n\n", d.Description)
	}
	if d.Reason != "" {
		fmt.Fprintf(&b, "## Why\n\n%s\n\n", d.Reason)
	}
	if v := d.GetMeta(desire.MetaSuggestedAction); v != "" {
		fmt.Fprintf(&b, "## Suggested action\n\n%s\n\n", v)
	}
	if v := d.GetMeta(desire.MetaReinforcedBy); v != "" {
		fmt.Fprintf(&b, "Last reinforced by: %s\n\n", v)
	}
	if v := d.GetMeta(desire.MetaRejectedReason); v != "" {
		fmt.Fprintf(&b, "Rejected: %s\n\n", v)
	}

	if d.Plan != nil && len(d.Plan.Steps) > 0 {
		b.WriteString("## Plan\n\n")
		for _, s := range d.Plan.Steps {
			fmt.Fprintf(&b, "%d. %s (`%s`)\n", s.Order, s.Action, s.Skill)
		}
		b.WriteString("\n")
	}

	if e := d.Execution; e != nil {
		fmt.Fprintf(&b, "## Execution: %s\n\n", e.Status)
		for _, r := range e.StepResults {
			mark := "✓"
			detail := r.Result
			if !r.Success {
				mark = "✗"
				detail = r.Error
			}
			fmt.Fprintf(&b, "- %s step %d", mark, r.StepOrder)
			if detail != "" {
				fmt.Fprintf(&b, ": %s", detail)
			}
			b.WriteString("\n")
		}
		if e.Error != "" {
			fmt.Fprintf(&b, "\n> %s\n", e.Error)
		}
	}

	return b.String()
}
