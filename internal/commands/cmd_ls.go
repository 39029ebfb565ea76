package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/styles"
	"github.com/colonyops/yearn/internal/yearn"
	"github.com/colonyops/yearn/pkg/iojson"
)

type LsCmd struct {
	flags *Flags
	app   *yearn.App

	// flags
	user       string
	statuses   []string
	all        bool
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *yearn.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List desires",
		UsageText: "yearn ls [--user <name>] [--status <status>]... [--all] [--json]",
		Description: `Displays a table of desires with their strength, effective strength
(strength scaled by the source weight) and activation threshold.

Without --user, desires of every configured user are listed. Terminal desires
are hidden unless --all or an explicit --status is given.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "only list this user's desires",
				Destination: &cmd.user,
			},
			&cli.StringSliceFlag{
				Name:        "status",
				Aliases:     []string{"s"},
				Usage:       "filter by status (repeatable)",
				Destination: &cmd.statuses,
			},
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "include completed, failed, abandoned and rejected desires",
				Destination: &cmd.all,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

// desireInfo is the JSON output format for yearn ls --json.
type desireInfo struct {
	User              string        `json:"user"`
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Status            desire.Status `json:"status"`
	Source            desire.Source `json:"source"`
	Strength          float64       `json:"strength"`
	EffectiveStrength float64       `json:"effective_strength"`
	Threshold         float64       `json:"threshold"`
	Reinforcements    int           `json:"reinforcements"`
	RunCount          int           `json:"run_count"`
	Activated         bool          `json:"activated"`
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	statuses, err := cmd.selectedStatuses()
	if err != nil {
		return err
	}

	var users []string
	if cmd.user != "" {
		users = []string{cmd.user}
	}
	users, err = resolveUsers(ctx, cmd.app, users)
	if err != nil {
		return err
	}

	var rows []desireInfo
	for _, user := range users {
		items, err := cmd.app.Desires.List(ctx, user, statuses...)
		if err != nil {
			return fmt.Errorf("list desires for %s: %w", user, err)
		}
		for _, d := range items {
			rows = append(rows, desireInfo{
				User:              user,
				ID:                d.ID,
				Title:             d.Title,
				Status:            d.Status,
				Source:            d.Source,
				Strength:          d.Strength,
				EffectiveStrength: d.EffectiveStrength(),
				Threshold:         d.Threshold,
				Reinforcements:    d.Reinforcements,
				RunCount:          d.RunCount,
				Activated:         d.IsActivated(),
			})
		}
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, r := range rows {
			if err := iojson.WriteLine(out, r); err != nil {
				return fmt.Errorf("encode desire: %w", err)
			}
		}
		return nil
	}

	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "No desires found\n")
		return nil
	}

	_, _ = fmt.Fprintln(out, renderTable(rows, len(users) > 1))
	return nil
}

func (cmd *LsCmd) selectedStatuses() ([]desire.Status, error) {
	if len(cmd.statuses) > 0 {
		out := make([]desire.Status, 0, len(cmd.statuses))
		for _, s := range cmd.statuses {
			st, err := desire.ParseStatus(s)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
		return out, nil
	}

	if cmd.all {
		return desire.AllStatuses, nil
	}

	var live []desire.Status
	for _, st := range desire.AllStatuses {
		if !st.IsTerminal() {
			live = append(live, st)
		}
	}
	return live, nil
}

func renderTable(rows []desireInfo, showUser bool) string {
	headers := []string{"ID", "STATUS", "STR", "EFF", "THR", "REINF", "RUNS", "SOURCE", "TITLE"}
	if showUser {
		headers = append([]string{"USER"}, headers...)
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.HeaderStyle.PaddingRight(1)
			}
			return lipgloss.NewStyle().PaddingRight(1)
		})

	for _, r := range rows {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		status := string(r.Status)
		if r.Activated && r.Status == desire.StatusPending {
			status += "*"
		}
		cells := []string{
			styles.MutedStyle.Render(id),
			styles.StatusStyle(r.Status).Render(status),
			strconv.FormatFloat(r.Strength, 'f', 2, 64),
			styles.Strength(r.EffectiveStrength, r.Threshold),
			strconv.FormatFloat(r.Threshold, 'f', 2, 64),
			strconv.Itoa(r.Reinforcements),
			strconv.Itoa(r.RunCount),
			string(r.Source),
			r.Title,
		}
		if showUser {
			cells = append([]string{r.User}, cells...)
		}
		t.Row(cells...)
	}

	return t.String()
}
