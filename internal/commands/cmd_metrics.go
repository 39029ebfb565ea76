package commands

import (
	"context"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/yearn"
	"github.com/colonyops/yearn/pkg/iojson"
)

type MetricsCmd struct {
	flags *Flags
	app   *yearn.App

	user       string
	jsonOutput bool
}

// NewMetricsCmd creates a new metrics command
func NewMetricsCmd(flags *Flags, app *yearn.App) *MetricsCmd {
	return &MetricsCmd{flags: flags, app: app}
}

// Register adds the metrics command to the application
func (cmd *MetricsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "metrics",
		Usage:     "Show lifecycle counters per user",
		UsageText: "yearn metrics [--user <name>] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "only show this user's counters",
				Destination: &cmd.user,
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

type metricsInfo struct {
	User    string           `json:"user"`
	Metrics map[string]int64 `json:"metrics"`
}

func (cmd *MetricsCmd) run(ctx context.Context, c *cli.Command) error {
	var users []string
	if cmd.user != "" {
		users = []string{cmd.user}
	}
	users, err := resolveUsers(ctx, cmd.app, users)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if !cmd.jsonOutput {
		_, _ = fmt.Fprintln(w, "USER\tMETRIC\tVALUE")
	}

	for _, user := range users {
		m, err := cmd.app.Desires.Metrics(ctx, user)
		if err != nil {
			return fmt.Errorf("metrics for %s: %w", user, err)
		}

		if cmd.jsonOutput {
			if err := iojson.WriteLine(out, metricsInfo{User: user, Metrics: m}); err != nil {
				return err
			}
			continue
		}

		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", user, name, m[name])
		}
	}

	return w.Flush()
}
