package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/core/styles"
	"github.com/colonyops/yearn/internal/yearn"
	"github.com/colonyops/yearn/pkg/iojson"
)

type StatusCmd struct {
	flags *Flags
	app   *yearn.App

	jsonOutput bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, app *yearn.App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "status",
		Usage:       "Show the last run of each agent per user",
		UsageText:   "yearn status [--json]",
		Description: "Lists the most recent run record written by the generator, evaluator and executor for every user.",
		Flags: []cli.Flag{
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

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	records, err := cmd.app.Desires.RunRecords(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, r := range records {
			if err := iojson.WriteLine(out, r); err != nil {
				return fmt.Errorf("encode run record: %w", err)
			}
		}
		return nil
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, "No runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AGENT\tUSER\tFINISHED\tTOOK\tRESULT")
	for _, r := range records {
		result := "ok"
		if r.Error != "" {
			result = styles.ErrorStyle.Render(r.Error)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Agent, r.User,
			r.FinishedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Millisecond),
			result,
		)
	}
	return w.Flush()
}
