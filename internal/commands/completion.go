package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/yearn"
)

// DesireIDCompleter returns a ShellCompleteFunc that suggests the ids of
// desires in the given statuses as positional completions. The --user flag
// narrows suggestions to one namespace.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func DesireIDCompleter(app *yearn.App, statuses ...desire.Status) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		// Delegate to default flag completion when typing a flag
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		var users []string
		if u := cmd.String("user"); u != "" {
			users = []string{u}
		}
		users, err := resolveUsers(ctx, app, users)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, user := range users {
			items, err := app.Desires.List(ctx, user, statuses...)
			if err != nil {
				continue
			}
			for _, d := range items {
				_, _ = fmt.Fprintf(w, "%s:%s\n", d.ID, d.Title)
			}
		}
	}
}
