package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/yearn"
)

func userFlag(dest *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "user",
		Aliases:     []string{"u"},
		Usage:       "user namespace (defaults to the only configured user)",
		Sources:     cli.EnvVars("YEARN_USER"),
		Destination: dest,
	}
}

func usersFlag(dest *[]string) cli.Flag {
	return &cli.StringSliceFlag{
		Name:        "user",
		Aliases:     []string{"u"},
		Usage:       "restrict the pass to these users (repeatable)",
		Destination: dest,
	}
}

// resolveUser returns user when set, otherwise the single configured user.
func resolveUser(ctx context.Context, app *yearn.App, user string) (string, error) {
	if user != "" {
		if err := config.ValidateUserName(user); err != nil {
			return "", err
		}
		return user, nil
	}

	users, err := app.Desires.Users(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve users: %w", err)
	}
	switch len(users) {
	case 0:
		return "", fmt.Errorf("no users configured; pass --user")
	case 1:
		return users[0], nil
	default:
		return "", fmt.Errorf("multiple users (%v); pass --user", users)
	}
}

// resolveUsers returns users when set, otherwise every configured user.
func resolveUsers(ctx context.Context, app *yearn.App, users []string) ([]string, error) {
	if len(users) == 0 {
		return app.Desires.Users(ctx)
	}
	for _, u := range users {
		if err := config.ValidateUserName(u); err != nil {
			return nil, err
		}
	}
	return slices.Compact(slices.Clone(users)), nil
}
