package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/yearn"
)

// RegisterAll adds every yearn subcommand to root. Commands hold app by
// pointer, so it may be populated later in a Before hook.
func RegisterAll(root *cli.Command, flags *Flags, app *yearn.App) *cli.Command {
	root = NewCycleCmd(flags, app).Register(root)
	root = NewExecuteCmd(flags, app).Register(root)
	root = NewRunCmd(flags, app).Register(root)
	root = NewLsCmd(flags, app).Register(root)
	root = NewShowCmd(flags, app).Register(root)
	root = NewApproveCmd(flags, app).Register(root)
	root = NewRejectCmd(flags, app).Register(root)
	root = NewMetricsCmd(flags, app).Register(root)
	root = NewStatusCmd(flags, app).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)
	return root
}
