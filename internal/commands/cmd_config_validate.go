package commands

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/integration/files"
	"github.com/colonyops/yearn/internal/printer"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "yearn config validate [options]",
				Description: "Validates the configuration file, checking command template syntax, file paths and every user's engine overlay.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type validationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []string                   `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	result := validationResult{Warnings: cfg.Warnings()}
	if err := cfg.ValidateDeep(cmd.flags.ConfigPath); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	users, err := files.Users(cfg)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	for _, u := range users {
		if _, err := cfg.LoadEngine(u); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	result.Valid = len(result.Errors) == 0

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		cmd.outputText(printer.Ctx(ctx), result, len(users))
	}

	if !result.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigValidateCmd) outputText(p *printer.Printer, result validationResult, users int) {
	for _, warn := range result.Warnings {
		p.Warnf("%s: %s", warn.Category, warn.Message)
		if warn.Item != "" {
			p.Printf("  Item: %s", warn.Item)
		}
	}

	for _, e := range result.Errors {
		p.Errorf("%s", e)
	}

	p.Printf("")
	if result.Valid {
		p.Successf("Configuration is valid (%d user overlay(s) checked)", users)
		return
	}
	p.Errorf("%d error(s) found", len(result.Errors))
}
