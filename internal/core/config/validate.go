package config

import (
	"fmt"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/yearn/pkg/tmpl"
)

// ClassifierTemplateData defines the fields available to classifier.command.
type ClassifierTemplateData struct {
	Task        string // "generate" or "reinforce"
	RequestFile string // path to the JSON request written for this call
}

// SkillTemplateData defines the fields available to skills.<name>.command.
type SkillTemplateData struct {
	Desire map[string]any // id, title, description, reason, source, risk
	Step   map[string]any // order, action, skill, requires_approval
	Inputs map[string]any
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// template syntax and file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateClassifier(),
		c.validateSkills(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Classifier.Command == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Classifier",
			Message:  "no classifier command configured; generation and reinforcement will find nothing",
		})
	}

	if len(c.Skills) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Skills",
			Message:  "no skills configured; every approved plan step will fail",
		})
	}

	enabled := 0
	for _, s := range c.Engine.Sources {
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Sources",
			Message:  "every signal source is disabled; generation will always be skipped",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.Command == "" {
		return nil
	}
	return criterio.Run("classifier.command", c.Classifier.Command, func(cmd string) error {
		return validateTemplate(cmd, ClassifierTemplateData{Task: "generate", RequestFile: "/tmp/request.json"})
	})
}

// validateSkills checks template syntax for every skill command. Skill
// templates are parsed only, since step inputs vary per plan.
func (c *Config) validateSkills() error {
	var errs criterio.FieldErrorsBuilder
	for name, skill := range c.Skills {
		if err := validationRenderer.Check(skill.Command); err != nil {
			errs = errs.Append(fmt.Sprintf("skills[%q].command", name), fmt.Errorf("template error: %w", err))
		}
	}
	return errs.ToError()
}

// validationRenderer is used for template syntax checking during config validation.
// It uses placeholder values since output is discarded; only parse errors matter.
var validationRenderer = tmpl.NewValidation()

// validateTemplate checks if a template string is valid.
func validateTemplate(tmplStr string, data any) error {
	_, err := validationRenderer.Render(tmplStr, data)
	return err
}
