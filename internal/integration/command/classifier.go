// Package command implements the classifier and step-runner collaborators by
// shelling out to user-configured command templates.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/classify"
	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/pkg/executil"
	"github.com/colonyops/yearn/pkg/tmpl"
)

// Classifier tasks passed to the command template as .Task.
const (
	TaskGenerate  = "generate"
	TaskReinforce = "reinforce"
)

// Classifier answers classification requests by writing the request as JSON
// to a temporary file and running the configured command against it. The
// command's stdout is parsed leniently.
type Classifier struct {
	exec     executil.Executor
	renderer *tmpl.Renderer
	cfg      config.ClassifierConfig
	tmpDir   string
	log      zerolog.Logger
}

var _ classify.Classifier = (*Classifier)(nil)

// NewClassifier creates a classifier. Request files are written to tmpDir.
func NewClassifier(
	exec executil.Executor,
	renderer *tmpl.Renderer,
	cfg config.ClassifierConfig,
	tmpDir string,
	log zerolog.Logger,
) *Classifier {
	return &Classifier{exec: exec, renderer: renderer, cfg: cfg, tmpDir: tmpDir, log: log}
}

// GenerateCandidates asks the command for new desire candidates. With no
// command configured it proposes nothing.
func (c *Classifier) GenerateCandidates(ctx context.Context, req classify.GenerateRequest) ([]desire.Candidate, error) {
	if c.cfg.Command == "" {
		return nil, nil
	}
	out, err := c.call(ctx, req.User, TaskGenerate, req)
	if err != nil {
		return nil, err
	}
	return classify.ParseCandidates(out), nil
}

// ClassifyReinforcement asks the command which desires the signals reinforce.
func (c *Classifier) ClassifyReinforcement(ctx context.Context, req classify.ReinforceRequest) (map[string]string, error) {
	if c.cfg.Command == "" {
		return map[string]string{}, nil
	}
	out, err := c.call(ctx, req.User, TaskReinforce, req)
	if err != nil {
		return nil, err
	}
	return classify.ParseReinforcements(out), nil
}

func (c *Classifier) call(ctx context.Context, user, task string, req any) ([]byte, error) {
	path, err := c.writeRequest(task, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(path) }()

	script, err := c.renderer.WithUser(user).Render(c.cfg.Command, config.ClassifierTemplateData{
		Task:        task,
		RequestFile: path,
	})
	if err != nil {
		return nil, fmt.Errorf("render classifier command: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := executil.Sh(ctx, c.exec, script)
	c.log.Debug().Ctx(ctx).
		Str("task", task).
		Dur("took", time.Since(start)).
		Int("bytes", len(out)).
		Err(err).
		Msg("classifier call")
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", task, err)
	}
	return out, nil
}

func (c *Classifier) writeRequest(task string, req any) (string, error) {
	if err := os.MkdirAll(c.tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create request dir: %w", err)
	}

	f, err := os.CreateTemp(c.tmpDir, "classify-"+task+"-*.json")
	if err != nil {
		return "", fmt.Errorf("create request file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(req); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write request file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close request file: %w", err)
	}
	return f.Name(), nil
}
