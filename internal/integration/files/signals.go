// Package files reads signals and user namespaces from the data directory.
//
// Signals live at <data>/users/<user>/signals/<kind>/**/*.yaml. A file holds
// either a single signal mapping or a sequence of them.
package files

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/yearn/internal/core/signal"
)

const signalPattern = "**/*.{yaml,yml}"

// SignalProvider implements signal.Provider for one kind by globbing YAML
// files under each user's signals directory.
type SignalProvider struct {
	usersDir string
	kind     signal.Kind
	log      zerolog.Logger
}

var _ signal.Provider = (*SignalProvider)(nil)

// NewSignalProvider creates a provider for kind rooted at usersDir.
func NewSignalProvider(usersDir string, kind signal.Kind, log zerolog.Logger) *SignalProvider {
	return &SignalProvider{usersDir: usersDir, kind: kind, log: log}
}

// SignalProviders returns a provider for every signal kind.
func SignalProviders(usersDir string, log zerolog.Logger) []signal.Provider {
	out := make([]signal.Provider, 0, len(signal.AllKinds))
	for _, k := range signal.AllKinds {
		out = append(out, NewSignalProvider(usersDir, k, log))
	}
	return out
}

// Kind implements signal.Provider.
func (p *SignalProvider) Kind() signal.Kind { return p.kind }

// Dir returns the directory this provider reads for user.
func (p *SignalProvider) Dir(user string) string {
	return filepath.Join(p.usersDir, user, "signals", string(p.kind))
}

// Fetch implements signal.Provider. A missing directory yields no signals.
// Files that fail to parse are logged and skipped. Ordering and the limit
// are applied by the gatherer.
func (p *SignalProvider) Fetch(ctx context.Context, user string, limit int) ([]signal.Signal, error) {
	dir := p.Dir(user)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, signalPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s signals: %w", p.kind, err)
	}

	var out []signal.Signal
	for _, name := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := readSignals(fsys, name)
		if err != nil {
			p.log.Warn().Ctx(ctx).Err(err).Str("file", filepath.Join(dir, name)).Msg("skipping signal file")
			continue
		}
		out = append(out, items...)
	}

	return out, nil
}

func readSignals(fsys fs.FS, name string) ([]signal.Signal, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var items []signal.Signal
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&items); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	case yaml.MappingNode:
		var s signal.Signal
		if err := root.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		items = []signal.Signal{s}
	default:
		return nil, fmt.Errorf("expected a mapping or sequence")
	}

	info, statErr := fs.Stat(fsys, name)

	base := strings.TrimSuffix(name, path.Ext(name))
	out := items[:0]
	for i, s := range items {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		if s.ID == "" {
			s.ID = base
			if len(items) > 1 {
				s.ID = fmt.Sprintf("%s#%d", base, i+1)
			}
		}
		if s.CreatedAt.IsZero() && statErr == nil {
			s.CreatedAt = info.ModTime()
		}
		out = append(out, s)
	}
	return out, nil
}
