package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/signal"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSignalProvider_Fetch(t *testing.T) {
	users := t.TempDir()
	p := NewSignalProvider(users, signal.KindTasks, zerolog.Nop())
	dir := p.Dir("ana")

	writeFile(t, filepath.Join(dir, "inbox.yaml"), `
title: Reply to landlord
urgent: true
created_at: 2026-01-02T10:00:00Z
`)
	writeFile(t, filepath.Join(dir, "work", "sprint.yml"), `
- id: t-1
  title: Fix flaky test
  tags: [ci]
- title: Write release notes
- title: ""
`)
	writeFile(t, filepath.Join(dir, "broken.yaml"), "title: [unclosed")
	writeFile(t, filepath.Join(dir, "notes.txt"), "title: ignored")

	got, err := p.Fetch(context.Background(), "ana", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := make(map[string]signal.Signal)
	for _, s := range got {
		byID[s.ID] = s
	}

	inbox := byID["inbox"]
	assert.Equal(t, "Reply to landlord", inbox.Title)
	assert.True(t, inbox.Urgent)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), inbox.CreatedAt.UTC())

	assert.Equal(t, []string{"ci"}, byID["t-1"].Tags)
	assert.Equal(t, "Write release notes", byID["work/sprint#2"].Title)
	assert.False(t, byID["work/sprint#2"].CreatedAt.IsZero(), "mod time fills missing timestamps")
}

func TestSignalProvider_MissingDir(t *testing.T) {
	p := NewSignalProvider(t.TempDir(), signal.KindDreams, zerolog.Nop())
	got, err := p.Fetch(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSignalProviders_WithGatherer(t *testing.T) {
	users := t.TempDir()
	writeFile(t, filepath.Join(users, "ana", "signals", "goals", "g.yaml"), "title: Learn Go\n")
	writeFile(t, filepath.Join(users, "ben", "signals", "goals", "g.yaml"), "title: Run a marathon\n")

	g := signal.NewGatherer(zerolog.Nop(), 5, SignalProviders(users, zerolog.Nop())...)
	got, err := g.Gather(context.Background(), "ana", signal.AllKinds)
	require.NoError(t, err)

	require.Len(t, got[signal.KindGoals], 1)
	assert.Equal(t, "Learn Go", got[signal.KindGoals][0].Title)
	assert.Equal(t, signal.KindGoals, got[signal.KindGoals][0].Kind)
	assert.Equal(t, 1, got.Len(), "other users' signals are not visible")
}

func TestUsers(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load("", dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(cfg.UserDir("zoe"), 0o755))
	require.NoError(t, os.MkdirAll(cfg.UserDir("ana"), 0o755))
	writeFile(t, filepath.Join(cfg.UsersDir(), "stray.yaml"), "x: 1")

	cfg.Users.Names = []string{"ben", "ana", "../etc"}

	cfg.Users.Mode = config.UsersAll
	got, err := Users(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"ben", "ana", "zoe"}, got)

	cfg.Users.Mode = config.UsersListed
	got, err = Users(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"ben", "ana"}, got)
}
