package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/desire"
)

func TestThemes(t *testing.T) {
	names := ThemeNames()
	require.Contains(t, names, DefaultTheme)
	assert.IsIncreasing(t, names)

	for _, name := range names {
		p, ok := GetPalette(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, p.GlamourStyle, name)
	}

	_, ok := GetPalette("nope")
	assert.False(t, ok)
}

func TestStatusStyle_CoversAllStatuses(t *testing.T) {
	p, _ := GetPalette(DefaultTheme)
	SetTheme(p)

	assert.Equal(t, p.Success, StatusStyle(desire.StatusCompleted).GetForeground())
	assert.Equal(t, p.Error, StatusStyle(desire.StatusFailed).GetForeground())
	for _, s := range desire.AllStatuses {
		assert.NotPanics(t, func() { StatusStyle(s).Render(string(s)) })
	}
}

func TestStrength(t *testing.T) {
	assert.Contains(t, Strength(0.456, 0.7), "0.46")
	assert.Contains(t, Strength(0.72, 0.7), "0.72")
}
