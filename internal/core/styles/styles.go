// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/yearn/internal/core/desire"
)

// Palette defines a minimal semantic theme palette.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color

	// GlamourStyle names the glamour standard style used for markdown.
	GlamourStyle string
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

var themes = map[string]Palette{
	"tokyo-night": {
		Primary:      lipgloss.Color("#7aa2f7"),
		Secondary:    lipgloss.Color("#7dcfff"),
		Foreground:   lipgloss.Color("#c0caf5"),
		Muted:        lipgloss.Color("#565f89"),
		Success:      lipgloss.Color("#9ece6a"),
		Warning:      lipgloss.Color("#e0af68"),
		Error:        lipgloss.Color("#f7768e"),
		GlamourStyle: "tokyo-night",
	},
	"gruvbox": {
		Primary:      lipgloss.Color("#83a598"),
		Secondary:    lipgloss.Color("#8ec07c"),
		Foreground:   lipgloss.Color("#ebdbb2"),
		Muted:        lipgloss.Color("#665c54"),
		Success:      lipgloss.Color("#b8bb26"),
		Warning:      lipgloss.Color("#fabd2f"),
		Error:        lipgloss.Color("#fb4934"),
		GlamourStyle: "dark",
	},
	"plain": {
		GlamourStyle: "notty",
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

var (
	HeaderStyle  lipgloss.Style
	MutedStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	InfoStyle    lipgloss.Style
	TitleStyle   lipgloss.Style
	LabelStyle   lipgloss.Style
)

func init() {
	p, _ := GetPalette(DefaultTheme)
	SetTheme(p)
}

// SetTheme rebuilds every exported style from p.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Primary)
	MutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	SuccessStyle = lipgloss.NewStyle().Foreground(p.Success)
	WarningStyle = lipgloss.NewStyle().Foreground(p.Warning)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Error)
	InfoStyle = lipgloss.NewStyle().Foreground(p.Secondary)
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Foreground)
	LabelStyle = lipgloss.NewStyle().Foreground(p.Muted).Width(14)
}

// StatusStyle returns the style used to render a desire status.
func StatusStyle(s desire.Status) lipgloss.Style {
	switch s {
	case desire.StatusNascent:
		return MutedStyle
	case desire.StatusPending:
		return InfoStyle
	case desire.StatusApproved, desire.StatusExecuting:
		return WarningStyle
	case desire.StatusCompleted:
		return SuccessStyle
	case desire.StatusFailed, desire.StatusRejected:
		return ErrorStyle
	default:
		return MutedStyle
	}
}

// Strength renders a strength value, highlighting values at or above the
// threshold.
func Strength(v, threshold float64) string {
	s := lipgloss.NewStyle()
	if threshold > 0 && v >= threshold {
		s = SuccessStyle
	}
	return s.Render(formatFloat(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
