package progress

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors used by the progress line.
// Use DarkTheme() or LightTheme() to get a pre-built theme.
type Theme struct {
	Primary   lipgloss.Color // arm label
	Secondary lipgloss.Color // bar gradient start
	Success   lipgloss.Color // bar gradient end, finished arm
	Error     lipgloss.Color // failed queries
	TextMuted lipgloss.Color // counts
}

// DarkTheme returns the default theme for dark terminal backgrounds.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Secondary: lipgloss.Color("#5c9cf5"),
		Success:   lipgloss.Color("#7fd88f"),
		Error:     lipgloss.Color("#e06c75"),
		TextMuted: lipgloss.Color("#808080"),
	}
}

// LightTheme returns a theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Secondary: lipgloss.Color("#0550ae"),
		Success:   lipgloss.Color("#116329"),
		Error:     lipgloss.Color("#cf222e"),
		TextMuted: lipgloss.Color("#656d76"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds the lipgloss styles derived from a Theme.
type styles struct {
	label lipgloss.Style
	done  lipgloss.Style
	err   lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		done:  lipgloss.NewStyle().Foreground(t.Success),
		err:   lipgloss.NewStyle().Foreground(t.Error),
		dim:   lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}
