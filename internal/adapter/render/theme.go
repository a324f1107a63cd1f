package render

import "github.com/charmbracelet/lipgloss"

// Adaptive palette; NO_COLOR is honoured by lipgloss's profile detection.
var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	colorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#b71c1c", Dark: "#ef9a9a"} // Moroccan red
	colorInfo    = lipgloss.AdaptiveColor{Light: "#00695c", Dark: "#4db6ac"} // zellige green
	colorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
)

type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	ok      lipgloss.Style
	bad     lipgloss.Style
	card    lipgloss.Style
}

func newStyles(width int) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		heading: lipgloss.NewStyle().Bold(true).Foreground(colorInfo),
		muted:   lipgloss.NewStyle().Foreground(colorMuted),
		ok:      lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
		bad:     lipgloss.NewStyle().Foreground(colorError).Bold(true),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(width - 2),
	}
}

// plainStyles render text unchanged.
func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{title: s, heading: s, muted: s, ok: s, bad: s, card: s}
}
