package cli

import (
	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/charmbracelet/lipgloss"
)

var palette = map[format.Color]lipgloss.Color{
	format.Gray:   lipgloss.Color("#6C6C6C"),
	format.Green:  lipgloss.Color("#00D787"),
	format.Red:    lipgloss.Color("#FF005F"),
	format.Yellow: lipgloss.Color("#FFD700"),
	format.Blue:   lipgloss.Color("#5FAFD7"),
	format.Purple: lipgloss.Color("#AF87FF"),
	format.Indigo: lipgloss.Color("#5F5FFF"),
	format.Pink:   lipgloss.Color("#FF87D7"),
	format.Teal:   lipgloss.Color("#00AFAF"),
}

var levelColors = map[domain.LogLevel]format.Color{
	domain.LevelDebug:   format.Gray,
	domain.LevelInfo:    format.Blue,
	domain.LevelWarning: format.Yellow,
	domain.LevelError:   format.Red,
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(palette[format.Gray]).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(palette[format.Red]).Bold(true)
)

func colorize(c format.Color, s string) string {
	return lipgloss.NewStyle().Foreground(palette[c]).Render(s)
}

func statusText(s domain.Status) string {
	return colorize(format.StatusColor(string(s)), string(s))
}

func levelText(l domain.LogLevel) string {
	c, ok := levelColors[l]
	if !ok {
		c = format.Gray
	}
	return colorize(c, string(l))
}

// roleText gives every speaker a stable color.
func roleText(r domain.Role) string {
	return colorize(format.StringToColor(string(r)), string(r))
}
