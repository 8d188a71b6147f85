package overlay

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

// Style is the decoration of a line carrying a finding.
type Style struct {
	Severity models.Severity
	Color    lipgloss.AdaptiveColor
	Icon     string
	Bold     bool
}

// Severity colors, light and dark variants
var (
	colorCritical = lipgloss.AdaptiveColor{Light: "#FF0000", Dark: "#FF6464"}
	colorHigh     = lipgloss.AdaptiveColor{Light: "#FFA500", Dark: "#FFC864"}
	colorMedium   = lipgloss.AdaptiveColor{Light: "#FFFF00", Dark: "#FFFF96"}
	colorLow      = lipgloss.AdaptiveColor{Light: "#00FF00", Dark: "#96FF96"}
	colorInfo     = lipgloss.AdaptiveColor{Light: "#0000FF", Dark: "#6464FF"}
)

var severityStyles = map[models.Severity]Style{
	models.SeverityCritical: {Severity: models.SeverityCritical, Color: colorCritical, Icon: "✖", Bold: true},
	models.SeverityHigh:     {Severity: models.SeverityHigh, Color: colorHigh, Icon: "▲", Bold: true},
	models.SeverityMedium:   {Severity: models.SeverityMedium, Color: colorMedium, Icon: "●"},
	models.SeverityLow:      {Severity: models.SeverityLow, Color: colorLow, Icon: "●"},
	models.SeverityInfo:     {Severity: models.SeverityInfo, Color: colorInfo, Icon: "○"},
}

// StyleFor returns the fixed style of a severity. Unknown severities get the INFO style.
func StyleFor(severity models.Severity) Style {
	if s, ok := severityStyles[severity]; ok {
		return s
	}
	return severityStyles[models.SeverityInfo]
}

// Lipgloss returns the terminal style for text carrying this decoration.
func (s Style) Lipgloss() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Color).Bold(s.Bold)
}

// Render paints text with the style.
func (s Style) Render(text string) string {
	return s.Lipgloss().Render(text)
}

// Tooltip is the hover text of a marker.
func Tooltip(f models.Finding) string {
	return fmt.Sprintf("%s - %s\nClick to view details", f.Severity, f.Name)
}
