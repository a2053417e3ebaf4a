package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unbound-force/classlens/internal/insights"
)

// Styles defines the visual theme for terminal report output.
// Lipgloss automatically degrades to no-color when output is not a TTY.
type Styles struct {
	// Header is used for section headers (e.g. "=== Summary ===").
	Header lipgloss.Style

	// SubHeader is used for secondary information lines.
	SubHeader lipgloss.Style

	// Critical, Moderate and Low color-code risk levels.
	Critical lipgloss.Style
	Moderate lipgloss.Style
	Low      lipgloss.Style

	// TableHeader styles the header row of tables.
	TableHeader lipgloss.Style

	// TableCell styles regular table cells.
	TableCell lipgloss.Style

	// ScoreBad styles scores rated fair or poor.
	ScoreBad lipgloss.Style

	// ScoreGood styles scores rated good or excellent.
	ScoreGood lipgloss.Style

	// SummaryLabel styles summary line labels.
	SummaryLabel lipgloss.Style

	// SummaryValue styles summary line values.
	SummaryValue lipgloss.Style

	Border lipgloss.Style
	Muted  lipgloss.Style
}

// DefaultStyles returns the default color scheme for terminal reports.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		SubHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		Critical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Moderate: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Low:      lipgloss.NewStyle().Foreground(lipgloss.Color("40")),

		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		TableCell:   lipgloss.NewStyle().PaddingRight(1),

		ScoreBad:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		ScoreGood: lipgloss.NewStyle().Foreground(lipgloss.Color("40")),

		SummaryLabel: lipgloss.NewStyle().Bold(true).Width(20),
		SummaryValue: lipgloss.NewStyle(),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("63")),

		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// LevelStyle returns the style for a risk level.
func (s Styles) LevelStyle(level insights.RiskLevel) lipgloss.Style {
	switch level {
	case insights.RiskCritical:
		return s.Critical
	case insights.RiskModerate:
		return s.Moderate
	case insights.RiskLow:
		return s.Low
	default:
		return s.Muted
	}
}

// ScoreStyle returns the style for a 0..100 score.
func (s Styles) ScoreStyle(score int) lipgloss.Style {
	if score >= 60 {
		return s.ScoreGood
	}
	return s.ScoreBad
}
