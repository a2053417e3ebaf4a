package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/unbound-force/classlens/internal/insights"
	"github.com/unbound-force/classlens/internal/report"
)

// maxTUIClass is the widest class name shown before truncation.
const maxTUIClass = 50

// keyMap defines keybindings for the interactive TUI.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
	Help     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("^/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("v/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Styles for the TUI.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	tuiHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	tuiBorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))
)

// analyzeModel is the Bubble Tea model for browsing analysis results.
type analyzeModel struct {
	res      report.Result
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	ready    bool
	content  string
}

func newAnalyzeModel(res report.Result) analyzeModel {
	return analyzeModel{
		res:     res,
		help:    help.New(),
		keys:    defaultKeyMap,
		content: renderAnalyzeContent(res),
	}
}

// renderAnalyzeContent lists every class by removal risk, followed by
// the dependents of each critical class.
func renderAnalyzeContent(res report.Result) string {
	var sb strings.Builder
	styles := report.DefaultStyles()

	p := res.Insights
	impact := p.Impact
	sb.WriteString(titleStyle.Render(
		fmt.Sprintf("classlens: %d class(es), %d critical, security %d, maintainability %d",
			p.Summary.TotalClasses, len(impact.CriticalClasses),
			p.Security.Score, p.Quality.MaintainabilityScore)))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("    " + res.Source))
	sb.WriteString("\n\n")

	ranked := impact.Rank(0)
	rows := make([][]string, 0, len(ranked))
	for _, as := range ranked {
		rows = append(rows, []string{
			truncateLeft(as.Class, maxTUIClass),
			strconv.Itoa(len(as.Dependents)),
			strconv.Itoa(as.RiskScore),
			string(as.Level),
			fmt.Sprintf("%.4f", as.Centrality),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tuiBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tuiHeaderStyle
			}
			if col == 3 && row >= 0 && row < len(rows) {
				return styles.LevelStyle(insights.RiskLevel(rows[row][3]))
			}
			return lipgloss.NewStyle()
		}).
		Headers("CLASS", "DEPS", "RISK", "LEVEL", "CENTRALITY").
		Rows(rows...)

	sb.WriteString(t.String())
	sb.WriteString("\n\n")

	for _, class := range impact.CriticalClasses {
		as, _ := impact.Assess(class)
		sb.WriteString(tuiHeaderStyle.Render(fmt.Sprintf("=== %s ===", class)))
		sb.WriteString("\n")
		sb.WriteString(styles.Critical.Render("    " + as.Recommendation))
		sb.WriteString("\n")
		for _, d := range as.Transitive {
			sb.WriteString("    " + d + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// truncateLeft keeps the last n runes of s.
func truncateLeft(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "..." + string(r[len(r)-n+3:])
}

func (m analyzeModel) Init() tea.Cmd {
	return nil
}

func (m analyzeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		footerHeight := 2

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - footerHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m analyzeModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	footer := statusStyle.Render(
		fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)) +
		" " + m.help.View(m.keys)

	return m.viewport.View() + "\n" + footer
}

// runInteractiveAnalyze launches the Bubble Tea TUI for browsing
// analysis results.
func runInteractiveAnalyze(res report.Result) error {
	model := newAnalyzeModel(res)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
