package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/unbound-force/classlens/internal/corpus"
	"github.com/unbound-force/classlens/internal/insights"
)

const (
	// defaultTop bounds the risk, package and complexity listings.
	defaultTop = 10

	// Budget: 80 cols total, tables leave 4 for the left indent.
	tableWidth = 76
	indent     = "    "
	lineWidth  = 80 - len(indent)
)

// TextOptions controls WriteText.
type TextOptions struct {
	// Top bounds each ranked listing. Zero means 10.
	Top int

	// Verbose lists every security finding and skipped entry instead of
	// only counting them.
	Verbose bool
}

// WriteText writes an analysis result as human-readable styled text
// to the writer. Output uses lipgloss for color and formatting when
// the output is a TTY; degrades gracefully for pipes and CI.
func WriteText(w io.Writer, res Result, opts TextOptions) error {
	if res.Insights == nil {
		return errors.New("report: no insights to write")
	}
	s := DefaultStyles()
	top := opts.Top
	if top <= 0 {
		top = defaultTop
	}
	p := res.Insights

	fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("=== %s ===", truncateLeft(res.Source, lineWidth-8))))
	writeSummary(w, p, len(res.Failures), s)
	writeRisks(w, p.Impact, top, s)
	writePackages(w, p.Packages, top, s)
	writeSecurity(w, p.Security, opts.Verbose, s)
	writeQuality(w, p.Quality, top, s)
	writeFailures(w, res.Failures, opts.Verbose, s)

	fmt.Fprintf(w, "\n%s\n",
		s.Header.Render(fmt.Sprintf(
			"%d class(es) analyzed, %d critical removal risk(s)",
			p.Summary.TotalClasses, len(p.Impact.CriticalClasses))))
	return nil
}

// WriteImpactText writes the removal assessment of one class.
func WriteImpactText(w io.Writer, as insights.Assessment) error {
	s := DefaultStyles()
	fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("=== Removing %s ===", truncateLeft(as.Class, lineWidth-16))))

	label(w, s, "Risk score", strconv.Itoa(as.RiskScore))
	label(w, s, "Level", s.LevelStyle(as.Level).Render(string(as.Level)))
	label(w, s, "Recommendation", as.Recommendation)
	label(w, s, "Centrality", fmt.Sprintf("%.4f", as.Centrality))

	fmt.Fprintf(w, "\n%sDirect dependents (%d):\n", indent, len(as.Dependents))
	writeList(w, as.Dependents, s)
	fmt.Fprintf(w, "\n%sTransitive impact (%d):\n", indent, len(as.Transitive))
	writeList(w, as.Transitive, s)
	return nil
}

func writeSummary(w io.Writer, p *insights.ProjectInsights, failures int, s Styles) {
	sum := p.Summary
	label(w, s, "Classes", strconv.Itoa(sum.TotalClasses))
	label(w, s, "Methods", strconv.Itoa(sum.TotalMethods))
	label(w, s, "Fields", strconv.Itoa(sum.TotalFields))
	label(w, s, "Packages", strconv.Itoa(sum.Packages))
	label(w, s, "Interfaces", strconv.Itoa(sum.Interfaces))
	label(w, s, "Abstract classes", strconv.Itoa(sum.AbstractClasses))
	label(w, s, "Avg complexity", fmt.Sprintf("%.2f (%s)",
		sum.AverageComplexity, insights.ComplexityBand(sum.AverageComplexity)))
	label(w, s, "Security score", s.ScoreStyle(p.Security.Score).Render(
		fmt.Sprintf("%d (%s)", p.Security.Score, p.Security.Rating)))
	label(w, s, "Maintainability", s.ScoreStyle(p.Quality.MaintainabilityScore).Render(
		fmt.Sprintf("%d (%s)", p.Quality.MaintainabilityScore, p.Quality.Rating)))
	if failures > 0 {
		label(w, s, "Skipped entries", s.Muted.Render(strconv.Itoa(failures)))
	}
}

func writeRisks(w io.Writer, a insights.ImpactAnalysis, top int, s Styles) {
	section(w, s, "Removal risk")

	// Borders take 5 cols, padding 1 per column. DEPS=4, RISK=4,
	// LEVEL=8, leaving 50 for CLASS.
	const maxClass = 48
	var rows [][]string
	for _, as := range a.Rank(top) {
		if as.RiskScore == 0 {
			break
		}
		rows = append(rows, []string{
			truncateLeft(as.Class, maxClass),
			strconv.Itoa(len(as.Dependents)),
			strconv.Itoa(as.RiskScore),
			string(as.Level),
		})
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, s.Muted.Render(indent+"No class is referenced by another class."))
		return
	}

	t := table.New().
		Width(tableWidth).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			if col == 3 && row >= 0 && row < len(rows) {
				return s.LevelStyle(insights.RiskLevel(rows[row][3]))
			}
			return s.TableCell
		}).
		Headers("CLASS", "DEPS", "RISK", "LEVEL").
		Rows(rows...)
	fmt.Fprintln(w, t)

	var parts []string
	for _, level := range insights.RiskLevels {
		if n := a.LevelCounts[level]; n > 0 {
			parts = append(parts, s.LevelStyle(level).Render(fmt.Sprintf("%s: %d", level, n)))
		}
	}
	fmt.Fprintf(w, "%sLevels: %s\n", indent, strings.Join(parts, ", "))
	if len(a.Cycles) > 0 {
		fmt.Fprintf(w, "%sClass cycles: %d\n", indent, len(a.Cycles))
	}
}

func writePackages(w io.Writer, p insights.PackageInsights, top int, s Styles) {
	section(w, s, "Packages")
	if len(p.ClassCountByPackage) == 0 {
		fmt.Fprintln(w, s.Muted.Render(indent+"No packages."))
		return
	}

	pkgs := make([]string, 0, len(p.ClassCountByPackage))
	for pkg := range p.ClassCountByPackage {
		pkgs = append(pkgs, pkg)
	}
	sort.Slice(pkgs, func(i, j int) bool {
		ci, cj := p.ClassCountByPackage[pkgs[i]], p.ClassCountByPackage[pkgs[j]]
		if ci != cj {
			return ci > cj
		}
		return pkgs[i] < pkgs[j]
	})
	if len(pkgs) > top {
		pkgs = pkgs[:top]
	}

	// Borders take 6 cols. CLASSES=7, COMPLEXITY=10, DEPS=4,
	// INSTABILITY=11 with padding leaves 33 for PACKAGE.
	const maxPackage = 32
	rows := make([][]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		rows = append(rows, []string{
			truncateLeft(pkg, maxPackage),
			strconv.Itoa(p.ClassCountByPackage[pkg]),
			fmt.Sprintf("%.2f", p.ComplexityByPackage[pkg]),
			strconv.Itoa(len(p.DependenciesByPackage[pkg])),
			fmt.Sprintf("%.2f", p.Coupling[pkg].Instability),
		})
	}
	t := table.New().
		Width(tableWidth).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			return s.TableCell
		}).
		Headers("PACKAGE", "CLASSES", "COMPLEXITY", "DEPS", "INSTABILITY").
		Rows(rows...)
	fmt.Fprintln(w, t)

	if len(p.MostConnectedPackages) > 0 {
		fmt.Fprintf(w, "%sMost connected:\n", indent)
		writeList(w, p.MostConnectedPackages, s)
	}
	for _, cycle := range p.Cycles {
		fmt.Fprintln(w, s.Critical.Render(truncate(indent+"Cycle: "+strings.Join(cycle, " -> "), lineWidth+len(indent))))
	}
}

func writeSecurity(w io.Writer, sec insights.SecurityInsights, verbose bool, s Styles) {
	section(w, s, "Security")
	groups := []struct {
		name     string
		findings []string
	}{
		{"Reflection", sec.ReflectionUsage},
		{"Serialization", sec.SerializationClasses},
		{"Deprecated API", sec.DeprecatedAPIUsage},
		{"Native methods", sec.NativeMethods},
	}
	for _, g := range groups {
		label(w, s, g.name, strconv.Itoa(len(g.findings)))
		if verbose {
			writeList(w, g.findings, s)
		}
	}
	if !verbose && sec.TotalIssues() > 0 {
		fmt.Fprintln(w, s.Muted.Render(indent+"Run with --verbose to list findings."))
	}
}

func writeQuality(w io.Writer, q insights.QualityInsights, top int, s Styles) {
	section(w, s, "Quality")
	label(w, s, "Overall complexity", fmt.Sprintf("%.2f", q.OverallComplexity))

	high := append([]insights.ClassComplexity(nil), q.HighComplexityClasses...)
	sort.SliceStable(high, func(i, j int) bool { return high[i].Complexity > high[j].Complexity })
	if len(high) > top {
		high = high[:top]
	}
	fmt.Fprintf(w, "%sHigh complexity (%d):\n", indent, len(q.HighComplexityClasses))
	lines := make([]string, 0, len(high))
	for _, c := range high {
		lines = append(lines, c.String())
	}
	writeList(w, lines, s)

	fmt.Fprintf(w, "%sRefactoring candidates (%d):\n", indent, len(q.RefactoringCandidates))
	writeList(w, q.RefactoringCandidates, s)

	if len(q.DesignPatterns) > 0 {
		names := make([]string, 0, len(q.DesignPatterns))
		for name := range q.DesignPatterns {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s: %d", name, q.DesignPatterns[name]))
		}
		fmt.Fprintln(w, truncate(indent+"Patterns: "+strings.Join(parts, ", "), lineWidth+len(indent)))
	}
}

func writeFailures(w io.Writer, failures []corpus.Failure, verbose bool, s Styles) {
	if len(failures) == 0 || !verbose {
		return
	}
	section(w, s, "Skipped entries")
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, f.Entry+": "+f.Reason)
	}
	writeList(w, lines, s)
}

func section(w io.Writer, s Styles, title string) {
	fmt.Fprintf(w, "\n%s\n", s.Header.Render(fmt.Sprintf("=== %s ===", title)))
}

func label(w io.Writer, s Styles, name, value string) {
	fmt.Fprintf(w, "%s%s%s\n", indent, s.SummaryLabel.Render(name), s.SummaryValue.Render(value))
}

// writeList prints one indented, truncated item per line.
func writeList(w io.Writer, items []string, s Styles) {
	if len(items) == 0 {
		fmt.Fprintln(w, s.Muted.Render(indent+"  none"))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "%s  %s\n", indent, truncate(item, lineWidth-2))
	}
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// truncateLeft keeps the last n runes of s. Class and package names
// are most specific at the end.
func truncateLeft(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[len(r)-n:])
	}
	return "..." + string(r[len(r)-n+3:])
}
