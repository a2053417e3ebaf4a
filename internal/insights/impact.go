package insights

import (
	"sort"

	"github.com/unbound-force/classlens/internal/classfile"
	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
)

// dependentWeight is the risk contributed by each direct dependent. It
// dominates the complexity term so breadth of impact ranks first.
const dependentWeight = 10

// RiskLevel buckets a removal risk score.
type RiskLevel string

// Risk levels, most severe first.
const (
	RiskCritical RiskLevel = "critical"
	RiskModerate RiskLevel = "moderate"
	RiskLow      RiskLevel = "low"
)

// RiskLevels lists the levels from most to least severe.
var RiskLevels = []RiskLevel{RiskCritical, RiskModerate, RiskLow}

// Recommendation returns the removal advice for a level.
func (l RiskLevel) Recommendation() string {
	switch l {
	case RiskCritical:
		return "Do not remove - critical dependencies"
	case RiskModerate:
		return "Test thoroughly before removal"
	default:
		return "Safe to remove"
	}
}

// ImpactAnalysis estimates the consequence of deleting each class.
type ImpactAnalysis struct {
	// ImpactedBy maps every corpus class to the sorted corpus classes
	// that reference it. Self references are ignored.
	ImpactedBy map[string][]string `json:"impacted_by"`

	// RiskScores is dependents*10 plus the floored average complexity
	// of each dependent.
	RiskScores map[string]int `json:"risk_scores"`

	// CriticalClasses lists, sorted, classes scoring above
	// CriticalThreshold.
	CriticalClasses []string `json:"critical_classes"`

	// LevelCounts counts classes per RiskLevel.
	LevelCounts map[RiskLevel]int `json:"level_counts"`

	// Centrality is the PageRank of each class in the dependency graph.
	Centrality map[string]float64 `json:"centrality"`

	// Cycles lists groups of classes that depend on each other.
	Cycles [][]string `json:"cycles"`

	CriticalThreshold int `json:"critical_threshold"`
	ModerateThreshold int `json:"moderate_threshold"`
}

// BuildImpact inverts the method and field references of every class
// into a dependents graph and scores removal risk.
func BuildImpact(c *corpus.Corpus, t config.Thresholds) ImpactAnalysis {
	names := c.Names()
	out := ImpactAnalysis{
		ImpactedBy:        make(map[string][]string, len(names)),
		RiskScores:        make(map[string]int, len(names)),
		CriticalClasses:   []string{},
		LevelCounts:       make(map[RiskLevel]int, len(RiskLevels)),
		CriticalThreshold: t.CriticalRisk,
		ModerateThreshold: t.ModerateRisk,
	}

	dependents := make(map[string]map[string]struct{}, len(names))
	g := newDepGraph(names)
	for _, name := range names {
		rec := c.Classes[name]
		for _, refs := range [][]string{rec.MethodRefs, rec.FieldRefs} {
			for _, ref := range refs {
				owner, ok := classfile.Owner(ref)
				if !ok || owner == name {
					continue
				}
				if _, internal := c.Classes[owner]; !internal {
					continue
				}
				set := dependents[owner]
				if set == nil {
					set = make(map[string]struct{})
					dependents[owner] = set
				}
				set[name] = struct{}{}
				g.link(name, owner)
			}
		}
	}

	for _, name := range names {
		deps := sortedSet(dependents[name])
		out.ImpactedBy[name] = deps

		score := len(deps) * dependentWeight
		for _, d := range deps {
			score += int(c.Classes[d].AverageMethodComplexity())
		}
		out.RiskScores[name] = score

		level := out.Level(score)
		out.LevelCounts[level]++
		if level == RiskCritical {
			out.CriticalClasses = append(out.CriticalClasses, name)
		}
	}

	out.Centrality = g.pageRank()
	out.Cycles = g.cycles()
	return out
}

// Level buckets score: critical above CriticalThreshold, moderate from
// ModerateThreshold, else low.
func (a *ImpactAnalysis) Level(score int) RiskLevel {
	switch {
	case score > a.CriticalThreshold:
		return RiskCritical
	case score >= a.ModerateThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}

// IsCritical reports whether removing class is rated critical.
func (a *ImpactAnalysis) IsCritical(class string) bool {
	score, ok := a.RiskScores[class]
	return ok && score > a.CriticalThreshold
}

// AffectedClasses returns the direct dependents of class as a new slice.
func (a *ImpactAnalysis) AffectedClasses(class string) []string {
	return append([]string{}, a.ImpactedBy[class]...)
}

// TransitiveImpact returns, sorted, every class that reaches class
// through one or more references, i.e. everything that may break if
// class is removed.
func (a *ImpactAnalysis) TransitiveImpact(class string) []string {
	seen := map[string]struct{}{class: {}}
	queue := []string{class}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range a.ImpactedBy[cur] {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			queue = append(queue, d)
		}
	}
	delete(seen, class)
	return sortedSet(seen)
}

// Assessment is the removal report for one class.
type Assessment struct {
	Class          string    `json:"class"`
	Dependents     []string  `json:"dependents"`
	Transitive     []string  `json:"transitive"`
	RiskScore      int       `json:"risk_score"`
	Level          RiskLevel `json:"level"`
	Recommendation string    `json:"recommendation"`
	Centrality     float64   `json:"centrality"`
}

// Assess builds the removal report for class. ok is false when the class
// is not in the corpus.
func (a *ImpactAnalysis) Assess(class string) (Assessment, bool) {
	score, ok := a.RiskScores[class]
	if !ok {
		return Assessment{}, false
	}
	level := a.Level(score)
	return Assessment{
		Class:          class,
		Dependents:     a.AffectedClasses(class),
		Transitive:     a.TransitiveImpact(class),
		RiskScore:      score,
		Level:          level,
		Recommendation: level.Recommendation(),
		Centrality:     a.Centrality[class],
	}, true
}

// Rank returns up to n assessments ordered by descending risk score,
// ties broken by class name. n <= 0 returns all classes.
func (a *ImpactAnalysis) Rank(n int) []Assessment {
	classes := make([]string, 0, len(a.RiskScores))
	for class := range a.RiskScores {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		si, sj := a.RiskScores[classes[i]], a.RiskScores[classes[j]]
		if si != sj {
			return si > sj
		}
		return classes[i] < classes[j]
	})
	if n > 0 && len(classes) > n {
		classes = classes[:n]
	}
	out := make([]Assessment, 0, len(classes))
	for _, class := range classes {
		as, _ := a.Assess(class)
		out = append(out, as)
	}
	return out
}
