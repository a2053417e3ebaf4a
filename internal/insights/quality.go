package insights

import (
	"fmt"
	"strings"

	"github.com/unbound-force/classlens/internal/classfile"
	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
)

// QualityInsights summarizes complexity and naming-convention signals.
type QualityInsights struct {
	// OverallComplexity is the mean of class average complexities.
	OverallComplexity float64 `json:"overall_complexity"`

	// HighComplexityClasses lists classes whose average complexity
	// exceeds the high-complexity threshold.
	HighComplexityClasses []ClassComplexity `json:"high_complexity_classes"`

	// RefactoringCandidates lists large classes with a high average.
	RefactoringCandidates []string `json:"refactoring_candidates"`

	// MaintainabilityScore starts at 100, loses points per flagged class
	// and is clamped to [0, 100].
	MaintainabilityScore int `json:"maintainability_score"`

	// Rating is ScoreClass(MaintainabilityScore).
	Rating string `json:"rating"`

	// DesignPatterns counts classes whose simple name suggests each
	// pattern. Absent patterns are omitted.
	DesignPatterns map[string]int `json:"design_patterns"`
}

// ClassComplexity pairs a class with its average method complexity.
type ClassComplexity struct {
	Class      string  `json:"class"`
	Complexity float64 `json:"complexity"`
}

func (c ClassComplexity) String() string {
	return fmt.Sprintf("%s (complexity: %.2f)", c.Class, c.Complexity)
}

// BuildQuality computes quality insights.
func BuildQuality(c *corpus.Corpus, h config.Heuristics, t config.Thresholds) QualityInsights {
	out := QualityInsights{
		HighComplexityClasses: []ClassComplexity{},
		RefactoringCandidates: []string{},
		DesignPatterns:        make(map[string]int),
	}
	score := maxScore
	total := 0.0

	names := c.Names()
	for _, name := range names {
		rec := c.Classes[name]
		avg := rec.AverageMethodComplexity()
		total += avg

		if avg > t.HighComplexity {
			out.HighComplexityClasses = append(out.HighComplexityClasses, ClassComplexity{Class: name, Complexity: avg})
			score -= h.Penalties.HighComplexity
		}
		if rec.MethodCount > t.RefactorMethods && avg > t.RefactorComplexity {
			out.RefactoringCandidates = append(out.RefactoringCandidates, name)
			score -= h.Penalties.RefactorCandidate
		}

		simple := strings.ToLower(classfile.SimpleName(name))
		for _, rule := range h.DesignPatterns {
			if containsAny(simple, rule.Keywords) {
				out.DesignPatterns[rule.Name]++
			}
		}
	}

	if len(names) > 0 {
		out.OverallComplexity = total / float64(len(names))
	}
	out.MaintainabilityScore = clampScore(score)
	out.Rating = ScoreClass(out.MaintainabilityScore)
	return out
}

// ComplexityBand labels an average method complexity.
func ComplexityBand(avg float64) string {
	switch {
	case avg > 10:
		return "high"
	case avg > 5:
		return "medium"
	default:
		return "low"
	}
}
