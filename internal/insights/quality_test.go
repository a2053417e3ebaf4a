package insights_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
	"github.com/unbound-force/classlens/internal/insights"
)

func buildQuality(c *corpus.Corpus) insights.QualityInsights {
	return insights.BuildQuality(c, config.DefaultHeuristics(), config.DefaultThresholds())
}

func repeat(n, complexity int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = complexity
	}
	return out
}

// TestBuildQuality_HighComplexity verifies the strict threshold and the
// penalty.
func TestBuildQuality_HighComplexity(t *testing.T) {
	c := corpus.New(
		class("app/Hot", 11),
		class("app/Edge", 10),
		class("app/Cool", 1, 3),
	)
	q := buildQuality(c)

	want := []insights.ClassComplexity{{Class: "app/Hot", Complexity: 11}}
	if !reflect.DeepEqual(q.HighComplexityClasses, want) {
		t.Errorf("expected %v, got %v", want, q.HighComplexityClasses)
	}
	if q.MaintainabilityScore != 90 {
		t.Errorf("expected 90, got %d", q.MaintainabilityScore)
	}
	// (11 + 10 + 2) / 3
	if got := q.OverallComplexity; got < 7.66 || got > 7.67 {
		t.Errorf("expected overall complexity ~7.67, got %f", got)
	}
	if s := q.HighComplexityClasses[0].String(); s != "app/Hot (complexity: 11.00)" {
		t.Errorf("unexpected String(): %q", s)
	}
}

// TestBuildQuality_RefactoringCandidates verifies both the method count
// and the average must exceed their thresholds.
func TestBuildQuality_RefactoringCandidates(t *testing.T) {
	c := corpus.New(
		class("app/Big", repeat(21, 9)...),
		class("app/Wide", repeat(20, 9)...),
		class("app/Simple", repeat(30, 8)...),
	)
	q := buildQuality(c)

	if !reflect.DeepEqual(q.RefactoringCandidates, []string{"app/Big"}) {
		t.Errorf("expected [app/Big], got %v", q.RefactoringCandidates)
	}
	if len(q.HighComplexityClasses) != 0 {
		t.Errorf("expected no high complexity classes, got %v", q.HighComplexityClasses)
	}
	if q.MaintainabilityScore != 95 {
		t.Errorf("expected 95, got %d", q.MaintainabilityScore)
	}
}

// TestBuildQuality_ScoreClamped verifies the score never drops below 0.
func TestBuildQuality_ScoreClamped(t *testing.T) {
	c := corpus.New()
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("app/Hot%d", i)
		c.Classes[name] = class(name, 50)
	}
	q := buildQuality(c)

	if q.MaintainabilityScore != 0 || q.Rating != "poor" {
		t.Errorf("expected 0/poor, got %d/%s", q.MaintainabilityScore, q.Rating)
	}
}

// TestBuildQuality_DesignPatterns verifies pattern keywords match the
// simple class name only.
func TestBuildQuality_DesignPatterns(t *testing.T) {
	c := corpus.New(
		class("app/WidgetFactory"),
		class("app/ui/ClickListener"),
		class("app/EventObserver"),
		class("app/factory/Plain"),
		class("ConfigSingleton"),
	)
	q := buildQuality(c)

	want := map[string]int{"Factory": 1, "Observer": 2, "Singleton": 1}
	if !reflect.DeepEqual(q.DesignPatterns, want) {
		t.Errorf("expected %v, got %v", want, q.DesignPatterns)
	}
}

// TestBuildQuality_Empty verifies an empty corpus scores 100.
func TestBuildQuality_Empty(t *testing.T) {
	q := buildQuality(corpus.New())
	if q.MaintainabilityScore != 100 || q.OverallComplexity != 0 {
		t.Errorf("expected 100 and 0, got %d and %f", q.MaintainabilityScore, q.OverallComplexity)
	}
	if q.DesignPatterns == nil || q.RefactoringCandidates == nil {
		t.Error("expected non-nil collections")
	}
}

func TestComplexityBand(t *testing.T) {
	tests := map[float64]string{0: "low", 5: "low", 5.01: "medium", 10: "medium", 10.5: "high"}
	for avg, want := range tests {
		if got := insights.ComplexityBand(avg); got != want {
			t.Errorf("ComplexityBand(%v): expected %s, got %s", avg, want, got)
		}
	}
}
