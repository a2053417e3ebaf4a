package insights_test

import (
	"reflect"
	"testing"

	"github.com/unbound-force/classlens/internal/classfile/classfiletest"
	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
	"github.com/unbound-force/classlens/internal/insights"
)

func buildImpact(c *corpus.Corpus) insights.ImpactAnalysis {
	return insights.BuildImpact(c, config.DefaultThresholds())
}

// TestBuildImpact_UnreferencedClassHasZeroRisk verifies a class nobody
// references scores 0 and is not critical.
func TestBuildImpact_UnreferencedClassHasZeroRisk(t *testing.T) {
	c := corpus.New(
		withRefs(class("com/acme/A", 30), "java/lang/String.length()I"),
		class("com/acme/Lonely", 50, 50),
	)
	a := buildImpact(c)

	if a.RiskScores["com/acme/Lonely"] != 0 {
		t.Errorf("expected risk 0, got %d", a.RiskScores["com/acme/Lonely"])
	}
	if a.IsCritical("com/acme/Lonely") {
		t.Error("expected unreferenced class not to be critical")
	}
	if deps := a.ImpactedBy["com/acme/Lonely"]; deps == nil || len(deps) != 0 {
		t.Errorf("expected empty non-nil dependents, got %#v", deps)
	}
}

// TestBuildImpact_SingleDependentNotCritical verifies that one dependent
// with average complexity 6 calling B ten times gives B a risk of 16.
func TestBuildImpact_SingleDependentNotCritical(t *testing.T) {
	a := classfiletest.New("com/acme/A")
	m := a.Method("run", "()V").Branches(5)
	for i := 0; i < 10; i++ {
		m.InvokeVirtual("com/acme/B", "work", "()V")
	}
	b := classfiletest.New("com/acme/B")
	b.Method("work", "()V")

	impact := buildImpact(decoded(t, a, b))

	if got := impact.RiskScores["com/acme/B"]; got != 16 {
		t.Errorf("expected risk 1*10+6=16, got %d", got)
	}
	if impact.IsCritical("com/acme/B") || len(impact.CriticalClasses) != 0 {
		t.Errorf("expected no critical classes, got %v", impact.CriticalClasses)
	}
	if !reflect.DeepEqual(impact.ImpactedBy["com/acme/B"], []string{"com/acme/A"}) {
		t.Errorf("expected B impacted by A, got %v", impact.ImpactedBy["com/acme/B"])
	}
	if impact.RiskScores["com/acme/A"] != 0 {
		t.Errorf("expected risk 0 for A, got %d", impact.RiskScores["com/acme/A"])
	}
}

// TestBuildImpact_ThreeClassChain verifies A -> B -> C yields no
// critical class.
func TestBuildImpact_ThreeClassChain(t *testing.T) {
	c := corpus.New(
		withRefs(class("A", 3), "B.call()V"),
		withRefs(class("B", 12), "C.call()V"),
		class("C", 1),
	)
	a := buildImpact(c)

	want := map[string]int{"A": 0, "B": 10 + 3, "C": 10 + 12}
	if !reflect.DeepEqual(a.RiskScores, want) {
		t.Errorf("expected risk scores %v, got %v", want, a.RiskScores)
	}
	if len(a.CriticalClasses) != 0 {
		t.Errorf("expected no critical classes, got %v", a.CriticalClasses)
	}
	if got := a.TransitiveImpact("C"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("expected C to transitively impact [A B], got %v", got)
	}
	if got := a.Level(a.RiskScores["C"]); got != insights.RiskModerate {
		t.Errorf("expected C moderate, got %s", got)
	}
	counts := map[insights.RiskLevel]int{insights.RiskModerate: 1, insights.RiskLow: 2}
	if !reflect.DeepEqual(a.LevelCounts, counts) {
		t.Errorf("expected level counts %v, got %v", counts, a.LevelCounts)
	}
}

// TestBuildImpact_CriticalThreshold verifies critical means strictly
// above the threshold.
func TestBuildImpact_CriticalThreshold(t *testing.T) {
	// Five dependents without methods: 5*10 = 50, not critical.
	at := corpus.New(class("Hub"))
	for _, n := range []string{"D1", "D2", "D3", "D4", "D5"} {
		at.Classes[n] = withRefs(class(n), "Hub.get()V")
	}
	if a := buildImpact(at); a.IsCritical("Hub") || a.RiskScores["Hub"] != 50 {
		t.Errorf("expected Hub at 50 and not critical, got %d critical=%v",
			a.RiskScores["Hub"], a.IsCritical("Hub"))
	}

	// Same dependents with complexity 1 each: 55, critical.
	above := corpus.New(class("Hub"))
	for _, n := range []string{"D1", "D2", "D3", "D4", "D5"} {
		above.Classes[n] = withRefs(class(n, 1), "Hub.get()V")
	}
	a := buildImpact(above)
	if !a.IsCritical("Hub") || a.RiskScores["Hub"] != 55 {
		t.Errorf("expected Hub at 55 and critical, got %d", a.RiskScores["Hub"])
	}
	if !reflect.DeepEqual(a.CriticalClasses, []string{"Hub"}) {
		t.Errorf("expected critical [Hub], got %v", a.CriticalClasses)
	}
	as, ok := a.Assess("Hub")
	if !ok {
		t.Fatal("expected Hub assessment")
	}
	if as.Recommendation != "Do not remove - critical dependencies" {
		t.Errorf("unexpected recommendation %q", as.Recommendation)
	}
}

// TestBuildImpact_ComplexityIsFloored verifies dependents contribute the
// integer part of their average complexity.
func TestBuildImpact_ComplexityIsFloored(t *testing.T) {
	c := corpus.New(
		withRefs(class("A", 2, 3), "T.x()V"), // avg 2.5
		withRefs(class("B", 1, 2), "T.x()V"), // avg 1.5
		class("T"),
	)
	if got := buildImpact(c).RiskScores["T"]; got != 20+2+1 {
		t.Errorf("expected 23, got %d", got)
	}
}

// TestBuildImpact_ReferenceKinds verifies field, type and array
// references count and self and external references do not.
func TestBuildImpact_ReferenceKinds(t *testing.T) {
	c := corpus.New(
		withFields(class("app/Reader"), "app/Config.path", "app/Reader.buf"),
		withRefs(class("app/Maker"), "TYPE:app/Model", "TYPE:[Lapp/Config;"),
		withRefs(class("app/Self"), "app/Self.helper()V", "java/util/List.size()I"),
		class("app/Config"),
		class("app/Model"),
	)
	a := buildImpact(c)

	if got := a.ImpactedBy["app/Config"]; !reflect.DeepEqual(got, []string{"app/Maker", "app/Reader"}) {
		t.Errorf("expected Config impacted by Maker and Reader, got %v", got)
	}
	if got := a.ImpactedBy["app/Model"]; !reflect.DeepEqual(got, []string{"app/Maker"}) {
		t.Errorf("expected Model impacted by Maker, got %v", got)
	}
	for _, self := range []string{"app/Self", "app/Reader"} {
		if got := a.ImpactedBy[self]; len(got) != 0 {
			t.Errorf("expected self references ignored for %s, got %v", self, got)
		}
	}
	if _, ok := a.ImpactedBy["java/util/List"]; ok {
		t.Error("expected external classes to be absent")
	}
}

// TestImpactAnalysis_Rank verifies ordering by score then name.
func TestImpactAnalysis_Rank(t *testing.T) {
	c := corpus.New(
		withRefs(class("A"), "X.f()V", "Y.f()V"),
		withRefs(class("B"), "X.f()V", "Y.f()V"),
		withRefs(class("C"), "X.f()V"),
		class("X"),
		class("Y"),
	)
	a := buildImpact(c)

	top := a.Rank(3)
	var got []string
	for _, as := range top {
		got = append(got, as.Class)
	}
	if want := []string{"X", "Y", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected rank %v, got %v", want, got)
	}
	if top[0].RiskScore != 30 || top[0].Level != insights.RiskModerate {
		t.Errorf("expected X at 30/moderate, got %d/%s", top[0].RiskScore, top[0].Level)
	}
	if len(a.Rank(0)) != 5 {
		t.Errorf("expected Rank(0) to return every class")
	}
}

// TestImpactAnalysis_CyclesAndCentrality verifies the graph metrics.
func TestImpactAnalysis_CyclesAndCentrality(t *testing.T) {
	c := corpus.New(
		withRefs(class("p/A"), "p/B.f()V", "p/Hub.f()V"),
		withRefs(class("p/B"), "p/A.f()V", "p/Hub.f()V"),
		withRefs(class("p/C"), "p/Hub.f()V"),
		class("p/Hub"),
	)
	a := buildImpact(c)

	if want := [][]string{{"p/A", "p/B"}}; !reflect.DeepEqual(a.Cycles, want) {
		t.Errorf("expected cycles %v, got %v", want, a.Cycles)
	}
	hub := a.Centrality["p/Hub"]
	for _, leaf := range []string{"p/A", "p/B", "p/C"} {
		if a.Centrality[leaf] >= hub {
			t.Errorf("expected hub centrality %f above %s (%f)", hub, leaf, a.Centrality[leaf])
		}
	}
}

// TestImpactAnalysis_Assess verifies lookups of unknown classes.
func TestImpactAnalysis_Assess(t *testing.T) {
	a := buildImpact(corpus.New(class("Only")))
	if _, ok := a.Assess("Missing"); ok {
		t.Error("expected no assessment for unknown class")
	}
	as, ok := a.Assess("Only")
	if !ok {
		t.Fatal("expected assessment for Only")
	}
	if as.Level != insights.RiskLow || as.Recommendation != "Safe to remove" {
		t.Errorf("expected low/safe, got %s/%q", as.Level, as.Recommendation)
	}
	if len(as.Transitive) != 0 || len(as.Dependents) != 0 {
		t.Errorf("expected no dependents, got %v %v", as.Dependents, as.Transitive)
	}
}

func TestRiskLevel_Recommendation(t *testing.T) {
	tests := map[insights.RiskLevel]string{
		insights.RiskCritical: "Do not remove - critical dependencies",
		insights.RiskModerate: "Test thoroughly before removal",
		insights.RiskLow:      "Safe to remove",
	}
	for level, want := range tests {
		if got := level.Recommendation(); got != want {
			t.Errorf("%s: expected %q, got %q", level, want, got)
		}
	}
}
