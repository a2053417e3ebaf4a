package insights_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
	"github.com/unbound-force/classlens/internal/insights"
)

// TestBuildSecurity_Findings verifies each heuristic and its penalty.
func TestBuildSecurity_Findings(t *testing.T) {
	ser := class("app/Dto")
	ser.Interfaces = []string{"java/lang/Comparable", "java/io/Serializable"}
	nat := class("app/Native")
	nat.NativeMethods = []string{"peek"}

	c := corpus.New(
		withRefs(class("app/Loader"),
			"java/lang/Class.forName(Ljava/lang/String;)Ljava/lang/Class;",
			"java/lang/reflect/Method.invoke(Ljava/lang/Object;[Ljava/lang/Object;)Ljava/lang/Object;",
			"java/lang/Thread.stop()V",
			"java/lang/String.length()I",
		),
		ser,
		nat,
	)
	s := insights.BuildSecurity(c, config.DefaultHeuristics())

	if len(s.ReflectionUsage) != 2 {
		t.Errorf("expected 2 reflection findings, got %v", s.ReflectionUsage)
	}
	if want := "app/Loader -> java/lang/Thread.stop()V"; len(s.DeprecatedAPIUsage) != 1 || s.DeprecatedAPIUsage[0] != want {
		t.Errorf("expected [%s], got %v", want, s.DeprecatedAPIUsage)
	}
	if !reflect.DeepEqual(s.SerializationClasses, []string{"app/Dto"}) {
		t.Errorf("expected [app/Dto], got %v", s.SerializationClasses)
	}
	if !reflect.DeepEqual(s.NativeMethods, []string{"app/Native.peek"}) {
		t.Errorf("expected [app/Native.peek], got %v", s.NativeMethods)
	}
	// 100 - 2*5 - 3 - 2; native methods are not penalized.
	if s.Score != 85 {
		t.Errorf("expected score 85, got %d", s.Score)
	}
	if s.Rating != "excellent" {
		t.Errorf("expected excellent, got %s", s.Rating)
	}
	if s.TotalIssues() != 4 {
		t.Errorf("expected 4 issues, got %d", s.TotalIssues())
	}
}

// TestBuildSecurity_ScoreClamped verifies the score never drops below 0.
func TestBuildSecurity_ScoreClamped(t *testing.T) {
	rec := class("app/Reflective")
	for i := 0; i < 30; i++ {
		rec.MethodRefs = append(rec.MethodRefs, fmt.Sprintf("java/lang/reflect/Field.get%d()V", i))
	}
	s := insights.BuildSecurity(corpus.New(rec), config.DefaultHeuristics())

	if s.Score != 0 {
		t.Errorf("expected score clamped to 0, got %d", s.Score)
	}
	if s.Rating != "poor" {
		t.Errorf("expected poor, got %s", s.Rating)
	}
}

// TestBuildSecurity_CustomHeuristics verifies vocabularies come from
// configuration.
func TestBuildSecurity_CustomHeuristics(t *testing.T) {
	h := config.DefaultHeuristics()
	h.ReflectionPatterns = []string{"MethodHandles.lookup"}
	h.Penalties.Reflection = 40

	c := corpus.New(withRefs(class("app/A"),
		"java/lang/invoke/MethodHandles.lookup()Ljava/lang/invoke/MethodHandles$Lookup;",
		"java/lang/Class.forName(Ljava/lang/String;)Ljava/lang/Class;",
	))
	s := insights.BuildSecurity(c, h)

	if len(s.ReflectionUsage) != 1 || s.Score != 60 {
		t.Errorf("expected 1 finding and score 60, got %v and %d", s.ReflectionUsage, s.Score)
	}
}

// TestBuildSecurity_Empty verifies a clean corpus scores 100.
func TestBuildSecurity_Empty(t *testing.T) {
	s := insights.BuildSecurity(corpus.New(), config.DefaultHeuristics())
	if s.Score != 100 || s.TotalIssues() != 0 {
		t.Errorf("expected 100 and no issues, got %d and %d", s.Score, s.TotalIssues())
	}
	if s.ReflectionUsage == nil || s.NativeMethods == nil {
		t.Error("expected non-nil finding slices")
	}
}

func TestScoreClass(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "excellent"},
		{80, "excellent"},
		{79, "good"},
		{60, "good"},
		{59, "fair"},
		{40, "fair"},
		{39, "poor"},
		{0, "poor"},
	}
	for _, tt := range tests {
		if got := insights.ScoreClass(tt.score); got != tt.want {
			t.Errorf("ScoreClass(%d): expected %s, got %s", tt.score, tt.want, got)
		}
	}
}
