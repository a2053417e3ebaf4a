package insights

import (
	"slices"
	"strings"

	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
)

// maxScore is the starting value of the security and maintainability
// scores.
const maxScore = 100

// SecurityInsights holds heuristic security findings. The findings are
// textual signals, not proof of a vulnerability.
type SecurityInsights struct {
	// ReflectionUsage holds "class -> ref" for each reflective call.
	ReflectionUsage []string `json:"reflection_usage"`

	// SerializationClasses lists classes implementing a serialization
	// marker interface.
	SerializationClasses []string `json:"serialization_classes"`

	// DeprecatedAPIUsage holds "class -> ref" for each call matching a
	// deprecated-API pattern.
	DeprecatedAPIUsage []string `json:"deprecated_api_usage"`

	// NativeMethods holds "class.method" for each native method. Native
	// methods are reported but not penalized.
	NativeMethods []string `json:"native_methods"`

	// Score starts at 100 and loses points per finding, clamped to
	// [0, 100].
	Score int `json:"score"`

	// Rating is ScoreClass(Score).
	Rating string `json:"rating"`
}

// TotalIssues counts penalized findings.
func (s SecurityInsights) TotalIssues() int {
	return len(s.ReflectionUsage) + len(s.SerializationClasses) + len(s.DeprecatedAPIUsage)
}

// BuildSecurity applies the reflection, serialization and deprecated-API
// heuristics of h to every class.
func BuildSecurity(c *corpus.Corpus, h config.Heuristics) SecurityInsights {
	out := SecurityInsights{
		ReflectionUsage:      []string{},
		SerializationClasses: []string{},
		DeprecatedAPIUsage:   []string{},
		NativeMethods:        []string{},
	}
	score := maxScore

	for _, name := range c.Names() {
		rec := c.Classes[name]

		for _, ref := range rec.MethodRefs {
			if containsAny(ref, h.ReflectionPatterns) {
				out.ReflectionUsage = append(out.ReflectionUsage, name+" -> "+ref)
				score -= h.Penalties.Reflection
			}
		}

		for _, iface := range h.SerializationInterfaces {
			if slices.Contains(rec.Interfaces, iface) {
				out.SerializationClasses = append(out.SerializationClasses, name)
				score -= h.Penalties.Serialization
				break
			}
		}

		for _, ref := range rec.MethodRefs {
			if containsAny(ref, h.DeprecatedPatterns) {
				out.DeprecatedAPIUsage = append(out.DeprecatedAPIUsage, name+" -> "+ref)
				score -= h.Penalties.Deprecated
			}
		}

		for _, m := range rec.NativeMethods {
			out.NativeMethods = append(out.NativeMethods, name+"."+m)
		}
	}

	out.Score = clampScore(score)
	out.Rating = ScoreClass(out.Score)
	return out
}

// ScoreClass labels a 0..100 score.
func ScoreClass(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	default:
		return "poor"
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func clampScore(score int) int {
	return max(0, min(maxScore, score))
}
