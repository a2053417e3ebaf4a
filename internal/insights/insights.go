// Package insights derives package, security, quality and removal-impact
// insights from a decoded corpus. Every builder is a pure function of the
// corpus and its configuration; none of them mutates the corpus.
package insights

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/unbound-force/classlens/internal/classfile"
	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
)

var tracer = otel.Tracer("classlens.insights")

// Summary holds corpus-wide totals.
type Summary struct {
	TotalClasses      int     `json:"total_classes"`
	TotalMethods      int     `json:"total_methods"`
	TotalFields       int     `json:"total_fields"`
	AverageComplexity float64 `json:"average_complexity"`
	Interfaces        int     `json:"interfaces"`
	AbstractClasses   int     `json:"abstract_classes"`
	Packages          int     `json:"packages"`
}

// ProjectInsights is an immutable snapshot of everything derived from
// one corpus.
type ProjectInsights struct {
	Summary  Summary          `json:"summary"`
	Packages PackageInsights  `json:"packages"`
	Security SecurityInsights `json:"security"`
	Quality  QualityInsights  `json:"quality"`
	Impact   ImpactAnalysis   `json:"impact"`
}

// BuildSummary totals the corpus.
func BuildSummary(c *corpus.Corpus) Summary {
	var s Summary
	packages := make(map[string]struct{})
	total := 0.0
	for _, name := range c.Names() {
		rec := c.Classes[name]
		s.TotalClasses++
		s.TotalMethods += rec.MethodCount
		s.TotalFields += rec.FieldCount
		total += rec.AverageMethodComplexity()
		// Interfaces carry ACC_ABSTRACT too; count them once.
		switch {
		case rec.IsInterface:
			s.Interfaces++
		case rec.IsAbstract:
			s.AbstractClasses++
		}
		packages[classfile.PackageOf(name)] = struct{}{}
	}
	if s.TotalClasses > 0 {
		s.AverageComplexity = total / float64(s.TotalClasses)
	}
	s.Packages = len(packages)
	return s
}

// Build runs the four builders and the summary concurrently over c. A nil
// cfg means config.DefaultConfig(). The only error is a done context.
func Build(ctx context.Context, c *corpus.Corpus, cfg *config.Config) (*ProjectInsights, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx, span := tracer.Start(ctx, "insights.Build",
		trace.WithAttributes(attribute.Int("insights.classes", c.Len())))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("building insights: %w", err)
	}

	// Each goroutine writes a distinct field of p.
	var p ProjectInsights
	var g errgroup.Group
	g.Go(func() error {
		p.Summary = BuildSummary(c)
		return nil
	})
	g.Go(func() error {
		p.Packages = BuildPackages(c, cfg.Heuristics)
		return nil
	})
	g.Go(func() error {
		p.Security = BuildSecurity(c, cfg.Heuristics)
		return nil
	})
	g.Go(func() error {
		p.Quality = BuildQuality(c, cfg.Heuristics, cfg.Thresholds)
		return nil
	})
	g.Go(func() error {
		p.Impact = BuildImpact(c, cfg.Thresholds)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("building insights: %w", err)
	}

	span.SetAttributes(
		attribute.Int("insights.critical_classes", len(p.Impact.CriticalClasses)),
		attribute.Int("insights.security_score", p.Security.Score),
	)
	return &p, nil
}
