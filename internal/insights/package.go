package insights

import (
	"sort"
	"strings"

	"github.com/unbound-force/classlens/internal/classfile"
	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
)

// mostConnectedLimit is the length of PackageInsights.MostConnectedPackages.
const mostConnectedLimit = 5

// PackageInsights aggregates classes by package.
type PackageInsights struct {
	// ClassCountByPackage counts classes per dotted package name.
	ClassCountByPackage map[string]int `json:"class_count_by_package"`

	// ComplexityByPackage is a running pairwise average of class
	// average complexities, folded in sorted class-name order. It is
	// not the arithmetic mean once a package has three or more classes.
	ComplexityByPackage map[string]float64 `json:"complexity_by_package"`

	// DependenciesByPackage lists, sorted, the other non-platform
	// packages referenced by the method references of each package.
	DependenciesByPackage map[string][]string `json:"dependencies_by_package"`

	// MostConnectedPackages holds up to five packages with the largest
	// dependency sets. Ties keep discovery order.
	MostConnectedPackages []string `json:"most_connected_packages"`

	// Coupling holds afferent/efferent coupling for each package in the
	// corpus.
	Coupling map[string]Coupling `json:"coupling"`

	// Cycles lists groups of corpus packages that depend on each other
	// directly or transitively.
	Cycles [][]string `json:"cycles"`
}

// Coupling is Robert Martin's package coupling triple.
type Coupling struct {
	// Afferent counts corpus packages that depend on this package.
	Afferent int `json:"afferent"`

	// Efferent counts packages this package depends on.
	Efferent int `json:"efferent"`

	// Instability is Efferent / (Afferent + Efferent), 0 when both are 0.
	Instability float64 `json:"instability"`
}

// BuildPackages computes package insights. Classes are visited in sorted
// name order so every order-dependent value is reproducible.
func BuildPackages(c *corpus.Corpus, h config.Heuristics) PackageInsights {
	out := PackageInsights{
		ClassCountByPackage:   make(map[string]int),
		ComplexityByPackage:   make(map[string]float64),
		DependenciesByPackage: make(map[string][]string),
		Coupling:              make(map[string]Coupling),
	}

	var order []string
	deps := make(map[string]map[string]struct{})

	for _, name := range c.Names() {
		rec := c.Classes[name]
		pkg := classfile.PackageOf(name)

		avg := rec.AverageMethodComplexity()
		if _, seen := out.ClassCountByPackage[pkg]; seen {
			out.ComplexityByPackage[pkg] = (out.ComplexityByPackage[pkg] + avg) / 2
		} else {
			order = append(order, pkg)
			deps[pkg] = make(map[string]struct{})
			out.ComplexityByPackage[pkg] = avg
		}
		out.ClassCountByPackage[pkg]++

		for _, ref := range rec.MethodRefs {
			owner, ok := classfile.Owner(ref)
			if !ok {
				continue
			}
			target := classfile.PackageOf(owner)
			if target == pkg || isPlatform(target, h.PlatformPrefixes) {
				continue
			}
			deps[pkg][target] = struct{}{}
		}
	}

	for pkg, set := range deps {
		out.DependenciesByPackage[pkg] = sortedSet(set)
	}

	ranked := append(make([]string, 0, len(order)), order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(deps[ranked[i]]) > len(deps[ranked[j]])
	})
	if len(ranked) > mostConnectedLimit {
		ranked = ranked[:mostConnectedLimit]
	}
	out.MostConnectedPackages = ranked

	afferent := make(map[string]int)
	g := newDepGraph(order)
	for _, pkg := range order {
		for target := range deps[pkg] {
			if _, internal := deps[target]; internal {
				afferent[target]++
				g.link(pkg, target)
			}
		}
	}
	for _, pkg := range order {
		ca, ce := afferent[pkg], len(deps[pkg])
		cp := Coupling{Afferent: ca, Efferent: ce}
		if ca+ce > 0 {
			cp.Instability = float64(ce) / float64(ca+ce)
		}
		out.Coupling[pkg] = cp
	}
	out.Cycles = g.cycles()

	return out
}

func isPlatform(pkg string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(pkg, p) {
			return true
		}
	}
	return false
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
