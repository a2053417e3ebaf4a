// Package config holds the heuristics, thresholds and runtime settings
// used by classlens, with defaults that reproduce the stock analyzer.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Config is the root configuration.
type Config struct {
	Scan       ScanConfig `yaml:"scan" toml:"scan"`
	Heuristics Heuristics `yaml:"heuristics" toml:"heuristics"`
	Thresholds Thresholds `yaml:"thresholds" toml:"thresholds"`
	Log        LogConfig  `yaml:"log" toml:"log"`
}

// ScanConfig controls corpus enumeration.
type ScanConfig struct {
	// Workers bounds concurrent decodes. Zero means one per CPU.
	Workers int `yaml:"workers" toml:"workers"`

	// IncludeNested keeps classes whose file name contains '$'.
	IncludeNested bool `yaml:"include_nested" toml:"include_nested"`

	// Include restricts the scan to matching entry names when non-empty.
	Include []string `yaml:"include" toml:"include"`

	// Exclude drops matching entry names.
	Exclude []string `yaml:"exclude" toml:"exclude"`

	// CacheSize is the number of decoded classes kept between scans
	// in watch mode. Zero disables the cache.
	CacheSize int `yaml:"cache_size" toml:"cache_size"`

	// Timeout bounds a whole scan. Zero means no deadline.
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// Heuristics are the vocabularies matched against decoded classes.
type Heuristics struct {
	// PlatformPrefixes are dotted package prefixes excluded from
	// package dependency sets.
	PlatformPrefixes []string `yaml:"platform_prefixes" toml:"platform_prefixes"`

	ReflectionPatterns      []string      `yaml:"reflection_patterns" toml:"reflection_patterns"`
	SerializationInterfaces []string      `yaml:"serialization_interfaces" toml:"serialization_interfaces"`
	DeprecatedPatterns      []string      `yaml:"deprecated_patterns" toml:"deprecated_patterns"`
	DesignPatterns          []PatternRule `yaml:"design_patterns" toml:"design_patterns"`

	Penalties Penalties `yaml:"penalties" toml:"penalties"`
}

// PatternRule maps a design pattern name to the lowercase keywords that
// identify it in a class's simple name.
type PatternRule struct {
	Name     string   `yaml:"name" toml:"name"`
	Keywords []string `yaml:"keywords" toml:"keywords"`
}

// Penalties are the points deducted per finding.
type Penalties struct {
	Reflection        int `yaml:"reflection" toml:"reflection"`
	Serialization     int `yaml:"serialization" toml:"serialization"`
	Deprecated        int `yaml:"deprecated" toml:"deprecated"`
	HighComplexity    int `yaml:"high_complexity" toml:"high_complexity"`
	RefactorCandidate int `yaml:"refactor_candidate" toml:"refactor_candidate"`
}

// Thresholds are the numeric cut-offs used by the insight builders.
type Thresholds struct {
	// HighComplexity flags a class whose average method complexity
	// is strictly greater.
	HighComplexity float64 `yaml:"high_complexity" toml:"high_complexity"`

	// RefactorMethods and RefactorComplexity flag classes with more
	// methods and a higher average than both values.
	RefactorMethods    int     `yaml:"refactor_methods" toml:"refactor_methods"`
	RefactorComplexity float64 `yaml:"refactor_complexity" toml:"refactor_complexity"`

	// CriticalRisk marks a class critical when its risk score is
	// strictly greater.
	CriticalRisk int `yaml:"critical_risk" toml:"critical_risk"`

	// ModerateRisk is the lowest score rated moderate.
	ModerateRisk int `yaml:"moderate_risk" toml:"moderate_risk"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`

	// File, when set, also writes logs to a size-rotated file.
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			CacheSize: 4096,
		},
		Heuristics: DefaultHeuristics(),
		Thresholds: DefaultThresholds(),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultHeuristics returns the stock vocabularies and penalties.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		PlatformPrefixes:        []string{"java."},
		ReflectionPatterns:      []string{"java/lang/reflect/", "Class.forName"},
		SerializationInterfaces: []string{"java/io/Serializable"},
		DeprecatedPatterns:      []string{"deprecated", "Date(", "Thread.stop"},
		DesignPatterns: []PatternRule{
			{Name: "Factory", Keywords: []string{"factory"}},
			{Name: "Singleton", Keywords: []string{"singleton"}},
			{Name: "Observer", Keywords: []string{"observer", "listener"}},
			{Name: "Adapter", Keywords: []string{"adapter"}},
			{Name: "Strategy", Keywords: []string{"strategy"}},
		},
		Penalties: Penalties{
			Reflection:        5,
			Serialization:     3,
			Deprecated:        2,
			HighComplexity:    10,
			RefactorCandidate: 5,
		},
	}
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighComplexity:     10,
		RefactorMethods:    20,
		RefactorComplexity: 8,
		CriticalRisk:       50,
		ModerateRisk:       20,
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.Workers < 0 {
		errs = append(errs, fmt.Errorf("scan.workers must be >= 0, got %d", c.Scan.Workers))
	}
	if c.Scan.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("scan.cache_size must be >= 0, got %d", c.Scan.CacheSize))
	}
	if c.Scan.Timeout < 0 {
		errs = append(errs, fmt.Errorf("scan.timeout must not be negative"))
	}

	t := c.Thresholds
	if t.HighComplexity < 0 || t.RefactorComplexity < 0 || t.RefactorMethods < 0 {
		errs = append(errs, errors.New("thresholds must not be negative"))
	}
	if t.ModerateRisk < 0 || t.CriticalRisk < t.ModerateRisk {
		errs = append(errs, fmt.Errorf(
			"thresholds: need 0 <= moderate_risk (%d) <= critical_risk (%d)",
			t.ModerateRisk, t.CriticalRisk))
	}

	p := c.Heuristics.Penalties
	if p.Reflection < 0 || p.Serialization < 0 || p.Deprecated < 0 ||
		p.HighComplexity < 0 || p.RefactorCandidate < 0 {
		errs = append(errs, errors.New("heuristics.penalties must not be negative"))
	}
	for _, set := range []struct {
		name     string
		patterns []string
	}{
		{"platform_prefixes", c.Heuristics.PlatformPrefixes},
		{"reflection_patterns", c.Heuristics.ReflectionPatterns},
		{"serialization_interfaces", c.Heuristics.SerializationInterfaces},
		{"deprecated_patterns", c.Heuristics.DeprecatedPatterns},
	} {
		for _, p := range set.patterns {
			if strings.TrimSpace(p) == "" {
				errs = append(errs, fmt.Errorf("heuristics.%s: empty pattern", set.name))
				break
			}
		}
	}
	for _, rule := range c.Heuristics.DesignPatterns {
		if rule.Name == "" || len(rule.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("heuristics.design_patterns: rule %q needs a name and keywords", rule.Name))
		}
	}

	if _, err := charmlog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Duration is a time.Duration that reads and writes as a Go duration
// string ("30s", "2m") in YAML and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
