package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/unbound-force/classlens/internal/config"
	"github.com/unbound-force/classlens/internal/corpus"
	"github.com/unbound-force/classlens/internal/insights"
	"github.com/unbound-force/classlens/internal/report"
	"github.com/unbound-force/classlens/internal/watch"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

// Set by build flags.
var version = "dev"

// errNoClasses is returned when a scan decodes nothing.
var errNoClasses = errors.New("no analyzable classes found")

func main() {
	root := &cobra.Command{
		Use:   "classlens",
		Short: "classlens: JVM bytecode insights and removal impact",
		Long: `classlens decodes compiled JVM class files from a directory or an
archive and reports package structure, security signals, code quality
and the estimated impact of removing each class.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newImpactCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Shared scan flags
// ---------------------------------------------------------------------------

// scanFlags are the flags shared by every command that scans classes.
type scanFlags struct {
	configPath    string
	workers       int
	includeNested bool
	include       []string
	exclude       []string
	timeout       time.Duration
	verbose       bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "",
		"path to a .yaml or .toml config (default: .classlens.{yaml,yml,toml} if present)")
	cmd.Flags().IntVar(&f.workers, "workers", 0,
		"concurrent class decoders (0 = one per CPU)")
	cmd.Flags().BoolVar(&f.includeNested, "include-nested", false,
		"include nested and anonymous classes (names containing '$')")
	cmd.Flags().StringSliceVar(&f.include, "include", nil,
		"only scan entries matching these globs")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil,
		"skip entries matching these globs")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0,
		"abort the scan after this long (0 = no limit)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false,
		"debug logging and full finding lists")
}

// resolve loads the configuration and applies the flags set on cmd.
func (f *scanFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.Resolve(f.configPath, dir)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, f, cmd.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags over the loaded config.
func applyOverrides(cfg *config.Config, f *scanFlags, changed func(string) bool) {
	if changed("workers") {
		cfg.Scan.Workers = f.workers
	}
	if changed("include-nested") {
		cfg.Scan.IncludeNested = f.includeNested
	}
	if changed("include") {
		cfg.Scan.Include = f.include
	}
	if changed("exclude") {
		cfg.Scan.Exclude = f.exclude
	}
	if changed("timeout") {
		cfg.Scan.Timeout = config.Duration(f.timeout)
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
}

// setupLogger points the global logger at stderr and, when configured,
// a size-rotated log file. The returned closer releases the file.
func setupLogger(stderr io.Writer, lc config.LogConfig) (io.Closer, error) {
	level, err := charmlog.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	if lc.File == "" {
		logger.SetOutput(stderr)
		return nopCloser{}, nil
	}
	file := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
	}
	logger.SetOutput(io.MultiWriter(stderr, file))
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func checkFormat(format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", format)
	}
	return nil
}

// analyze scans path and builds insights over the result. cache may be
// nil.
func analyze(ctx context.Context, path string, cfg *config.Config, cache *corpus.Cache) (report.Result, error) {
	src, err := corpus.Open(path)
	if err != nil {
		return report.Result{}, err
	}
	if cfg.Scan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scan.Timeout.Std())
		defer cancel()
	}

	opts := corpus.OptionsFromConfig(cfg.Scan)
	opts.Cache = cache
	opts.Logger = logger

	logger.Info("scanning classes", "source", src)
	c, err := corpus.NewScanner(opts).Scan(ctx, src)
	if err != nil {
		return report.Result{}, err
	}
	if c.Len() == 0 {
		return report.Result{}, fmt.Errorf("%s: %w", src, errNoClasses)
	}

	p, err := insights.Build(ctx, c, cfg)
	if err != nil {
		return report.Result{}, err
	}
	logger.Info("analysis complete",
		"classes", c.Len(),
		"skipped", len(c.Failures),
		"critical", len(p.Impact.CriticalClasses))

	return report.Result{
		RunID:    uuid.NewString(),
		Source:   src.String(),
		Insights: p,
		Failures: c.Failures,
	}, nil
}

// ---------------------------------------------------------------------------
// analyze
// ---------------------------------------------------------------------------

// analyzeParams holds the parsed flags for the analyze command.
type analyzeParams struct {
	ctx         context.Context
	path        string
	format      string
	cfg         *config.Config
	top         int
	verbose     bool
	interactive bool
	stdout      io.Writer
	stderr      io.Writer
}

// runAnalyze is the extracted, testable body of the analyze command.
func runAnalyze(p analyzeParams) error {
	if err := checkFormat(p.format); err != nil {
		return err
	}
	cfg := p.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := analyze(ctx, p.path, cfg, nil)
	if err != nil {
		return err
	}

	if p.interactive {
		return runInteractiveAnalyze(res)
	}
	return writeResult(p.stdout, p.format, res, report.TextOptions{Top: p.top, Verbose: p.verbose})
}

func writeResult(w io.Writer, format string, res report.Result, opts report.TextOptions) error {
	switch format {
	case "json":
		return report.WriteJSON(w, res, version)
	default:
		return report.WriteText(w, res, opts)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		flags       scanFlags
		format      string
		top         int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [dir|archive|class]",
		Short: "Report package, security, quality and impact insights",
		Long: `Decode every class under a directory, inside a .jar/.zip/.war/.ear
archive, or a single .class file, and report package structure,
security signals, code quality and removal risk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			closer, err := setupLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			return runAnalyze(analyzeParams{
				ctx:         cmd.Context(),
				path:        args[0],
				format:      format,
				cfg:         cfg,
				top:         top,
				verbose:     flags.verbose,
				interactive: interactive,
				stdout:      cmd.OutOrStdout(),
				stderr:      cmd.ErrOrStderr(),
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text or json")
	cmd.Flags().IntVar(&top, "top", 10,
		"rows in each ranked text listing")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"launch interactive TUI for browsing results")

	return cmd
}

// ---------------------------------------------------------------------------
// impact
// ---------------------------------------------------------------------------

// impactParams holds the parsed flags for the impact command.
type impactParams struct {
	ctx    context.Context
	path   string
	class  string
	format string
	cfg    *config.Config
	stdout io.Writer
}

// runImpact is the extracted, testable body of the impact command.
func runImpact(p impactParams) error {
	if err := checkFormat(p.format); err != nil {
		return err
	}
	cfg := p.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := analyze(ctx, p.path, cfg, nil)
	if err != nil {
		return err
	}
	class := normalizeClass(p.class)
	as, ok := res.Insights.Impact.Assess(class)
	if !ok {
		return fmt.Errorf("class %q not found in %s", class, res.Source)
	}

	if p.format == "json" {
		return report.WriteImpactJSON(p.stdout, as)
	}
	return report.WriteImpactText(p.stdout, as)
}

// normalizeClass accepts "com.acme.Foo", "com/acme/Foo" or
// "com/acme/Foo.class" and returns the internal name.
func normalizeClass(name string) string {
	name = strings.TrimSuffix(name, corpus.ClassSuffix)
	return strings.ReplaceAll(name, ".", "/")
}

func newImpactCmd() *cobra.Command {
	var (
		flags  scanFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "impact [dir|archive] [class]",
		Short: "Assess the impact of removing one class",
		Long: `Report the direct and transitive dependents of a class, its removal
risk score and a recommendation. The class may be given in dotted
(com.acme.Foo) or internal (com/acme/Foo) form.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			closer, err := setupLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			return runImpact(impactParams{
				ctx:    cmd.Context(),
				path:   args[0],
				class:  args[1],
				format: format,
				cfg:    cfg,
				stdout: cmd.OutOrStdout(),
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text or json")

	return cmd
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

// watchParams holds the parsed flags for the watch command.
type watchParams struct {
	ctx      context.Context
	dir      string
	format   string
	cfg      *config.Config
	debounce time.Duration
	top      int
	stdout   io.Writer
}

// runWatch analyzes dir, then re-analyzes it after every batch of class
// file changes until ctx is done. Decoded classes are cached across runs.
func runWatch(p watchParams) error {
	if err := checkFormat(p.format); err != nil {
		return err
	}
	cfg := p.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var cache *corpus.Cache
	if cfg.Scan.CacheSize > 0 {
		var err error
		if cache, err = corpus.NewCache(cfg.Scan.CacheSize); err != nil {
			return err
		}
	}

	render := func(ctx context.Context) {
		res, err := analyze(ctx, p.dir, cfg, cache)
		if err != nil {
			logger.Error("analysis failed", "err", err)
			return
		}
		if err := writeResult(p.stdout, p.format, res, report.TextOptions{Top: p.top}); err != nil {
			logger.Error("writing report", "err", err)
		}
	}

	w, err := watch.New(p.dir, func(ctx context.Context, changed []string) {
		logger.Debug("re-analyzing", "changed", changed)
		render(ctx)
	}, watch.Options{Debounce: p.debounce, Logger: logger})
	if err != nil {
		return err
	}

	render(ctx)
	return w.Run(ctx)
}

func newWatchCmd() *cobra.Command {
	var (
		flags    scanFlags
		format   string
		debounce time.Duration
		top      int
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-analyze a class directory whenever it changes",
		Long: `Analyze a directory of classes, then watch it and print a fresh
report each time class files or archives beneath it change. Press
Ctrl+C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			closer, err := setupLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			defer closer.Close()

			return runWatch(watchParams{
				ctx:      cmd.Context(),
				dir:      args[0],
				format:   format,
				cfg:      cfg,
				debounce: debounce,
				top:      top,
				stdout:   cmd.OutOrStdout(),
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text or json")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce,
		"quiet period before re-analyzing")
	cmd.Flags().IntVar(&top, "top", 10,
		"rows in each ranked text listing")

	return cmd
}

// ---------------------------------------------------------------------------
// schema and config
// ---------------------------------------------------------------------------

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for classlens analysis output",
		Long: `Print the JSON Schema (Draft 2020-12) that documents the
structure of classlens analyze --format=json output. Useful for
validating output or generating client types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), report.Schema)
			return err
		},
	}
}

// configParams holds the parsed flags for the config command.
type configParams struct {
	path   string
	format string
	stdout io.Writer
}

// runConfig prints the effective configuration, which makes a starting
// point for a config file.
func runConfig(p configParams) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.Resolve(p.path, dir)
	if err != nil {
		return err
	}

	switch p.format {
	case "yaml":
		enc := yaml.NewEncoder(p.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(p.stdout).Encode(cfg)
	default:
		return fmt.Errorf("invalid format %q: must be 'yaml' or 'toml'", p.format)
	}
}

func newConfigCmd() *cobra.Command {
	var (
		path   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration classlens would use, defaults merged with
any config file, as YAML or TOML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(configParams{
				path:   path,
				format: format,
				stdout: cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&path, "config", "",
		"path to a .yaml or .toml config")
	cmd.Flags().StringVar(&format, "format", "yaml",
		"output format: yaml or toml")

	return cmd
}
