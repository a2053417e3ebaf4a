package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/unbound-force/classlens/internal/classfile/classfiletest"
	"github.com/unbound-force/classlens/internal/config"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func fixtureClasses() map[string][]byte {
	app := classfiletest.New("com/acme/App")
	app.Method("main", "([Ljava/lang/String;)V").
		New("com/acme/service/Service").
		InvokeSpecial("com/acme/service/Service", "<init>", "()V").
		InvokeVirtual("com/acme/service/Service", "run", "()V")

	svc := classfiletest.New("com/acme/service/Service")
	svc.Method("<init>", "()V").InvokeSpecial("java/lang/Object", "<init>", "()V")
	svc.Method("run", "()V").Branches(2)

	anon := classfiletest.New("com/acme/App$1")
	anon.Method("run", "()V").InvokeStatic("com/acme/App", "main", "([Ljava/lang/String;)V")

	return map[string][]byte{
		"com/acme/App.class":             app.Bytes(),
		"com/acme/App$1.class":           anon.Bytes(),
		"com/acme/service/Service.class": svc.Bytes(),
	}
}

// writeFixture writes the fixture classes under a new temp directory.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range fixtureClasses() {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// writeJar packs the fixture classes into a jar.
func writeJar(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.jar")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, data := range fixtureClasses() {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// quietLogger discards log output for the duration of a test.
func quietLogger(t *testing.T) {
	t.Helper()
	logger.SetOutput(&bytes.Buffer{})
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(charmlog.InfoLevel)
	})
}

// ---------------------------------------------------------------------------
// runAnalyze tests
// ---------------------------------------------------------------------------

func TestRunAnalyze_InvalidFormat(t *testing.T) {
	err := runAnalyze(analyzeParams{
		path:   ".",
		format: "yaml",
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	})
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), `invalid format "yaml"`) {
		t.Errorf("unexpected error message: %s", err)
	}
}

func TestRunAnalyze_TextFormat(t *testing.T) {
	quietLogger(t)
	var stdout bytes.Buffer
	err := runAnalyze(analyzeParams{
		path:   writeFixture(t),
		format: "text",
		stdout: &stdout,
		stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "com/acme/service/Service") {
		t.Errorf("expected output to contain the referenced class, got:\n%s", out)
	}
	// Nested classes are skipped by default.
	if !strings.Contains(out, "2 class(es) analyzed") {
		t.Errorf("expected 2 classes analyzed, got:\n%s", out)
	}
}

func TestRunAnalyze_JSONFormat(t *testing.T) {
	quietLogger(t)
	var stdout bytes.Buffer
	err := runAnalyze(analyzeParams{
		path:   writeFixture(t),
		format: "json",
		stdout: &stdout,
		stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput:\n%s", err, stdout.String())
	}
	for _, key := range []string{"version", "run_id", "source", "insights", "failures"} {
		if _, ok := parsed[key]; !ok {
			t.Errorf("JSON output missing %q key", key)
		}
	}
}

func TestRunAnalyze_IncludeNested(t *testing.T) {
	quietLogger(t)
	cfg := config.DefaultConfig()
	cfg.Scan.IncludeNested = true

	var stdout bytes.Buffer
	err := runAnalyze(analyzeParams{
		path:   writeFixture(t),
		format: "text",
		cfg:    cfg,
		stdout: &stdout,
		stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "3 class(es) analyzed") {
		t.Errorf("expected 3 classes analyzed, got:\n%s", stdout.String())
	}
}

func TestRunAnalyze_Archive(t *testing.T) {
	quietLogger(t)
	var stdout bytes.Buffer
	err := runAnalyze(analyzeParams{
		path:   writeJar(t),
		format: "text",
		stdout: &stdout,
		stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "app.jar") {
		t.Errorf("expected the jar path in the header, got:\n%s", stdout.String())
	}
}

func TestRunAnalyze_NoClasses(t *testing.T) {
	quietLogger(t)
	err := runAnalyze(analyzeParams{
		path:   t.TempDir(),
		format: "text",
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	})
	if !errors.Is(err, errNoClasses) {
		t.Errorf("expected errNoClasses, got %v", err)
	}
}

func TestRunAnalyze_MissingPath(t *testing.T) {
	quietLogger(t)
	err := runAnalyze(analyzeParams{
		path:   filepath.Join(t.TempDir(), "missing"),
		format: "text",
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	})
	if err == nil {
		t.Fatal("expected error for a missing path")
	}
}

func TestRunAnalyze_CancelledContext(t *testing.T) {
	quietLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runAnalyze(analyzeParams{
		ctx:    ctx,
		path:   writeFixture(t),
		format: "text",
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// runImpact tests
// ---------------------------------------------------------------------------

func TestRunImpact_Text(t *testing.T) {
	quietLogger(t)
	var stdout bytes.Buffer
	err := runImpact(impactParams{
		path:   writeFixture(t),
		class:  "com.acme.service.Service",
		format: "text",
		stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"Direct dependents (1):", "com/acme/App", "Safe to remove"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunImpact_JSON(t *testing.T) {
	quietLogger(t)
	var stdout bytes.Buffer
	err := runImpact(impactParams{
		path:   writeFixture(t),
		class:  "com/acme/service/Service",
		format: "json",
		stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed struct {
		Class     string   `json:"class"`
		RiskScore int      `json:"risk_score"`
		Deps      []string `json:"dependents"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	// One dependent whose single method has complexity 1.
	if parsed.RiskScore != 11 {
		t.Errorf("expected risk 11, got %d", parsed.RiskScore)
	}
	if len(parsed.Deps) != 1 || parsed.Deps[0] != "com/acme/App" {
		t.Errorf("expected [com/acme/App], got %v", parsed.Deps)
	}
}

func TestRunImpact_UnknownClass(t *testing.T) {
	quietLogger(t)
	err := runImpact(impactParams{
		path:   writeFixture(t),
		class:  "com.acme.Missing",
		format: "text",
		stdout: &bytes.Buffer{},
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected 'not found' error, got: %v", err)
	}
}

func TestNormalizeClass(t *testing.T) {
	tests := map[string]string{
		"com.acme.Foo":       "com/acme/Foo",
		"com/acme/Foo":       "com/acme/Foo",
		"com/acme/Foo.class": "com/acme/Foo",
		"Foo":                "Foo",
		"com.acme.Foo$Inner": "com/acme/Foo$Inner",
	}
	for in, want := range tests {
		if got := normalizeClass(in); got != want {
			t.Errorf("normalizeClass(%q): expected %q, got %q", in, want, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Configuration and logging
// ---------------------------------------------------------------------------

func TestApplyOverrides_OnlyChangedFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scan.Workers = 3
	cfg.Scan.Exclude = []string{"**/generated/**"}

	f := &scanFlags{
		workers:       8,
		includeNested: true,
		exclude:       []string{"ignored"},
		timeout:       time.Minute,
	}
	changed := map[string]bool{"include-nested": true, "timeout": true}
	applyOverrides(cfg, f, func(name string) bool { return changed[name] })

	if cfg.Scan.Workers != 3 {
		t.Errorf("expected workers to stay 3, got %d", cfg.Scan.Workers)
	}
	if !cfg.Scan.IncludeNested {
		t.Error("expected include-nested to be applied")
	}
	if len(cfg.Scan.Exclude) != 1 || cfg.Scan.Exclude[0] != "**/generated/**" {
		t.Errorf("expected exclude to stay, got %v", cfg.Scan.Exclude)
	}
	if cfg.Scan.Timeout.Std() != time.Minute {
		t.Errorf("expected 1m timeout, got %v", cfg.Scan.Timeout.Std())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected info level without --verbose, got %s", cfg.Log.Level)
	}

	applyOverrides(cfg, &scanFlags{verbose: true}, func(string) bool { return false })
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level with --verbose, got %s", cfg.Log.Level)
	}
}

func TestSetupLogger_File(t *testing.T) {
	quietLogger(t)
	path := filepath.Join(t.TempDir(), "classlens.log")
	var stderr bytes.Buffer

	closer, err := setupLogger(&stderr, config.LogConfig{
		Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1,
	})
	if err != nil {
		t.Fatalf("setupLogger() error: %v", err)
	}
	logger.Debug("hello from test", "n", 1)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("expected log file to contain the message, got %q", data)
	}
	if !strings.Contains(stderr.String(), "hello from test") {
		t.Errorf("expected stderr to contain the message, got %q", stderr.String())
	}
}

func TestSetupLogger_BadLevel(t *testing.T) {
	quietLogger(t)
	if _, err := setupLogger(&bytes.Buffer{}, config.LogConfig{Level: "loud"}); err == nil {
		t.Error("expected error for an unknown level")
	}
}

func TestRunConfig_YAMLRoundTrip(t *testing.T) {
	var stdout bytes.Buffer
	if err := runConfig(configParams{format: "yaml", stdout: &stdout}); err != nil {
		t.Fatalf("runConfig() error: %v", err)
	}
	if !strings.Contains(stdout.String(), "critical_risk: 50") {
		t.Errorf("expected critical_risk in YAML, got:\n%s", stdout.String())
	}

	path := filepath.Join(t.TempDir(), "classlens.yaml")
	if err := os.WriteFile(path, stdout.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("printed YAML does not load: %v", err)
	}
	if cfg.Thresholds != config.DefaultThresholds() {
		t.Errorf("expected default thresholds, got %+v", cfg.Thresholds)
	}
}

func TestRunConfig_TOMLRoundTrip(t *testing.T) {
	var stdout bytes.Buffer
	if err := runConfig(configParams{format: "toml", stdout: &stdout}); err != nil {
		t.Fatalf("runConfig() error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "classlens.toml")
	if err := os.WriteFile(path, stdout.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("printed TOML does not load: %v\n%s", err, stdout.String())
	}
	if cfg.Scan.CacheSize != config.DefaultConfig().Scan.CacheSize {
		t.Errorf("expected default cache size, got %d", cfg.Scan.CacheSize)
	}
	if len(cfg.Heuristics.DesignPatterns) != len(config.DefaultHeuristics().DesignPatterns) {
		t.Errorf("expected default design patterns, got %v", cfg.Heuristics.DesignPatterns)
	}
}

func TestRunConfig_InvalidFormat(t *testing.T) {
	err := runConfig(configParams{format: "ini", stdout: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), `invalid format "ini"`) {
		t.Errorf("expected invalid format error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// schema command tests
// ---------------------------------------------------------------------------

func TestSchemaCmd_OutputsValidJSON(t *testing.T) {
	cmd := newSchemaCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("schema command failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Errorf("schema output is not valid JSON: %v", err)
	}
}

func TestSchemaCmd_ContainsSchemaFields(t *testing.T) {
	cmd := newSchemaCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	for _, field := range []string{
		`"$schema"`, `"title"`, `"ProjectInsights"`,
		`"PackageInsights"`, `"SecurityInsights"`, `"ImpactAnalysis"`,
	} {
		if !strings.Contains(output, field) {
			t.Errorf("schema output missing %s", field)
		}
	}
}

// ---------------------------------------------------------------------------
// analyze command wiring
// ---------------------------------------------------------------------------

func TestAnalyzeCmd_Flags(t *testing.T) {
	quietLogger(t)
	cmd := newAnalyzeCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--format", "json", "--include-nested", "--workers", "2", writeFixture(t)})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("analyze command failed: %v", err)
	}

	var parsed struct {
		Insights struct {
			Summary struct {
				TotalClasses int `json:"total_classes"`
			} `json:"summary"`
		} `json:"insights"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.Insights.Summary.TotalClasses != 3 {
		t.Errorf("expected 3 classes with --include-nested, got %d", parsed.Insights.Summary.TotalClasses)
	}
}

// ---------------------------------------------------------------------------
// runWatch tests
// ---------------------------------------------------------------------------

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, b *syncBuffer, substr string, count int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Count(b.String(), substr) >= count {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d x %q, got:\n%s", count, substr, b.String())
}

// TestRunWatch_ReanalyzesOnChange verifies watch prints an initial report
// and a fresh one after a class file is added.
func TestRunWatch_ReanalyzesOnChange(t *testing.T) {
	quietLogger(t)
	dir := writeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- runWatch(watchParams{
			ctx:      ctx,
			dir:      dir,
			format:   "text",
			debounce: 20 * time.Millisecond,
			stdout:   out,
		})
	}()

	waitForOutput(t, out, "2 class(es) analyzed", 1)

	extra := classfiletest.New("com/acme/Extra")
	extra.Method("run", "()V").InvokeVirtual("com/acme/service/Service", "run", "()V")
	path := filepath.Join(dir, "com", "acme", "Extra.class")
	if err := os.WriteFile(path, extra.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForOutput(t, out, "3 class(es) analyzed", 1)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error after cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not return after cancel")
	}
}

func TestRunWatch_InvalidFormat(t *testing.T) {
	err := runWatch(watchParams{dir: t.TempDir(), format: "xml", stdout: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), `invalid format "xml"`) {
		t.Errorf("expected invalid format error, got %v", err)
	}
}
