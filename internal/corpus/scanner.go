package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/unbound-force/classlens/internal/classfile"
	"github.com/unbound-force/classlens/internal/config"
)

// Options configures a Scanner.
type Options struct {
	// Workers bounds concurrent decodes. Zero means runtime.NumCPU().
	Workers int

	// ExcludeNested skips classes with '$' in their file name.
	ExcludeNested bool

	// Include and Exclude are glob patterns over entry names.
	Include []string
	Exclude []string

	// Cache, when set, serves repeat decodes of identical bytes.
	Cache *Cache

	// Logger receives one warning per skipped entry. Nil discards.
	Logger *charmlog.Logger
}

// DefaultOptions returns options that skip nested classes and use one
// worker per CPU.
func DefaultOptions() Options {
	return Options{ExcludeNested: true}
}

// OptionsFromConfig maps the scan section of a config onto Options.
func OptionsFromConfig(cfg config.ScanConfig) Options {
	return Options{
		Workers:       cfg.Workers,
		ExcludeNested: !cfg.IncludeNested,
		Include:       cfg.Include,
		Exclude:       cfg.Exclude,
	}
}

// Scanner decodes every class of a Source.
type Scanner struct {
	opts   Options
	logger *charmlog.Logger
}

// NewScanner returns a Scanner for opts.
func NewScanner(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = charmlog.New(io.Discard)
	}
	return &Scanner{opts: opts, logger: logger}
}

// merger is the mutex-guarded reduction of decode results.
type merger struct {
	mu     sync.Mutex
	corpus *Corpus
	origin map[string]string // class name -> entry it was decoded from
	logger *charmlog.Logger
	hits   int
}

func (m *merger) add(entry string, rec *classfile.Record, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	}
	if prev, ok := m.origin[rec.Name]; ok {
		kept, dropped := prev, entry
		if entry < prev {
			kept, dropped = entry, prev
			m.corpus.Classes[rec.Name] = rec
			m.origin[rec.Name] = entry
		}
		m.logger.Warn("duplicate class", "class", rec.Name, "kept", kept, "ignored", dropped)
		return
	}
	m.corpus.Classes[rec.Name] = rec
	m.origin[rec.Name] = entry
}

func (m *merger) fail(entry string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Warn("skipping class", "entry", entry, "err", err)
	m.corpus.Failures = append(m.corpus.Failures, Failure{Entry: entry, Reason: err.Error(), Err: err})
}

// Scan reads and decodes every accepted entry of src. Entries that
// cannot be read or decoded are logged, listed in Corpus.Failures and
// otherwise ignored.
//
// When ctx is done the scan stops taking new entries and returns the
// records decoded so far together with an error wrapping ctx.Err().
func (s *Scanner) Scan(ctx context.Context, src Source) (*Corpus, error) {
	start := time.Now()
	ctx, span := startScanSpan(ctx, src, s.opts.Workers)
	defer span.End()

	m := &merger{
		corpus: New(),
		origin: make(map[string]string),
		logger: s.logger,
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	walkErr := src.Walk(ctx, func(e Entry) error {
		if !Filter(e.Name, s.opts.ExcludeNested, s.opts.Include, s.opts.Exclude) {
			return nil
		}
		data, err := e.Read()
		if err != nil {
			m.fail(e.Name, fmt.Errorf("reading: %w", err))
			return nil
		}
		g.Go(func() error {
			rec, hit, err := s.decode(data)
			if err != nil {
				m.fail(e.Name, err)
				return nil
			}
			m.add(e.Name, rec, hit)
			return nil
		})
		return nil
	})
	// Decode goroutines never return errors.
	_ = g.Wait()

	c := m.corpus
	sort.Slice(c.Failures, func(i, j int) bool { return c.Failures[i].Entry < c.Failures[j].Entry })
	setScanSpanResult(span, c)
	recordScanMetrics(ctx, time.Since(start), len(c.Classes), len(c.Failures), m.hits, walkErr == nil)

	s.logger.Debug("scan finished",
		"source", src.String(),
		"classes", len(c.Classes),
		"failures", len(c.Failures),
		"cache_hits", m.hits,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if walkErr != nil {
		span.RecordError(walkErr)
		span.SetStatus(codes.Error, "scan incomplete")
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return c, fmt.Errorf("scan of %s interrupted after %d classes: %w", src, len(c.Classes), walkErr)
		}
		return c, fmt.Errorf("scanning %s: %w", src, walkErr)
	}
	return c, nil
}

func (s *Scanner) decode(data []byte) (*classfile.Record, bool, error) {
	if s.opts.Cache != nil {
		return s.opts.Cache.Decode(data)
	}
	rec, err := classfile.Decode(data)
	return rec, false, err
}
