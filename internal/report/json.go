// Package report provides output formatters for classlens analysis
// results in JSON and human-readable text formats.
package report

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/unbound-force/classlens/internal/corpus"
	"github.com/unbound-force/classlens/internal/insights"
)

// Result is everything one analysis run produced.
type Result struct {
	// RunID identifies the run. WriteJSON generates one when empty.
	RunID string

	// Source describes the scanned directory or archive.
	Source string

	Insights *insights.ProjectInsights
	Failures []corpus.Failure
}

// JSONReport is the top-level JSON output structure.
type JSONReport struct {
	Version  string                    `json:"version"`
	RunID    string                    `json:"run_id"`
	Source   string                    `json:"source"`
	Insights *insights.ProjectInsights `json:"insights"`
	Failures []corpus.Failure          `json:"failures"`
}

// WriteJSON writes an analysis result as formatted JSON to the writer.
func WriteJSON(w io.Writer, res Result, version string) error {
	if res.Insights == nil {
		return errors.New("report: no insights to write")
	}
	failures := res.Failures
	if failures == nil {
		failures = []corpus.Failure{}
	}
	runID := res.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := JSONReport{
		Version:  version,
		RunID:    runID,
		Source:   res.Source,
		Insights: res.Insights,
		Failures: failures,
	}
	return encode(w, report)
}

// WriteImpactJSON writes a single class assessment as formatted JSON.
func WriteImpactJSON(w io.Writer, as insights.Assessment) error {
	return encode(w, as)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
