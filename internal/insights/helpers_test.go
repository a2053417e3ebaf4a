package insights_test

import (
	"fmt"
	"testing"

	"github.com/unbound-force/classlens/internal/classfile"
	"github.com/unbound-force/classlens/internal/classfile/classfiletest"
	"github.com/unbound-force/classlens/internal/corpus"
)

// class builds a record whose methods have the given complexities.
func class(name string, complexities ...int) *classfile.Record {
	rec := &classfile.Record{
		Name:             name,
		Interfaces:       []string{},
		MethodRefs:       []string{},
		FieldRefs:        []string{},
		Annotations:      []string{},
		NativeMethods:    []string{},
		MethodComplexity: make(map[string]int, len(complexities)),
		MethodCount:      len(complexities),
	}
	for i, c := range complexities {
		rec.MethodComplexity[fmt.Sprintf("m%d()V", i)] = c
	}
	return rec
}

func withRefs(rec *classfile.Record, refs ...string) *classfile.Record {
	rec.MethodRefs = append(rec.MethodRefs, refs...)
	return rec
}

func withFields(rec *classfile.Record, refs ...string) *classfile.Record {
	rec.FieldRefs = append(rec.FieldRefs, refs...)
	return rec
}

// decoded assembles and decodes classes, returning them as a corpus.
func decoded(t *testing.T, builders ...*classfiletest.Builder) *corpus.Corpus {
	t.Helper()
	records := make([]*classfile.Record, 0, len(builders))
	for _, b := range builders {
		rec, err := classfile.Decode(b.Bytes())
		if err != nil {
			t.Fatalf("Decode() error: %v", err)
		}
		records = append(records, rec)
	}
	return corpus.New(records...)
}
