// Package corpus enumerates class files from a directory tree or an
// archive and decodes them into a Corpus on a bounded worker pool.
package corpus

import (
	"sort"

	"github.com/unbound-force/classlens/internal/classfile"
)

// Corpus maps class names to their decoded records. It is built once per
// scan and read-only afterwards.
type Corpus struct {
	// Classes is keyed by Record.Name.
	Classes map[string]*classfile.Record `json:"classes"`

	// Failures lists entries that could not be read or decoded, sorted
	// by entry name.
	Failures []Failure `json:"failures"`
}

// Failure describes one skipped entry.
type Failure struct {
	Entry  string `json:"entry"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// New builds a corpus from already decoded records. A later record with
// the same name replaces an earlier one.
func New(records ...*classfile.Record) *Corpus {
	c := &Corpus{Classes: make(map[string]*classfile.Record, len(records))}
	for _, r := range records {
		c.Classes[r.Name] = r
	}
	return c
}

// Len returns the number of classes.
func (c *Corpus) Len() int { return len(c.Classes) }

// Get returns the record for a class name.
func (c *Corpus) Get(name string) (*classfile.Record, bool) {
	r, ok := c.Classes[name]
	return r, ok
}

// Names returns all class names in sorted order. Builders iterate in
// this order so their output does not depend on map iteration.
func (c *Corpus) Names() []string {
	names := make([]string, 0, len(c.Classes))
	for name := range c.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
