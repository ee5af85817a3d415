// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"go/types"
	"sort"
)

// A Removal records a constant reference that a rewrite took out of a file.
// The import it came through is dropped once nothing else in the file uses it.
type Removal struct {
	Used   types.Object // object the call site referred to
	Origin types.Object // Used after following one alias
}

// An Entry is the pending import work for one file.
type Entry struct {
	Imports  []*Declaration
	Removals []Removal
}

// A Ledger records, per file, the declarations to import and the
// references removed by one pass. Each pass owns its own Ledger.
type Ledger struct {
	entries map[string]*Entry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

func (l *Ledger) entry(file string) *Entry {
	e := l.entries[file]
	if e == nil {
		e = new(Entry)
		l.entries[file] = e
	}
	return e
}

// AddImport records that file now refers to d.
// It reports whether d was new for file.
func (l *Ledger) AddImport(file string, d *Declaration) bool {
	e := l.entry(file)
	for _, old := range e.Imports {
		if old == d || old.Obj == d.Obj {
			return false
		}
	}
	e.Imports = append(e.Imports, d)
	return true
}

// AddRemoval records that file no longer refers to r.Used at a rewritten
// call site. It reports whether r was new for file.
func (l *Ledger) AddRemoval(file string, r Removal) bool {
	e := l.entry(file)
	for _, old := range e.Removals {
		if old.Used == r.Used {
			return false
		}
	}
	e.Removals = append(e.Removals, r)
	return true
}

// Get returns the entry for file, or nil if file has none.
func (l *Ledger) Get(file string) *Entry {
	return l.entries[file]
}

// Files returns the files with entries, sorted.
func (l *Ledger) Files() []string {
	var names []string
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every entry.
func (l *Ledger) Reset() {
	clear(l.entries)
}

// Counters tally the candidate calls seen by a pass.
type Counters struct {
	Handled int
	Skipped int
}
