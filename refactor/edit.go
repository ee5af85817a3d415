// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"bytes"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"sort"

	"rsc.io/sagafix/diff"
	"rsc.io/sagafix/edit"
)

// An Edit is the pending rewrite of a single file.
type Edit struct {
	Name    string
	OldText []byte
	Buffer  *Buffer
	File    *File

	// formatted is set once the buffer holds gofmt output
	// and no longer maps onto the parsed positions.
	formatted bool
}

// A Buffer is a queue of edits to apply to a file text.
// It's like edit.Buffer but uses token.Pos as coordinate space.
type Buffer struct {
	pos token.Pos
	end token.Pos
	ed  *edit.Buffer
}

func NewBufferAt(pos token.Pos, text []byte) *Buffer {
	return &Buffer{pos: pos, end: pos + token.Pos(len(text)), ed: edit.NewBuffer(text)}
}

func (b *Buffer) Bytes() []byte {
	return b.ed.Bytes()
}

func (b *Buffer) String() string {
	return b.ed.String()
}

func (b *Buffer) Delete(pos, end token.Pos) {
	b.ed.Delete(int(pos-b.pos), int(end-b.pos))
}

func (b *Buffer) Insert(pos token.Pos, new string) {
	b.ed.Insert(int(pos-b.pos), new)
}

func (b *Buffer) Replace(pos, end token.Pos, new string) {
	b.ed.Replace(int(pos-b.pos), int(end-b.pos), new)
}

func (s *Snapshot) editAt(pos token.Pos) *Edit {
	posn := s.Position(pos)
	name := posn.Filename
	ed := s.edits[name]
	if ed != nil {
		if ed.formatted {
			panic("edit after format: " + name)
		}
		return ed
	}
	f := s.files[name]
	if f == nil {
		panic("file not found: " + name)
	}
	b := NewBufferAt(pos-token.Pos(posn.Offset), f.Text)
	ed = &Edit{Name: name, OldText: f.Text, Buffer: b, File: f}
	s.edits[name] = ed
	return ed
}

func (s *Snapshot) ReplaceAt(lo, hi token.Pos, repl string) {
	s.editAt(lo).Buffer.Replace(lo, hi, repl)
}

func (s *Snapshot) InsertAt(pos token.Pos, repl string) {
	s.ReplaceAt(pos, pos, repl)
}

func (s *Snapshot) DeleteAt(pos, end token.Pos) {
	s.ReplaceAt(pos, end, "")
}

func (s *Snapshot) currentBytes(name string) []byte {
	if ed := s.edits[name]; ed != nil {
		return ed.Buffer.Bytes()
	}
	if f := s.files[name]; f != nil {
		return f.Text
	}
	return nil
}

func (s *Snapshot) oldBytes(name string) []byte {
	if f := s.files[name]; f != nil {
		return f.Text
	}
	return nil
}

// Gofmt formats the current text of each named file with gofmt,
// keeping blank lines intact. Files without edits are left alone.
// No further edits may be queued on a formatted file.
func (s *Snapshot) Gofmt(names []string) error {
	var errs ErrorList
	for _, name := range names {
		ed := s.edits[name]
		if ed == nil {
			continue
		}
		out, err := Format(ed.Buffer.Bytes())
		if err != nil {
			errs.Add(fmt.Errorf("%s: gofmt: %w", s.r.shortPath(name), err))
			continue
		}
		ed.Buffer = NewBufferAt(token.NoPos, out)
		ed.formatted = true
	}
	return errs.Err()
}

// Overlay returns the current text of each named file, keyed by file name,
// in the form packages.Config.Overlay expects.
func (s *Snapshot) Overlay(names []string) map[string][]byte {
	m := make(map[string][]byte)
	for _, name := range names {
		if text := s.currentBytes(name); text != nil {
			m[name] = text
		}
	}
	return m
}

// Diff returns a unified diff of the named files' old and current text.
// Unchanged files contribute nothing.
func (s *Snapshot) Diff(names []string) ([]byte, error) {
	names = append([]string(nil), names...)
	sort.Strings(names)

	var diffs []byte
	for _, name := range names {
		new := s.currentBytes(name)
		old := s.oldBytes(name)
		if new == nil || bytes.Equal(old, new) {
			continue
		}
		rel, err := filepath.Rel(s.r.modRoot, name)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		d, err := diff.Diff("old/"+rel, old, "new/"+rel, new)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, d...)
	}
	return diffs, nil
}

// Write writes the current text of each named file back to disk.
// Files whose text is unchanged are not opened. It returns the names
// actually written, in order.
func (s *Snapshot) Write(names []string) ([]string, error) {
	names = append([]string(nil), names...)
	sort.Strings(names)

	var written []string
	var errs ErrorList
	for _, name := range names {
		new := s.currentBytes(name)
		old := s.oldBytes(name)
		if new == nil || bytes.Equal(old, new) {
			continue
		}
		perm := os.FileMode(0666)
		if info, err := os.Stat(name); err == nil {
			perm = info.Mode().Perm()
		}
		if err := os.WriteFile(name, new, perm); err != nil {
			errs.Add(err)
			continue
		}
		written = append(written, name)
	}
	return written, errs.Err()
}
