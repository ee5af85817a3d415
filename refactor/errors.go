// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"cmp"
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"go/types"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// An Error is a load, type or write error at a source position.
// Continuation lines of a type error are kept as Notes.
type Error struct {
	Pos   token.Position
	Msg   string
	Notes []string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return e.Pos.String() + ": " + e.Msg
	}
	return e.Msg
}

// An ErrorList collects distinct Errors. The zero value is ready to use.
type ErrorList struct {
	errs []*Error
	seen map[string]bool
}

// Add adds err to l, taking the position from the error when it has one.
// Lists are flattened. An error already in l is dropped.
func (l *ErrorList) Add(err error) {
	if err == nil {
		return
	}
	var list *ErrorList
	if errors.As(err, &list) {
		for _, e := range list.errs {
			l.add(e)
		}
		return
	}
	if sl, ok := err.(scanner.ErrorList); ok {
		for _, e := range sl {
			l.add(&Error{Pos: e.Pos, Msg: e.Msg})
		}
		return
	}

	var e *Error
	switch err := err.(type) {
	case *Error:
		e = err
	case *scanner.Error:
		e = &Error{Pos: err.Pos, Msg: err.Msg}
	case types.Error:
		if n := len(l.errs); n > 0 && strings.HasPrefix(err.Msg, "\t") {
			l.errs[n-1].Notes = append(l.errs[n-1].Notes, err.Fset.Position(err.Pos).String()+": "+err.Msg)
			return
		}
		e = &Error{Pos: err.Fset.Position(err.Pos), Msg: err.Msg}
	case packages.Error:
		e = &Error{Pos: parsePos(err.Pos), Msg: err.Msg}
	default:
		e = &Error{Msg: err.Error()}
	}
	l.add(e)
}

func (l *ErrorList) add(e *Error) {
	k := e.Error()
	if l.seen[k] {
		return
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	l.seen[k] = true
	l.errs = append(l.errs, e)
}

// parsePos parses the file:line:col form go list uses.
func parsePos(s string) token.Position {
	var p token.Position
	if s == "" || s == "-" {
		return p
	}
	file, rest, _ := strings.Cut(s, ":")
	line, col, _ := strings.Cut(rest, ":")
	p.Filename = file
	p.Line, _ = strconv.Atoi(line)
	p.Column, _ = strconv.Atoi(col)
	return p
}

// Error returns the errors in position order, one per line.
// A message repeated at more than three positions is printed once
// with a count, since it is usually one broken declaration seen from every use.
func (l *ErrorList) Error() string {
	if len(l.errs) == 0 {
		return "no errors"
	}
	slices.SortStableFunc(l.errs, func(a, b *Error) int {
		return cmp.Or(
			strings.Compare(a.Pos.Filename, b.Pos.Filename),
			cmp.Compare(a.Pos.Line, b.Pos.Line),
			cmp.Compare(a.Pos.Column, b.Pos.Column),
		)
	})

	count := make(map[string]int)
	for _, e := range l.errs {
		count[e.Msg]++
	}
	var lines []string
	for _, e := range l.errs {
		n := count[e.Msg]
		if n < 0 {
			continue
		}
		text := e.Error()
		if n > 3 {
			text += fmt.Sprintf(" [× %d]", n)
			count[e.Msg] = -1
		}
		lines = append(lines, text)
		lines = append(lines, e.Notes...)
	}
	return strings.Join(lines, "\n")
}

// Err returns l, or nil if l is empty.
func (l *ErrorList) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l
}
