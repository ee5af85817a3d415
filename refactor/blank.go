// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"bytes"
	"fmt"
	"go/format"
	"go/scanner"
	"go/token"
	"regexp"
	"strconv"
)

// gofmt keeps a single empty line but collapses longer runs of blank lines
// and strips whitespace-only lines. A Guard hides such runs from the
// formatter: each one is replaced by a single empty line followed by a
// sentinel comment, and put back byte for byte afterward.
type Guard struct {
	runs [][]byte
}

const sentinelMark = "sagafix:blank"

var sentinel = regexp.MustCompile(`^[ \t]*// ` + sentinelMark + ` (\d+)[ \t]*\r?\n?$`)

// Protect returns src with every run of blank lines that a formatter would
// alter replaced by a sentinel, and the Guard that restores them.
// Lines inside raw strings and block comments are left alone.
// Text that already contains a sentinel is returned unchanged.
func Protect(src []byte) ([]byte, *Guard) {
	g := new(Guard)
	if bytes.Contains(src, []byte(sentinelMark)) {
		return src, g
	}
	inside := multilineTokens(src)

	var out bytes.Buffer
	var run []byte
	n := 0
	flush := func() {
		if n == 0 {
			return
		}
		if n == 1 && string(run) == "\n" {
			out.Write(run)
		} else {
			fmt.Fprintf(&out, "\n// %s %d\n", sentinelMark, len(g.runs))
			g.runs = append(g.runs, run)
		}
		run = nil
		n = 0
	}
	line := 1
	for len(src) > 0 {
		i := bytes.IndexByte(src, '\n') + 1
		if i == 0 {
			i = len(src)
		}
		text := src[:i]
		src = src[i:]
		if len(bytes.TrimSpace(text)) == 0 && !inside[line] {
			run = append(run, text...)
			n++
		} else {
			flush()
			out.Write(text)
		}
		line++
	}
	flush()
	return out.Bytes(), g
}

// multilineTokens returns the set of lines that lie inside a raw string
// or block comment, excluding the line where the token starts.
func multilineTokens(src []byte) map[int]bool {
	inside := make(map[int]bool)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var sc scanner.Scanner
	sc.Init(file, src, func(token.Position, string) {}, scanner.ScanComments)
	for {
		pos, tok, lit := sc.Scan()
		if tok == token.EOF {
			break
		}
		if tok != token.STRING && tok != token.COMMENT {
			continue
		}
		n := bytes.Count([]byte(lit), []byte("\n"))
		if n == 0 {
			continue
		}
		start := fset.Position(pos).Line
		for l := start + 1; l <= start+n; l++ {
			inside[l] = true
		}
	}
	return inside
}

// Restore replaces the sentinels in out with the blank lines they stand for.
// The empty line Protect put before each sentinel is removed with it.
func (g *Guard) Restore(out []byte) []byte {
	if len(g.runs) == 0 {
		return out
	}
	used := make([]bool, len(g.runs))
	var buf bytes.Buffer
	prevEmpty := false
	for len(out) > 0 {
		i := bytes.IndexByte(out, '\n') + 1
		if i == 0 {
			i = len(out)
		}
		text := out[:i]
		out = out[i:]
		if m := sentinel.FindSubmatch(text); m != nil {
			if id, err := strconv.Atoi(string(m[1])); err == nil && id < len(g.runs) && !used[id] {
				used[id] = true
				if prevEmpty {
					buf.Truncate(buf.Len() - 1)
				}
				buf.Write(g.runs[id])
				prevEmpty = false
				continue
			}
		}
		buf.Write(text)
		prevEmpty = string(text) == "\n"
	}
	return buf.Bytes()
}

// Format formats src with gofmt, preserving its blank lines.
func Format(src []byte) ([]byte, error) {
	text, g := Protect(src)
	out, err := format.Source(text)
	if err != nil {
		return src, err
	}
	return g.Restore(out), nil
}
