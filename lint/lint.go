// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lint runs the clean-up step over rewritten files:
// goimports in process, or any external fixer.
package lint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"rsc.io/sagafix/refactor"
)

// A Result is the outcome of linting one file,
// or of one run of an external command.
type Result struct {
	Tool    string
	File    string // empty for a command run over many files
	Changed bool
	Output  string
	Err     error
}

// A Linter fixes up files in place.
// Problems with individual files are reported in the results;
// the error is reserved for cancellation.
type Linter interface {
	Lint(ctx context.Context, files []string) ([]Result, error)
}

// Parse returns the Linter named by tool: "goimports", "none" (or empty)
// for no linter, or otherwise a command line to which file names are appended.
func Parse(tool string, parallel int, dir string) (Linter, error) {
	switch strings.TrimSpace(tool) {
	case "", "none":
		return nil, nil
	case "goimports":
		return &Goimports{Parallel: parallel}, nil
	}
	args := strings.Fields(tool)
	if len(args) == 0 {
		return nil, fmt.Errorf("invalid lint tool %q", tool)
	}
	return &Command{Path: args[0], Args: args[1:], Dir: dir}, nil
}

// Goimports formats files and fixes their imports the way goimports does,
// keeping blank lines intact.
type Goimports struct {
	Parallel   int
	FormatOnly bool
}

func (g *Goimports) Lint(ctx context.Context, files []string) ([]Result, error) {
	results := make([]Result, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, g.Parallel))
	for i, name := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = g.lintFile(name)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Goimports) lintFile(name string) Result {
	r := Result{Tool: "goimports", File: name}
	src, err := os.ReadFile(name)
	if err != nil {
		r.Err = err
		return r
	}
	text, guard := refactor.Protect(src)
	out, err := imports.Process(name, text, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: g.FormatOnly,
	})
	if err != nil {
		r.Err = err
		return r
	}
	out = guard.Restore(out)
	if bytes.Equal(src, out) {
		return r
	}
	perm := os.FileMode(0666)
	if info, err := os.Stat(name); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(name, out, perm); err != nil {
		r.Err = err
		return r
	}
	r.Changed = true
	return r
}

// Command runs an external fixer once over all the files,
// such as "golangci-lint run --fix".
type Command struct {
	Path string
	Args []string
	Dir  string
}

func (c *Command) Lint(ctx context.Context, files []string) ([]Result, error) {
	args := append(append([]string(nil), c.Args...), files...)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r := Result{Tool: c.Path, Output: string(out)}
	if err != nil {
		r.Err = fmt.Errorf("%s: %w", c.Path, err)
	}
	return []Result{r}, nil
}

// Print writes the interesting results to w: fixed files, tool output and errors.
// It reports whether any result carries an error.
func Print(w io.Writer, results []Result) bool {
	failed := false
	for _, r := range results {
		if r.Output != "" {
			fmt.Fprint(w, r.Output)
			if !strings.HasSuffix(r.Output, "\n") {
				fmt.Fprintln(w)
			}
		}
		switch {
		case r.Err != nil:
			failed = true
			fmt.Fprintf(w, "%s: %v\n", r.Tool, r.Err)
		case r.Changed:
			fmt.Fprintf(w, "%s: fixed %s\n", r.Tool, r.File)
		}
	}
	return failed
}
