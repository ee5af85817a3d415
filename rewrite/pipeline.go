// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rewrite rewires action type constants passed to saga factories
// to the exported declarations that wrap them.
//
// A run makes two passes. The first loads the module, decides every
// rewrite and records the files it would touch. The second loads the
// module again from disk, makes the same decisions and applies them.
// Nothing is written unless both passes touch exactly the same files.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"rsc.io/sagafix/lint"
	"rsc.io/sagafix/refactor"
)

// ErrDiverged reports that the application pass would touch
// different files than the collection pass.
var ErrDiverged = errors.New("passes disagree")

// Options configure an Engine.
type Options struct {
	Root      string   // module directory to rewrite
	Exclude   []string // path substrings to skip
	Pattern   string   // constant name pattern; DefaultPattern if empty
	Factories Factories
	BuildTags []string

	Check     bool // type-check the rewritten files before writing
	Gofmt     bool // gofmt rewritten files, keeping blank lines
	Diff      bool // compute a diff instead of writing
	CacheSize int  // Locator memo size; DefaultCacheSize if zero

	Linter lint.Linter // run over the written files; nil for none
	Logger *slog.Logger
}

// A Result describes a completed run.
type Result struct {
	Counters
	Files   []string // files the rewrite touches
	Written []string // files written to disk
	Diff    []byte   // in Diff mode, the unified diff of Files
	Lint    []lint.Result
}

// A loader produces program snapshots. *refactor.Refactor is the real one.
type loader interface {
	Load(files ...string) (*refactor.Snapshot, error)
	LoadOverlay(overlay map[string][]byte, files ...string) (*refactor.Snapshot, error)
}

// An Engine runs the rewrite over one module.
type Engine struct {
	opts  Options
	match *Matcher
	rf    *refactor.Refactor
	load  loader
	log   *slog.Logger
}

func New(opts Options) (*Engine, error) {
	m, err := NewMatcher(opts.Factories, opts.Pattern)
	if err != nil {
		return nil, err
	}
	rf, err := refactor.New(opts.Root)
	if err != nil {
		return nil, err
	}
	rf.Config.BuildTags = opts.BuildTags
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{opts: opts, match: m, rf: rf, load: rf, log: log}, nil
}

// Run rewrites the module.
// Files are written only after both passes agree and, with Check set,
// the rewritten module type-checks. Lint problems are reported in the
// result and do not fail the run.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	files, err := refactor.FindFiles(e.rf.Dir(), e.opts.Exclude)
	if err != nil {
		return nil, err
	}
	e.log.Info("found source files", "root", e.rf.Dir(), "count", len(files))

	// Collection pass.
	snap, err := e.load.Load(files...)
	if err != nil {
		return nil, err
	}
	first, err := e.pass(ctx, snap)
	if err != nil {
		return nil, err
	}
	guarded := first.ledger.Files()
	e.log.Info("collection pass", "handled", first.counters.Handled, "skipped", first.counters.Skipped, "files", len(guarded))
	if len(guarded) == 0 {
		return &Result{Counters: first.counters}, nil
	}
	first.ledger.Reset()

	// Application pass, over a fresh snapshot.
	snap, err = e.load.Load(files...)
	if err != nil {
		return nil, err
	}
	second, err := e.pass(ctx, snap)
	if err != nil {
		return nil, err
	}
	if got := second.ledger.Files(); !slices.Equal(got, guarded) {
		return nil, fmt.Errorf("%w: collection pass touched %d files, application pass %d", ErrDiverged, len(guarded), len(got))
	}
	second.splice()

	res := &Result{Counters: second.counters, Files: guarded}
	if e.opts.Gofmt {
		if err := snap.Gofmt(guarded); err != nil {
			return nil, err
		}
	}
	if e.opts.Check {
		if _, err := e.load.LoadOverlay(snap.Overlay(guarded), files...); err != nil {
			return nil, fmt.Errorf("rewritten files do not type-check: %w", err)
		}
	}

	if e.opts.Diff {
		res.Diff, err = snap.Diff(guarded)
		return res, err
	}
	res.Written, err = snap.Write(guarded)
	if err != nil {
		return res, err
	}
	for _, name := range res.Written {
		e.log.Info("rewrote", "file", snap.ShortPath(name))
	}

	if e.opts.Linter != nil && len(res.Written) > 0 {
		res.Lint, err = e.opts.Linter.Lint(ctx, res.Written)
		if err != nil {
			return res, err
		}
		for _, r := range res.Lint {
			if r.Err != nil {
				e.log.Warn("lint failed", "tool", r.Tool, "file", r.File, "err", r.Err)
			}
		}
	}
	return res, nil
}

func (e *Engine) pass(ctx context.Context, snap *refactor.Snapshot) (*pass, error) {
	p, err := newPass(snap, e.match, e.opts.CacheSize, e.log)
	if err != nil {
		return nil, err
	}
	if err := p.run(ctx); err != nil {
		return nil, err
	}
	return p, nil
}
