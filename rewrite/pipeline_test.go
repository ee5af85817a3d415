// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"rsc.io/sagafix/lint"
	"rsc.io/sagafix/refactor"
)

// TestRun runs each testdata/*.txt archive as a module.
//
// The archive comment holds the options. Files named want/<path> hold
// the expected text of <path> after the run; report holds the expected
// counters; error holds text the run's error must contain; diff holds
// lines the -diff output must contain.
func TestRun(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txt")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no test cases")

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txt"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			require.NoError(t, err)

			dir := t.TempDir()
			want := make(map[string][]byte)
			special := make(map[string][]byte)
			hasMod := false
			for _, f := range ar.Files {
				switch {
				case f.Name == "report" || f.Name == "error" || f.Name == "diff":
					special[f.Name] = f.Data
					continue
				case strings.HasPrefix(f.Name, "want/"):
					want[strings.TrimPrefix(f.Name, "want/")] = f.Data
					continue
				case f.Name == "go.mod":
					hasMod = true
				}
				writeFile(t, dir, f.Name, f.Data)
			}
			if !hasMod {
				writeFile(t, dir, "go.mod", []byte("module m\n\ngo 1.21\n"))
			}

			opts, twice := parseOptions(t, dir, string(ar.Comment))
			e, err := New(opts)
			require.NoError(t, err)
			res, err := e.Run(context.Background())

			if msg, ok := special["error"]; ok {
				require.Error(t, err)
				assert.Contains(t, err.Error(), strings.TrimSpace(string(msg)))
			} else {
				require.NoError(t, err)
			}

			if report, ok := special["report"]; ok && res != nil {
				have := fmt.Sprintf("handled %d\nskipped %d\nfiles %d\n", res.Handled, res.Skipped, len(res.Files))
				assert.Equal(t, string(report), have, "report")
			}
			if lines, ok := special["diff"]; ok {
				require.NotNil(t, res)
				for _, line := range strings.Split(strings.TrimSpace(string(lines)), "\n") {
					assert.Contains(t, string(res.Diff), line)
				}
			}

			for name, data := range want {
				have, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
				require.NoError(t, err)
				assert.Equal(t, string(data), string(have), name)
			}

			if twice {
				e, err := New(opts)
				require.NoError(t, err)
				res, err := e.Run(context.Background())
				require.NoError(t, err)
				assert.Empty(t, res.Files, "second run")
				for name, data := range want {
					have, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
					require.NoError(t, err)
					assert.Equal(t, string(data), string(have), "second run: %s", name)
				}
			}
		})
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	targ := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(targ), 0777))
	require.NoError(t, os.WriteFile(targ, data, 0666))
}

func parseOptions(t *testing.T, dir, comment string) (Options, bool) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	exclude := fs.StringSlice("exclude", nil, "")
	pattern := fs.String("pattern", "", "")
	wrap := fs.String("wrap", "", "")
	subscribe := fs.String("subscribe", "", "")
	wrapMany := fs.String("wrap-many", "", "")
	diff := fs.Bool("diff", false, "")
	gofmt := fs.Bool("gofmt", false, "")
	check := fs.Bool("check", true, "")
	goimports := fs.Bool("goimports", false, "")
	twice := fs.Bool("twice", false, "")
	require.NoError(t, fs.Parse(strings.Fields(comment)))

	opts := Options{
		Root:    dir,
		Exclude: *exclude,
		Pattern: *pattern,
		Factories: Factories{
			Wrap:      *wrap,
			Subscribe: *subscribe,
			WrapMany:  *wrapMany,
		},
		Check: *check,
		Gofmt: *gofmt,
		Diff:  *diff,
	}
	if *goimports {
		opts.Linter = &lint.Goimports{Parallel: 2, FormatOnly: true}
	}
	return opts, *twice
}

// A divergingLoader changes the module on disk between loads.
type divergingLoader struct {
	loader
	loads  int
	change func()
}

func (l *divergingLoader) Load(files ...string) (*refactor.Snapshot, error) {
	l.loads++
	if l.loads == 2 {
		l.change()
	}
	return l.loader.Load(files...)
}

const divergeModule = `
-- go.mod --
module m

go 1.21
-- saga/saga.go --
package saga

type Action struct{ Type any }

func CreateAction(t any) Action { return Action{Type: t} }

func TakeLatest(pattern any, h func()) {}
-- actions/actions.go --
package actions

import "m/saga"

const FOO_TYPE = "FOO"

var FOO = saga.CreateAction(FOO_TYPE)
-- sagas/sagas.go --
package sagas

import (
	. "m/actions"
	"m/saga"
)

func handle() {}

func Run() {
	saga.TakeLatest(FOO_TYPE, handle)
}
`

func TestRunDiverged(t *testing.T) {
	dir := t.TempDir()
	ar := txtar.Parse([]byte(divergeModule))
	for _, f := range ar.Files {
		writeFile(t, dir, f.Name, f.Data)
	}
	sagas := filepath.Join(dir, "sagas", "sagas.go")
	orig, err := os.ReadFile(sagas)
	require.NoError(t, err)

	// The subscription no longer names a constant, so the second pass
	// finds nothing to do. The imports stay in use.
	changed := bytes.Replace(orig, []byte("saga.TakeLatest(FOO_TYPE, handle)"), []byte("saga.TakeLatest(nil, handle)\n\t_ = FOO_TYPE"), 1)

	e, err := New(Options{Root: dir, Check: true})
	require.NoError(t, err)
	e.load = &divergingLoader{
		loader: e.load,
		change: func() {
			require.NoError(t, os.WriteFile(sagas, changed, 0666))
		},
	}
	_, err = e.Run(context.Background())
	require.ErrorIs(t, err, ErrDiverged)

	have, err := os.ReadFile(sagas)
	require.NoError(t, err)
	assert.Equal(t, string(changed), string(have), "nothing written")
}

func TestRunNothingToDo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", []byte("module m\n\ngo 1.21\n"))
	writeFile(t, dir, "p.go", []byte("package p\n\nfunc F() {}\n"))

	e, err := New(Options{Root: dir, Check: true})
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counters{}, res.Counters)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Written)
}

func TestRunLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", []byte("module m\n\ngo 1.21\n"))
	writeFile(t, dir, "p.go", []byte("package p\n\nvar x int = \"s\"\n"))

	e, err := New(Options{Root: dir})
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	assert.Error(t, err)
}

func TestNewBadPattern(t *testing.T) {
	_, err := New(Options{Root: t.TempDir(), Pattern: "("})
	assert.ErrorContains(t, err, "invalid constant pattern")
}
