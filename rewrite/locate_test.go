// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"go/ast"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"rsc.io/sagafix/refactor"
)

const locateModule = `
-- go.mod --
module m

go 1.21
-- saga/saga.go --
package saga

type Action struct{ Type any }

func CreateAction(t any) Action { return Action{Type: t} }
-- consts/consts.go --
package consts

const (
	FOO_TYPE = "FOO"
	BAR_TYPE = "BAR"
	BAZ_TYPE = "BAZ"
	NOPE     = "NOPE"
)

const ALIAS = FOO_TYPE
-- actions/actions.go --
package actions

import (
	"m/consts"
	"m/saga"
)

var FOO = saga.CreateAction(consts.FOO_TYPE)

var Group = struct{ Bar saga.Action }{
	Bar: saga.CreateAction(consts.BAR_TYPE),
}

func init() {
	_ = saga.CreateAction(consts.BAZ_TYPE)
}
-- use/use.go --
package use

import . "m/consts"

var _ = []any{FOO_TYPE, BAR_TYPE, BAZ_TYPE, NOPE, ALIAS}
`

// loadModule writes archive into a temporary module and loads it.
func loadModule(t *testing.T, archive string) *refactor.Snapshot {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		writeFile(t, dir, f.Name, f.Data)
	}
	rf, err := refactor.New(dir)
	require.NoError(t, err)
	files, err := refactor.FindFiles(dir, nil)
	require.NoError(t, err)
	snap, err := rf.Load(files...)
	require.NoError(t, err)
	return snap
}

// useIdents returns the identifiers in use/use.go's slice, by name.
func useIdents(t *testing.T, snap *refactor.Snapshot) map[string]*ast.Ident {
	t.Helper()
	f := snap.FileByName(filepath.Join("use", "use.go"))
	require.NotNil(t, f)
	ids := make(map[string]*ast.Ident)
	ast.Inspect(f.Syntax, func(n ast.Node) bool {
		if lit, ok := n.(*ast.CompositeLit); ok {
			for _, e := range lit.Elts {
				id := e.(*ast.Ident)
				ids[id.Name] = id
			}
		}
		return true
	})
	return ids
}

func TestLocator(t *testing.T) {
	snap := loadModule(t, locateModule)
	m, err := NewMatcher(Factories{}, "")
	require.NoError(t, err)
	r := NewResolver(snap)
	l, err := NewLocator(snap, m, r, 2)
	require.NoError(t, err)
	ids := useIdents(t, snap)

	d := l.Find(r.Canonical(ids["FOO_TYPE"]))
	require.NotNil(t, d)
	assert.Equal(t, "FOO", d.Name)
	assert.Equal(t, "m/actions", d.Path())
	assert.Equal(t, "actions", d.PkgName())
	assert.Equal(t, "actions.FOO", d.Ref("actions", true))
	assert.Equal(t, "FOO", d.Ref("", false))
	assert.Same(t, d, l.Find(r.Canonical(ids["FOO_TYPE"])), "memoized")

	d = l.Find(r.Canonical(ids["BAR_TYPE"]))
	require.NotNil(t, d)
	assert.Equal(t, "Group", d.Name)
	assert.Equal(t, "Bar", d.Field)
	assert.Equal(t, "a.Group.Bar", d.Ref("a", true))
	assert.Equal(t, "a.Group", d.Ref("a", false))

	assert.Nil(t, l.Find(r.Canonical(ids["BAZ_TYPE"])), "inside a function")
	assert.Nil(t, l.Find(r.Canonical(ids["NOPE"])), "never wrapped")
	assert.Nil(t, l.Find(nil))
}

func TestResolverAlias(t *testing.T) {
	snap := loadModule(t, locateModule)
	r := NewResolver(snap)
	ids := useIdents(t, snap)

	used, origin := r.Origin(ids["ALIAS"])
	require.NotNil(t, used)
	assert.Equal(t, "ALIAS", used.Name())
	assert.Equal(t, "FOO_TYPE", origin.Name())
	assert.Same(t, r.Canonical(ids["FOO_TYPE"]), origin)

	used, origin = r.Origin(ids["NOPE"])
	assert.Same(t, used, origin, "not an alias")
}

func TestLocatorWraps(t *testing.T) {
	snap := loadModule(t, locateModule)
	m, err := NewMatcher(Factories{}, "")
	require.NoError(t, err)
	r := NewResolver(snap)
	l, err := NewLocator(snap, m, r, 0)
	require.NoError(t, err)

	d := l.Find(r.Canonical(useIdents(t, snap)["FOO_TYPE"]))
	require.NotNil(t, d)
	assert.True(t, l.Wraps(d.Obj), "FOO")

	d = l.Find(r.Canonical(useIdents(t, snap)["BAR_TYPE"]))
	require.NotNil(t, d)
	assert.True(t, l.Wraps(d.Obj), "Group")

	assert.False(t, l.Wraps(r.Canonical(useIdents(t, snap)["FOO_TYPE"])), "constant")
	assert.False(t, l.Wraps(nil))
}
