// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger(t *testing.T) {
	pkg := types.NewPackage("m/consts", "consts")
	foo := types.NewConst(token.NoPos, pkg, "FOO_TYPE", types.Typ[types.UntypedString], nil)
	bar := types.NewConst(token.NoPos, pkg, "BAR_TYPE", types.Typ[types.UntypedString], nil)
	dFoo := &Declaration{Name: "FOO", Obj: foo}
	dBar := &Declaration{Name: "BAR", Obj: bar}

	l := NewLedger()
	assert.Nil(t, l.Get("b.go"))
	assert.True(t, l.AddImport("b.go", dFoo))
	assert.False(t, l.AddImport("b.go", dFoo))
	assert.False(t, l.AddImport("b.go", &Declaration{Name: "FOO", Obj: foo}), "same object")
	assert.True(t, l.AddImport("b.go", dBar))
	assert.True(t, l.AddImport("a.go", dFoo))

	assert.True(t, l.AddRemoval("b.go", Removal{Used: foo, Origin: foo}))
	assert.False(t, l.AddRemoval("b.go", Removal{Used: foo, Origin: bar}))
	assert.True(t, l.AddRemoval("c.go", Removal{Used: bar, Origin: bar}))

	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, l.Files())
	e := l.Get("b.go")
	assert.Equal(t, []*Declaration{dFoo, dBar}, e.Imports)
	assert.Equal(t, []Removal{{Used: foo, Origin: foo}}, e.Removals)

	l.Reset()
	assert.Empty(t, l.Files())
}
