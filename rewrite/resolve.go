// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"go/ast"
	"go/types"

	"rsc.io/sagafix/refactor"
)

// A Resolver maps constant identifiers to the objects they denote.
type Resolver struct {
	snap *refactor.Snapshot
}

func NewResolver(snap *refactor.Snapshot) *Resolver {
	return &Resolver{snap: snap}
}

// Canonical returns the object id ultimately refers to, after following
// at most one alias, or nil if that object is not declared in the source set.
func (r *Resolver) Canonical(id *ast.Ident) types.Object {
	_, origin := r.Origin(id)
	return origin
}

// Origin returns both the object id uses and its canonical object.
// Either result is nil when id cannot be resolved to a constant or
// variable whose canonical form is declared in the source set.
func (r *Resolver) Origin(id *ast.Ident) (used, origin types.Object) {
	p := r.snap.PackageAt(id.Pos())
	if p == nil || p.TypesInfo == nil {
		return nil, nil
	}
	used = p.TypesInfo.Uses[id]
	if !isValue(used) {
		return nil, nil
	}
	origin = r.follow(used)
	if !r.snap.InSourceSet(origin.Pos()) {
		return nil, nil
	}
	return used, origin
}

// Object returns the canonical object for the identifier or the name
// selected by a selector expression, as Canonical does.
func (r *Resolver) Object(e ast.Expr) types.Object {
	switch e := e.(type) {
	case *ast.Ident:
		return r.Canonical(e)
	case *ast.SelectorExpr:
		return r.Canonical(e.Sel)
	}
	return nil
}

// isValue reports whether obj is a package-level constant or variable.
func isValue(obj types.Object) bool {
	switch obj.(type) {
	case *types.Const, *types.Var:
	default:
		return false
	}
	return obj.Pkg() != nil && obj.Parent() == obj.Pkg().Scope()
}

// follow returns the object obj is an alias of, or obj itself.
// An alias is a package-level constant or variable whose initializer
// is exactly another package-level constant or variable, as in
//
//	const FOO_TYPE = consts.FOO_TYPE
//
// Only one hop is taken.
func (r *Resolver) follow(obj types.Object) types.Object {
	f := r.snap.FileAt(obj.Pos())
	if f == nil {
		return obj
	}
	var init ast.Expr
	for _, n := range r.snap.SyntaxAt(obj.Pos()) {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if len(spec.Values) != len(spec.Names) {
			return obj
		}
		for i, name := range spec.Names {
			if name.Pos() == obj.Pos() {
				init = ast.Unparen(spec.Values[i])
			}
		}
		break
	}

	var id *ast.Ident
	switch x := init.(type) {
	case *ast.Ident:
		id = x
	case *ast.SelectorExpr:
		id = x.Sel
	default:
		return obj
	}
	target := f.Package.TypesInfo.Uses[id]
	if !isValue(target) || target == obj {
		return obj
	}
	return target
}
