// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"go/ast"
	"go/token"
	"go/types"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/tools/go/ast/astutil"

	"rsc.io/sagafix/refactor"
)

// DefaultCacheSize is the number of lookups a Locator remembers.
const DefaultCacheSize = 4096

// A Declaration is the exported package-level variable that wraps
// an action type constant, such as FOO in
//
//	var FOO = CreateAction(FOO_TYPE)
//
// or Actions.Fetch in
//
//	var Actions = struct{ Fetch Action }{
//		Fetch: CreateAction(FETCH_TYPE),
//	}
type Declaration struct {
	Name  string // declared variable
	Field string // struct field holding the call, if any
	Key   string // quoted map key holding the call, if any

	Obj  types.Object // the variable Name
	File *refactor.File
	Spec *ast.ValueSpec
	Call *ast.CallExpr
}

// Path returns the import path of the declaring package.
func (d *Declaration) Path() string {
	return d.File.Package.PkgPath
}

// PkgName returns the name of the declaring package.
func (d *Declaration) PkgName() string {
	return d.File.Package.Name
}

// Ref returns the expression referring to d through qualifier qual
// (empty for an unqualified reference). Subscriptions refer to the field
// or key holding the call; wrapped constants refer to the variable.
func (d *Declaration) Ref(qual string, sub bool) string {
	ref := d.Name
	if qual != "" {
		ref = qual + "." + ref
	}
	if sub {
		switch {
		case d.Field != "":
			ref += "." + d.Field
		case d.Key != "":
			ref += "[" + d.Key + "]"
		}
	}
	return ref
}

// Contains reports whether pos lies inside d's declaration.
func (d *Declaration) Contains(pos token.Pos) bool {
	return d.Spec.Pos() <= pos && pos < d.Spec.End()
}

// A Locator finds the declaration wrapping a constant.
// Its memo lives as long as the Locator, which must not outlive
// the snapshot it searches.
type Locator struct {
	snap    *refactor.Snapshot
	match   *Matcher
	resolve *Resolver
	memo    *lru.Cache[types.Object, *Declaration]
}

func NewLocator(snap *refactor.Snapshot, m *Matcher, r *Resolver, size int) (*Locator, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	memo, err := lru.New[types.Object, *Declaration](size)
	if err != nil {
		return nil, err
	}
	return &Locator{snap: snap, match: m, resolve: r, memo: memo}, nil
}

// Find returns the declaration wrapping obj, or nil.
//
// Files are searched in lexicographic order, each depth first, and the
// first wrapping call found decides: if it is not the value of an exported
// package-level variable, Find returns nil without looking further.
func (l *Locator) Find(obj types.Object) *Declaration {
	if obj == nil {
		return nil
	}
	if d, ok := l.memo.Get(obj); ok {
		return d
	}
	d := l.find(obj)
	l.memo.Add(obj, d)
	return d
}

func (l *Locator) find(obj types.Object) *Declaration {
	for _, f := range l.snap.Files() {
		var found *ast.CallExpr
		ast.Inspect(f.Syntax, func(n ast.Node) bool {
			if found != nil {
				return false
			}
			call, ok := n.(*ast.CallExpr)
			if ok && l.wraps(call, obj) {
				found = call
				return false
			}
			return true
		})
		if found != nil {
			return l.declaration(f, found)
		}
	}
	return nil
}

// Wraps reports whether obj is a package-level variable whose value
// calls a wrapping factory, as FOO is in
//
//	var FOO = CreateAction(FOO_TYPE)
//
// References to such variables have already been rewired.
func (l *Locator) Wraps(obj types.Object) bool {
	v, ok := obj.(*types.Var)
	if !ok || v.Pkg() == nil || v.Parent() != v.Pkg().Scope() {
		return false
	}
	for _, n := range l.snap.SyntaxAt(v.Pos()) {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for i, name := range spec.Names {
			if name.Pos() != v.Pos() || i >= len(spec.Values) {
				continue
			}
			found := false
			ast.Inspect(spec.Values[i], func(n ast.Node) bool {
				if call, ok := n.(*ast.CallExpr); ok {
					switch calleeName(call) {
					case l.match.Wrap, l.match.WrapMany:
						found = true
					}
				}
				return !found
			})
			return found
		}
		return false
	}
	return false
}

// wraps reports whether call passes obj to a wrapping factory.
func (l *Locator) wraps(call *ast.CallExpr, obj types.Object) bool {
	if len(call.Args) == 0 {
		return false
	}
	switch calleeName(call) {
	case l.match.Wrap:
		arg := call.Args[0]
		if !l.match.IsPattern(arg) && !l.match.IsQualifiedPattern(arg) {
			return false
		}
		return l.resolve.Object(arg) == obj

	case l.match.WrapMany:
		// CreateActions(map[string]any{FOO_TYPE: f, ...}, BAR_TYPE, ...)
		var keys []ast.Expr
		if lit, ok := call.Args[0].(*ast.CompositeLit); ok {
			for _, elt := range lit.Elts {
				if kv, ok := elt.(*ast.KeyValueExpr); ok {
					keys = append(keys, kv.Key)
				}
			}
		}
		keys = append(keys, call.Args[1:]...)
		for _, k := range keys {
			if (l.match.IsPattern(k) || l.match.IsQualifiedPattern(k)) && l.resolve.Object(k) == obj {
				return true
			}
		}
	}
	return false
}

// declaration returns the exported package-level variable whose value
// contains call, or nil.
func (l *Locator) declaration(f *refactor.File, call *ast.CallExpr) *Declaration {
	path, _ := astutil.PathEnclosingInterval(f.Syntax, call.Pos(), call.End())
	d := &Declaration{File: f, Call: call}
	for i, n := range path {
		switch n := n.(type) {
		case *ast.FuncLit, *ast.FuncDecl:
			return nil

		case *ast.KeyValueExpr:
			if d.Field != "" || d.Key != "" || !within(call, n.Value) {
				continue
			}
			switch k := n.Key.(type) {
			case *ast.Ident:
				d.Field = k.Name
			case *ast.BasicLit:
				if k.Kind == token.STRING {
					d.Key = k.Value
				}
			}

		case *ast.ValueSpec:
			if i+2 >= len(path) {
				return nil
			}
			gen, ok := path[i+1].(*ast.GenDecl)
			if !ok || gen.Tok != token.VAR {
				return nil
			}
			if _, ok := path[i+2].(*ast.File); !ok {
				return nil
			}
			name := n.Names[0]
			for j, v := range n.Values {
				if within(call, v) && j < len(n.Names) {
					name = n.Names[j]
				}
			}
			if !name.IsExported() {
				return nil
			}
			d.Name = name.Name
			d.Spec = n
			d.Obj = f.Package.TypesInfo.Defs[name]
			return d
		}
	}
	return nil
}

func within(inner, outer ast.Node) bool {
	return outer.Pos() <= inner.Pos() && inner.End() <= outer.End()
}
