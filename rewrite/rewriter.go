// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"slices"

	"rsc.io/sagafix/refactor"
)

// A pass makes every rewrite decision against one snapshot,
// queuing the edits on that snapshot and recording them in its own Ledger.
type pass struct {
	snap     *refactor.Snapshot
	match    *Matcher
	resolve  *Resolver
	locate   *Locator
	ledger   *Ledger
	counters Counters
	log      *slog.Logger

	// per file
	adds  map[string][]refactor.NewImport
	keep  map[string]map[string]bool // import paths rewrites refer through
	spans map[string][]span          // rewritten identifiers
}

type span struct {
	lo, hi token.Pos
}

func newPass(snap *refactor.Snapshot, m *Matcher, cacheSize int, log *slog.Logger) (*pass, error) {
	r := NewResolver(snap)
	l, err := NewLocator(snap, m, r, cacheSize)
	if err != nil {
		return nil, err
	}
	return &pass{
		snap:    snap,
		match:   m,
		resolve: r,
		locate:  l,
		ledger:  NewLedger(),
		log:     log,
		adds:    make(map[string][]refactor.NewImport),
		keep:    make(map[string]map[string]bool),
		spans:   make(map[string][]span),
	}, nil
}

// run visits every call in the source set.
func (p *pass) run(ctx context.Context) error {
	for _, f := range p.snap.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ast.Inspect(f.Syntax, func(n ast.Node) bool {
			if call, ok := n.(*ast.CallExpr); ok {
				p.visit(f, call)
			}
			return true
		})
	}
	return nil
}

func (p *pass) visit(f *refactor.File, call *ast.CallExpr) {
	kind, shape := p.match.Classify(call)
	if kind == NoKind || shape == NoShape {
		return
	}
	if !shape.Rewritable() {
		p.counters.Skipped++
		p.log.Debug("SKIPPED", p.callAttrs(kind, shape, call)...)
		return
	}

	var ids []*ast.Ident
	if shape == BareConstant {
		ids = append(ids, call.Args[0].(*ast.Ident))
	} else {
		elts, _ := arrayElts(call.Args[0])
		for _, e := range elts {
			if p.match.IsPattern(e) {
				ids = append(ids, e.(*ast.Ident))
			}
		}
	}
	ids = slices.DeleteFunc(ids, func(id *ast.Ident) bool {
		return p.locate.Wraps(p.resolve.Canonical(id))
	})
	if len(ids) == 0 {
		p.log.Debug("already rewired", "pos", p.snap.Addr(call.Pos()))
		return
	}

	if kind == Wrap {
		// The declaration other call sites are rewritten to.
		if d := p.locate.Find(p.resolve.Canonical(ids[0])); d != nil && d.Contains(call.Pos()) {
			return
		}
	}

	p.counters.Handled++
	p.log.Debug("FOUND", p.callAttrs(kind, shape, call)...)
	for _, id := range ids {
		p.rewrite(f, id, kind)
	}
}

func (p *pass) callAttrs(kind Kind, shape Shape, call *ast.CallExpr) []any {
	return []any{
		"kind", kind,
		"shape", shape,
		"pos", p.snap.Addr(call.Pos()),
		"call", p.snap.NodeText(call),
	}
}

// rewrite replaces the constant id with a reference to its declaration,
// if it has one that f can refer to.
func (p *pass) rewrite(f *refactor.File, id *ast.Ident, kind Kind) {
	used, origin := p.resolve.Origin(id)
	if origin == nil {
		p.log.Debug("unresolved constant", "pos", p.snap.Addr(id.Pos()), "name", id.Name)
		return
	}
	d := p.locate.Find(origin)
	if d == nil {
		p.log.Debug("no exported declaration", "pos", p.snap.Addr(id.Pos()), "name", id.Name)
		return
	}
	if d.Contains(id.Pos()) {
		return
	}
	if d.Path() != f.Package.PkgPath {
		if d.PkgName() == "main" || importsPath(d.File.Package.Types, f.Package.PkgPath) {
			p.log.Warn("cannot import declaration", "pos", p.snap.Addr(id.Pos()), "decl", d.Name, "path", d.Path())
			return
		}
	}
	qual, add, err := p.snap.Qualifier(id.Pos(), d.Path(), d.PkgName(), p.adds[f.Name])
	if err != nil {
		p.log.Warn("cannot refer to declaration", "decl", d.Name, "err", err)
		return
	}
	if add {
		p.adds[f.Name] = append(p.adds[f.Name], refactor.NewImport{ID: qual, Path: d.Path(), Name: d.PkgName()})
	}
	if p.keep[f.Name] == nil {
		p.keep[f.Name] = make(map[string]bool)
	}
	p.keep[f.Name][d.Path()] = true

	p.snap.ReplaceNode(id, d.Ref(qual, kind == Subscribe))
	p.spans[f.Name] = append(p.spans[f.Name], span{id.Pos(), id.End()})
	p.ledger.AddImport(f.Name, d)
	p.ledger.AddRemoval(f.Name, Removal{Used: used, Origin: origin})
}

// importsPath reports whether pkg depends on the package with the given path,
// in which case importing pkg there would create a cycle.
func importsPath(pkg *types.Package, path string) bool {
	seen := make(map[*types.Package]bool)
	var walk func(*types.Package) bool
	walk = func(p *types.Package) bool {
		if p == nil || seen[p] {
			return false
		}
		seen[p] = true
		if p.Path() == path {
			return true
		}
		for _, q := range p.Imports() {
			if walk(q) {
				return true
			}
		}
		return false
	}
	return walk(pkg)
}

// splice queues the import edits for every file in the ledger:
// imports of the new declarations, and deletion of imports the
// rewritten constants came through that nothing else uses.
func (p *pass) splice() {
	for _, name := range p.ledger.Files() {
		f := p.snap.FileByName(name)
		if f == nil {
			continue
		}
		e := p.ledger.Get(name)
		spans := p.spans[name]
		skip := func(pos token.Pos) bool {
			for _, s := range spans {
				if s.lo <= pos && pos < s.hi {
					return true
				}
			}
			return false
		}

		var del []*ast.ImportSpec
		for _, spec := range f.Syntax.Imports {
			pn := refactor.PkgNameOf(f.Package.TypesInfo, spec)
			if pn == nil || pn.Name() == "_" || p.keep[name][refactor.ImportPath(spec)] {
				continue
			}
			if !removes(e.Removals, pn.Imported().Path()) {
				continue
			}
			if refactor.UsesImport(f, spec, skip) {
				continue
			}
			p.log.Debug("dropping import", "file", p.snap.ShortPath(name), "path", pn.Imported().Path())
			del = append(del, spec)
		}
		p.snap.SpliceImports(name, p.adds[name], del)
	}
}

// removes reports whether a removal took out a reference to the package path.
func removes(list []Removal, path string) bool {
	for _, r := range list {
		if r.Used.Pkg().Path() == path || r.Origin.Pkg().Path() == path {
			return true
		}
	}
	return false
}
