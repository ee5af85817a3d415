// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/token"
	"go/types"
)

func (s *Snapshot) Position(pos token.Pos) token.Position {
	return s.fset.Position(pos)
}

// Addr returns pos as a short file:line:col string for messages.
func (s *Snapshot) Addr(pos token.Pos) string {
	p := s.Position(pos)
	p.Filename = s.r.shortPath(p.Filename)
	return p.String()
}

// Text returns the original source text between lo and hi,
// which must lie in the same loaded file.
func (s *Snapshot) Text(lo, hi token.Pos) []byte {
	plo := s.Position(lo)
	phi := s.Position(hi)
	f := s.files[plo.Filename]
	if f == nil {
		panic("file not found")
	}
	return f.Text[plo.Offset:phi.Offset]
}

// NodeText returns the original source text of n.
func (s *Snapshot) NodeText(n ast.Node) string {
	return string(s.Text(n.Pos(), n.End()))
}

// SyntaxAt returns the stack of nodes enclosing pos,
// innermost first, ending with the *ast.File.
func (s *Snapshot) SyntaxAt(pos token.Pos) []ast.Node {
	file := s.FileAt(pos)
	if file == nil {
		return nil
	}

	var stack []ast.Node
	ast.Inspect(file.Syntax, func(n ast.Node) bool {
		if n == nil || pos < n.Pos() || n.End() <= pos {
			return false
		}
		stack = append(stack, n)
		return true
	})
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// FileAt returns the loaded file containing pos, or nil.
// Files outside the source set (generated files) are included.
func (s *Snapshot) FileAt(pos token.Pos) *File {
	if !pos.IsValid() {
		return nil
	}
	tf := s.fset.File(pos)
	if tf == nil {
		return nil
	}
	return s.files[tf.Name()]
}

// InSourceSet reports whether pos lies in a non-generated file of the source set.
func (s *Snapshot) InSourceSet(pos token.Pos) bool {
	f := s.FileAt(pos)
	return f != nil && !f.Generated
}

func (s *Snapshot) PackageAt(pos token.Pos) *Package {
	if f := s.FileAt(pos); f != nil {
		return f.Package
	}
	return nil
}

// LookupAt looks up name in the scope enclosing pos.
func (s *Snapshot) LookupAt(name string, pos token.Pos) types.Object {
	f := s.FileAt(pos)
	if f == nil {
		return nil
	}
	scope := f.Package.TypesInfo.Scopes[f.Syntax]
	if scope == nil {
		return nil
	}
	_, obj := scope.Innermost(pos).LookupParent(name, pos)
	return obj
}

func (s *Snapshot) ReplaceNode(n ast.Node, repl string) {
	s.ReplaceAt(n.Pos(), n.End(), repl)
}
