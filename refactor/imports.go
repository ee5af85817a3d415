// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Adapted from golang.org/x/tools/go/ast/astutil/imports.go
// and from gofix's import insertion code.

package refactor

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// A NewImport is an import to be added to a file.
type NewImport struct {
	ID   string // import name; "" or Name means unnamed
	Path string
	Name string // package name
}

func (n NewImport) String() string {
	if n.ID == "" || n.ID == n.Name {
		return strconv.Quote(n.Path)
	}
	return n.ID + " " + strconv.Quote(n.Path)
}

var (
	slashSlash = []byte("//")
	starSlash  = []byte("*/")
)

// nodeRange returns the range of text to delete to remove n from f:
// n itself, the rest of its line, and any comments attached above it.
func nodeRange(f *File, n ast.Node) (pos, end token.Pos) {
	text := f.Text
	startFile := token.Pos(f.Syntax.FileStart)
	endFile := startFile + token.Pos(len(text))

	pos = n.Pos()
	end = n.End()

	// Include space and comments following the node.
	for end < endFile && text[end-startFile] == ' ' {
		end++
	}
	if bytes.HasPrefix(text[end-startFile:], slashSlash) {
		i := bytes.IndexByte(text[end-startFile:], '\n')
		if i >= 0 {
			end += token.Pos(i)
		} else {
			end = endFile
		}
	}
	if end > n.End() && end < endFile && text[end-startFile] != '\n' {
		// If we consumed spaces but did not reach a newline,
		// put a space back to avoid joining tokens.
		end--
	}

	// Include tabs preceding the node, to beginning of line.
	// (If there are spaces before the node, it means something else
	// precedes the node on the line, so don't bother removing anything.)
	for pos > startFile && text[pos-startFile-1] == '\t' {
		pos--
	}

	// Include comments "attached" to this node,
	// but stopping at a blank line.
	// Reading comments backward is a bit tricky:
	// if we see a */, we need to stop and assume
	// we don't know the state of the world.
	for pos > startFile && text[pos-startFile-1] == '\n' {
		i := bytes.LastIndexByte(text[:pos-startFile-1], '\n') + 1
		line := text[i : pos-startFile]
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, slashSlash) || bytes.Contains(line, starSlash) {
			break
		}
		pos = startFile + token.Pos(i)
	}

	// Consume final \n if we are deleting the whole line.
	if (pos == startFile || text[pos-startFile-1] == '\n') && end < endFile && text[end-startFile] == '\n' {
		end++
	}

	return pos, end
}

// lineStart returns the position of the first byte of the line containing pos.
func lineStart(f *File, pos token.Pos) token.Pos {
	startFile := token.Pos(f.Syntax.FileStart)
	i := bytes.LastIndexByte(f.Text[:pos-startFile], '\n') + 1
	return startFile + token.Pos(i)
}

// importName returns the name of s,
// or "" if the import is not named.
func importName(s *ast.ImportSpec) string {
	if s.Name == nil {
		return ""
	}
	return s.Name.Name
}

// importPath returns the unquoted import path of s,
// or "" if the path is not properly quoted.
func importPath(s *ast.ImportSpec) string {
	t, err := strconv.Unquote(s.Path.Value)
	if err != nil {
		return ""
	}
	return t
}

// ImportPath is the exported form of importPath.
func ImportPath(s *ast.ImportSpec) string { return importPath(s) }

// PkgNameOf returns the package name object declared by spec, or nil.
// Named, dot and blank imports record it as a definition of spec.Name;
// plain imports record it as an implicit object.
func PkgNameOf(info *types.Info, spec *ast.ImportSpec) *types.PkgName {
	var obj types.Object
	if spec.Name != nil {
		obj = info.Defs[spec.Name]
	} else {
		obj = info.Implicits[spec]
	}
	pn, _ := obj.(*types.PkgName)
	return pn
}

// UsesImport reports whether f still refers to the package imported by spec
// anywhere outside the ranges for which skip returns true.
// A dot import is used by any unqualified reference to one of the package's
// top-level names; any other import is used by a reference to its name.
func UsesImport(f *File, spec *ast.ImportSpec, skip func(token.Pos) bool) bool {
	info := f.Package.TypesInfo
	pn := PkgNameOf(info, spec)
	if pn == nil || pn.Name() == "_" {
		return true
	}
	dot := importName(spec) == "."
	imported := pn.Imported()

	used := false
	var visit func(n ast.Node) bool
	visit = func(n ast.Node) bool {
		if used {
			return false
		}
		switch n := n.(type) {
		case *ast.GenDecl:
			return n.Tok != token.IMPORT
		case *ast.SelectorExpr:
			if !dot {
				return true
			}
			ast.Inspect(n.X, visit)
			return false
		case *ast.Ident:
			if skip != nil && skip(n.Pos()) {
				return false
			}
			obj := info.Uses[n]
			if obj == nil {
				return false
			}
			if dot {
				used = obj.Pkg() == imported && obj.Parent() == imported.Scope()
			} else {
				used = obj == pn
			}
			return false
		}
		return true
	}
	ast.Inspect(f.Syntax, visit)
	return used
}

// Qualifier returns the qualifier code at pos must use to refer to exported
// names of the package with the given path and name. An empty qualifier means
// those names are in scope unqualified, because pos is in that package or the
// file dot-imports it. If add is true, the file does not import the package
// yet and the caller must arrange for NewImport{ID: qual, ...} to be added.
// pending lists imports already queued for the file.
func (s *Snapshot) Qualifier(pos token.Pos, path, name string, pending []NewImport) (qual string, add bool, err error) {
	f := s.FileAt(pos)
	if f == nil {
		return "", false, fmt.Errorf("%s: not in a loaded file", s.Addr(pos))
	}
	if f.Package.PkgPath == path {
		return "", false, nil
	}

	for _, imp := range f.Syntax.Imports {
		if importPath(imp) != path {
			continue
		}
		id := importName(imp)
		switch id {
		case ".":
			return "", false, nil
		case "_":
			continue
		case "":
			id = name
			if pn := PkgNameOf(f.Package.TypesInfo, imp); pn != nil {
				id = pn.Name()
			}
		}
		if pn, ok := s.LookupAt(id, pos).(*types.PkgName); ok && pn.Imported().Path() == path {
			return id, false, nil
		}
	}

	for _, p := range pending {
		if p.Path != path {
			continue
		}
		id := p.ID
		if id == "" {
			id = p.Name
		}
		if s.LookupAt(id, pos) != nil {
			return "", false, fmt.Errorf("%s: package name %s is shadowed", s.Addr(pos), id)
		}
		return id, false, nil
	}

	taken := make(map[string]bool)
	for _, p := range pending {
		id := p.ID
		if id == "" {
			id = p.Name
		}
		taken[id] = true
	}
	for _, id := range []string{name, name + "pkg", name + "_"} {
		if taken[id] {
			continue
		}
		if s.LookupAt(id, pos) != nil || s.LookupAt(id, f.Syntax.Name.Pos()) != nil {
			continue
		}
		return id, true, nil
	}
	return "", false, fmt.Errorf("%s: package name %s is shadowed", s.Addr(pos), name)
}

// SpliceImports queues the edits that add the imports in add to the named
// file and delete the import specs in del.
//
// A new import joins the import block whose paths share the longest prefix
// with it, ignoring specs being deleted. An import declaration whose specs
// are all deleted is deleted too; if no import declaration survives, the new
// imports take its place, or start a new declaration after the package clause.
func (s *Snapshot) SpliceImports(name string, add []NewImport, del []*ast.ImportSpec) {
	f := s.files[name]
	if f == nil {
		panic("file not found: " + name)
	}
	dead := make(map[*ast.ImportSpec]bool)
	for _, spec := range del {
		dead[spec] = true
	}

	var imps []*ast.GenDecl
	for _, d := range f.Syntax.Decls {
		d, ok := d.(*ast.GenDecl)
		if !ok || d.Tok != token.IMPORT {
			break
		}
		imps = append(imps, d)
	}

	// Delete specs, or whole declarations left empty.
	var gone []*ast.GenDecl
	live := make(map[*ast.GenDecl][]*ast.ImportSpec)
	for _, imp := range imps {
		var keep []*ast.ImportSpec
		for _, spec := range imp.Specs {
			if spec := spec.(*ast.ImportSpec); !dead[spec] {
				keep = append(keep, spec)
			}
		}
		if len(keep) == 0 && len(imp.Specs) > 0 {
			gone = append(gone, imp)
			continue
		}
		live[imp] = keep
		for _, spec := range imp.Specs {
			if spec := spec.(*ast.ImportSpec); dead[spec] {
				s.DeleteAt(nodeRange(f, spec))
			}
		}
	}

	// Assign each import to a surviving spec.
	// Same logic as go fix.
	needs := make(map[*ast.ImportSpec][]NewImport)
	var firstImp *ast.GenDecl
	for _, need := range add {
		var (
			bestMatch = -1
			bestSpec  *ast.ImportSpec
		)
		for _, imp := range imps {
			// Do not add to import "C", to avoid disrupting the
			// association with its doc comment, breaking cgo.
			if live[imp] == nil || declImports(imp, "C") {
				continue
			}
			if firstImp == nil {
				firstImp = imp
			}
			for _, spec := range live[imp] {
				n := matchLen(importPath(spec), need.Path)
				if n > bestMatch {
					bestMatch = n
					bestSpec = spec
				}
			}
		}
		needs[bestSpec] = append(needs[bestSpec], need)
	}
	all := needs[nil]
	sortImports(all)

	for _, imp := range imps {
		specs := live[imp]
		if specs == nil {
			continue
		}
		if imp.Lparen == token.NoPos {
			// A single import: turn it into a block.
			spec := specs[0]
			path := importPath(spec)
			var before, after, extra []NewImport
			for _, need := range needs[spec] {
				if need.Path < path {
					before = append(before, need)
				} else {
					after = append(after, need)
				}
			}
			if imp == firstImp {
				extra = all
			}
			if len(before)+len(after)+len(extra) == 0 {
				continue
			}
			sortImports(before)
			sortImports(after)
			var buf strings.Builder
			buf.WriteString("(\n\t")
			for _, need := range before {
				fmt.Fprintf(&buf, "%s\n\t", need)
			}
			s.InsertAt(spec.Pos(), buf.String())
			buf.Reset()
			for _, need := range after {
				fmt.Fprintf(&buf, "\n\t%s", need)
			}
			buf.WriteString("\n")
			writeGroups(&buf, extra, "\t")
			buf.WriteString(")")
			s.InsertAt(spec.End(), buf.String())
			continue
		}

		// Add imports to the group of their best-matching spec,
		// keeping the group sorted.
		for _, group := range s.importGroups(f, specs) {
			var list []NewImport
			for _, spec := range group {
				list = append(list, needs[spec]...)
			}
			if len(list) == 0 {
				continue
			}
			sortImports(list)
			i := 0
			for _, spec := range group {
				var buf strings.Builder
				at, indent := s.specLine(f, spec)
				for ; i < len(list) && list[i].Path < importPath(spec); i++ {
					fmt.Fprintf(&buf, "%s%s\n", indent, list[i])
				}
				if buf.Len() > 0 {
					s.InsertAt(at, buf.String())
				}
			}
			if i < len(list) {
				last := group[len(group)-1]
				_, indent := s.specLine(f, last)
				var buf strings.Builder
				at := lineEnd(f, last.End())
				if at > imp.Rparen {
					// ) on the same line as the last spec.
					at = last.End()
					for ; i < len(list); i++ {
						fmt.Fprintf(&buf, "\n%s%s", indent, list[i])
					}
				} else {
					for ; i < len(list); i++ {
						fmt.Fprintf(&buf, "%s%s\n", indent, list[i])
					}
				}
				s.InsertAt(at, buf.String())
			}
		}

		// Imports we didn't know what to do with
		// start a new group in the first (non-C) import.
		if imp == firstImp && len(all) > 0 {
			var buf strings.Builder
			writeGroups(&buf, all, "\t")
			s.InsertAt(imp.Rparen, buf.String())
		}
	}

	if firstImp == nil && len(all) > 0 {
		if len(gone) > 0 {
			// Reuse the place of a deleted declaration.
			s.ReplaceAt(gone[0].Pos(), gone[0].End(), importDecl(all))
			gone = gone[1:]
		} else {
			s.InsertAt(f.Syntax.Name.End(), "\n\n"+importDecl(all))
		}
	}

	for _, imp := range gone {
		pos, end := nodeRange(f, imp)
		s.DeleteAt(pos, squeezeBlank(f, pos, end))
	}
}

// squeezeBlank extends the deletion [pos, end) over one following
// empty line when the deleted text sits between two blank lines.
func squeezeBlank(f *File, pos, end token.Pos) token.Pos {
	start := token.Pos(f.Syntax.FileStart)
	text := f.Text
	i, j := int(pos-start), int(end-start)
	if i >= 2 && text[i-1] == '\n' && text[i-2] == '\n' && j < len(text) && text[j] == '\n' {
		return end + 1
	}
	return end
}

// importGroups splits specs into runs not separated by a blank line.
func (s *Snapshot) importGroups(f *File, specs []*ast.ImportSpec) [][]*ast.ImportSpec {
	var groups [][]*ast.ImportSpec
	for i, spec := range specs {
		if i == 0 || blankLine.Match(s.Text(specs[i-1].End(), spec.Pos())) {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], spec)
	}
	return groups
}

var blankLine = regexp.MustCompile(`\n[ \t]*\r?\n`)

// specLine returns where to insert a line before spec (or its doc comment)
// and the indentation to use.
func (s *Snapshot) specLine(f *File, spec *ast.ImportSpec) (at token.Pos, indent string) {
	at = spec.Pos()
	if spec.Doc != nil {
		at = spec.Doc.Pos()
	}
	ls := lineStart(f, at)
	indent = string(s.Text(ls, at))
	if strings.TrimSpace(indent) != "" {
		return at, "\t"
	}
	return ls, indent
}

// lineEnd returns the position just past the newline ending the line containing pos.
func lineEnd(f *File, pos token.Pos) token.Pos {
	startFile := token.Pos(f.Syntax.FileStart)
	i := bytes.IndexByte(f.Text[pos-startFile:], '\n')
	if i < 0 {
		return startFile + token.Pos(len(f.Text))
	}
	return pos + token.Pos(i) + 1
}

func sortImports(list []NewImport) {
	sort.SliceStable(list, func(i, j int) bool {
		if ki, kj := pathKind(list[i].Path), pathKind(list[j].Path); ki != kj {
			return ki < kj
		}
		return list[i].Path < list[j].Path
	})
}

// writeGroups writes list, already sorted, one import per line,
// starting each kind of path with a blank line.
func writeGroups(buf *strings.Builder, list []NewImport, indent string) {
	kind := -1
	for _, need := range list {
		if k := pathKind(need.Path); k != kind {
			buf.WriteString("\n")
			kind = k
		}
		fmt.Fprintf(buf, "%s%s\n", indent, need)
	}
}

func importDecl(list []NewImport) string {
	if len(list) == 1 {
		return "import " + list[0].String()
	}
	var buf strings.Builder
	buf.WriteString("import (")
	writeGroups(&buf, list, "\t")
	buf.WriteString(")")
	return buf.String()
}

// declImports reports whether gen contains an import of path.
func declImports(gen *ast.GenDecl, path string) bool {
	if gen.Tok != token.IMPORT {
		return false
	}
	for _, spec := range gen.Specs {
		impspec := spec.(*ast.ImportSpec)
		if importPath(impspec) == path {
			return true
		}
	}
	return false
}

// matchLen returns the length of the longest prefix shared by x and y.
func matchLen(x, y string) int {
	if pathKind(x) != pathKind(y) {
		return -1
	}

	i := 0
	for i < len(x) && i < len(y) && x[i] == y[i] {
		i++
	}
	return i
}

func pathKind(x string) int {
	first, _, _ := strings.Cut(x, "/")
	if strings.Contains(first, ".") {
		return 2
	}
	if first == "cmd" {
		return 1
	}
	return 0
}
