// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"
)

// ErrAmbiguous reports that a source file was loaded by more than one package,
// so identifiers in it would resolve to more than one object.
var ErrAmbiguous = errors.New("ambiguous program snapshot")

// A Refactor holds the state for an active refactoring.
type Refactor struct {
	Config Config

	dir     string
	modRoot string
}

// New returns a new refactoring of the module containing dir.
func New(dir string) (*Refactor, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, err
	}
	dir = filepath.Clean(dir)

	modRoot, _, err := ModuleOf(dir)
	if err != nil {
		return nil, err
	}
	return &Refactor{dir: dir, modRoot: modRoot}, nil
}

// ModuleOf finds the go.mod governing dir and returns
// the module root directory and the module path.
func ModuleOf(dir string) (root, path string, err error) {
	for d := dir; ; {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		if err == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return "", "", fmt.Errorf("%s: no module directive", filepath.Join(d, "go.mod"))
			}
			return d, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("loading module: %w", err)
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", "", fmt.Errorf("no module found for: %s", dir)
		}
		d = parent
	}
}

func (r *Refactor) Dir() string { return r.dir }

// shortPath returns an absolute or relative name for path, whatever is shorter.
func (r *Refactor) shortPath(path string) string {
	if rel, err := filepath.Rel(r.dir, path); err == nil && len(rel) < len(path) {
		return rel
	}
	return path
}

// A Snapshot is a parsed and type-checked view of a set of source files,
// plus a set of pending edits to be made to those files.
// The parsed view never changes; a new view requires a new Load.
type Snapshot struct {
	r    *Refactor
	fset *token.FileSet

	// files holds the source set, keyed by absolute file name.
	// names is the same set in lexicographic order.
	files map[string]*File
	names []string

	// edits contains edits made to files by this Snapshot.
	// It only contains entries for files that have been modified.
	edits map[string]*Edit

	Errors *ErrorList
}

// A Package is a loaded package. ID differs from PkgPath for test variants.
type Package struct {
	Name    string
	ID      string
	PkgPath string
	Files   []*File // Sorted by File.Name; only files in the source set

	Types     *types.Package
	TypesInfo *types.Info
}

func (p *Package) String() string { return p.ID }

// File represents a source file, including both its text and parsed forms.
type File struct {
	Name      string // Absolute path
	Text      []byte
	Syntax    *ast.File
	Package   *Package
	Generated bool
}

// fileCache records the text of every file handed to the parser,
// so edits can be made against exactly what was type-checked.
type fileCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (fc *fileCache) ParseFile(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
	fc.mu.Lock()
	if fc.data == nil {
		fc.data = make(map[string][]byte)
	}
	fc.data[filename] = src
	fc.mu.Unlock()

	const mode = parser.AllErrors | parser.ParseComments
	return parser.ParseFile(fset, filename, src, mode)
}

func (fc *fileCache) text(name string) []byte {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.data[name]
}

// Load parses and type-checks the packages containing files
// and returns a new Snapshot whose source set is files.
// Every call builds a fresh view; nothing is shared with earlier Snapshots.
func (r *Refactor) Load(files ...string) (*Snapshot, error) {
	return r.load(files, nil)
}

// LoadOverlay is like Load but reads the given file contents
// in place of what is on disk.
func (r *Refactor) LoadOverlay(overlay map[string][]byte, files ...string) (*Snapshot, error) {
	return r.load(files, overlay)
}

func (r *Refactor) load(files []string, overlay map[string][]byte) (*Snapshot, error) {
	s := &Snapshot{
		r:      r,
		fset:   token.NewFileSet(),
		files:  make(map[string]*File),
		edits:  make(map[string]*Edit),
		Errors: new(ErrorList),
	}
	if len(files) == 0 {
		return s, nil
	}

	want := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, name := range files {
		name, err := filepath.Abs(name)
		if err != nil {
			return nil, err
		}
		want[name] = true
		dirs[filepath.Dir(name)] = true
	}
	var patterns []string
	for dir := range dirs {
		rel, err := filepath.Rel(r.dir, dir)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, "./"+filepath.ToSlash(rel))
	}
	sort.Strings(patterns)

	flags, env, err := r.Config.flagsEnvs()
	if err != nil {
		return nil, err
	}
	var fc fileCache
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedTypes | packages.NeedTypesInfo |
			packages.NeedSyntax | packages.NeedModule,
		Dir:        r.dir,
		Env:        append(os.Environ(), env...),
		BuildFlags: flags,
		Fset:       s.fset,
		ParseFile:  fc.ParseFile,
		Overlay:    overlay,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	owner := make(map[string]*Package)
	var loaded []*Package
	for _, lp := range pkgs {
		for _, e := range packageErrors(lp.Errors) {
			s.Errors.Add(e)
		}
		p := &Package{
			Name:      lp.Name,
			ID:        lp.ID,
			PkgPath:   lp.PkgPath,
			Types:     lp.Types,
			TypesInfo: lp.TypesInfo,
		}

		for _, syntax := range lp.Syntax {
			name := s.fset.Position(syntax.Package).Filename
			if !want[name] {
				continue
			}
			if q := owner[name]; q != nil {
				return nil, fmt.Errorf("%w: %s loaded by %s and %s", ErrAmbiguous, r.shortPath(name), q, p)
			}
			owner[name] = p
			f := &File{
				Name:      name,
				Text:      fc.text(name),
				Syntax:    syntax,
				Package:   p,
				Generated: ast.IsGenerated(syntax),
			}
			p.Files = append(p.Files, f)
			s.files[name] = f
		}
		sort.Slice(p.Files, func(i, j int) bool {
			return p.Files[i].Name < p.Files[j].Name
		})
		if len(p.Files) > 0 {
			loaded = append(loaded, p)
		}
	}
	if err := s.Errors.Err(); err != nil {
		return nil, err
	}
	for _, p := range loaded {
		if p.TypesInfo == nil {
			return nil, fmt.Errorf("%w: %s has no type information", ErrAmbiguous, p)
		}
	}

	for name, f := range s.files {
		if f.Generated {
			continue
		}
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s, nil
}

// Files returns the files of the source set in lexicographic order.
// Generated files are type-checked but are not part of the source set.
func (s *Snapshot) Files() []*File {
	list := make([]*File, 0, len(s.names))
	for _, name := range s.names {
		list = append(list, s.files[name])
	}
	return list
}

// FileByName returns the source file with the given name, or nil.
func (s *Snapshot) FileByName(name string) *File {
	if !filepath.IsAbs(name) {
		name = filepath.Join(s.r.dir, name)
	}
	f := s.files[name]
	if f == nil || f.Generated {
		return nil
	}
	return f
}

// ShortPath returns name relative to the refactoring directory when that is shorter.
func (s *Snapshot) ShortPath(name string) string {
	return s.r.shortPath(name)
}

// packageErrors returns errs without the go list errors of a package
// that also has type errors, since go list repeats those type errors
// with relative positions.
func packageErrors(errs []packages.Error) []packages.Error {
	typed := slices.ContainsFunc(errs, func(e packages.Error) bool {
		return e.Kind == packages.TypeError
	})
	if !typed {
		return errs
	}
	return slices.DeleteFunc(slices.Clone(errs), func(e packages.Error) bool {
		return e.Kind == packages.ListError
	})
}
