// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"fmt"
	"go/ast"
	"regexp"
)

// DefaultPattern matches the all-caps names of action type constants.
const DefaultPattern = `^[A-Z_]+$`

// Factory names recognized by default.
const (
	DefaultWrap      = "CreateAction"
	DefaultSubscribe = "TakeLatest"
	DefaultWrapMany  = "CreateActions"
)

// A Kind says which factory a call invokes.
type Kind int

const (
	NoKind    Kind = iota
	Wrap           // CreateAction(FOO_TYPE)
	Subscribe      // TakeLatest(FOO_TYPE, handler)
)

func (k Kind) String() string {
	switch k {
	case Wrap:
		return "wrap"
	case Subscribe:
		return "subscribe"
	}
	return "none"
}

// A Shape describes the first argument of a candidate call.
type Shape int

const (
	NoShape                   Shape = iota
	BareConstant                    // FOO
	QualifiedConstant               // consts.FOO
	ArrayOfConstants                // []any{FOO, BAR}
	ArrayOfQualifiedConstants       // []any{consts.FOO}
)

var shapeNames = [...]string{
	NoShape:                   "none",
	BareConstant:              "bare-constant",
	QualifiedConstant:         "qualified-constant",
	ArrayOfConstants:          "array-of-constants",
	ArrayOfQualifiedConstants: "array-of-qualified-constants",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Rewritable reports whether calls of shape s are ever rewritten.
// Qualified shapes are only counted.
func (s Shape) Rewritable() bool {
	return s == BareConstant || s == ArrayOfConstants
}

// Factories names the factory functions a Matcher recognizes.
type Factories struct {
	Wrap      string
	Subscribe string
	WrapMany  string
}

// A Matcher classifies call expressions by syntax alone.
type Matcher struct {
	Factories
	pattern *regexp.Regexp
}

// NewMatcher returns a Matcher for the given factories and constant pattern.
// Empty names and an empty pattern take their defaults.
func NewMatcher(f Factories, pattern string) (*Matcher, error) {
	if f.Wrap == "" {
		f.Wrap = DefaultWrap
	}
	if f.Subscribe == "" {
		f.Subscribe = DefaultSubscribe
	}
	if f.WrapMany == "" {
		f.WrapMany = DefaultWrapMany
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid constant pattern: %w", err)
	}
	return &Matcher{Factories: f, pattern: re}, nil
}

// calleeName returns the name of the function called,
// for both Name(...) and pkg.Name(...).
func calleeName(call *ast.CallExpr) string {
	switch fn := ast.Unparen(call.Fun).(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return fn.Sel.Name
	case *ast.IndexExpr:
		// Generic instantiation: Name[T](...).
		return calleeName(&ast.CallExpr{Fun: fn.X})
	case *ast.IndexListExpr:
		return calleeName(&ast.CallExpr{Fun: fn.X})
	}
	return ""
}

// Classify returns the factory kind of call and the shape of its first
// argument. It returns NoKind for calls to other functions and NoShape
// when the first argument has none of the recognized shapes.
func (m *Matcher) Classify(call *ast.CallExpr) (Kind, Shape) {
	var kind Kind
	switch calleeName(call) {
	case m.Wrap:
		kind = Wrap
	case m.Subscribe:
		kind = Subscribe
	default:
		return NoKind, NoShape
	}
	if len(call.Args) == 0 {
		return kind, NoShape
	}
	arg := call.Args[0]
	switch {
	case m.IsPattern(arg):
		return kind, BareConstant
	case m.IsQualifiedPattern(arg):
		return kind, QualifiedConstant
	}
	if kind != Subscribe {
		return kind, NoShape
	}
	elts, ok := arrayElts(arg)
	if !ok {
		return kind, NoShape
	}
	for _, e := range elts {
		if m.IsPattern(e) {
			return kind, ArrayOfConstants
		}
	}
	for _, e := range elts {
		if m.IsQualifiedPattern(e) {
			return kind, ArrayOfQualifiedConstants
		}
	}
	return kind, NoShape
}

// IsPattern reports whether e is an identifier named like a constant.
func (m *Matcher) IsPattern(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && m.pattern.MatchString(id.Name)
}

// IsQualifiedPattern reports whether e is x.NAME with NAME named like a constant.
func (m *Matcher) IsQualifiedPattern(e ast.Expr) bool {
	sel, ok := e.(*ast.SelectorExpr)
	return ok && m.pattern.MatchString(sel.Sel.Name)
}

// arrayElts returns the elements of an array or slice literal.
func arrayElts(e ast.Expr) ([]ast.Expr, bool) {
	lit, ok := e.(*ast.CompositeLit)
	if !ok {
		return nil, false
	}
	if _, ok := lit.Type.(*ast.ArrayType); !ok {
		return nil, false
	}
	return lit.Elts, true
}
