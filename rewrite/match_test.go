// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite

import (
	"go/ast"
	"go/parser"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseCall(t *testing.T, src string) *ast.CallExpr {
	t.Helper()
	x, err := parser.ParseExpr(src)
	require.NoError(t, err, src)
	call, ok := x.(*ast.CallExpr)
	require.True(t, ok, "%s is not a call", src)
	return call
}

var classifyTests = []struct {
	call  string
	kind  Kind
	shape Shape
}{
	{`TakeLatest(FOO_TYPE, h)`, Subscribe, BareConstant},
	{`saga.TakeLatest(FOO_TYPE, h)`, Subscribe, BareConstant},
	{`(saga.TakeLatest)(FOO_TYPE, h)`, Subscribe, BareConstant},
	{`TakeLatest[string](FOO_TYPE, h)`, Subscribe, BareConstant},
	{`TakeLatest(consts.FOO_TYPE, h)`, Subscribe, QualifiedConstant},
	{`TakeLatest([]any{FOO_TYPE, consts.BAR_TYPE}, h)`, Subscribe, ArrayOfConstants},
	{`TakeLatest([2]string{consts.FOO_TYPE, "x"}, h)`, Subscribe, ArrayOfQualifiedConstants},
	{`TakeLatest([]any{"x", y}, h)`, Subscribe, NoShape},
	{`TakeLatest(map[string]any{FOO_TYPE: 1}, h)`, Subscribe, NoShape},
	{`TakeLatest(fooType, h)`, Subscribe, NoShape},
	{`TakeLatest()`, Subscribe, NoShape},
	{`CreateAction(FOO_TYPE)`, Wrap, BareConstant},
	{`actions.CreateAction(consts.FOO_TYPE)`, Wrap, QualifiedConstant},
	{`CreateAction([]any{FOO_TYPE})`, Wrap, NoShape},
	{`CreateActions(FOO_TYPE)`, NoKind, NoShape},
	{`TakeEvery(FOO_TYPE, h)`, NoKind, NoShape},
	{`f()(FOO_TYPE)`, NoKind, NoShape},
}

func TestClassify(t *testing.T) {
	m, err := NewMatcher(Factories{}, "")
	require.NoError(t, err)
	for _, tt := range classifyTests {
		kind, shape := m.Classify(parseCall(t, tt.call))
		assert.Equal(t, tt.kind, kind, "%s: kind", tt.call)
		assert.Equal(t, tt.shape, shape, "%s: shape", tt.call)
	}
}

func TestClassifyCustom(t *testing.T) {
	m, err := NewMatcher(Factories{Wrap: "Make", Subscribe: "Watch"}, `^EV_[A-Z]+$`)
	require.NoError(t, err)

	kind, shape := m.Classify(parseCall(t, `Watch(EV_READY, h)`))
	assert.Equal(t, Subscribe, kind)
	assert.Equal(t, BareConstant, shape)

	kind, shape = m.Classify(parseCall(t, `Watch(READY, h)`))
	assert.Equal(t, Subscribe, kind)
	assert.Equal(t, NoShape, shape)

	kind, _ = m.Classify(parseCall(t, `TakeLatest(EV_READY, h)`))
	assert.Equal(t, NoKind, kind)
}

func TestShape(t *testing.T) {
	assert.True(t, BareConstant.Rewritable())
	assert.True(t, ArrayOfConstants.Rewritable())
	assert.False(t, QualifiedConstant.Rewritable())
	assert.False(t, ArrayOfQualifiedConstants.Rewritable())
	assert.False(t, NoShape.Rewritable())

	assert.Equal(t, "array-of-qualified-constants", ArrayOfQualifiedConstants.String())
	assert.Equal(t, "Shape(9)", Shape(9).String())
	assert.Equal(t, "subscribe", Subscribe.String())
}

func TestNewMatcherBadPattern(t *testing.T) {
	_, err := NewMatcher(Factories{}, "[")
	assert.ErrorContains(t, err, "invalid constant pattern")
}
