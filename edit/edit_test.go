// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdit(t *testing.T) {
	b := NewBuffer([]byte("0123456789"))
	b.Insert(8, ",7½,")
	b.Replace(9, 10, "the-end")
	b.Insert(10, "!")
	b.Insert(4, "3.14,")
	b.Insert(4, "π,")
	b.Insert(4, "3.15,")
	b.Replace(3, 4, "three,")
	want := "012three,3.14,π,3.15,4567,7½,8the-end!"

	assert.Equal(t, want, b.String())
}

func TestEditEmpty(t *testing.T) {
	b := NewBuffer([]byte("package p\n"))
	assert.Equal(t, "package p\n", b.String())
}

func TestEditOverlap(t *testing.T) {
	b := NewBuffer([]byte("0123456789"))
	b.Replace(2, 6, "x")
	b.Delete(4, 8)
	assert.Panics(t, func() { b.Bytes() })
}

func TestEditInvalidPosition(t *testing.T) {
	b := NewBuffer([]byte("abc"))
	assert.Panics(t, func() { b.Insert(4, "d") })
	assert.Panics(t, func() { b.Delete(2, 1) })
	assert.Panics(t, func() { b.Replace(-1, 1, "") })
}
