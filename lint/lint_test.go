// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lint

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		tool string
		want Linter
	}{
		{"", nil},
		{"none", nil},
		{"goimports", &Goimports{Parallel: 4}},
		{"golangci-lint run --fix", &Command{Path: "golangci-lint", Args: []string{"run", "--fix"}, Dir: "/src"}},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			got, err := Parse(tt.tool, 4, "/src")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGoimportsKeepsBlankLines(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "p.go")
	src := "package p\n\nimport (\n\t\"strings\"\n\t\"fmt\"\n)\n\n\n\nvar _ = fmt.Sprint\nvar _ = strings.TrimSpace\n"
	require.NoError(t, os.WriteFile(name, []byte(src), 0644))

	g := &Goimports{Parallel: 2, FormatOnly: true}
	results, err := g.Lint(context.Background(), []string{name})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.True(t, results[0].Changed)

	got, err := os.ReadFile(name)
	require.NoError(t, err)
	want := "package p\n\nimport (\n\t\"fmt\"\n\t\"strings\"\n)\n\n\n\nvar _ = fmt.Sprint\nvar _ = strings.TrimSpace\n"
	assert.Equal(t, want, string(got))

	info, err := os.Stat(name)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestGoimportsUnchanged(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "p.go")
	src := "package p\n\nvar x = 1\n"
	require.NoError(t, os.WriteFile(name, []byte(src), 0644))

	results, err := (&Goimports{FormatOnly: true}).Lint(context.Background(), []string{name})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed)
	assert.NoError(t, results[0].Err)
}

func TestGoimportsBadFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.go")
	require.NoError(t, os.WriteFile(bad, []byte("package p\n\nfunc {\n"), 0644))
	missing := filepath.Join(dir, "missing.go")

	results, err := (&Goimports{FormatOnly: true}).Lint(context.Background(), []string{bad, missing})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Error(t, results[1].Err)

	var buf bytes.Buffer
	assert.True(t, Print(&buf, results))
	assert.Contains(t, buf.String(), "goimports: ")
}

func TestCommand(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	c := &Command{Path: "/bin/sh", Args: []string{"-c", `echo linted "$@"`, "sh"}}
	results, err := c.Lint(context.Background(), []string{"a.go", "b.go"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "linted a.go b.go\n", results[0].Output)

	var buf bytes.Buffer
	assert.False(t, Print(&buf, results))
	assert.Equal(t, "linted a.go b.go\n", buf.String())
}

func TestCommandFailureIsReported(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	c := &Command{Path: "/bin/sh", Args: []string{"-c", "echo oops; exit 3", "sh"}}
	results, err := c.Lint(context.Background(), []string{"a.go"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)

	var buf bytes.Buffer
	assert.True(t, Print(&buf, results))
	assert.Contains(t, buf.String(), "oops\n")
}
