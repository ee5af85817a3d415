// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Sagafix rewires action type constants to the actions that wrap them.
//
// Usage:
//
//	sagafix [flags] [root]
//	sagafix init [--root dir]
//
// Sagafix loads the Go module in root (default the current directory)
// and looks for calls that pass a bare all-caps constant to a
// subscription factory or to a wrapping factory:
//
//	saga.TakeLatest(FOO_TYPE, handleFoo)
//	saga.TakeLatest([]any{FOO_TYPE, BAR_TYPE}, handle)
//	saga.CreateAction(FOO_TYPE)
//
// For each such constant it finds the exported package-level variable
// elsewhere in the module that wraps the same constant,
//
//	package actions
//
//	var FOO = saga.CreateAction(FOO_TYPE)
//
// and refers to it instead:
//
//	saga.TakeLatest(actions.FOO, handleFoo)
//
// A variable that holds the wrapping call in a struct field or map entry
// is referenced through that field or key in subscriptions, as in
// actions.Fetch.Start or actions.Types["fetch"].
//
// Constants are matched by identity, following one level of aliasing
// (const FOO_TYPE = consts.FOO_TYPE). Qualified constants such as
// consts.FOO_TYPE are counted as skipped and left alone. When several
// declarations wrap a constant, the first found in file path order wins.
//
// The import of the declaring package is added, and the import a rewritten
// constant came through is deleted once nothing else in the file uses it.
//
// The module is loaded and analyzed twice. Files are written only when both
// passes would rewrite the same files and, unless -check=false, the result
// type-checks. The rewritten files are then passed to the lint tool
// (goimports by default); lint failures are reported but do not undo the
// rewrite. Runs of blank lines survive both gofmt and goimports.
//
// # Configuration
//
// Every flag has a key in .sagafix.yaml, read from the working directory
// or the root, and an environment variable with the SAGAFIX_ prefix, such as
// SAGAFIX_LINT_TOOL for lint.tool. A .env file in the working directory is
// loaded first. "sagafix init" writes the current settings to .sagafix.yaml.
//
// The -diff flag prints a unified diff of the intended changes instead of
// writing files. The -v flag logs every candidate call with its position.
package main
