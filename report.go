// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/olekukonko/tablewriter"

	"rsc.io/sagafix/rewrite"
)

// printReport writes the run's counters and rewritten files as a table.
func printReport(w io.Writer, root string, res *rewrite.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Handled", "Skipped", "Files"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	table.Append([]string{
		fmt.Sprint(res.Handled),
		fmt.Sprint(res.Skipped),
		fmt.Sprint(len(res.Files)),
	})
	table.Render()

	if len(res.Files) == 0 {
		return
	}
	verb := "rewrote"
	if res.Written == nil {
		verb = "would rewrite"
	}
	for _, name := range res.Files {
		if rel, err := filepath.Rel(root, name); err == nil {
			name = rel
		}
		fmt.Fprintf(w, "%s %s\n", verb, filepath.ToSlash(name))
	}
}
