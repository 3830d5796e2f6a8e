// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The domcli tool drives the unrelational abstract domain core from the
// command line: inject registers and memory from configuration, evaluate
// expressions against the resulting state, and inspect the result, either
// one subcommand at a time (threading state through --state) or
// interactively via the repl subcommand.
//
// Run "domcli help" for a list of commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/domain"
	"github.com/taintcore/undom/internal/section"
)

var (
	flagState      string
	flagSections   string
	flagImage      string
	flagBigEndian  bool
	flagWordBits   int
)

func main() {
	root := &cobra.Command{
		Use:   "domcli",
		Short: "drive the unrelational abstract domain core from a shell",
	}
	root.PersistentFlags().StringVar(&flagState, "state", "domcli.state.json", "path to the session state file")
	root.PersistentFlags().StringVar(&flagSections, "sections", "", "path to a section table file (see 'domcli help load')")
	root.PersistentFlags().StringVar(&flagImage, "image", "", "path to the raw binary image to mmap as section backing")
	root.PersistentFlags().BoolVar(&flagBigEndian, "big-endian", false, "treat multi-byte reads/writes as big-endian")
	root.PersistentFlags().IntVar(&flagWordBits, "bits", 32, "default bit width for bare numeric literals")

	root.AddCommand(
		newLoadCmd(),
		newInitCmd(),
		newSetRegCmd(),
		newSetMemCmd(),
		newTaintRegCmd(),
		newTaintMemCmd(),
		newReadCmd(),
		newEvalCmd(),
		newAssignCmd(),
		newCompareCmd(),
		newPrintHexCmd(),
		newForgetCmd(),
		newReplCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildEngine constructs the engine for the current invocation: the
// cell-value factory is fixed to the concrete-with-taint reference
// instance (cellval.ConcreteFactory), and the section table/image are
// loaded fresh from --sections/--image every time, since they are
// read-only, process-wide collaborators a one-shot CLI invocation has no
// reason to persist across calls (spec.md §5).
func buildEngine() (*domain.Engine, error) {
	var sections *section.Map
	var img *section.Image

	if flagSections != "" {
		secs, err := parseSectionsFile(flagSections)
		if err != nil {
			return nil, err
		}
		sections = section.NewMap(secs)
	}
	if flagImage != "" {
		var err error
		img, err = section.OpenImage(flagImage)
		if err != nil {
			return nil, err
		}
	}
	return domain.NewEngine(cellval.ConcreteFactory{}, sections, img), nil
}
