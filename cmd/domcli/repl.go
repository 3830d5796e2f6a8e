// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/taintcore/undom/internal/domain"
)

// newReplCmd starts an interactive session, holding one domain.State in
// memory across lines instead of round-tripping it through --state on
// every command the way the other subcommands do.
func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "start an interactive read-eval-print loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			return runRepl(eng)
		},
	}
}

func runRepl(eng *domain.Engine) error {
	rl, err := readline.New("undom> ")
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer rl.Close()

	st := domain.Init()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		next, quit := replDispatch(eng, st, line)
		if quit {
			return nil
		}
		if next != nil {
			st = next
		}
	}
}

// replDispatch handles one REPL line, returning the (possibly unchanged)
// state and whether the loop should exit. Errors are printed, not
// returned, so a typo in one line doesn't end the session.
func replDispatch(eng *domain.Engine, st *domain.State, line string) (*domain.State, bool) {
	fields := strings.SplitN(line, " ", 2)
	cmd := fields[0]
	rest := ""
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	switch cmd {
	case "quit", "exit":
		return nil, true

	case "bottom":
		return domain.Bot(), false

	case "eval":
		e, err := parseExprString(rest, flagWordBits)
		if err != nil {
			fmt.Println(err)
			return nil, false
		}
		v, tainted, err := eng.EvalExpr(st, e, flagBigEndian)
		if err != nil {
			fmt.Println(err)
			return nil, false
		}
		if err := printHexValue(eng, v); err != nil {
			fmt.Println(err)
		}
		if tainted {
			fmt.Println("(tainted)")
		}
		return nil, false

	case "assign":
		parts := strings.SplitN(rest, "=", 2)
		if len(parts) != 2 {
			fmt.Println("repl: usage: assign DST = SRC")
			return nil, false
		}
		dstExpr, err := parseExprString(strings.TrimSpace(parts[0]), flagWordBits)
		if err != nil {
			fmt.Println(err)
			return nil, false
		}
		dst, ok := dstExpr.(domain.Lval)
		if !ok {
			fmt.Println("repl: left side of assign must be an lvalue")
			return nil, false
		}
		src, err := parseExprString(strings.TrimSpace(parts[1]), flagWordBits)
		if err != nil {
			fmt.Println(err)
			return nil, false
		}
		next, _, err := eng.Set(st, dst, src, flagBigEndian)
		if err != nil {
			fmt.Println(err)
			return nil, false
		}
		return next, false

	case "warnings":
		for _, w := range eng.Warnings() {
			fmt.Println(w)
		}
		return nil, false

	case "help":
		fmt.Println("commands: eval EXPR | assign DST = SRC | bottom | warnings | quit")
		return nil, false

	default:
		fmt.Printf("repl: unknown command %q (try 'help')\n", cmd)
		return nil, false
	}
}
