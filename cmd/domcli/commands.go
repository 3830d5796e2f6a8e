// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/dimension"
	"github.com/taintcore/undom/internal/domain"
	"github.com/taintcore/undom/internal/mach"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "write a fresh, empty session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveSession(flagState, newSession())
		},
	}
}

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "load the section table and image and print the section table",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			if eng.Sections == nil {
				fmt.Println("(no --sections given)")
				return nil
			}
			for _, s := range eng.Sections.Sections() {
				fmt.Printf("%-16s virt=%s+%#x raw=%#x+%#x\n", s.Name, s.VirtAddr, s.VirtSize, s.RawAddr, s.RawSize)
			}
			return nil
		},
	}
}

// contentFlags are the flags shared by set-reg and set-mem for describing
// a configured initial value (spec.md §4.8's Content variants).
type contentFlags struct {
	concrete string
	mask     string
	bytes    string
	region   string
	taint    string
}

func (f *contentFlags) register(fs *cobra.Command) {
	fs.Flags().StringVar(&f.concrete, "concrete", "", "initial value as a decimal or 0x-prefixed integer")
	fs.Flags().StringVar(&f.mask, "mask", "", "bitmask to apply to --concrete or --bytes")
	fs.Flags().StringVar(&f.bytes, "bytes", "", "initial value as a literal byte string")
	fs.Flags().StringVar(&f.region, "region", "global", "memory region tag: global, stack or heap")
	fs.Flags().StringVar(&f.taint, "taint", "none", `taint pattern: "all", "none", or "mask:0x..."`)
}

func (f *contentFlags) content() (config.Content, error) {
	switch {
	case f.bytes != "" && f.mask != "":
		m, err := parseBig(f.mask)
		if err != nil {
			return config.Content{}, err
		}
		return config.BytesMaskedContent(f.bytes, m), nil
	case f.bytes != "":
		return config.BytesContent(f.bytes), nil
	case f.concrete != "" && f.mask != "":
		z, err := parseBig(f.concrete)
		if err != nil {
			return config.Content{}, err
		}
		m, err := parseBig(f.mask)
		if err != nil {
			return config.Content{}, err
		}
		return config.ConcreteMaskedContent(z, m), nil
	case f.concrete != "":
		z, err := parseBig(f.concrete)
		if err != nil {
			return config.Content{}, err
		}
		return config.ConcreteContent(z), nil
	default:
		return config.Content{}, fmt.Errorf("commands: one of --concrete or --bytes is required")
	}
}

func (f *contentFlags) taintConfig() (config.Taint, error) {
	switch {
	case f.taint == "all":
		return config.AllTaint, nil
	case f.taint == "none", f.taint == "":
		return config.NoTaint, nil
	case strings.HasPrefix(f.taint, "mask:"):
		m, err := parseBig(strings.TrimPrefix(f.taint, "mask:"))
		if err != nil {
			return config.Taint{}, err
		}
		return config.Taint{Mask: m}, nil
	default:
		return config.Taint{}, fmt.Errorf("commands: unrecognised --taint value %q", f.taint)
	}
}

func parseBig(s string) (*big.Int, error) {
	z, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("commands: bad integer literal %q", s)
	}
	return z, nil
}

func newSetRegCmd() *cobra.Command {
	var cf contentFlags
	cmd := &cobra.Command{
		Use:   "set-reg NAME",
		Short: "install a configured initial value into a register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := lookupRegister(args[0])
			if err != nil {
				return err
			}
			content, err := cf.content()
			if err != nil {
				return err
			}
			taintCfg, err := cf.taintConfig()
			if err != nil {
				return err
			}
			return withSession(func(eng *domain.Engine, st *domain.State) (*domain.State, error) {
				return eng.SetRegisterFromConfig(st, reg, regionFromString(cf.region), content, taintCfg)
			})
		},
	}
	cf.register(cmd)
	return cmd
}

func newSetMemCmd() *cobra.Command {
	var cf contentFlags
	var nb, operandBits int
	cmd := &cobra.Command{
		Use:   "set-mem ADDR",
		Short: "install a configured initial value into memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("commands: bad address %q: %w", args[0], err)
			}
			content, err := cf.content()
			if err != nil {
				return err
			}
			taintCfg, err := cf.taintConfig()
			if err != nil {
				return err
			}
			return withSession(func(eng *domain.Engine, st *domain.State) (*domain.State, error) {
				return eng.SetMemoryFromConfig(st, mach.Address(addr), regionFromString(cf.region), content, taintCfg, nb, operandBits)
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().IntVar(&nb, "nb", 1, "number of bytes to fill (>1 requests a repeated single-byte fill)")
	cmd.Flags().IntVar(&operandBits, "operand-bits", flagWordBits, "operand width used to size a concrete content's byte count")
	return cmd
}

func newTaintRegCmd() *cobra.Command {
	var taintStr string
	cmd := &cobra.Command{
		Use:   "taint-reg NAME",
		Short: "apply a taint pattern to an already-installed register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := lookupRegister(args[0])
			if err != nil {
				return err
			}
			cf := contentFlags{taint: taintStr}
			taintCfg, err := cf.taintConfig()
			if err != nil {
				return err
			}
			return withSession(func(eng *domain.Engine, st *domain.State) (*domain.State, error) {
				return eng.TaintRegisterMask(st, reg, taintCfg)
			})
		},
	}
	cmd.Flags().StringVar(&taintStr, "taint", "all", `taint pattern: "all", "none", or "mask:0x..."`)
	return cmd
}

func newTaintMemCmd() *cobra.Command {
	var taintStr string
	cmd := &cobra.Command{
		Use:   "taint-mem ADDR",
		Short: "apply a taint pattern to an already-installed memory cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("commands: bad address %q: %w", args[0], err)
			}
			cf := contentFlags{taint: taintStr}
			taintCfg, err := cf.taintConfig()
			if err != nil {
				return err
			}
			return withSession(func(eng *domain.Engine, st *domain.State) (*domain.State, error) {
				return eng.TaintAddressMask(st, mach.Address(addr), taintCfg)
			})
		},
	}
	cmd.Flags().StringVar(&taintStr, "taint", "all", `taint pattern: "all", "none", or "mask:0x..."`)
	return cmd
}

func newReadCmd() *cobra.Command {
	var bits int
	cmd := &cobra.Command{
		Use:   "read ADDR",
		Short: "read size-bits starting at ADDR and print it as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("commands: bad address %q: %w", args[0], err)
			}
			if bits == 0 {
				bits = flagWordBits
			}
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			sess, err := loadSession(flagState)
			if err != nil {
				return err
			}
			st := sess.toState()
			if st.IsBot() {
				fmt.Println("bottom")
				return nil
			}
			v, err := eng.GetMemValue(st.Env(), mach.Address(addr), bits, flagBigEndian)
			if err != nil {
				return err
			}
			return printHexValue(eng, v)
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 0, "read width in bits (defaults to --bits/-bits global default)")
	return cmd
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval EXPR",
		Short: "evaluate an expression against the current session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := parseExprString(args[0], flagWordBits)
			if err != nil {
				return err
			}
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			sess, err := loadSession(flagState)
			if err != nil {
				return err
			}
			st := sess.toState()
			if st.IsBot() {
				fmt.Println("bottom")
				return nil
			}
			v, tainted, err := eng.EvalExpr(st, e, flagBigEndian)
			if err != nil {
				return err
			}
			if err := printHexValue(eng, v); err != nil {
				return err
			}
			if tainted {
				fmt.Println("(tainted)")
			}
			return nil
		},
	}
	return cmd
}

func newAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign DST SRC",
		Short: "evaluate SRC and write it to lvalue DST",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dstExpr, err := parseExprString(args[0], flagWordBits)
			if err != nil {
				return err
			}
			dst, ok := dstExpr.(domain.Lval)
			if !ok {
				return fmt.Errorf("commands: %q is not an lvalue", args[0])
			}
			src, err := parseExprString(args[1], flagWordBits)
			if err != nil {
				return err
			}
			return withSession(func(eng *domain.Engine, st *domain.State) (*domain.State, error) {
				next, _, err := eng.Set(st, dst, src, flagBigEndian)
				return next, err
			})
		},
	}
	return cmd
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare E1 CMP E2",
		Short: "restrict the session state to where E1 CMP E2 holds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e1, err := parseExprString(args[0], flagWordBits)
			if err != nil {
				return err
			}
			cmp, err := cmpFromFlagText(args[1])
			if err != nil {
				return err
			}
			e2, err := parseExprString(args[2], flagWordBits)
			if err != nil {
				return err
			}
			return withSession(func(eng *domain.Engine, st *domain.State) (*domain.State, error) {
				next, _, err := eng.Compare(st, e1, cmp, e2, flagBigEndian)
				return next, err
			})
		},
	}
	return cmd
}

func cmpFromFlagText(s string) (cellval.Cmp, error) {
	switch s {
	case "eq", "==":
		return cellval.EQ, nil
	case "neq", "!=":
		return cellval.NEQ, nil
	case "ltu":
		return cellval.LTU, nil
	case "leu":
		return cellval.LEU, nil
	case "gtu":
		return cellval.GTU, nil
	case "geu":
		return cellval.GEU, nil
	case "lts":
		return cellval.LTS, nil
	case "les":
		return cellval.LES, nil
	case "gts":
		return cellval.GTS, nil
	case "ges":
		return cellval.GES, nil
	default:
		return 0, fmt.Errorf("commands: unknown comparator %q", s)
	}
}

func newPrintHexCmd() *cobra.Command {
	var capitalize, full bool
	cmd := &cobra.Command{
		Use:   "print-hex EXPR",
		Short: "evaluate EXPR and print it in the intrinsic hex format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := parseExprString(args[0], flagWordBits)
			if err != nil {
				return err
			}
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			sess, err := loadSession(flagState)
			if err != nil {
				return err
			}
			st := sess.toState()
			if st.IsBot() {
				fmt.Println("bottom")
				return nil
			}
			if err := eng.PrintHex(st, e, capitalize, full, flagBigEndian); err != nil {
				return err
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&capitalize, "capitalize", false, "use uppercase hex digits")
	cmd.Flags().BoolVar(&full, "full", false, "append !taintmask when the value is tainted")
	return cmd
}

func newForgetCmd() *cobra.Command {
	var regName string
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "forget every cell (or, with --reg, keep one register's taint)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(eng *domain.Engine, st *domain.State) (*domain.State, error) {
				var dim *dimension.Dimension
				if regName != "" {
					reg, err := lookupRegister(regName)
					if err != nil {
						return nil, err
					}
					d := dimension.Reg(reg)
					dim = &d
				}
				return eng.Forget(st, dim), nil
			})
		},
	}
	cmd.Flags().StringVar(&regName, "reg", "", "register whose taint should survive the forget")
	return cmd
}

func printHexValue(eng *domain.Engine, v cellval.Value) error {
	s, err := domain.ToHex(v, v.Bits(), false, true)
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}

// withSession loads the session state, applies f, and saves the result
// back to --state. f receives the freshly built engine and current state.
func withSession(f func(eng *domain.Engine, st *domain.State) (*domain.State, error)) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	sess, err := loadSession(flagState)
	if err != nil {
		return err
	}
	st := sess.toState()
	next, err := f(eng, st)
	if err != nil {
		return err
	}
	out, err := fromState(next)
	if err != nil {
		return err
	}
	return saveSession(flagState, out)
}
