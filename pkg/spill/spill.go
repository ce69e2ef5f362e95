// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package spill verifies the spill-dominance invariant: a reload from a
// spill slot must never execute on a path that did not first store to that
// slot. A violation means the register allocator (or an earlier pass)
// produced unsound spill placement.
package spill

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/mir"
)

// AMDGPU spill pseudo-instructions, e.g.
//	SI_SPILL_S32_SAVE killed renamable $sgpr2, %stack.0, ...
//	$sgpr2 = SI_SPILL_S32_RESTORE %stack.0, ...
var (
	saveRe    = regexp.MustCompile(`\bSI_SPILL_\w+_SAVE\b`)
	restoreRe = regexp.MustCompile(`\bSI_SPILL_\w+_RESTORE\b`)
	slotRe    = regexp.MustCompile(`%stack\.([0-9]+)`)
)

// Issue records one invalid spill restore.
type Issue struct {
	Function string
	Block    string
	Slot     int
	Reason   string
}

func (iss Issue) String() string {
	return fmt.Sprintf("%v: %%stack.%v in %v: %v", iss.Function, iss.Slot, iss.Block, iss.Reason)
}

// ViolationError carries the full issue list for one checked module;
// issues are never summarized or truncated.
type ViolationError struct {
	Issues []Issue
}

func (e *ViolationError) Error() string {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%v spill dominance violation(s):", len(e.Issues))
	for _, iss := range e.Issues {
		fmt.Fprintf(buf, "\n\t%v", iss)
	}
	return buf.String()
}

type event struct {
	block string
	index int
}

// Check verifies every spill-slot restore in fn against the dominator sets
// doms (from mir.Dominators). A restore in block b at index i of slot s is
// valid if an earlier save of s exists in b, or if any block in b's
// dominator set saves s. Unreachable blocks carry the full dominator set,
// so restores in dead code never report; that bias is deliberate.
func Check(fn *mir.Function, doms mir.DomSets) []Issue {
	saves := make(map[int][]event)
	restores := make(map[int][]event)
	for _, b := range fn.Blocks {
		for i, ins := range fn.Instrs[b] {
			m := slotRe.FindStringSubmatch(ins)
			if m == nil {
				continue
			}
			slot, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			switch {
			case saveRe.MatchString(ins):
				saves[slot] = append(saves[slot], event{b, i})
			case restoreRe.MatchString(ins):
				restores[slot] = append(restores[slot], event{b, i})
			}
		}
	}

	savedIn := make(map[int]map[string]bool)
	for slot, evs := range saves {
		blocks := make(map[string]bool)
		for _, ev := range evs {
			blocks[ev.block] = true
		}
		savedIn[slot] = blocks
	}

	slots := make([]int, 0, len(restores))
	for slot := range restores {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	var issues []Issue
	for _, slot := range slots {
		for _, restore := range restores[slot] {
			if restoreDominated(restore, saves[slot], savedIn[slot], doms) {
				continue
			}
			issues = append(issues, Issue{
				Function: fn.Name,
				Block:    restore.block,
				Slot:     slot,
				Reason:   "restore not dominated by spill save",
			})
		}
	}
	return issues
}

func restoreDominated(restore event, saves []event, savedIn map[string]bool, doms mir.DomSets) bool {
	// Same-block precedence: an earlier save in the same block is
	// sufficient without consulting dominance.
	for _, save := range saves {
		if save.block == restore.block && save.index < restore.index {
			return true
		}
	}
	// Otherwise some dominator of the restore's block must save the slot;
	// the intra-block position of that save does not matter, the save
	// completes before control leaves its block.
	for d := range doms[restore.block] {
		if d != restore.block && savedIn[d] {
			return true
		}
	}
	return false
}
