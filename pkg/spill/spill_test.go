// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package spill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/mir"
)

func buildFn(blocks []string, succs map[string][]string, instrs map[string][]string) *mir.Function {
	fn := mir.NewFunction("f")
	for _, b := range blocks {
		fn.AddBlock(b)
	}
	for b, s := range succs {
		fn.Succs[b] = s
	}
	for b, ins := range instrs {
		fn.Instrs[b] = ins
	}
	return fn
}

func check(fn *mir.Function) []Issue {
	return Check(fn, mir.Dominators(fn))
}

func TestCheckSaveDominatesRestore(t *testing.T) {
	// A -> B, save in A, restore in B: valid.
	fn := buildFn(
		[]string{"bb.0", "bb.1"},
		map[string][]string{"bb.0": {"bb.1"}},
		map[string][]string{
			"bb.0": {"SI_SPILL_S32_SAVE killed renamable $sgpr2, %stack.3, implicit $exec"},
			"bb.1": {"renamable $sgpr2 = SI_SPILL_S32_RESTORE %stack.3, implicit $exec"},
		},
	)
	assert.Empty(t, check(fn))
}

func TestCheckRestoreNotDominated(t *testing.T) {
	// Entry -> A, Entry -> B; save only in A, restore in B.
	// B is reachable without passing through A.
	fn := buildFn(
		[]string{"bb.0", "bb.1", "bb.2"},
		map[string][]string{"bb.0": {"bb.1", "bb.2"}},
		map[string][]string{
			"bb.1": {"SI_SPILL_V32_SAVE killed renamable $vgpr0, %stack.3, implicit $exec"},
			"bb.2": {"renamable $vgpr0 = SI_SPILL_V32_RESTORE %stack.3, implicit $exec"},
		},
	)
	issues := check(fn)
	require.Len(t, issues, 1)
	assert.Equal(t, "f", issues[0].Function)
	assert.Equal(t, "bb.2", issues[0].Block)
	assert.Equal(t, 3, issues[0].Slot)
	assert.Equal(t, "restore not dominated by spill save", issues[0].Reason)
}

func TestCheckSameBlockPrecedence(t *testing.T) {
	// Save and restore of the same slot in one block, save first: valid
	// without any dominance evidence.
	fn := buildFn(
		[]string{"bb.0"},
		nil,
		map[string][]string{
			"bb.0": {
				"SI_SPILL_S32_SAVE killed renamable $sgpr5, %stack.5, implicit $exec",
				"renamable $sgpr5 = SI_SPILL_S32_RESTORE %stack.5, implicit $exec",
			},
		},
	)
	assert.Empty(t, check(fn))
}

func TestCheckSameBlockWrongOrder(t *testing.T) {
	// Restore textually before the only save: invalid.
	fn := buildFn(
		[]string{"bb.0"},
		nil,
		map[string][]string{
			"bb.0": {
				"renamable $sgpr5 = SI_SPILL_S32_RESTORE %stack.5, implicit $exec",
				"SI_SPILL_S32_SAVE killed renamable $sgpr5, %stack.5, implicit $exec",
			},
		},
	)
	issues := check(fn)
	require.Len(t, issues, 1)
	assert.Equal(t, 5, issues[0].Slot)
}

func TestCheckUpstreamSaveAnyIndex(t *testing.T) {
	// The save in a dominating block counts regardless of its position
	// relative to other instructions in that block.
	fn := buildFn(
		[]string{"bb.0", "bb.1"},
		map[string][]string{"bb.0": {"bb.1"}},
		map[string][]string{
			"bb.0": {
				"S_NOP 0",
				"SI_SPILL_S32_SAVE killed renamable $sgpr2, %stack.0, implicit $exec",
			},
			"bb.1": {"renamable $sgpr2 = SI_SPILL_S32_RESTORE %stack.0, implicit $exec"},
		},
	)
	assert.Empty(t, check(fn))
}

func TestCheckUnreachableBlock(t *testing.T) {
	// A restore in a block unreachable from the entry never reports:
	// the block keeps the full dominator set, which includes the saving
	// block. Deliberate conservative bias over dead code.
	fn := buildFn(
		[]string{"bb.0", "bb.1", "bb.2"},
		map[string][]string{"bb.0": {"bb.1"}},
		map[string][]string{
			"bb.1": {"SI_SPILL_S32_SAVE killed renamable $sgpr2, %stack.1, implicit $exec"},
			"bb.2": {"renamable $sgpr2 = SI_SPILL_S32_RESTORE %stack.1, implicit $exec"},
		},
	)
	assert.Empty(t, check(fn))
}

func TestCheckDistinctSlots(t *testing.T) {
	// A save of a different slot is no evidence.
	fn := buildFn(
		[]string{"bb.0", "bb.1"},
		map[string][]string{"bb.0": {"bb.1"}},
		map[string][]string{
			"bb.0": {"SI_SPILL_S32_SAVE killed renamable $sgpr2, %stack.1, implicit $exec"},
			"bb.1": {"renamable $sgpr2 = SI_SPILL_S32_RESTORE %stack.2, implicit $exec"},
		},
	)
	issues := check(fn)
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Slot)
}

func TestCheckIdempotent(t *testing.T) {
	fn := buildFn(
		[]string{"bb.0", "bb.1", "bb.2"},
		map[string][]string{"bb.0": {"bb.1", "bb.2"}},
		map[string][]string{
			"bb.1": {"SI_SPILL_V32_SAVE killed renamable $vgpr0, %stack.3, implicit $exec"},
			"bb.2": {
				"renamable $vgpr0 = SI_SPILL_V32_RESTORE %stack.3, implicit $exec",
				"renamable $vgpr1 = SI_SPILL_V32_RESTORE %stack.7, implicit $exec",
			},
		},
	)
	first := check(fn)
	second := check(fn)
	require.Equal(t, first, second)
	require.Len(t, first, 2)
	// Issues come out ordered by slot.
	assert.Equal(t, 3, first[0].Slot)
	assert.Equal(t, 7, first[1].Slot)
}

func TestViolationErrorEnumeratesAll(t *testing.T) {
	err := &ViolationError{Issues: []Issue{
		{Function: "f", Block: "bb.2", Slot: 3, Reason: "restore not dominated by spill save"},
		{Function: "f", Block: "bb.2", Slot: 7, Reason: "restore not dominated by spill save"},
	}}
	msg := err.Error()
	assert.Contains(t, msg, "2 spill dominance violation(s)")
	assert.Contains(t, msg, "%stack.3 in bb.2")
	assert.Contains(t, msg, "%stack.7 in bb.2")
}
