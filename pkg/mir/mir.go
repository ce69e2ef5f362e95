// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mir models the control flow of machine IR emitted by the backend
// and computes dominator sets over it.
package mir

// Function is the control-flow view of a single machine function.
// Blocks holds block ids in textual order; the first block is the entry.
// Instrs and Succs are keyed by block id. Instruction lines are opaque text,
// downstream checkers match on them with their own patterns.
type Function struct {
	Name   string
	Blocks []string
	Instrs map[string][]string
	Succs  map[string][]string
}

// NewFunction creates an empty function with the given name.
func NewFunction(name string) *Function {
	return &Function{
		Name:   name,
		Instrs: make(map[string][]string),
		Succs:  make(map[string][]string),
	}
}

// AddBlock registers a block id, creating it if it is new.
// Re-declaration of an existing id resets tracking for that block.
func (fn *Function) AddBlock(id string) {
	if _, ok := fn.Instrs[id]; !ok {
		fn.Blocks = append(fn.Blocks, id)
	}
	fn.Instrs[id] = nil
	fn.Succs[id] = nil
}

// Entry returns the entry block id, or "" for an empty function.
func (fn *Function) Entry() string {
	if len(fn.Blocks) == 0 {
		return ""
	}
	return fn.Blocks[0]
}
