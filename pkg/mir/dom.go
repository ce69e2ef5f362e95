// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mir

// DomSets maps a block id to the set of block ids that dominate it,
// including the block itself.
type DomSets map[string]map[string]bool

// Dominators computes dominator sets for fn with the classic iterative
// dataflow fixpoint: the entry block is dominated only by itself, every
// other block starts with the full block set and is repeatedly recomputed
// as {self} ∪ intersection over its predecessors until nothing changes.
// Sets shrink monotonically and are bounded below by {self}, so the loop
// terminates.
//
// A block that is unreachable from the entry never loses its initial full
// set. Callers must treat that as "unreachable", not as a real dominance
// fact; the spill checker relies on it to stay quiet about dead code.
func Dominators(fn *Function) DomSets {
	if len(fn.Blocks) == 0 {
		return nil
	}
	entry := fn.Entry()

	preds := make(map[string][]string)
	for _, b := range fn.Blocks {
		for _, s := range fn.Succs[b] {
			preds[s] = append(preds[s], b)
		}
	}

	dom := make(DomSets, len(fn.Blocks))
	dom[entry] = map[string]bool{entry: true}
	for _, b := range fn.Blocks[1:] {
		full := make(map[string]bool, len(fn.Blocks))
		for _, id := range fn.Blocks {
			full[id] = true
		}
		dom[b] = full
	}

	for changed := true; changed; {
		changed = false
		for _, b := range fn.Blocks[1:] {
			if len(preds[b]) == 0 {
				continue
			}
			next := intersectDoms(dom, preds[b])
			next[b] = true
			if !sameSet(next, dom[b]) {
				dom[b] = next
				changed = true
			}
		}
	}
	return dom
}

func intersectDoms(dom DomSets, preds []string) map[string]bool {
	out := make(map[string]bool, len(dom[preds[0]]))
	for id := range dom[preds[0]] {
		out[id] = true
	}
	for _, p := range preds[1:] {
		for id := range out {
			if !dom[p][id] {
				delete(out, id)
			}
		}
	}
	return out
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}
