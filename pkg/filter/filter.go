// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package filter decides whether a candidate module is valid input for the
// configured target before any mutation or compilation is attempted.
//
// Each known-incompatible feature class is one rule in a uniform table:
// a structural text match plus an optional target-family gate. A single
// positive match makes the module ineligible; ineligibility is not a
// failure, the iteration just skips the module.
package filter

import (
	"regexp"
	"strings"
)

// Rule is one applicability predicate. Match tests the module's raw text;
// Gate (optional) restricts the rule to target families that do not support
// the matched feature. A module is skipped when Match is true and Gate
// (if any) is true for the configured mcpu.
type Rule struct {
	Name   string
	Match  func(text string) bool
	Gate   func(mcpu string) bool
	Reason string
}

func reMatch(re *regexp.Regexp) func(string) bool {
	return func(text string) bool { return re.MatchString(text) }
}

func allOf(matches ...func(string) bool) func(string) bool {
	return func(text string) bool {
		for _, m := range matches {
			if !m(text) {
				return false
			}
		}
		return true
	}
}

// unlessFamily gates a rule off for the given mcpu prefixes (the families
// that do support the feature).
func unlessFamily(prefixes ...string) func(string) bool {
	return func(mcpu string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(mcpu, p) {
				return false
			}
		}
		return true
	}
}

// hasNonKernelDefine reports whether the module defines any function that
// is not an amdgpu_kernel entry point. (Go regexps have no lookahead, so
// this one predicate is a line scan instead of a pattern.)
func hasNonKernelDefine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "define") && !strings.Contains(line, "amdgpu_kernel") {
			return true
		}
	}
	return false
}

var rules = []Rule{
	{
		Name:   "non-hsa-shader-cc",
		Match:  reMatch(regexp.MustCompile(`\bamdgpu_(ps|vs|gs|hs|es|ls|cs)\b`)),
		Reason: "non-HSA shader calling convention",
	},
	{
		Name:   "shader-type-attr",
		Match:  reMatch(regexp.MustCompile(`"amdgpu-shader-type"\s*=\s*"\w+"`)),
		Reason: "non-HSA shader calling convention",
	},
	{
		Name:   "cs-chain-func",
		Match:  reMatch(regexp.MustCompile(`\bamdgpu_cs_chain_func\b`)),
		Reason: "non-HSA shader calling convention",
	},
	{
		Name:   "wmma",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.wmma\.`)),
		Gate:   unlessFamily("gfx11", "gfx12"),
		Reason: "wmma intrinsics unsupported on target",
	},
	{
		Name:   "flat-atomic-fadd",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.flat\.atomic\.fadd\b`)),
		Gate:   unlessFamily("gfx94", "gfx95"),
		Reason: "flat atomic fadd unsupported on target",
	},
	{
		Name:   "smfmac",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.smfmac\.`)),
		Gate:   unlessFamily("gfx95"),
		Reason: "smfmac intrinsics unsupported on target",
	},
	{
		Name:   "mfma",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.mfma\.`)),
		Gate:   unlessFamily("gfx90", "gfx94", "gfx95"),
		Reason: "mfma intrinsics unsupported on target",
	},
	{
		Name:   "fdot2",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.fdot2\.`)),
		Gate:   unlessFamily("gfx94", "gfx95"),
		Reason: "fdot2 intrinsics unsupported on target",
	},
	{
		Name: "atomic-fmax",
		Match: reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.(raw_ptr_buffer_atomic_fmax|raw_buffer_atomic_fmax|` +
			`struct_ptr_buffer_atomic_fmax|struct_buffer_atomic_fmax|image_atomic_fmax|flat_atomic_fmax|global_atomic_fmax)\b`)),
		Gate:   unlessFamily("gfx10", "gfx11", "gfx94", "gfx95"),
		Reason: "atomic fmax intrinsics unsupported on target",
	},
	{
		Name:   "opencl-printf",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.printf\b`)),
		Reason: "OpenCL printf",
	},
	{
		Name:   "r600",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.r600\.`)),
		Reason: "r600 intrinsics",
	},
	{
		Name:   "legacy-fma",
		Match:  reMatch(regexp.MustCompile(`\bllvm\.amdgcn\.fma\.legacy\b`)),
		Reason: "legacy fma intrinsic",
	},
	{
		Name:   "code-object-version",
		Match:  reMatch(regexp.MustCompile(`\bCODE_OBJECT_VERSION\b`)),
		Reason: "CODE_OBJECT_VERSION toolchain token",
	},
	{
		Name:   "dynamic-alloca",
		Match:  reMatch(regexp.MustCompile(`(?i)\balloca\b.*\baddrspace\(5\)`)),
		Reason: "dynamic alloca in private address space",
	},
	{
		Name: "lds-gds-non-kernel",
		Match: allOf(
			reMatch(regexp.MustCompile(`@[\w.$]+.*addrspace\((2|3)\)`)),
			hasNonKernelDefine,
		),
		Reason: "LDS/GDS globals referenced outside an entry function",
	},
	{
		Name:   "invalid-addrspacecast",
		Match:  reMatch(regexp.MustCompile(`(?i)\binvalid addrspacecast\b`)),
		Reason: "invalid addrspacecast marker",
	},
	{
		Name:   "gfx-calling-conv",
		Match:  reMatch(regexp.MustCompile(`\bamdgpu_gfx\b`)),
		Reason: "amdgpu_gfx calling convention for non-entry function",
	},
	{
		Name:   "workgroup-attr-fixture",
		Match:  reMatch(regexp.MustCompile(`\bamdgpu-max-num-workgroups\b`)),
		Reason: "workgroup attribute error fixture",
	},
	{
		Name:   "invalid-read-register-fixture",
		Match:  reMatch(regexp.MustCompile(`\btest_invalid_read_m0\b`)),
		Reason: "invalid read_register fixture",
	},
}

// Rules returns the rule table, mainly for tests.
func Rules() []Rule {
	return rules
}

// Check classifies the module text against the rule table for the given
// target. It returns the first matching rule's skip reason, or "" when the
// module is eligible.
func Check(text, mcpu string) string {
	for _, rule := range rules {
		if !rule.Match(text) {
			continue
		}
		if rule.Gate != nil && !rule.Gate(mcpu) {
			continue
		}
		return rule.Reason
	}
	return ""
}
