// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutate

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRegLimitsInsert(t *testing.T) {
	in := `define amdgpu_kernel void @saxpy(ptr %out) #0 {
entry:
  ret void
}
`
	out := ApplyRegLimits(in, 32, 16)
	assert.Contains(t, out, `define amdgpu_kernel void @saxpy(ptr %out) #0 "amdgpu-num-vgpr"="32" "amdgpu-num-sgpr"="16" {`)
}

func TestApplyRegLimitsOverwrite(t *testing.T) {
	in := `define void @f() "amdgpu-num-vgpr"="64" "amdgpu-num-sgpr"="48" {
  ret void
}
`
	out := ApplyRegLimits(in, 12, 24)
	assert.Contains(t, out, `"amdgpu-num-vgpr"="12"`)
	assert.Contains(t, out, `"amdgpu-num-sgpr"="24"`)
	assert.NotContains(t, out, `"amdgpu-num-vgpr"="64"`)
}

func TestApplyRegLimitsIdempotent(t *testing.T) {
	// Mutating a function lacking the attributes, then mutating again with
	// different values, leaves exactly one instance of each attribute
	// carrying the latest values.
	in := `define void @f() {
  ret void
}
`
	out := ApplyRegLimits(ApplyRegLimits(in, 32, 16), 100, 50)
	assert.Equal(t, 1, strings.Count(out, "amdgpu-num-vgpr"))
	assert.Equal(t, 1, strings.Count(out, "amdgpu-num-sgpr"))
	assert.Contains(t, out, `"amdgpu-num-vgpr"="100"`)
	assert.Contains(t, out, `"amdgpu-num-sgpr"="50"`)
}

func TestApplyRegLimitsMetadataStaysOutermost(t *testing.T) {
	in := `define void @f() !dbg !7 {
  ret void
}
`
	out := ApplyRegLimits(in, 32, 16)
	assert.Contains(t, out, `define void @f() "amdgpu-num-vgpr"="32" "amdgpu-num-sgpr"="16" !dbg !7 {`)
}

func TestApplyRegLimitsBraceOnNextLine(t *testing.T) {
	in := `define void @f() #0 !dbg !7
{
  ret void
}
`
	out := ApplyRegLimits(in, 32, 16)
	assert.Contains(t, out, `define void @f() #0 "amdgpu-num-vgpr"="32" "amdgpu-num-sgpr"="16" !dbg !7`)
}

func TestApplyRegLimitsMultipleFunctions(t *testing.T) {
	in := `define void @a() {
  ret void
}

define void @b() {
  ret void
}
`
	out := ApplyRegLimits(in, 8, 8)
	assert.Equal(t, 2, strings.Count(out, `"amdgpu-num-vgpr"="8"`))
	assert.Equal(t, 2, strings.Count(out, `"amdgpu-num-sgpr"="8"`))
}

func TestApplyRegLimitsLeavesDeclarations(t *testing.T) {
	in := `declare void @llvm.amdgcn.s.barrier()
`
	assert.Equal(t, in, ApplyRegLimits(in, 32, 16))
}

func TestRewriteMIRWrapped(t *testing.T) {
	in := `--- |
define void @f() {
  ret void
}
...
---
name: f
body: |
  bb.0:
    S_ENDPGM 0
...
`
	out := RewriteMIRWrapped(in, 32, 16)
	require.Contains(t, out, `"amdgpu-num-vgpr"="32"`)
	// The MIR section after the first "..." is untouched.
	assert.Contains(t, out, "name: f")
	assert.Contains(t, out, "S_ENDPGM 0")
	assert.True(t, strings.HasPrefix(out, "--- |"))
}

func TestRewriteMIRWrappedNoWrapper(t *testing.T) {
	in := "name: f\nbody: |\n  bb.0:\n    S_ENDPGM 0\n"
	assert.Equal(t, in, RewriteMIRWrapped(in, 32, 16))
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("/tmp/out", "/corpus/sub/kernel.ll", 32, 16)
	assert.Equal(t, filepath.Join("/tmp/out", "kernel.vgpr32.sgpr16.ll"), got)
}
