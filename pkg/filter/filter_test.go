// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckEligible(t *testing.T) {
	in := `define amdgpu_kernel void @saxpy(ptr %out) {
entry:
  %v = call i32 @llvm.amdgcn.workitem.id.x()
  ret void
}
`
	assert.Empty(t, Check(in, "gfx90a"))
}

func TestCheckGatedByTarget(t *testing.T) {
	in := `define amdgpu_kernel void @k() {
  %r = call <8 x float> @llvm.amdgcn.wmma.f32.16x16x16.f16(...)
  ret void
}
`
	// wmma needs gfx11/gfx12.
	assert.Equal(t, "wmma intrinsics unsupported on target", Check(in, "gfx90a"))
	assert.Empty(t, Check(in, "gfx1100"))
	assert.Empty(t, Check(in, "gfx1201"))
}

func TestCheckMFMAFamilies(t *testing.T) {
	in := `declare <32 x float> @llvm.amdgcn.mfma.f32.32x32x1f32(...)` + "\n"
	assert.Empty(t, Check(in, "gfx90a"))
	assert.Empty(t, Check(in, "gfx942"))
	assert.Equal(t, "mfma intrinsics unsupported on target", Check(in, "gfx1030"))
}

func TestCheckUngatedRules(t *testing.T) {
	for _, tc := range []struct {
		text   string
		reason string
	}{
		{`call void @llvm.amdgcn.printf(ptr %fmt)`, "OpenCL printf"},
		{`call float @llvm.r600.recipsqrt.clamped(float %x)`, "r600 intrinsics"},
		{`call float @llvm.amdgcn.fma.legacy(float %a, float %b, float %c)`, "legacy fma intrinsic"},
		{`; CODE_OBJECT_VERSION selector`, "CODE_OBJECT_VERSION toolchain token"},
		{`%p = alloca i32, i32 %n, addrspace(5)`, "dynamic alloca in private address space"},
		{`; this is an invalid addrspacecast test`, "invalid addrspacecast marker"},
		{`define amdgpu_gfx void @callee() {`, "amdgpu_gfx calling convention for non-entry function"},
		{`attributes #0 = { "amdgpu-max-num-workgroups"="1,1,1" }`, "workgroup attribute error fixture"},
		{`define amdgpu_kernel void @test_invalid_read_m0() {`, "invalid read_register fixture"},
		{`define amdgpu_ps void @shader() {`, "non-HSA shader calling convention"},
	} {
		assert.Equal(t, tc.reason, Check(tc.text, "gfx90a"), "input: %s", tc.text)
	}
}

func TestCheckLDSGDSComposite(t *testing.T) {
	lds := "@shared = addrspace(3) global [64 x float] poison\n"
	kernelOnly := lds + "define amdgpu_kernel void @k() {\n  ret void\n}\n"
	withHelper := kernelOnly + "define void @helper() {\n  ret void\n}\n"

	// LDS globals are fine while every define is a kernel entry.
	assert.Empty(t, Check(kernelOnly, "gfx90a"))
	assert.Equal(t, "LDS/GDS globals referenced outside an entry function", Check(withHelper, "gfx90a"))
}

func TestRulesIndependentlyTestable(t *testing.T) {
	byName := make(map[string]Rule)
	for _, r := range Rules() {
		byName[r.Name] = r
	}
	smfmac := byName["smfmac"]
	assert.True(t, smfmac.Match("call @llvm.amdgcn.smfmac.f32.16x16x32.f16(...)"))
	assert.False(t, smfmac.Match("call @llvm.amdgcn.mfma.f32.32x32x1f32(...)"))
	assert.True(t, smfmac.Gate("gfx90a"))
	assert.False(t, smfmac.Gate("gfx950"))
}
