// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutate rewrites LLVM IR function definitions to carry the
// register budgets chosen for an iteration.
package mutate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	vgprAttrRe = regexp.MustCompile(`"amdgpu-num-vgpr"="[0-9]+"`)
	sgprAttrRe = regexp.MustCompile(`"amdgpu-num-sgpr"="[0-9]+"`)
)

// ApplyRegLimits sets the amdgpu-num-vgpr/amdgpu-num-sgpr attributes on
// every function definition in the IR text. Existing attributes are
// overwritten in place, so repeated mutation leaves exactly one instance of
// each attribute carrying the latest values. Missing attributes are
// inserted immediately before the function body's opening brace, and before
// any trailing metadata reference (" !...") so that metadata stays the
// outermost trailing element of the definition line.
func ApplyRegLimits(text string, vgpr, sgpr int) string {
	lines := strings.Split(text, "\n")
	inDefine := false
	pendingInsert := false
	insert := fmt.Sprintf(` "amdgpu-num-vgpr"="%v" "amdgpu-num-sgpr"="%v"`, vgpr, sgpr)

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "define ") {
			inDefine = true
			pendingInsert = true
		}
		if inDefine {
			switch {
			case strings.Contains(line, "amdgpu-num-vgpr") || strings.Contains(line, "amdgpu-num-sgpr"):
				line = vgprAttrRe.ReplaceAllString(line, fmt.Sprintf(`"amdgpu-num-vgpr"="%v"`, vgpr))
				line = sgprAttrRe.ReplaceAllString(line, fmt.Sprintf(`"amdgpu-num-sgpr"="%v"`, sgpr))
				pendingInsert = false
			case pendingInsert && strings.Contains(line, "{"):
				braceIdx := strings.Index(line, "{")
				metaIdx := strings.Index(line, " !")
				if metaIdx != -1 && metaIdx < braceIdx {
					line = line[:metaIdx] + insert + line[metaIdx:]
				} else {
					line = strings.TrimRight(line[:braceIdx], " ") + insert + " " + line[braceIdx:]
				}
				pendingInsert = false
			case pendingInsert && strings.TrimSpace(line) == "{":
				// Brace on its own line: the attributes belong on the
				// preceding definition line.
				if i > 0 {
					lines[i-1] = insertBeforeMetadata(lines[i-1], insert)
				}
				pendingInsert = false
			}
		}
		if inDefine && strings.HasPrefix(line, "}") {
			inDefine = false
			pendingInsert = false
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func insertBeforeMetadata(line, attrs string) string {
	if metaIdx := strings.Index(line, " !"); metaIdx != -1 {
		return line[:metaIdx] + attrs + line[metaIdx:]
	}
	return line + attrs
}

// RewriteMIRWrapped applies ApplyRegLimits to the embedded IR section of a
// MIR file ("--- | <ir> ..."). Text without the wrapper is returned
// unchanged.
func RewriteMIRWrapped(text string, vgpr, sgpr int) string {
	pre, rest, ok := strings.Cut(text, "--- |")
	if !ok {
		return text
	}
	ir, post, ok := strings.Cut(rest, "...")
	if !ok {
		return text
	}
	return pre + "--- |" + ApplyRegLimits(ir, vgpr, sgpr) + "..." + post
}

// OutputPath derives the rewritten module's path from the source stem and
// the chosen budgets. Budgets vary across iterations, so outputs are never
// overwritten.
func OutputPath(outDir, srcPath string, vgpr, sgpr int) string {
	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	return filepath.Join(outDir, fmt.Sprintf("%v.vgpr%v.sgpr%v.ll", stem, vgpr, sgpr))
}
