// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mir

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// The textual MIR format is owned by the LLVM toolchain and changes between
// releases. The parser is deliberately permissive: it picks out the lines it
// understands (function names, body sections, block labels, successor lists)
// and skips everything else, so that unrelated upstream syntax changes do
// not break the harness.
var (
	funcNameRe  = regexp.MustCompile(`^name:\s+([\w.$@-]+)`)
	bodyRe      = regexp.MustCompile(`^body:`)
	blockDeclRe = regexp.MustCompile(`^\s*(bb\.[0-9]+)[^:]*:\s*$`)
	succListRe  = regexp.MustCompile(`^\s*successors:\s*(.*)$`)
	blockRefRe  = regexp.MustCompile(`%(bb\.[0-9]+)`)
)

// Parse extracts the control-flow model from textual MIR output of the
// backend. Lines that do not match any known form are silently skipped.
// Multiple machine functions per document set are supported.
func Parse(out []byte) []*Function {
	var fns []*Function
	var fn *Function
	inBody := false
	cur := ""

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)
	for sc.Scan() {
		line := sc.Text()
		if m := funcNameRe.FindStringSubmatch(line); m != nil {
			fn = NewFunction(m[1])
			fns = append(fns, fn)
			inBody = false
			cur = ""
			continue
		}
		if fn == nil {
			continue
		}
		if bodyRe.MatchString(line) {
			inBody = true
			cur = ""
			continue
		}
		if !inBody {
			continue
		}
		if m := blockDeclRe.FindStringSubmatch(line); m != nil {
			cur = m[1]
			fn.AddBlock(cur)
			continue
		}
		if cur == "" {
			continue
		}
		if m := succListRe.FindStringSubmatch(line); m != nil {
			// Keep only block ids, dropping branch weight annotations
			// like %bb.1(0x40000000).
			var succs []string
			for _, ref := range blockRefRe.FindAllStringSubmatch(m[1], -1) {
				succs = append(succs, ref[1])
			}
			fn.Succs[cur] = succs
			continue
		}
		text := strings.TrimSpace(line)
		if text == "" || text == "---" || text == "..." ||
			strings.HasPrefix(text, ";") || strings.HasPrefix(text, "#") {
			continue
		}
		fn.Instrs[cur] = append(fn.Instrs[cur], text)
	}
	return fns
}
