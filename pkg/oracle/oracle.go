// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package oracle judges the output of one fuzz iteration. Two oracles
// exist: the static oracle checks the spill-dominance invariant over the
// transformed MIR, the hardware oracle hands the mutated module to an
// external runner and trusts its exit status. The orchestrator is
// parameterized over this interface instead of duplicating the iteration
// logic per oracle.
package oracle

import (
	"errors"
	"fmt"

	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/log"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/mir"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/osutil"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/spill"
)

// Artifact is what one iteration produced: the mutated module on disk and
// the captured textual output of the transformation stage.
type Artifact struct {
	ModulePath   string
	TransformOut []byte
}

type Oracle interface {
	Name() string
	Verify(art *Artifact) error
}

// Static parses the transformed MIR, computes dominator sets per function
// and checks every spill restore against them.
type Static struct{}

func (Static) Name() string {
	return "static"
}

func (Static) Verify(art *Artifact) error {
	var issues []spill.Issue
	for _, fn := range mir.Parse(art.TransformOut) {
		issues = append(issues, spill.Check(fn, mir.Dominators(fn))...)
	}
	if len(issues) != 0 {
		return &spill.ViolationError{Issues: issues}
	}
	return nil
}

// Hardware executes an external runner with the mutated module's path as
// its only positional argument.
type Hardware struct {
	Cmd []string
}

func (*Hardware) Name() string {
	return "hardware"
}

func (h *Hardware) Verify(art *Artifact) error {
	args := append(append([]string(nil), h.Cmd[1:]...), art.ModulePath)
	cmd := osutil.Command(h.Cmd[0], args...)
	log.Logf(2, "running hardware oracle: %v", cmd.Args)
	_, stderr, err := osutil.Run(cmd)
	if err != nil {
		return fmt.Errorf("hardware oracle failed: %w\n%s", err, stderr)
	}
	return nil
}

var ErrUnresolvedCommand = errors.New("oracle command not found or not executable")

// ResolveCommand shell-tokenizes an oracle command string and resolves its
// first token like an executable (explicit path, then PATH). An unresolved
// command is a setup failure, reported before any iteration runs.
func ResolveCommand(s string) ([]string, error) {
	argv, err := splitCommand(s)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrUnresolvedCommand)
	}
	if osutil.IsExecutable(argv[0]) {
		return argv, nil
	}
	resolved := osutil.LookPath(argv[0])
	if resolved == argv[0] && !osutil.IsExecutable(argv[0]) {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedCommand, argv[0])
	}
	argv[0] = resolved
	return argv, nil
}

// splitCommand tokenizes s with shell-style quoting: whitespace separates
// tokens, single and double quotes group them.
func splitCommand(s string) ([]string, error) {
	var argv []string
	var cur []rune
	var quote rune
	inToken := false
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur = append(cur, r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				argv = append(argv, string(cur))
				cur = cur[:0]
				inToken = false
			}
		default:
			cur = append(cur, r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unbalanced quote in command: %q", s)
	}
	if inToken {
		argv = append(argv, string(cur))
	}
	return argv, nil
}
