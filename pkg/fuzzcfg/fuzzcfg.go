// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzcfg holds the run-level configuration, the eligible input
// corpus and the per-iteration configuration sampling.
package fuzzcfg

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/log"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/osutil"
)

// Config is the run-level configuration built from CLI flags.
// It is immutable for the duration of the run.
type Config struct {
	Corpus              string
	LLC                 string
	MCPU                string
	Passes              string
	Iterations          int
	Seed                int64
	MinVGPR             int
	MaxVGPR             int
	MinSGPR             int
	MaxSGPR             int
	VerifyMachineInstrs bool
	SpillSGPRToVGPR     string // "on", "off" or "" (leave backend default)
	GPUCmd              string
	OutDir              string
	HTTP                string
}

// FuzzConfig is the per-iteration configuration: one corpus module plus one
// sampled point in the register-budget space. Constructed fresh by Generate
// each iteration, never mutated afterwards.
type FuzzConfig struct {
	Module              string
	LLC                 string
	MCPU                string
	Passes              string
	VerifyMachineInstrs bool
	NumVGPR             int
	NumSGPR             int
	SpillSGPRToVGPR     *bool // nil leaves the backend default
}

var ErrEmptyCorpus = errors.New("no .ll inputs found in corpus")

// LoadCorpus enumerates eligible module paths under dir, once, sorted for
// determinism. The corpus is immutable for the run's duration.
func LoadCorpus(dir string) ([]string, error) {
	var inputs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".ll") {
			inputs = append(inputs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate corpus %v: %w", dir, err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCorpus, dir)
	}
	sort.Strings(inputs)
	return inputs, nil
}

// Generate draws one iteration's configuration from rng. The draw order is
// fixed (module, then vgpr, then sgpr) so that a fixed seed reproduces an
// identical sequence of (module, vgpr, sgpr) tuples across runs.
func (cfg *Config) Generate(rng *rand.Rand, corpus []string) *FuzzConfig {
	module := corpus[rng.Intn(len(corpus))]
	vgpr := cfg.MinVGPR + rng.Intn(cfg.MaxVGPR-cfg.MinVGPR+1)
	sgpr := cfg.MinSGPR + rng.Intn(cfg.MaxSGPR-cfg.MinSGPR+1)

	var spill *bool
	switch cfg.SpillSGPRToVGPR {
	case "on":
		v := true
		spill = &v
	case "off":
		v := false
		spill = &v
	}
	return &FuzzConfig{
		Module:              module,
		LLC:                 cfg.LLC,
		MCPU:                cfg.MCPU,
		Passes:              cfg.Passes,
		VerifyMachineInstrs: cfg.VerifyMachineInstrs,
		NumVGPR:             vgpr,
		NumSGPR:             sgpr,
		SpillSGPRToVGPR:     spill,
	}
}

// ResolvePass picks the pass used as the -stop-after point from a
// comma-separated pass list. Only the first named pass is used for
// inspection; the rest are noted and ignored.
func ResolvePass(passes string) string {
	var list []string
	for _, p := range strings.Split(passes, ",") {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	if len(list) == 0 {
		return "greedy"
	}
	if len(list) > 1 {
		log.Logf(0, "using only first pass for -stop-after: %v", list[0])
	}
	return list[0]
}

// ROCm installation prefixes probed when the configured llc path does not
// exist.
var llcProbes = []string{
	"/opt/rocm/lib/llvm/bin/llc",
	"/opt/rocm-*/lib/llvm/bin/llc",
	"/opt/rocm-*/llvm/bin/llc",
}

// ResolveLLC resolves the backend binary: an explicit executable path wins,
// then conventional ROCm prefixes, then PATH. An unresolved name is passed
// through so that the external invocation itself fails.
func ResolveLLC(llc string) string {
	if osutil.IsExecutable(llc) {
		return llc
	}
	if strings.ContainsRune(llc, os.PathSeparator) {
		for _, probe := range llcProbes {
			matches, _ := filepath.Glob(probe)
			sort.Strings(matches)
			for _, candidate := range matches {
				if osutil.IsExecutable(candidate) {
					log.Logf(0, "llc not found at %v, using %v", llc, candidate)
					return candidate
				}
			}
		}
	}
	if resolved := osutil.LookPath(llc); resolved != llc {
		log.Logf(1, "using llc from PATH: %v", resolved)
		return resolved
	}
	return llc
}

// PreCheckArgs builds the llc argument list for the verification-only stage
// run before the pass under test: a structural violation here predates the
// transformation and fails the iteration early.
func (fc *FuzzConfig) PreCheckArgs(modulePath string) []string {
	args := []string{
		"-mtriple=amdgcn-amd-amdhsa",
		"-mcpu=" + fc.MCPU,
		"-stop-after=finalize-isel",
		"-verify-machineinstrs",
		"-o", os.DevNull,
		modulePath,
	}
	return fc.appendSpillFlag(args)
}

// TransformArgs builds the llc argument list for the transformation stage.
// MIR is emitted on stdout (-o -) so the static oracle can parse it.
func (fc *FuzzConfig) TransformArgs(modulePath string) []string {
	args := []string{
		"-mtriple=amdgcn-amd-amdhsa",
		"-mcpu=" + fc.MCPU,
		"-stop-after=" + ResolvePass(fc.Passes),
		"-o", "-",
		modulePath,
	}
	if fc.VerifyMachineInstrs {
		args = append(args, "-verify-machineinstrs")
	}
	return fc.appendSpillFlag(args)
}

func (fc *FuzzConfig) appendSpillFlag(args []string) []string {
	if fc.SpillSGPRToVGPR != nil {
		v := "0"
		if *fc.SpillSGPRToVGPR {
			v = "1"
		}
		args = append(args, "-amdgpu-spill-sgpr-to-vgpr="+v)
	}
	return args
}
