// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// spill-fuzz is a configuration fuzzer for the AMDGPU register allocator:
// it varies register budgets and pass settings against an LLVM IR corpus,
// runs llc under each configuration and checks that every spill restore is
// dominated by a save, optionally cross-checking on a GPU oracle.
//
// Exit codes: 0 all iterations passed, 1 one or more iterations failed,
// 2 setup failure.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/fuzzcfg"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/harness"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/log"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/osutil"
)

var (
	flagCorpus     = flag.String("corpus", "", "directory with .ll input modules")
	flagLLC        = flag.String("llc", envOr("LLC", "llc"), "llc binary (path or name resolved via ROCm prefixes and PATH)")
	flagMCPU       = flag.String("mcpu", "gfx90a", "target architecture")
	flagPasses     = flag.String("passes", "greedy", "comma-separated llc passes; the first is the -stop-after point")
	flagIterations = flag.Int("iterations", 100, "number of fuzz iterations")
	flagSeed       = flag.Int64("seed", 0, "random seed (0 = time-based)")
	flagMinVGPR    = flag.Int("min-vgpr", 8, "minimum vgpr budget")
	flagMaxVGPR    = flag.Int("max-vgpr", 128, "maximum vgpr budget")
	flagMinSGPR    = flag.Int("min-sgpr", 8, "minimum sgpr budget")
	flagMaxSGPR    = flag.Int("max-sgpr", 128, "maximum sgpr budget")
	flagVerify     = flag.Bool("verify-machineinstrs", false, "run the machine verifier during the transform stage")
	flagSpillSGPR  = flag.String("spill-sgpr-to-vgpr", "on", "spill sgpr to vgpr: on, off or unset")
	flagGPUCmd     = flag.String("gpu-cmd", "", "GPU oracle command; it receives the mutated module path")
	flagOutDir     = flag.String("out-dir", "spill_fuzz_out", "output directory for mutated modules")
	flagHTTP       = flag.String("http", "", "serve stats and /metrics on this address (e.g. localhost:8080)")
)

func main() {
	flag.Parse()

	if *flagCorpus == "" {
		log.Fatalf("usage: spill-fuzz -corpus=<dir> [-gpu-cmd=<oracle>]")
	}
	if !osutil.IsExist(*flagCorpus) {
		log.Fatalf("corpus directory doesn't exist: %v", *flagCorpus)
	}
	spill := *flagSpillSGPR
	if spill != "on" && spill != "off" && spill != "unset" {
		log.Fatalf("bad -spill-sgpr-to-vgpr value %q (want on, off or unset)", spill)
	}
	if spill == "unset" {
		spill = ""
	}
	seed := *flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
		log.Logf(0, "using seed %v", seed)
	}
	if *flagHTTP != "" {
		log.EnableLogCaching(1000, 1<<20)
	}

	cfg := &fuzzcfg.Config{
		Corpus:              *flagCorpus,
		LLC:                 *flagLLC,
		MCPU:                *flagMCPU,
		Passes:              *flagPasses,
		Iterations:          *flagIterations,
		Seed:                seed,
		MinVGPR:             *flagMinVGPR,
		MaxVGPR:             *flagMaxVGPR,
		MinSGPR:             *flagMinSGPR,
		MaxSGPR:             *flagMaxSGPR,
		VerifyMachineInstrs: *flagVerify,
		SpillSGPRToVGPR:     spill,
		GPUCmd:              *flagGPUCmd,
		OutDir:              *flagOutDir,
		HTTP:                *flagHTTP,
	}

	res, err := harness.Run(cfg)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(2)
	}
	log.Logf(0, "done: %v iterations, %v skipped, %v failures",
		res.Iterations, res.Skipped, res.Failures)
	if res.Failures != 0 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
