// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package harness drives the fuzzing loop: per iteration it selects a
// corpus module, samples a configuration, filters, mutates, runs the
// backend and hands the result to the configured oracles. Iterations are
// strictly sequential; the loop never aborts early on a failure, it counts
// failures and reports the total at the end.
package harness

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/filter"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/fuzzcfg"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/log"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/mutate"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/oracle"
	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/osutil"
)

// Results aggregates the run outcome. Skipped iterations count as passed.
type Results struct {
	Iterations int
	Failures   int
	Skipped    int
}

// StageError is a non-zero exit of an external backend stage. Stderr holds
// the process's error output and is surfaced verbatim to the operator.
type StageError struct {
	Stage  string
	Args   []string
	Stderr []byte
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v stage failed: %v: %v\n%s", e.Stage, strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type context struct {
	cfg       *fuzzcfg.Config
	corpus    []string
	rng       *rand.Rand
	oracles   []oracle.Oracle
	stats     *stats
	startTime time.Time

	iterations atomic.Int64
	failures   atomic.Int64
	skipped    atomic.Int64
}

// Run executes the configured number of iterations and returns aggregated
// results. It returns an error only for setup failures (empty corpus,
// unresolved oracle command); iteration failures are counted, never
// escalated.
func Run(cfg *fuzzcfg.Config) (*Results, error) {
	corpus, err := fuzzcfg.LoadCorpus(cfg.Corpus)
	if err != nil {
		return nil, err
	}
	log.Logf(0, "loaded %v modules from %v", len(corpus), cfg.Corpus)

	resolved := *cfg
	resolved.LLC = fuzzcfg.ResolveLLC(cfg.LLC)
	resolved.OutDir = osutil.Abs(cfg.OutDir)

	oracles := []oracle.Oracle{oracle.Static{}}
	if cfg.GPUCmd != "" {
		argv, err := oracle.ResolveCommand(cfg.GPUCmd)
		if err != nil {
			return nil, err
		}
		oracles = append(oracles, &oracle.Hardware{Cmd: argv})
	}

	if err := osutil.MkdirAll(resolved.OutDir); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	ctx := &context{
		cfg:       &resolved,
		corpus:    corpus,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		oracles:   oracles,
		stats:     newStats(),
		startTime: time.Now(),
	}
	if cfg.HTTP != "" {
		ctx.initHTTP()
	}

	for i := 0; i < cfg.Iterations; i++ {
		ctx.runIteration(i)
	}
	return &Results{
		Iterations: int(ctx.iterations.Load()),
		Failures:   int(ctx.failures.Load()),
		Skipped:    int(ctx.skipped.Load()),
	}, nil
}

func (ctx *context) runIteration(seq int) {
	ctx.iterations.Add(1)
	ctx.stats.iterations.Inc()

	fc := ctx.cfg.Generate(ctx.rng, ctx.corpus)
	data, err := os.ReadFile(fc.Module)
	if err != nil {
		ctx.fail(seq, "read", err)
		return
	}
	text := string(data)

	if reason := filter.Check(text, fc.MCPU); reason != "" {
		log.Logf(0, "#%v: skipping %v: %v (mcpu %v)", seq, fc.Module, reason, fc.MCPU)
		ctx.skipped.Add(1)
		ctx.stats.skips.Inc()
		return
	}

	mutated := mutate.ApplyRegLimits(text, fc.NumVGPR, fc.NumSGPR)
	outPath := mutate.OutputPath(ctx.cfg.OutDir, fc.Module, fc.NumVGPR, fc.NumSGPR)
	if err := osutil.WriteFile(outPath, []byte(mutated)); err != nil {
		ctx.fail(seq, "mutate", err)
		return
	}
	log.Logf(1, "#%v: %v vgpr=%v sgpr=%v", seq, outPath, fc.NumVGPR, fc.NumSGPR)

	if _, err := ctx.runStage("pre-check", fc.PreCheckArgs(outPath)); err != nil {
		ctx.fail(seq, "pre-check", err)
		return
	}

	transformOut, err := ctx.runStage("transform", fc.TransformArgs(outPath))
	if err != nil {
		ctx.fail(seq, "transform", err)
		return
	}

	art := &oracle.Artifact{
		ModulePath:   outPath,
		TransformOut: transformOut,
	}
	for _, orc := range ctx.oracles {
		if err := orc.Verify(art); err != nil {
			ctx.fail(seq, orc.Name(), err)
			return
		}
	}
	log.Logf(1, "#%v: pass", seq)
}

// runStage invokes the backend binary with the given arguments and waits
// for it to exit, capturing stdout. There is no timeout: a hung backend
// hangs the harness.
func (ctx *context) runStage(stage string, args []string) ([]byte, error) {
	cmd := osutil.Command(ctx.cfg.LLC, args...)
	log.Logf(2, "%v: %v", stage, cmd.Args)
	stdout, stderr, err := osutil.Run(cmd)
	if err != nil {
		return nil, &StageError{Stage: stage, Args: cmd.Args, Stderr: stderr, Err: err}
	}
	return stdout, nil
}

func (ctx *context) fail(seq int, stage string, err error) {
	log.Logf(0, "#%v: FAIL (%v): %v", seq, stage, err)
	ctx.failures.Add(1)
	ctx.stats.failures.Inc()
	ctx.stats.stageFailures.WithLabelValues(stage).Inc()
}
