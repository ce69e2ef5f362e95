// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"github.com/prometheus/client_golang/prometheus"
)

// stats holds the prometheus view of the run. The collectors are created
// unregistered and only attached to the default registry when the HTTP
// endpoint is enabled (see initHTTP), so plain library use and tests stay
// free of global registry state.
type stats struct {
	iterations    prometheus.Counter
	failures      prometheus.Counter
	skips         prometheus.Counter
	stageFailures *prometheus.CounterVec
}

func newStats() *stats {
	return &stats{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spill_fuzz_iterations_total",
			Help: "Total number of executed fuzz iterations.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spill_fuzz_failures_total",
			Help: "Total number of failed fuzz iterations.",
		}),
		skips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spill_fuzz_skips_total",
			Help: "Total number of iterations skipped by the applicability filter.",
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spill_fuzz_stage_failures_total",
			Help: "Iteration failures by stage.",
		}, []string{"stage"}),
	}
}

func (s *stats) register(reg prometheus.Registerer) {
	reg.MustRegister(s.iterations, s.failures, s.skips, s.stageFailures)
}
