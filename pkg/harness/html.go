// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package harness

import (
	"html/template"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BenWibking/amdgpu-compiler-fuzzing/pkg/log"
)

func (ctx *context) initHTTP() {
	ctx.stats.register(prometheus.DefaultRegisterer)

	handle := func(pattern string, handler func(http.ResponseWriter, *http.Request)) {
		http.Handle(pattern, handlers.CompressHandler(http.HandlerFunc(handler)))
	}
	handle("/", ctx.httpSummary)
	handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}).ServeHTTP)
	// Browsers like to request this, without special handler this goes to / handler.
	handle("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {})

	log.Logf(0, "serving http on http://%v", ctx.cfg.HTTP)
	go func() {
		err := http.ListenAndServe(ctx.cfg.HTTP, nil)
		if err != nil {
			log.Fatalf("failed to listen on %v: %v", ctx.cfg.HTTP, err)
		}
	}()
}

type uiSummaryData struct {
	MCPU       string
	Passes     string
	Seed       int64
	Corpus     int
	Uptime     time.Duration
	Iterations int64
	Failures   int64
	Skipped    int64
	Log        string
}

func (ctx *context) httpSummary(w http.ResponseWriter, r *http.Request) {
	data := &uiSummaryData{
		MCPU:       ctx.cfg.MCPU,
		Passes:     ctx.cfg.Passes,
		Seed:       ctx.cfg.Seed,
		Corpus:     len(ctx.corpus),
		Uptime:     time.Since(ctx.startTime).Round(time.Second),
		Iterations: ctx.iterations.Load(),
		Failures:   ctx.failures.Load(),
		Skipped:    ctx.skipped.Load(),
		Log:        log.CachedLogOutput(),
	}
	if err := summaryTemplate.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var summaryTemplate = template.Must(template.New("summary").Parse(`
<!doctype html>
<html>
<head><title>spill-fuzz</title></head>
<body>
<b>spill-fuzz</b> mcpu={{.MCPU}} passes={{.Passes}} seed={{.Seed}}<br>
corpus: {{.Corpus}} modules, uptime: {{.Uptime}}<br>
iterations: {{.Iterations}}, failures: {{.Failures}}, skipped: {{.Skipped}}<br>
<pre>{{.Log}}</pre>
</body>
</html>
`))
