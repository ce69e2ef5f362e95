// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides leveled logging for the harness.
// The verbosity level is controlled by the -v flag, higher values mean
// more verbose output. Output can additionally be cached in memory for
// the HTTP summary page.
package log

import (
	"flag"
	"fmt"
	golog "log"
	"os"
	"strings"
	"sync"
)

var (
	flagV = flag.Int("v", 0, "verbosity")

	mu            sync.Mutex
	cacheMaxLines int
	cacheMaxMem   int
	cacheMem      int
	cachePos      int
	cache         []string
)

// EnableLogCaching starts in-memory caching of log output,
// up to maxLines log lines and up to maxMem bytes.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if cache != nil {
		Fatalf("log caching is already enabled")
	}
	cacheMaxLines = maxLines
	cacheMaxMem = maxMem
}

// CachedLogOutput returns all log lines accumulated since EnableLogCaching.
func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	buf := new(strings.Builder)
	for i := range cache {
		pos := (cachePos + i) % len(cache)
		if cache[pos] == "" {
			continue
		}
		buf.WriteString(cache[pos])
		buf.WriteByte('\n')
	}
	return buf.String()
}

// V reports whether logging at the given level is enabled.
func V(level int) bool {
	return level <= *flagV
}

func Logf(level int, msg string, args ...interface{}) {
	writeMessage(level, msg, args...)
}

func Errorf(msg string, args ...interface{}) {
	writeMessage(0, "ERROR: "+msg, args...)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}

func writeMessage(level int, msg string, args ...interface{}) {
	cacheMessage(level, msg, args...)
	if !V(level) {
		return
	}
	golog.Printf(msg, args...)
}

func cacheMessage(level int, msg string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if cacheMaxLines == 0 || level > 1 {
		return
	}
	line := fmt.Sprintf(msg, args...)
	if cache == nil {
		cache = make([]string, cacheMaxLines)
	}
	cacheMem -= len(cache[cachePos])
	cache[cachePos] = line
	cacheMem += len(line)
	cachePos = (cachePos + 1) % len(cache)
	// Evict oldest lines while over the memory budget.
	for i := 0; cacheMem > cacheMaxMem && i < len(cache); i++ {
		pos := (cachePos + i) % len(cache)
		cacheMem -= len(cache[pos])
		cache[pos] = ""
	}
}

func init() {
	golog.SetOutput(os.Stderr)
}
