// Copyright 2025 amdgpu-compiler-fuzzing project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package osutil contains OS/filesystem helpers shared by the harness.
package osutil

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const DefaultFilePerm = os.FileMode(0644)
const DefaultDirPerm = os.FileMode(0755)

// IsExist returns true if the file name exists.
func IsExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// IsExecutable returns true if name is an existing regular file with an
// executable bit set.
func IsExecutable(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular() && info.Mode()&0111 != 0
}

func WriteFile(name string, data []byte) error {
	return os.WriteFile(name, data, DefaultFilePerm)
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

func Abs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Command creates an exec.Cmd with an empty working environment except PATH
// and HOME, so that external tool behavior does not depend on the caller's
// environment.
func Command(bin string, args ...string) *exec.Cmd {
	cmd := exec.Command(bin, args...)
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
	}
	return cmd
}

// Run executes cmd and waits for it to exit, capturing stdout and stderr
// separately. There is intentionally no timeout: a hung external process
// hangs the caller.
func Run(cmd *exec.Cmd) (stdout, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer
	if cmd.Stdout == nil {
		cmd.Stdout = &outBuf
	}
	if cmd.Stderr == nil {
		cmd.Stderr = &errBuf
	}
	if err := cmd.Run(); err != nil {
		return outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("failed to run %v: %w", cmd.Args, err)
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// LookPath is a thin wrapper over exec.LookPath that returns the input
// string unchanged when the lookup fails, so that callers can pass the
// unresolved name through and let the actual invocation fail.
func LookPath(bin string) string {
	if resolved, err := exec.LookPath(bin); err == nil {
		return resolved
	}
	return bin
}
