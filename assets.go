package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// wasmExecPaths lists where toolchains ship wasm_exec.js, newest layout first.
var wasmExecPaths = []string{
	filepath.Join("lib", "wasm", "wasm_exec.js"),
	filepath.Join("misc", "wasm", "wasm_exec.js"),
}

// prepareWebDir makes sure dir holds the wasm_exec.js loader matching the
// local toolchain.
func prepareWebDir(ctx context.Context, dir string) error {
	out, err := exec.CommandContext(ctx, "go", "env", "GOROOT").Output()
	if err != nil {
		return fmt.Errorf("go env GOROOT: %w", err)
	}
	return copyWasmExec(strings.TrimSpace(string(out)), dir)
}

func copyWasmExec(goroot, dir string) error {
	if goroot == "" {
		return fmt.Errorf("empty GOROOT")
	}
	var src *os.File
	for _, rel := range wasmExecPaths {
		f, err := os.Open(filepath.Join(goroot, rel))
		if err == nil {
			src = f
			break
		}
	}
	if src == nil {
		return fmt.Errorf("wasm_exec.js not found under %s", goroot)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	dst, err := os.Create(filepath.Join(dir, "wasm_exec.js"))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy wasm_exec.js: %w", err)
	}
	return dst.Close()
}
