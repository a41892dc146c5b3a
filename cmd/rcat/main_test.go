package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kk-code-lab/rcat/internal/config"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("RCAT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TMPDIR", t.TempDir())
	t.Setenv("RCAT_DEBUG", "")
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(t.Context(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestExecutePrintsFile(t *testing.T) {
	isolateConfig(t)
	path := writeInput(t, "notes.txt", "alpha\nbeta\n")

	code, stdout, stderr := runCLI(t, "", "-e", "plain", "-p", "never", "-j", "2", path)
	if code != exitOK {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
	if stdout != "alpha\nbeta\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestExecuteReadsStdinDash(t *testing.T) {
	isolateConfig(t)
	code, stdout, _ := runCLI(t, "piped\n", "--engine=plain", "--pager=never", "-")
	if code != exitOK || stdout != "piped\n" {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
}

func TestExecuteUsageErrors(t *testing.T) {
	isolateConfig(t)
	tests := [][]string{
		{"--no-such-flag"},
		{"--pager", "sometimes"},
		{"--color", "rainbow"},
		{"--engine", "vim"},
		{"--jobs", "-1"},
		{"--config", filepath.Join(t.TempDir(), "missing.lua")},
	}
	for _, args := range tests {
		code, _, stderr := runCLI(t, "", args...)
		if code != exitUsage {
			t.Fatalf("%v: exit %d, want %d", args, code, exitUsage)
		}
		if !strings.Contains(stderr, "rcat:") {
			t.Fatalf("%v: stderr = %q", args, stderr)
		}
	}
}

func TestExecuteFileFailures(t *testing.T) {
	isolateConfig(t)
	missing := filepath.Join(t.TempDir(), "gone.txt")
	present := writeInput(t, "here.txt", "ok\n")

	code, stdout, stderr := runCLI(t, "", "-e", "plain", "-p", "never", missing, present)
	if code != exitFailure {
		t.Fatalf("exit %d, want %d", code, exitFailure)
	}
	if stdout != "ok\n" || !strings.Contains(stderr, "gone.txt") {
		t.Fatalf("stdout %q stderr %q", stdout, stderr)
	}

	code, _, _ = runCLI(t, "", "-e", "plain", "-p", "never", "--best-effort", missing, present)
	if code != exitOK {
		t.Fatalf("best effort exit %d", code)
	}
}

func TestExecuteUsesConfigFile(t *testing.T) {
	isolateConfig(t)
	cfgPath := writeInput(t, "config.lua", `return { engine = "plain", pager = "never" }`)
	path := writeInput(t, "a.txt", "x\n")

	code, stdout, stderr := runCLI(t, "", "-c", cfgPath, path)
	if code != exitOK || stdout != "x\n" {
		t.Fatalf("exit %d stdout %q stderr %q", code, stdout, stderr)
	}
}

func TestApplyFlagsOnlyOverridesChanged(t *testing.T) {
	cfg := config.Default()
	cfg.Theme = "from-config"
	cfg.Jobs = 7

	f := flags{theme: "from-flag", jobs: 2, pager: config.PagerNever, maxSize: 10}
	changed := map[string]bool{"theme": true, "pager": true}
	applyFlags(&cfg, f, func(name string) bool { return changed[name] })

	if cfg.Theme != "from-flag" || cfg.Pager != config.PagerNever {
		t.Fatalf("changed flags not applied: %+v", cfg)
	}
	if cfg.Jobs != 7 || cfg.MaxSize != config.DefaultMaxSize {
		t.Fatalf("unchanged flags overrode config: %+v", cfg)
	}
}
