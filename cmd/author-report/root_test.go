package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sudosantos27/go-author-report/internal/config"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "author-report" {
			t.Errorf("expected use 'author-report', got %q", cmd.Use)
		}
	})

	t.Run("defaults match the argument-free invocation", func(t *testing.T) {
		t.Parallel()
		defaults := map[string]string{
			"input":       config.DefaultInput,
			"output-dir":  config.DefaultOutputDir,
			"suffix":      config.DefaultSuffix,
			"concurrency": "1",
			"format":      "text",
		}
		for name, want := range defaults {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.DefValue != want {
				t.Errorf("flag %s: expected default %q, got %q", name, want, flag.DefValue)
			}
		}
	})

	t.Run("has shorthands", func(t *testing.T) {
		t.Parallel()
		for name, short := range map[string]string{"input": "i", "output-dir": "o", "config": "c", "verbose": "v", "format": "f", "timeout": "t"} {
			flag := cmd.Flags().Lookup(name)
			if flag == nil || flag.Shorthand != short {
				t.Errorf("expected %s to have shorthand %q", name, short)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestRootCmd_RejectsArguments(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"https://a.com"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for positional arguments")
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--concurrency", "0"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "concurrency") {
		t.Errorf("expected concurrency validation error, got %v", err)
	}
}

func TestRootCmd_MissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"-i", filepath.Join(dir, "missing.txt"), "-o", filepath.Join(dir, "out")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing input file")
	}
}

func TestRootCmd_MalformedOnlyInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "urls.txt")
	if err := os.WriteFile(in, []byte("not a url\nhttp://a.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	var stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"-i", in, "-o", out})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(stderr.String(), "Number of malformed URLs: 2") {
		t.Errorf("expected malformed count in diagnostics, got %q", stderr.String())
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".csv") {
		t.Errorf("expected one csv report, got %v", entries)
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	if !setupLogger(io.Discard, "debug", false).Enabled(t.Context(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled")
	}
	if setupLogger(io.Discard, "warn", false).Enabled(t.Context(), slog.LevelInfo) {
		t.Error("expected info level to be disabled at warn")
	}
	if !setupLogger(io.Discard, "error", true).Enabled(t.Context(), slog.LevelDebug) {
		t.Error("expected verbose to force debug level")
	}

	var buf bytes.Buffer
	setupLogger(&buf, "info", false).Info("hello", "url", "https://a.com")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "app=author-report") {
		t.Errorf("expected log line on the given writer, got %q", buf.String())
	}
}

// TestRootCmd_LogsToCommandStderr is not parallel: it installs the default
// slog logger.
func TestRootCmd_LogsToCommandStderr(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	dir := t.TempDir()
	in := filepath.Join(dir, "urls.txt")
	if err := os.WriteFile(in, []byte("not a url\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgFile := filepath.Join(dir, "author-report.yaml")
	if err := os.WriteFile(cfgFile, []byte("output-dir: "+filepath.Join(dir, "out")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"-c", cfgFile, "-i", in, "-v"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	logs := stderr.String()
	if !strings.Contains(logs, "Loaded config file") || !strings.Contains(logs, cfgFile) {
		t.Errorf("expected config file debug log on command stderr, got %q", logs)
	}
	if !strings.Contains(logs, "Starting requests") {
		t.Errorf("expected run logs on command stderr, got %q", logs)
	}
}
