package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(body)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsWhenNothingExists(t *testing.T) {
	cfg, err := Loader{WorkDir: t.TempDir()}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Version)
	}
	if cfg.Logging.Level != "info" || cfg.Output.Format != FormatText {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", cfg.Sources)
	}
}

func TestLoadFromFileResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
version: 1
logging:
  level: DEBUG
  format: json
  file: .spanweave/logs/run.log
trace:
  path: traces/trace.log
output:
  format: yaml
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile returned error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level to be normalized, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.File != filepath.Join(dir, ".spanweave", "logs", "run.log") {
		t.Fatalf("expected log file to be resolved, got %s", cfg.Logging.File)
	}
	if !strings.HasPrefix(cfg.Trace.Path, dir) {
		t.Fatalf("expected trace path to be absolute, got %s", cfg.Trace.Path)
	}
	if cfg.Output.Format != FormatYAML {
		t.Fatalf("wrong output format: %s", cfg.Output.Format)
	}
}

func TestLoaderLayersUserThenProject(t *testing.T) {
	userDir := t.TempDir()
	writeFile(t, filepath.Join(userDir, FileName), `
logging:
  level: warn
  format: json
output:
  format: json
`)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, FileName), `
logging:
  level: debug
`)
	nested := filepath.Join(project, "notes", "2024")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Loader{UserDir: userDir, WorkDir: nested}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("project level should win, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != FormatJSON || cfg.Output.Format != FormatJSON {
		t.Fatalf("user settings should survive where the project is silent: %+v", cfg)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected two sources, got %v", cfg.Sources)
	}
}

func TestLoaderExplicitFileMustExist(t *testing.T) {
	_, err := Loader{Explicit: filepath.Join(t.TempDir(), "missing.yaml")}.Load()
	if err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `
output:
  format: xml
`)
	if _, err := LoadFromFile(path); err == nil {
		t.Fatalf("expected validation error but got none")
	}
	bad := DefaultConfig()
	bad.Logging.Level = "loud"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected level validation error")
	}
}

func TestInitDirCreatesLayoutAndTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := InitDir(dir); err != nil {
		t.Fatalf("InitDir returned error: %v", err)
	}
	for _, sub := range []string{LogsDir(dir), TracesDir(dir)} {
		if info, err := os.Stat(sub); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", sub)
		}
	}
	cfg, err := LoadFromFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("template should load cleanly: %v", err)
	}
	if cfg.Trace.Path != "" {
		t.Fatalf("template leaves tracing off, got %q", cfg.Trace.Path)
	}

	custom := "version: 1\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitDir(dir); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, FileName))
	if string(data) != custom {
		t.Fatalf("InitDir must not overwrite an existing config")
	}
}
