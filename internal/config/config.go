// internal/config/config.go
//
// This package handles application configuration and the .spanweave working
// directory. Configuration is layered: built-in defaults, then the user's
// config file, then the nearest spanweave.yaml found from the working
// directory upwards.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the name of the working directory created next to the project config.
	Dir = ".spanweave"

	// FileName is the name of the project and user config files.
	FileName = "spanweave.yaml"
)

const defaultConfigYAML = `# spanweave configuration
version: 1

logging:
  # debug, info, warn or error
  level: info
  # text or json
  format: text
  # Leave empty to log to stderr. Relative paths resolve against this file.
  # file: .spanweave/logs/spanweave.log

trace:
  # Append detection traces to this file. Leave empty to disable.
  # path: .spanweave/traces/trace.log

metrics:
  # Write Prometheus text-format metrics here after every run.
  # textfile: .spanweave/metrics.prom

output:
  # text, json or yaml
  format: text
`

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// TraceConfig controls where detection traces are appended.
type TraceConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig controls the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// OutputConfig controls how annotated documents are rendered.
type OutputConfig struct {
	Format string `yaml:"format"`
}

// Config models spanweave.yaml.
type Config struct {
	Version int           `yaml:"version"`
	Logging LoggingConfig `yaml:"logging"`
	Trace   TraceConfig   `yaml:"trace"`
	Metrics MetricsConfig `yaml:"metrics"`
	Output  OutputConfig  `yaml:"output"`

	// Sources lists the files merged into this config, lowest precedence first.
	Sources []string `yaml:"-"`
}

// Output formats understood by the exporter.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Version: 1,
		Logging: LoggingConfig{Level: "info", Format: FormatText},
		Output:  OutputConfig{Format: FormatText},
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("output.format must be text, json or yaml (got %q)", c.Output.Format)
	}
	return nil
}

// LoadFromFile reads one config file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.merge(path); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Loader resolves the layered configuration.
type Loader struct {
	// UserDir holds the user-level spanweave.yaml. Empty skips the layer.
	UserDir string
	// WorkDir is where the search for a project spanweave.yaml starts.
	WorkDir string
	// Explicit, when set, replaces the project search with this file.
	Explicit string
}

// NewLoader returns a loader rooted at workDir using the OS user config dir.
func NewLoader(workDir string) Loader {
	l := Loader{WorkDir: workDir}
	if dir, err := os.UserConfigDir(); err == nil {
		l.UserDir = filepath.Join(dir, "spanweave")
	}
	return l
}

// Load merges defaults, the user file and the project file. Missing files
// are skipped; an explicit file must exist.
func (l Loader) Load() (Config, error) {
	cfg := DefaultConfig()
	if l.UserDir != "" {
		if err := cfg.mergeIfExists(filepath.Join(l.UserDir, FileName)); err != nil {
			return Config{}, err
		}
	}
	switch {
	case l.Explicit != "":
		if err := cfg.merge(l.Explicit); err != nil {
			return Config{}, err
		}
	case l.WorkDir != "":
		if path, ok := FindProjectConfig(l.WorkDir); ok {
			if err := cfg.merge(path); err != nil {
				return Config{}, err
			}
		}
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FindProjectConfig walks from dir to the filesystem root looking for
// spanweave.yaml.
func FindProjectConfig(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// InitDir creates the .spanweave directory structure in projectDir and a
// commented spanweave.yaml if none exists.
//
// Structure created:
// .spanweave/
// ├── logs/     <- log files when logging.file points here
// └── traces/   <- detection trace logbooks
func InitDir(projectDir string) error {
	root := filepath.Join(projectDir, Dir)
	for _, dir := range []string{filepath.Join(root, "logs"), filepath.Join(root, "traces")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return ensureConfigFile(filepath.Join(projectDir, FileName))
}

// LogsDir returns the log directory inside projectDir.
func LogsDir(projectDir string) string {
	return filepath.Join(projectDir, Dir, "logs")
}

// TracesDir returns the trace directory inside projectDir.
func TracesDir(projectDir string) string {
	return filepath.Join(projectDir, Dir, "traces")
}

func (c *Config) mergeIfExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	return c.merge(path)
}

// merge decodes path over c. Fields the file leaves out keep their value;
// relative paths in the file resolve against the file's directory.
func (c *Config) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var layer Config
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	base := filepath.Dir(path)
	layer.Logging.File = resolvePath(base, layer.Logging.File)
	layer.Trace.Path = resolvePath(base, layer.Trace.Path)
	layer.Metrics.Textfile = resolvePath(base, layer.Metrics.Textfile)

	if layer.Version != 0 {
		c.Version = layer.Version
	}
	overlay(&c.Logging.Level, layer.Logging.Level)
	overlay(&c.Logging.Format, layer.Logging.Format)
	overlay(&c.Logging.File, layer.Logging.File)
	overlay(&c.Trace.Path, layer.Trace.Path)
	overlay(&c.Metrics.Textfile, layer.Metrics.Textfile)
	overlay(&c.Output.Format, layer.Output.Format)
	c.Sources = append(c.Sources, path)
	return nil
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
}

func overlay(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" || trimmed == "-" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
