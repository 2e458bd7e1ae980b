// Package external plugs an out-of-process component into a pipeline. The
// command receives the document on stdin and prints one JSON span per line
// on stdout:
//
//	{"type":"token","begin":0,"end":6,"attributes":{"partOfSpeech":"NN"}}
package external

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
)

// ID is the registry id of the stage.
const ID = "exec"

// DefaultTimeout bounds one invocation when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Config declares the command and the span types it produces.
type Config struct {
	Command []string
	Writes  []annotation.Type
	Timeout time.Duration
}

// Command is the exec stage.
type Command struct {
	stage.Base
	cfg Config
}

type wireSpan struct {
	Type       string            `json:"type"`
	Begin      int               `json:"begin"`
	End        int               `json:"end"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New validates cfg.
func New(cfg Config) (*Command, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errs.Configf(ID, "command", "command is required")
	}
	if cfg.Timeout < 0 {
		return nil, errs.Configf(ID, "timeout", "timeout must be >= 0")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Command{
		Base: stage.NewBase(stage.Info{
			ID:          ID,
			Name:        "External Command",
			Description: "Runs " + strings.Join(cfg.Command, " "),
			Version:     "1.0.0",
		}),
		cfg: cfg,
	}
	c.SetWrites(cfg.Writes...)
	return c, nil
}

// Factory reads command (a list, or a string split on whitespace), writes
// and timeout (a Go duration string).
func Factory(opts stage.Config) (stage.Stage, error) {
	if err := opts.RejectUnknown(ID, "command", "writes", "timeout"); err != nil {
		return nil, err
	}
	var cfg Config
	if raw, ok := opts["command"].(string); ok {
		cfg.Command = strings.Fields(raw)
	} else {
		argv, err := opts.Strings(ID, "command", nil)
		if err != nil {
			return nil, err
		}
		cfg.Command = argv
	}
	writes, err := opts.Strings(ID, "writes", nil)
	if err != nil {
		return nil, err
	}
	for _, w := range writes {
		if w != "" {
			cfg.Writes = append(cfg.Writes, annotation.Type(w))
		}
	}
	timeout, err := opts.String(ID, "timeout", "")
	if err != nil {
		return nil, err
	}
	if timeout != "" {
		if cfg.Timeout, err = time.ParseDuration(timeout); err != nil {
			return nil, errs.Configf(ID, "timeout", "invalid duration %q", timeout)
		}
	}
	return New(cfg)
}

// Process runs the command and inserts every span it prints. Any failure,
// including a malformed line, fails the stage.
func (c *Command) Process(ctx *stage.Context) error {
	runCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.cfg.Command[0], c.cfg.Command[1:]...)
	cmd.Stdin = strings.NewReader(ctx.Text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.cfg.Command[0], err, msg)
		}
		return fmt.Errorf("%s: %w", c.cfg.Command[0], err)
	}

	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	inserted := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var ws wireSpan
		if err := json.Unmarshal(raw, &ws); err != nil {
			return fmt.Errorf("%s output line %d: %w", c.cfg.Command[0], line, err)
		}
		span := annotation.New(annotation.Type(ws.Type), ws.Begin, ws.End).
			WithAttributes(annotation.Attributes(ws.Attributes))
		if _, err := ctx.Insert(span); err != nil {
			return fmt.Errorf("%s output line %d: %w", c.cfg.Command[0], line, err)
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s output: %w", c.cfg.Command[0], err)
	}
	if ctx.Logger != nil {
		ctx.Logger.Debug("external spans inserted", "command", c.cfg.Command[0], "spans", inserted)
	}
	return nil
}
