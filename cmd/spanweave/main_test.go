package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/export"
	"github.com/kingrea/spanweave/internal/stages"
)

// execute runs the CLI with args and stdin, isolated from any user config.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunPrintsJSONDocument(t *testing.T) {
	out, _, err := execute(t, "Mother had cancer.", "run", "--stage", "segment", "--format", "json")
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.RunID)
	assert.NotEmpty(t, doc.Digest)
	require.Len(t, doc.Spans, 1)
	assert.Equal(t, string(annotation.TypeSegment), doc.Spans[0].Type)
	assert.Equal(t, "Mother had cancer.", doc.Spans[0].Text)
}

func TestRunWritesTraceAndMetricsFiles(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(doc, []byte("Sisters had cancer."), 0o644))
	tracePath := filepath.Join(dir, "trace.log")
	metricsPath := filepath.Join(dir, "out", "metrics.prom")

	_, _, err := execute(t, "", "run", doc,
		"--stage", "segment",
		"--stage", "tag=attribute-setter",
		"--set", "tag.type=Segment",
		"--set", "tag.attribute=source",
		"--set", "tag.value=cli",
		"--trace", tracePath,
		"--metrics", metricsPath,
		"--format", "yaml",
	)
	require.NoError(t, err)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `spanweave_runs_total{outcome="ok"} 1`)
	assert.Contains(t, string(metrics), `spanweave_spans_inserted_total{stage="segment"} 1`)
}

func TestDebugLoggingListsPipelineStages(t *testing.T) {
	_, stderr, err := execute(t, "Mother had cancer.", "run", "--log-level", "debug",
		"--stage", "segment", "--stage", "entity-annotator", "--set", "entity-annotator.trace=false")
	require.NoError(t, err)
	assert.Contains(t, stderr, "stage ready")
	assert.Contains(t, stderr, "id=segment")
	assert.Contains(t, stderr, "id=entity-annotator")
}

func TestRunTraceDefaultsToLogger(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := filepath.Join(t.TempDir(), "tagger.sh")
	body := "cat >/dev/null\necho '{\"type\":\"token\",\"begin\":11,\"end\":17,\"attributes\":{\"partOfSpeech\":\"NN\"}}'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o644))

	_, stderr, err := execute(t, "Mother had cancer.", "run",
		"--stage", "tag=exec", "--set", "tag.command=sh "+script, "--set", "tag.writes=token",
		"--stage", "entity-annotator")
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=trace")
	assert.Contains(t, stderr, "span=token[11,17)")
}

func TestRunFilterByType(t *testing.T) {
	out, _, err := execute(t, "Mother had cancer.", "run", "-s", "segment", "-f", "json", "-t", "entity")
	require.NoError(t, err)
	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Empty(t, doc.Spans)
}

func TestRunUnknownStageIsConfigurationError(t *testing.T) {
	_, _, err := execute(t, "text", "run", "--stage", "no-such-stage")
	require.Error(t, err)
	assert.Equal(t, exitConfiguration, exitCode(err))
	assert.Contains(t, err.Error(), "no-such-stage")
}

func TestRunBadOptionIsConfigurationError(t *testing.T) {
	_, _, err := execute(t, "text", "run", "--stage", "entity-annotator", "--set", "entity-annotator.insert=maybe")
	require.Error(t, err)
	assert.Equal(t, exitConfiguration, exitCode(err))
}

func TestStrictRejectsUnsatisfiedReads(t *testing.T) {
	_, _, err := execute(t, "text", "run", "--strict", "--stage", "entity-annotator")
	require.Error(t, err)
	assert.Equal(t, exitConfiguration, exitCode(err))
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, exitConfiguration, exitCode(errs.Configf("x", "", "bad")))
	assert.Equal(t, exitInput, exitCode(&errs.InvalidSpanError{Reason: "end before begin"}))
	assert.Equal(t, exitStage, exitCode(&errs.StageError{Stage: "x", Err: os.ErrClosed}))
	assert.Equal(t, exitFailure, exitCode(os.ErrNotExist))
}

func TestListStages(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listStages(&out, stages.NewRegistry()))
	text := out.String()
	for _, id := range []string{"segment", "chunk-adjuster", "entity-annotator", "lookup-windows", "remove-enclosed", "exec"} {
		assert.Contains(t, text, id)
	}
	assert.Contains(t, text, "(requires options)")
}

func TestInitAndVersion(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, "", "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "spanweave.yaml")
	assert.FileExists(t, filepath.Join(dir, "spanweave.yaml"))

	out, _, err = execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "spanweave version "+Version+"\n", out)
}
