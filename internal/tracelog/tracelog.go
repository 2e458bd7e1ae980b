// Package tracelog is the observability sink for detection traces: one
// human-readable line per traced span.
package tracelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Record describes one traced detection.
type Record struct {
	RunID       string
	Stage       string
	Type        string
	Begin       int
	End         int
	CoveredText string
	Criterion   string
	// Attributes holds the source span's matched attributes plus any semantic
	// attributes resolved when the record was emitted.
	Attributes map[string]string
}

// Line renders the record as a single line of key=value pairs. Attribute keys
// are written in sorted order.
func (r Record) Line() string {
	var b strings.Builder
	if r.Stage != "" {
		fmt.Fprintf(&b, "stage=%s ", r.Stage)
	}
	fmt.Fprintf(&b, "span=%s[%d,%d) coveredText=%s criterion=%s",
		r.Type, r.Begin, r.End, strconv.Quote(r.CoveredText), strconv.Quote(r.Criterion))
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, r.Attributes[k])
	}
	return b.String()
}

// Sink receives trace records. Implementations must be safe for concurrent
// use because one sink may serve several pipeline runs.
type Sink interface {
	Record(Record) error
}

// Writer emits one line per record to an io.Writer.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Record implements Sink.
func (w *Writer) Record(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := io.WriteString(w.w, r.Line()+"\n")
	return err
}

// Discard drops every record.
type Discard struct{}

// Record implements Sink.
func (Discard) Record(Record) error { return nil }

// Logbook appends timestamped trace lines to a file.
type Logbook struct {
	path  string
	mu    sync.Mutex
	clock func() time.Time
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("tracelog: ensure dir: %w", err)
	}
	return &Logbook{path: path, clock: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record implements Sink.
func (l *Logbook) Record(r Record) error {
	if l == nil {
		return nil
	}
	prefix := l.clock().UTC().Format(time.RFC3339)
	if r.RunID != "" {
		prefix += " run=" + r.RunID
	}
	return l.appendLine(prefix + " " + r.Line())
}

func (l *Logbook) appendLine(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("tracelog: open %s: %w", l.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(strings.TrimRight(line, "\n") + "\n"); err != nil {
		return fmt.Errorf("tracelog: write %s: %w", l.path, err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent entries along with the total
// number of lines in the logbook.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, total
}
