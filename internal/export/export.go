// Package export renders an annotated document for people (a text table) or
// for other programs (JSON, YAML).
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/spanweave/internal/annotation"
)

// Document is the serializable view of a store.
type Document struct {
	RunID  string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Text   string `json:"text" yaml:"text"`
	Digest string `json:"digest" yaml:"digest"`
	Spans  []Span `json:"spans" yaml:"spans"`
}

// Span is the serializable view of one span.
type Span struct {
	Type       string            `json:"type" yaml:"type"`
	Begin      int               `json:"begin" yaml:"begin"`
	End        int               `json:"end" yaml:"end"`
	Text       string            `json:"text" yaml:"text"`
	Origin     string            `json:"origin,omitempty" yaml:"origin,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// FromStore collects the spans of the given types (all when none) in store
// order.
func FromStore(store *annotation.Store, types ...annotation.Type) Document {
	doc := Document{Text: store.Text(), Digest: store.Digest(), Spans: []Span{}}
	for span := range store.Select(types...) {
		doc.Spans = append(doc.Spans, Span{
			Type:       string(span.Type),
			Begin:      span.Begin,
			End:        span.End,
			Text:       store.CoveredText(span),
			Origin:     span.Origin,
			Attributes: span.Attributes,
		})
	}
	return doc
}

// Write renders doc in format: text, json or yaml.
func Write(w io.Writer, format string, doc Document) error {
	switch strings.ToLower(format) {
	case "", "text":
		return WriteText(w, doc)
	case "json":
		return WriteJSON(w, doc)
	case "yaml":
		return WriteYAML(w, doc)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// WriteText writes one table row per span.
func WriteText(w io.Writer, doc Document) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers("TYPE", "SPAN", "TEXT", "ORIGIN", "ATTRIBUTES")
	for _, s := range doc.Spans {
		t.Row(s.Type, fmt.Sprintf("[%d,%d)", s.Begin, s.End), strconv.Quote(s.Text), s.Origin, formatAttributes(s.Attributes))
	}
	_, err := fmt.Fprintf(w, "%s\n%d spans, digest %s\n", t.String(), len(doc.Spans), shortDigest(doc.Digest))
	return err
}

func formatAttributes(attrs map[string]string) string {
	keys := annotation.Attributes(attrs).Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
