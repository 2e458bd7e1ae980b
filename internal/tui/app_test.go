package tui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/tracelog"
)

const note = "Mother had cancer.\nSister denies diabetes."

func newTestStore(t *testing.T) *annotation.Store {
	t.Helper()
	store := annotation.NewStore(note)
	for _, s := range []struct {
		typ        annotation.Type
		begin, end int
	}{
		{annotation.TypeToken, 0, 6},
		{annotation.TypeToken, 11, 17},
		{annotation.TypeEntity, 11, 17},
		{annotation.TypeEntity, 33, 41},
	} {
		span := annotation.New(s.typ, s.begin, s.end)
		if s.typ == annotation.TypeEntity {
			span = span.WithAttributes(annotation.EntityDefaults())
		}
		if _, err := store.Insert(span); err != nil {
			t.Fatalf("insert %v: %v", span, err)
		}
	}
	return store
}

func send(t *testing.T, app *App, msgs ...tea.Msg) *App {
	t.Helper()
	for _, msg := range msgs {
		model, _ := app.Update(msg)
		next, ok := model.(*App)
		if !ok {
			t.Fatalf("unexpected model type %T", model)
		}
		app = next
	}
	return app
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAppSelectsFirstTypeByDefault(t *testing.T) {
	app := send(t, NewApp(newTestStore(t)), tea.WindowSizeMsg{Width: 120, Height: 40})
	if app.selected != annotation.TypeEntity {
		t.Fatalf("expected types sorted with entity first, got %s", app.selected)
	}
	if len(app.spans) != 2 {
		t.Fatalf("expected 2 entity spans, got %d", len(app.spans))
	}
	view := app.View()
	for _, want := range []string{"Span types", "token", "entity[11,17)", `"cancer"`, "polarity=positive"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestNextAndPreviousWrapAround(t *testing.T) {
	app := send(t, NewApp(newTestStore(t), WithType(annotation.TypeEntity)), tea.WindowSizeMsg{Width: 120, Height: 40})
	app = send(t, app, key("n"))
	if cur, _ := app.current(); cur.Begin != 33 {
		t.Fatalf("expected second entity after n, got %v", cur)
	}
	app = send(t, app, key("n"))
	if app.cursor != 0 {
		t.Fatalf("expected cursor to wrap to 0, got %d", app.cursor)
	}
	app = send(t, app, key("p"))
	if app.cursor != 1 {
		t.Fatalf("expected p to wrap to last, got %d", app.cursor)
	}
}

func TestEnterSelectsHighlightedType(t *testing.T) {
	app := send(t, NewApp(newTestStore(t)), tea.WindowSizeMsg{Width: 120, Height: 40})
	app = send(t, app, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if app.selected != annotation.TypeToken {
		t.Fatalf("expected token after moving down, got %s", app.selected)
	}
	if cur, _ := app.current(); app.store.CoveredText(cur) != "Mother" {
		t.Fatalf("cursor should start on the first token, got %v", cur)
	}
}

func TestTabSwitchesFocusAndQuitReturnsQuit(t *testing.T) {
	app := send(t, NewApp(newTestStore(t)), tea.KeyMsg{Type: tea.KeyTab})
	if app.focus != focusText {
		t.Fatalf("expected text focus after tab, got %v", app.focus)
	}
	_, cmd := app.Update(key("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestUnknownTypeShowsStatus(t *testing.T) {
	app := send(t, NewApp(newTestStore(t), WithType("Sentence")), tea.WindowSizeMsg{Width: 120, Height: 40})
	if !strings.Contains(app.View(), "no Sentence spans") {
		t.Fatalf("expected status for empty type")
	}
	app = send(t, app, key("n"))
	if app.cursor != 0 {
		t.Fatalf("cursor must not move without spans")
	}
}

func TestLogPanelShowsTraceTail(t *testing.T) {
	lb, err := tracelog.New(filepath.Join(t.TempDir(), "trace.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	if err := lb.Record(tracelog.Record{Stage: "entity-annotator", Type: "token", Begin: 11, End: 17, CoveredText: "cancer"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	app := send(t, NewApp(newTestStore(t), WithLogbook(lb), WithTitle("note.txt")), tea.WindowSizeMsg{Width: 120, Height: 40})
	view := app.View()
	if !strings.Contains(view, "TRACE · trace.log") || !strings.Contains(view, `coveredText="cancer"`) {
		t.Fatalf("log panel missing from view:\n%s", view)
	}
	if !strings.Contains(view, "note.txt") {
		t.Fatalf("title missing from view")
	}
}

func TestHighlightKeepsTextIntact(t *testing.T) {
	spans := []annotation.Span{annotation.New(annotation.TypeEntity, 0, 6), annotation.New(annotation.TypeEntity, 2, 4)}
	out := highlight("Mother had", spans, spans[0], true)
	if !strings.Contains(out, " had") {
		t.Fatalf("unmarked text must pass through: %q", out)
	}
	if highlight("plain", nil, annotation.Span{}, false) != "plain" {
		t.Fatalf("no spans means no styling")
	}
}
