// internal/tui/app.go
//
// This is the interactive viewer for an annotated document. It uses
// bubbletea, which follows The Elm Architecture:
//
// 1. Model: the store being viewed plus cursor and focus state
// 2. Update: key presses and window sizes become state changes
// 3. View: the state is rendered to a string
//
// The left pane lists span types; the right pane shows the document with the
// selected type highlighted. n/p step through the spans of that type.

package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/tracelog"
)

// focus says which pane receives navigation keys.
type focus int

const (
	focusTypes focus = iota
	focusText
)

const logPanelLines = 6

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	activePaneStyle = paneStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
	markStyle       = lipgloss.NewStyle().Background(lipgloss.Color("#3A3F58"))
	cursorStyle     = lipgloss.NewStyle().Background(lipgloss.Color("#5B8DEF")).Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// Option customizes App construction.
type Option func(*App)

// WithTitle sets the header line, typically the document name.
func WithTitle(title string) Option {
	return func(a *App) {
		if title != "" {
			a.title = title
		}
	}
}

// WithLogbook shows the tail of a trace logbook under the document.
func WithLogbook(lb *tracelog.Logbook) Option {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithType preselects a span type.
func WithType(typ annotation.Type) Option {
	return func(a *App) {
		a.initialType = typ
	}
}

// typeItem implements list.Item for one span type.
type typeItem struct {
	typ   annotation.Type
	count int
}

func (i typeItem) Title() string       { return string(i.typ) }
func (i typeItem) Description() string { return fmt.Sprintf("%d spans", i.count) }
func (i typeItem) FilterValue() string { return string(i.typ) }

// App is the viewer model.
type App struct {
	store       *annotation.Store
	title       string
	logbook     *tracelog.Logbook
	initialType annotation.Type

	types list.Model
	text  viewport.Model
	focus focus

	selected annotation.Type
	spans    []annotation.Span
	cursor   int
	status   string

	width  int
	height int
}

// NewApp builds a viewer over store.
func NewApp(store *annotation.Store, opts ...Option) *App {
	items := make([]list.Item, 0)
	for _, typ := range store.Types() {
		items = append(items, typeItem{typ: typ, count: store.Count(typ)})
	}
	types := list.New(items, list.NewDefaultDelegate(), 0, 0)
	types.Title = "Span types"
	types.SetShowStatusBar(false)
	types.SetFilteringEnabled(false)
	types.SetShowHelp(false)

	a := &App{
		store: store,
		title: "spanweave",
		types: types,
		text:  viewport.New(0, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	switch {
	case a.initialType != "":
		a.selectType(a.initialType)
	case len(items) > 0:
		a.selectType(items[0].(typeItem).typ)
	default:
		a.refreshText()
	}
	return a
}

// Run starts the viewer in the alternate screen and blocks until it exits.
func Run(a *App) error {
	_, err := tea.NewProgram(a, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "tab":
			if a.focus == focusTypes {
				a.focus = focusText
			} else {
				a.focus = focusTypes
			}
			return a, nil
		case "enter":
			if a.focus == focusTypes {
				if item, ok := a.types.SelectedItem().(typeItem); ok {
					a.selectType(item.typ)
				}
				return a, nil
			}
		case "n":
			a.moveCursor(1)
			return a, nil
		case "p":
			a.moveCursor(-1)
			return a, nil
		}
	}

	var cmd tea.Cmd
	if a.focus == focusTypes {
		a.types, cmd = a.types.Update(msg)
	} else {
		a.text, cmd = a.text.Update(msg)
	}
	return a, cmd
}

// selectType highlights the spans of typ and puts the cursor on the first.
func (a *App) selectType(typ annotation.Type) {
	a.selected = typ
	a.spans = a.spans[:0]
	for span := range a.store.Select(typ) {
		a.spans = append(a.spans, span)
	}
	a.cursor = 0
	for i, item := range a.types.Items() {
		if ti, ok := item.(typeItem); ok && ti.typ == typ {
			a.types.Select(i)
			break
		}
	}
	if len(a.spans) == 0 {
		a.status = fmt.Sprintf("no %s spans", typ)
	} else {
		a.status = ""
	}
	a.refreshText()
}

func (a *App) moveCursor(delta int) {
	if len(a.spans) == 0 {
		return
	}
	a.cursor = (a.cursor + delta + len(a.spans)) % len(a.spans)
	a.refreshText()
}

// current returns the span under the cursor.
func (a *App) current() (annotation.Span, bool) {
	if a.cursor < 0 || a.cursor >= len(a.spans) {
		return annotation.Span{}, false
	}
	return a.spans[a.cursor], true
}

func (a *App) refreshText() {
	cur, ok := a.current()
	a.text.SetContent(highlight(a.store.Text(), a.spans, cur, ok))
	if ok && a.text.Height > 0 {
		line := strings.Count(a.store.Text()[:cur.Begin], "\n")
		if line < a.text.YOffset || line >= a.text.YOffset+a.text.Height {
			a.text.SetYOffset(max(0, line-a.text.Height/2))
		}
	}
}

func (a *App) resize() {
	leftWidth := max(24, a.width/4)
	rightWidth := max(20, a.width-leftWidth-6)
	bodyHeight := max(5, a.height-8)
	if a.logbook != nil {
		bodyHeight = max(5, bodyHeight-logPanelLines-3)
	}
	a.types.SetSize(leftWidth, bodyHeight)
	a.text.Width = rightWidth
	a.text.Height = bodyHeight - 3
	a.refreshText()
}

// View implements tea.Model.
func (a *App) View() string {
	header := headerStyle.Render("⬡ " + a.title)

	left, right := paneStyle, activePaneStyle
	if a.focus == focusTypes {
		left, right = activePaneStyle, paneStyle
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(a.types.View()),
		right.Render(lipgloss.JoinVertical(lipgloss.Left, a.text.View(), "", a.renderDetail())),
	)

	parts := []string{header, body}
	if panel := a.renderLogPanel(); panel != "" {
		parts = append(parts, panel)
	}
	parts = append(parts, dimStyle.Render("tab switch pane · enter select type · n/p next/prev span · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderDetail() string {
	if a.status != "" {
		return errorStyle.Render(a.status)
	}
	cur, ok := a.current()
	if !ok {
		return dimStyle.Render("no spans")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d/%d  %q", cur, a.cursor+1, len(a.spans), a.store.CoveredText(cur))
	if cur.Origin != "" {
		fmt.Fprintf(&b, "  from %s", cur.Origin)
	}
	for _, k := range cur.Attributes.Keys() {
		fmt.Fprintf(&b, "\n  %s=%s", k, cur.Attributes[k])
	}
	return b.String()
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, _ := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "trace"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("TRACE · %s", fileName))
	return paneStyle.Render(fmt.Sprintf("%s\n%s", head, dimStyle.Render(strings.Join(lines, "\n"))))
}

// highlight renders text with every span marked and the current one
// emphasized. Nested or overlapping spans are merged for marking.
func highlight(text string, spans []annotation.Span, cur annotation.Span, hasCur bool) string {
	if len(spans) == 0 {
		return text
	}
	bounds := map[int]struct{}{0: {}, len(text): {}}
	for _, s := range spans {
		bounds[s.Begin] = struct{}{}
		bounds[s.End] = struct{}{}
	}
	cuts := make([]int, 0, len(bounds))
	for b := range bounds {
		cuts = append(cuts, b)
	}
	sort.Ints(cuts)

	var b strings.Builder
	for i := 0; i+1 < len(cuts); i++ {
		begin, end := cuts[i], cuts[i+1]
		piece := text[begin:end]
		switch {
		case hasCur && begin >= cur.Begin && end <= cur.End:
			b.WriteString(renderLines(cursorStyle, piece))
		case covered(spans, begin, end):
			b.WriteString(renderLines(markStyle, piece))
		default:
			b.WriteString(piece)
		}
	}
	return b.String()
}

// renderLines styles each line separately so newlines survive.
func renderLines(style lipgloss.Style, s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func covered(spans []annotation.Span, begin, end int) bool {
	for _, s := range spans {
		if s.Begin <= begin && end <= s.End {
			return true
		}
	}
	return false
}
