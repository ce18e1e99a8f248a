// Package tui is the terminal spreadsheet viewer: a Bubble Tea model that
// opens a workbook through the bridge and shows one sheet in a
// virtualized, measured grid.
package tui

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/witanlabs/sheetview/grid"
	"github.com/witanlabs/sheetview/internal"
	"github.com/witanlabs/sheetview/viewport"
	"github.com/witanlabs/sheetview/workbook"
	"go.uber.org/zap"
)

// maxLayoutPasses bounds the measure/re-render loop of one frame.
const maxLayoutPasses = 4

// Options configures the viewer.
type Options struct {
	Input  []byte
	Sheet  string
	Engine workbook.Engine

	BorderColor        string
	CellPadding        int
	DefaultColumnWidth int
	DefaultRowHeight   int
	TextWrap           bool
	UseSheetSizes      bool

	ContainerClass lipgloss.Style
	CellClass      lipgloss.Style
	SelectedClass  lipgloss.Style
	HeaderClass    lipgloss.Style
	StatusClass    lipgloss.Style

	OnClickCell func(grid.ClickEvent)
	Logger      *zap.Logger

	// OnReady is called from Update once a workbook has opened.
	OnReady func(*workbook.Bridge)
}

// DefaultOptions returns the built-in look.
func DefaultOptions() Options {
	return Options{
		Engine:             workbook.ExcelEngine{},
		BorderColor:        "8",
		CellPadding:        2,
		DefaultColumnWidth: 12,
		DefaultRowHeight:   2,
		ContainerClass:     lipgloss.NewStyle(),
		CellClass:          lipgloss.NewStyle(),
		SelectedClass:      lipgloss.NewStyle().Reverse(true),
		HeaderClass:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		StatusClass:        lipgloss.NewStyle().Faint(true),
	}
}

// ReloadMsg replaces the open workbook with Input.
type ReloadMsg struct {
	Input  []byte
	Reason string
}

type readyMsg struct {
	bridge *workbook.Bridge
	err    error
}

// Model is the viewer state.
type Model struct {
	opts Options
	keys KeyMap
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	bridge  *workbook.Bridge
	view    *viewport.Grid
	adapter *grid.Adapter

	width, height int
	sheet         string
	ready         bool
	err           error
	status        string
	frame         string
	previous      [][]string
}

// New builds a viewer. Nothing is opened until Init.
func New(opts Options) *Model {
	if opts.Engine == nil {
		opts.Engine = workbook.ExcelEngine{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		opts:   opts,
		keys:   DefaultKeyMap(),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		view:   viewport.New(),
		sheet:  opts.Sheet,
	}
	m.adapter = grid.NewAdapter(m.view, grid.Options{
		CellPadding:        opts.CellPadding,
		DefaultColumnWidth: opts.DefaultColumnWidth,
		DefaultRowHeight:   opts.DefaultRowHeight,
		BorderColor:        opts.BorderColor,
		TextWrap:           opts.TextWrap,
		CellClass:          opts.CellClass,
		SelectedClass:      opts.SelectedClass,
		OnClickCell:        m.clicked,
		Logger:             log.Named("grid"),
	})
	return m
}

// Init starts opening the input.
func (m *Model) Init() tea.Cmd {
	return m.open(m.opts.Input)
}

func (m *Model) open(input []byte) tea.Cmd {
	b := workbook.Open(m.ctx, m.opts.Engine, input, workbook.WithLogger(m.log.Named("workbook")))
	m.bridge = b
	m.ready = false
	return func() tea.Msg {
		return readyMsg{bridge: b, err: b.Wait(m.ctx)}
	}
}

// Bridge returns the current workbook bridge.
func (m *Model) Bridge() *workbook.Bridge { return m.bridge }

// Adapter returns the grid adapter.
func (m *Model) Adapter() *grid.Adapter { return m.adapter }

// Err returns the last load error.
func (m *Model) Err() error { return m.err }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.layout()
		return m, nil

	case readyMsg:
		if msg.bridge != m.bridge {
			return m, nil
		}
		m.loaded(msg.err)
		if msg.err == nil && m.opts.OnReady != nil {
			m.opts.OnReady(msg.bridge)
		}
		return m, nil

	case ReloadMsg:
		m.log.Info("reloading workbook", zap.String("reason", msg.Reason), zap.Int("bytes", len(msg.Input)))
		m.previous = m.adapter.Data()
		if m.bridge != nil {
			m.bridge.Destroy()
		}
		return m, m.open(msg.Input)

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) loaded(err error) {
	if err != nil {
		m.err = err
		m.log.Error("open failed", zap.Error(err))
		return
	}
	if m.sheet == "" {
		if m.sheet, err = m.bridge.GetActiveSheetName(); err != nil {
			m.err = err
			return
		}
	}
	rows, err := m.bridge.GetSheet(m.sheet)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.ready = true
	m.adapter.SetData(rows)

	if m.opts.UseSheetSizes {
		if err := m.adapter.SeedColumnWidths(m.sheetColumnWidth); err != nil {
			m.log.Warn("reading column widths", zap.Error(err))
		}
	}

	if m.previous != nil {
		changes, total := internal.DiffGrids(m.previous, rows)
		m.status = internal.FormatDiffSummary(len(changes), total)
		m.previous = nil
	}
	if _, _, ok := m.adapter.Selected(); !ok && m.adapter.RowCount() > 0 {
		m.adapter.Select(0, 0)
	}
	m.layout()
}

func (m *Model) sheetColumnWidth(col int) (int, error) {
	w, err := m.bridge.GetColumnWidth(m.sheet, col)
	if err != nil {
		return 0, err
	}
	return max(1, int(math.Round(w))), nil
}

func (m *Model) clicked(ev grid.ClickEvent) {
	m.status = fmt.Sprintf("%s = %s", internal.CellAddress(ev.Row, ev.Column), ev.Value)
	if m.opts.OnClickCell != nil {
		m.opts.OnClickCell(ev)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Wrap):
		m.adapter.SetTextWrap(!m.adapter.TextWrap())
		m.layout()
		return nil
	case !m.ready:
		return nil
	}

	row, col, _ := m.adapter.Selected()
	_, page := m.gridSize()
	page = max(1, page/max(1, m.adapter.RowHeight(row)))
	switch {
	case key.Matches(msg, m.keys.Up):
		row--
	case key.Matches(msg, m.keys.Down):
		row++
	case key.Matches(msg, m.keys.Left):
		col--
	case key.Matches(msg, m.keys.Right):
		col++
	case key.Matches(msg, m.keys.PageUp):
		row -= page
	case key.Matches(msg, m.keys.PageDown):
		row += page
	case key.Matches(msg, m.keys.Home):
		row = 0
	case key.Matches(msg, m.keys.End):
		row = m.adapter.RowCount() - 1
	case key.Matches(msg, m.keys.Click):
		m.adapter.Click(row, col)
		m.layout()
		return nil
	default:
		return nil
	}
	m.move(row, col)
	return nil
}

func (m *Model) move(row, col int) {
	row = min(max(0, row), max(0, m.adapter.RowCount()-1))
	col = min(max(0, col), max(0, m.adapter.ColumnCount()-1))
	m.adapter.Select(row, col)
	m.layout()
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if !m.ready {
		return
	}
	left, top := m.gridOrigin()
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.view.ScrollBy(0, -3)
	case msg.Button == tea.MouseButtonWheelDown:
		m.view.ScrollBy(0, 3)
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		row, col, ok := m.adapter.ClickAt(msg.X-left, msg.Y-top)
		if !ok {
			return
		}
		m.adapter.Select(row, col)
	default:
		return
	}
	m.layout()
}

// gutterWidth is the width of the row-number column.
func (m *Model) gutterWidth() int {
	return len(strconv.Itoa(max(1, m.adapter.RowCount()))) + 1
}

// gridOrigin is the screen offset of the grid's top-left cell.
func (m *Model) gridOrigin() (left, top int) {
	c := m.opts.ContainerClass
	return c.GetBorderLeftSize() + c.GetPaddingLeft() + c.GetMarginLeft() + m.gutterWidth(),
		c.GetBorderTopSize() + c.GetPaddingTop() + c.GetMarginTop() + 1
}

// gridSize is the area left for cells after the container frame, the
// header, the gutter and the status line.
func (m *Model) gridSize() (width, height int) {
	c := m.opts.ContainerClass
	width = m.width - c.GetHorizontalFrameSize() - m.gutterWidth()
	height = m.height - c.GetVerticalFrameSize() - 2
	return max(0, width), max(0, height)
}

func (m *Model) resize() {
	m.adapter.Resize(m.gridSize())
}

// layout renders until measurements stop moving sizes.
func (m *Model) layout() {
	if !m.ready || m.width == 0 {
		return
	}
	m.resize()
	for pass := 0; pass < maxLayoutPasses; pass++ {
		m.frame = m.adapter.Render()
		if !m.adapter.Dirty() {
			return
		}
	}
	m.log.Debug("layout did not settle", zap.Int("passes", maxLayoutPasses))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}
	var body string
	switch {
	case m.err != nil:
		body = "Error: " + m.err.Error()
	case !m.ready:
		body = "Loading…"
	default:
		body = lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.gridView(), m.statusView())
	}
	return m.opts.ContainerClass.Render(body)
}

func (m *Model) headerView() string {
	left, _ := m.view.Scroll()
	var cells []grid.Placement
	for _, span := range m.view.VisibleColumns() {
		label := m.opts.HeaderClass.
			Width(span.Size).
			MaxWidth(span.Size).
			Align(lipgloss.Center).
			Render(internal.ColumnLabel(span.Index))
		cells = append(cells, grid.Placement{
			Position: grid.Position{Left: span.Offset + left, Width: span.Size, Height: 1},
			View:     label,
		})
	}
	return strings.Repeat(" ", m.gutterWidth()) + m.view.PaintHeader(cells)
}

func (m *Model) gridView() string {
	_, height := m.gridSize()
	gutter := make([]string, height)
	w := m.gutterWidth()
	blank := strings.Repeat(" ", w)
	for i := range gutter {
		gutter[i] = blank
	}
	for _, span := range m.view.VisibleRows() {
		if span.Offset >= 0 && span.Offset < height {
			gutter[span.Offset] = m.opts.HeaderClass.Width(w).MaxWidth(w).Render(strconv.Itoa(span.Index + 1))
		}
	}

	lines := strings.Split(m.frame, "\n")
	out := make([]string, height)
	for i := range out {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		out[i] = gutter[i] + line
	}
	return strings.Join(out, "\n")
}

func (m *Model) statusView() string {
	width, _ := m.gridSize()
	width += m.gutterWidth()

	parts := []string{m.sheet}
	if row, col, ok := m.adapter.Selected(); ok {
		v, _ := m.adapter.Value(row, col)
		parts = append(parts, internal.CellAddress(row, col), strings.ReplaceAll(v, "\n", " "))
	}
	if m.adapter.TextWrap() {
		parts = append(parts, "[wrap]")
	}
	if m.status != "" {
		parts = append(parts, "· "+m.status)
	}
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.opts.StatusClass.Render(ansi.Truncate(strings.Join(parts, "  "), width, "…"))
}

// Close releases the workbook and every mounted cell.
func (m *Model) Close() {
	if m.bridge != nil {
		m.bridge.Destroy()
	}
	m.adapter.Close()
	m.cancel()
}
