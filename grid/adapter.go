package grid

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/witanlabs/sheetview/internal"
	"go.uber.org/zap"
)

// ClickEvent is reported when a cell is clicked. Value is empty when the
// click landed on a cell outside the current matrix.
type ClickEvent struct {
	Row    int
	Column int
	Value  string
}

// Options configures an Adapter.
type Options struct {
	CellPadding        int
	DefaultColumnWidth int
	DefaultRowHeight   int
	BorderColor        string
	TextWrap           bool
	CellClass          lipgloss.Style
	SelectedClass      lipgloss.Style
	OnClickCell        func(ClickEvent)
	Logger             *zap.Logger
}

type cellID struct{ row, col int }

// Adapter drives a Virtualizer over a value matrix. Row heights and column
// widths come from two ledgers seeded with the configured defaults and
// updated from the measured cells.
type Adapter struct {
	opts Options
	virt Virtualizer
	log  *zap.Logger

	cols *Ledger
	rows *Ledger

	data     [][]string
	rowCount int
	colCount int

	mounted  map[cellID]*Cell
	selected *cellID

	dirtyRow int
	dirtyCol int
	dirty    bool
}

// NewAdapter wires v to ledger-backed size accessors.
func NewAdapter(v Virtualizer, opts Options) *Adapter {
	a := &Adapter{
		opts:     opts,
		virt:     v,
		log:      opts.Logger,
		cols:     NewLedger(opts.DefaultColumnWidth),
		rows:     NewLedger(opts.DefaultRowHeight),
		mounted:  make(map[cellID]*Cell),
		dirtyRow: -1,
		dirtyCol: -1,
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	v.SetAccessors(a.RowHeight, a.ColumnWidth)
	return a
}

// ColumnWidth is the width accessor handed to the virtualizer.
func (a *Adapter) ColumnWidth(i int) int { return a.cols.Get(i) + a.opts.CellPadding }

// RowHeight is the height accessor handed to the virtualizer.
func (a *Adapter) RowHeight(i int) int { return a.rows.Get(i) + a.opts.CellPadding }

// Columns and Rows expose the ledgers.
func (a *Adapter) Columns() *Ledger { return a.cols }
func (a *Adapter) Rows() *Ledger    { return a.rows }

// SetData swaps the whole matrix. Mounted cells survive only when the
// counts are unchanged.
func (a *Adapter) SetData(data [][]string) {
	rowCount := len(data)
	colCount := 0
	if rowCount > 0 {
		colCount = len(data[0])
	}
	if rowCount != a.rowCount || colCount != a.colCount {
		a.unmountAll()
	}
	a.data = data
	a.rowCount = rowCount
	a.colCount = colCount
}

// Data returns the current matrix.
func (a *Adapter) Data() [][]string { return a.data }

// RowCount returns the number of rows in the current matrix.
func (a *Adapter) RowCount() int { return a.rowCount }

// ColumnCount returns the length of row 0.
func (a *Adapter) ColumnCount() int { return a.colCount }

// Value resolves (row, col) in the current matrix.
func (a *Adapter) Value(row, col int) (string, bool) {
	if row < 0 || row >= len(a.data) {
		return "", false
	}
	r := a.data[row]
	if col < 0 || col >= len(r) {
		return "", false
	}
	return r[col], true
}

// Resize forwards the available viewport to the virtualizer.
func (a *Adapter) Resize(width, height int) {
	a.virt.SetSize(width, height)
}

// SetTextWrap switches the overflow mode of every cell from the next pass.
func (a *Adapter) SetTextWrap(wrap bool) { a.opts.TextWrap = wrap }

// TextWrap reports the current overflow mode.
func (a *Adapter) TextWrap() bool { return a.opts.TextWrap }

// Select highlights (row, col) and scrolls it into view.
func (a *Adapter) Select(row, col int) {
	a.selected = &cellID{row, col}
	a.virt.SetCounts(a.rowCount, a.colCount)
	a.virt.ScrollToItem(row, col)
}

// Selected returns the highlighted cell.
func (a *Adapter) Selected() (row, col int, ok bool) {
	if a.selected == nil {
		return 0, 0, false
	}
	return a.selected.row, a.selected.col, true
}

// SeedColumnWidths records a width per column from width (typically the
// workbook's own column widths) before any cell is measured.
func (a *Adapter) SeedColumnWidths(width func(col int) (int, error)) error {
	for col := 0; col < a.colCount; col++ {
		w, err := width(col)
		if err != nil {
			return err
		}
		if a.cols.Set(col, w) {
			a.markDirty(-1, col)
		}
	}
	return nil
}

// Render runs one pass: the virtualizer picks the visible cells, each is
// mounted or updated, cells that left the window are unmounted, and the
// placements are painted into a frame.
func (a *Adapter) Render() string {
	a.virt.SetCounts(a.rowCount, a.colCount)

	seen := make(map[cellID]bool, len(a.mounted))
	var placed []Placement
	a.virt.Render(func(row, col int, pos Position) {
		id := cellID{row, col}
		c := a.renderCell(id, pos)
		seen[id] = true
		placed = append(placed, Placement{Position: pos, View: c.View()})
	})
	for id, c := range a.mounted {
		if !seen[id] {
			c.Unmount()
			delete(a.mounted, id)
		}
	}
	if a.dirtyRow >= 0 || a.dirtyCol >= 0 {
		a.virt.ResetAfterIndices(a.dirtyRow, a.dirtyCol)
		a.dirtyRow, a.dirtyCol = -1, -1
		a.dirty = true
	}
	return a.virt.Paint(placed)
}

// Dirty reports, and clears, whether measurements changed any size since
// the last call. The host should run another pass when it returns true.
func (a *Adapter) Dirty() bool {
	d := a.dirty
	a.dirty = false
	return d
}

// Mounted returns the number of live cells.
func (a *Adapter) Mounted() int { return len(a.mounted) }

// Click reports a click on (row, col) with its resolved value.
func (a *Adapter) Click(row, col int) {
	if a.opts.OnClickCell == nil {
		return
	}
	value, _ := a.Value(row, col)
	a.opts.OnClickCell(ClickEvent{Row: row, Column: col, Value: value})
}

// ClickAt hit-tests a viewport coordinate and clicks the cell under it.
func (a *Adapter) ClickAt(x, y int) (row, col int, ok bool) {
	row, col, ok = a.virt.CellAt(x, y)
	if !ok {
		return 0, 0, false
	}
	if c, mounted := a.mounted[cellID{row, col}]; mounted {
		c.Click()
	} else {
		a.Click(row, col)
	}
	return row, col, true
}

// Close unmounts every cell and clears both ledgers.
func (a *Adapter) Close() {
	a.unmountAll()
	a.cols.Clear()
	a.rows.Clear()
}

func (a *Adapter) renderCell(id cellID, pos Position) *Cell {
	value, _ := a.Value(id.row, id.col)
	class := a.opts.CellClass
	if a.selected != nil && *a.selected == id {
		class = a.opts.SelectedClass.Inherit(class)
	}
	onSize := func(s Size) { a.measured(id, s) }
	p := Props{
		RowIndex:       id.row,
		ColumnIndex:    id.col,
		RowCount:       a.rowCount,
		ColumnCount:    a.colCount,
		Content:        value,
		Position:       pos,
		TextWrap:       a.opts.TextWrap,
		Padding:        a.opts.CellPadding,
		BorderColor:    a.opts.BorderColor,
		Class:          class,
		OnSizeMeasured: onSize,
		OnSizeChanged:  onSize,
		Attrs: Attributes{
			ID:      internal.CellAddress(id.row, id.col),
			Title:   value,
			OnClick: func() { a.Click(id.row, id.col) },
		},
	}
	if c, ok := a.mounted[id]; ok {
		c.Update(p)
		return c
	}
	c := Mount(p)
	a.mounted[id] = c
	return c
}

// measured pushes a cell's box into the ledgers. Columns take the last
// write; a row takes the tallest of its mounted cells so one short cell
// cannot clip its neighbours.
func (a *Adapter) measured(id cellID, s Size) {
	pad := a.opts.CellPadding
	if a.cols.Set(id.col, max(0, s.Width-pad)) {
		a.markDirty(-1, id.col)
	}

	h := s.Height
	for other, c := range a.mounted {
		if other.row == id.row && other.col != id.col {
			h = max(h, c.Size().Height)
		}
	}
	if a.rows.Set(id.row, max(0, h-pad)) {
		a.markDirty(id.row, -1)
	}
	a.log.Debug("cell measured",
		zap.String("cell", internal.CellAddress(id.row, id.col)),
		zap.Int("width", s.Width),
		zap.Int("height", s.Height))
}

func (a *Adapter) markDirty(row, col int) {
	if row >= 0 && (a.dirtyRow < 0 || row < a.dirtyRow) {
		a.dirtyRow = row
	}
	if col >= 0 && (a.dirtyCol < 0 || col < a.dirtyCol) {
		a.dirtyCol = col
	}
}

func (a *Adapter) unmountAll() {
	for id, c := range a.mounted {
		c.Unmount()
		delete(a.mounted, id)
	}
}
