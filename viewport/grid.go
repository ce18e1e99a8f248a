// Package viewport implements a variable-size virtualized grid for the
// terminal: it decides which cells intersect the visible window and
// composes their rendered boxes into a single frame.
package viewport

import (
	"sort"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/witanlabs/sheetview/grid"
)

// Span is a visible column or row in viewport coordinates.
type Span struct {
	Index  int
	Offset int
	Size   int
}

// Option configures a Grid.
type Option func(*Grid)

// WithOverscan renders n extra items past each edge of the window.
func WithOverscan(n int) Option {
	return func(g *Grid) { g.overscan = max(0, n) }
}

// Grid is a variable-size virtualized grid. Item sizes come from the
// accessors and are cached until reset.
type Grid struct {
	width, height int
	rows, cols    axis
	top, left     int
	overscan      int
}

var _ grid.Virtualizer = (*Grid)(nil)

// New returns an empty grid.
func New(opts ...Option) *Grid {
	g := &Grid{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetSize sets the visible window.
func (g *Grid) SetSize(width, height int) {
	g.width, g.height = max(0, width), max(0, height)
	g.clamp()
}

// Size returns the visible window.
func (g *Grid) Size() (width, height int) { return g.width, g.height }

// SetCounts updates the item counts. Cached offsets beyond the new counts
// are dropped.
func (g *Grid) SetCounts(rows, cols int) {
	g.rows.setCount(rows)
	g.cols.setCount(cols)
	g.clamp()
}

// Counts returns the item counts last set.
func (g *Grid) Counts() (rows, cols int) { return g.rows.count, g.cols.count }

// SetAccessors replaces both size accessors and drops every cached offset.
func (g *Grid) SetAccessors(rowHeight, columnWidth func(int) int) {
	g.rows.size = rowHeight
	g.cols.size = columnWidth
	g.rows.reset(0)
	g.cols.reset(0)
}

// ResetAfterIndices drops cached offsets from row and col on. A negative
// index leaves that axis alone.
func (g *Grid) ResetAfterIndices(row, col int) {
	g.rows.reset(row)
	g.cols.reset(col)
	g.clamp()
}

// TotalSize returns the estimated content extent.
func (g *Grid) TotalSize() (width, height int) {
	return g.cols.total(), g.rows.total()
}

// Scroll returns the content offset at the window's top-left corner.
func (g *Grid) Scroll() (left, top int) { return g.left, g.top }

// ScrollTo moves the window to a content offset, clamped to the content.
func (g *Grid) ScrollTo(left, top int) {
	g.left, g.top = left, top
	g.clamp()
}

// ScrollBy moves the window relative to its current offset.
func (g *Grid) ScrollBy(dx, dy int) {
	g.ScrollTo(g.left+dx, g.top+dy)
}

// ScrollToItem scrolls the least amount needed to show the cell.
func (g *Grid) ScrollToItem(row, col int) {
	if row >= 0 && row < g.rows.count {
		g.top = reveal(g.top, g.height, g.rows.offset(row), g.rows.sizeOf(row))
	}
	if col >= 0 && col < g.cols.count {
		g.left = reveal(g.left, g.width, g.cols.offset(col), g.cols.sizeOf(col))
	}
	g.clamp()
}

// reveal returns the scroll offset that brings [start, start+size) into a
// window of the given length. An item longer than the window is shown from
// its start.
func reveal(scroll, window, start, size int) int {
	switch {
	case start < scroll:
		return start
	case start+size > scroll+window:
		return min(start, start+size-window)
	}
	return scroll
}

func (g *Grid) clamp() {
	w, h := g.TotalSize()
	g.left = min(max(0, g.left), max(0, w-g.width))
	g.top = min(max(0, g.top), max(0, h-g.height))
}

// VisibleRange returns the half-open item ranges intersecting the window,
// overscan included.
func (g *Grid) VisibleRange() (rowStart, rowStop, colStart, colStop int) {
	rowStart, rowStop = g.visible(&g.rows, g.top, g.height)
	colStart, colStop = g.visible(&g.cols, g.left, g.width)
	return
}

func (g *Grid) visible(a *axis, scroll, window int) (start, stop int) {
	if a.count == 0 || window == 0 {
		return 0, 0
	}
	start = a.find(scroll)
	stop = start
	for stop < a.count && a.offset(stop) < scroll+window {
		stop++
	}
	return max(0, start-g.overscan), min(a.count, stop+g.overscan)
}

// VisibleColumns lists the visible columns with viewport-relative
// offsets, for painting a header.
func (g *Grid) VisibleColumns() []Span {
	_, _, start, stop := g.VisibleRange()
	spans := make([]Span, 0, stop-start)
	for i := start; i < stop; i++ {
		spans = append(spans, Span{Index: i, Offset: g.cols.offset(i) - g.left, Size: g.cols.sizeOf(i)})
	}
	return spans
}

// VisibleRows is VisibleColumns for rows.
func (g *Grid) VisibleRows() []Span {
	start, stop, _, _ := g.VisibleRange()
	spans := make([]Span, 0, stop-start)
	for i := start; i < stop; i++ {
		spans = append(spans, Span{Index: i, Offset: g.rows.offset(i) - g.top, Size: g.rows.sizeOf(i)})
	}
	return spans
}

// Render calls cell for every visible (row, column) with its position in
// content coordinates.
func (g *Grid) Render(cell func(row, col int, pos grid.Position)) {
	rowStart, rowStop, colStart, colStop := g.VisibleRange()
	for r := rowStart; r < rowStop; r++ {
		top, height := g.rows.offset(r), g.rows.sizeOf(r)
		for c := colStart; c < colStop; c++ {
			cell(r, c, grid.Position{
				Left:   g.cols.offset(c),
				Top:    top,
				Width:  g.cols.sizeOf(c),
				Height: height,
			})
		}
	}
}

// CellAt hit-tests a viewport coordinate.
func (g *Grid) CellAt(x, y int) (row, col int, ok bool) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height || g.rows.count == 0 || g.cols.count == 0 {
		return 0, 0, false
	}
	cx, cy := x+g.left, y+g.top
	row, col = g.rows.find(cy), g.cols.find(cx)
	if cy >= g.rows.end(row) || cx >= g.cols.end(col) {
		return 0, 0, false
	}
	return row, col, true
}

// Paint composes the placed cells into a frame exactly the window's size.
func (g *Grid) Paint(cells []grid.Placement) string {
	return g.paint(cells, g.top, g.height)
}

// PaintHeader composes a one-line strip scrolled horizontally with the
// grid. Placements use Top 0.
func (g *Grid) PaintHeader(cells []grid.Placement) string {
	return g.paint(cells, 0, 1)
}

type segment struct {
	x    int
	line string
}

func (g *Grid) paint(cells []grid.Placement, top, height int) string {
	if g.width == 0 || height == 0 {
		return ""
	}
	lines := make([][]segment, height)
	for _, p := range cells {
		for i, line := range strings.Split(p.View, "\n") {
			y := p.Position.Top - top + i
			if y < 0 || y >= height {
				continue
			}
			lines[y] = append(lines[y], segment{x: p.Position.Left - g.left, line: line})
		}
	}

	out := make([]string, height)
	for y, segs := range lines {
		out[y] = g.compose(segs)
	}
	return strings.Join(out, "\n")
}

// compose lays segments on one line, cropping at both window edges. Where
// segments overlap the earlier one wins.
func (g *Grid) compose(segs []segment) string {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].x < segs[j].x })
	var b strings.Builder
	cursor := 0
	for _, s := range segs {
		w := ansi.StringWidth(s.line)
		from := max(0, cursor-s.x)
		to := min(w, g.width-s.x)
		if from >= to {
			continue
		}
		if gap := s.x + from - cursor; gap > 0 {
			b.WriteString(strings.Repeat(" ", gap))
		}
		if from == 0 && to == w {
			b.WriteString(s.line)
		} else {
			b.WriteString(ansi.Cut(s.line, from, to))
		}
		cursor = s.x + to
	}
	if cursor < g.width {
		b.WriteString(strings.Repeat(" ", g.width-cursor))
	}
	return b.String()
}
