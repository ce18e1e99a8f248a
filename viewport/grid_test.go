package viewport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/witanlabs/sheetview/grid"
)

func fixed(n int) func(int) int { return func(int) int { return n } }

func newGrid(rows, cols, w, h int, opts ...Option) *Grid {
	g := New(opts...)
	g.SetAccessors(fixed(2), fixed(4))
	g.SetCounts(rows, cols)
	g.SetSize(w, h)
	return g
}

func TestGrid_VisibleRange(t *testing.T) {
	g := newGrid(100, 100, 10, 5)

	rs, re, cs, ce := g.VisibleRange()
	assert.Equal(t, [4]int{0, 3, 0, 3}, [4]int{rs, re, cs, ce})

	g.ScrollTo(5, 3)
	rs, re, cs, ce = g.VisibleRange()
	assert.Equal(t, [4]int{1, 4, 1, 4}, [4]int{rs, re, cs, ce})
}

func TestGrid_Overscan(t *testing.T) {
	g := newGrid(100, 100, 10, 5, WithOverscan(2))
	g.ScrollTo(40, 40)
	rs, re, cs, ce := g.VisibleRange()
	assert.Equal(t, [4]int{18, 25, 8, 15}, [4]int{rs, re, cs, ce})
}

func TestGrid_EmptyRendersNothing(t *testing.T) {
	g := newGrid(0, 0, 10, 5)
	called := false
	g.Render(func(int, int, grid.Position) { called = true })
	assert.False(t, called)
	_, _, ok := g.CellAt(0, 0)
	assert.False(t, ok)
}

func TestGrid_RenderPositions(t *testing.T) {
	g := New()
	g.SetAccessors(func(r int) int { return r + 1 }, fixed(3))
	g.SetCounts(4, 2)
	g.SetSize(6, 10)

	var got []grid.Position
	g.Render(func(row, col int, pos grid.Position) {
		if col == 1 {
			got = append(got, pos)
		}
	})
	require.Len(t, got, 4)
	assert.Equal(t, grid.Position{Left: 3, Top: 0, Width: 3, Height: 1}, got[0])
	assert.Equal(t, grid.Position{Left: 3, Top: 1, Width: 3, Height: 2}, got[1])
	assert.Equal(t, grid.Position{Left: 3, Top: 3, Width: 3, Height: 3}, got[2])
	assert.Equal(t, grid.Position{Left: 3, Top: 6, Width: 3, Height: 4}, got[3])
}

func TestGrid_ResetAfterIndices(t *testing.T) {
	heights := map[int]int{}
	g := New()
	g.SetAccessors(func(r int) int {
		if h, ok := heights[r]; ok {
			return h
		}
		return 1
	}, fixed(1))
	g.SetCounts(10, 1)
	g.SetSize(1, 10)

	assert.Equal(t, 5, g.rows.offset(5))

	heights[2] = 4
	assert.Equal(t, 5, g.rows.offset(5), "cached until reset")

	g.ResetAfterIndices(2, -1)
	assert.Equal(t, 8, g.rows.offset(5))
}

func TestGrid_ScrollClamp(t *testing.T) {
	g := newGrid(10, 10, 8, 4)
	g.ScrollTo(-5, 1000)
	left, top := g.Scroll()
	assert.Equal(t, 0, left)
	assert.Equal(t, 16, top)

	g.ScrollBy(1000, -1000)
	left, top = g.Scroll()
	assert.Equal(t, 32, left)
	assert.Equal(t, 0, top)
}

func TestGrid_ScrollToItem(t *testing.T) {
	g := newGrid(100, 100, 8, 4)

	g.ScrollToItem(10, 0)
	_, top := g.Scroll()
	assert.Equal(t, 18, top, "bottom-aligned when scrolling down")

	g.ScrollToItem(3, 0)
	_, top = g.Scroll()
	assert.Equal(t, 6, top, "top-aligned when scrolling up")

	g.ScrollToItem(4, 0)
	_, top = g.Scroll()
	assert.Equal(t, 6, top, "already visible")
}

func TestGrid_ScrollToItemTallerThanWindow(t *testing.T) {
	g := newGrid(100, 100, 8, 4)
	g.SetAccessors(func(i int) int {
		if i == 5 {
			return 10
		}
		return 2
	}, fixed(4))

	g.ScrollToItem(5, 0)
	_, top := g.Scroll()
	assert.Equal(t, 10, top, "tall row is shown from its start")

	g.ScrollToItem(6, 0)
	_, top = g.Scroll()
	assert.Equal(t, 18, top, "next row bottom-aligned")
}

func TestReveal(t *testing.T) {
	tests := []struct {
		name                        string
		scroll, window, start, size int
		want                        int
	}{
		{"visible", 0, 10, 2, 3, 0},
		{"above", 8, 10, 2, 3, 2},
		{"below", 0, 10, 12, 3, 5},
		{"below and taller than window", 0, 10, 12, 30, 12},
		{"straddles bottom edge", 0, 10, 9, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reveal(tt.scroll, tt.window, tt.start, tt.size))
		})
	}
}

func TestGrid_CellAt(t *testing.T) {
	g := newGrid(10, 10, 8, 4)
	g.ScrollTo(2, 1)

	row, col, ok := g.CellAt(0, 0)
	require.True(t, ok)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	row, col, ok = g.CellAt(3, 2)
	require.True(t, ok)
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)

	_, _, ok = g.CellAt(8, 0)
	assert.False(t, ok)
}

func TestGrid_PaintCropsAndPads(t *testing.T) {
	g := newGrid(2, 3, 6, 2)
	g.ScrollTo(2, 0)

	var cells []grid.Placement
	g.Render(func(row, col int, pos grid.Position) {
		view := strings.Repeat(string(rune('a'+col)), pos.Width)
		view = view + "\n" + strings.Repeat(string(rune('A'+col)), pos.Width)
		cells = append(cells, grid.Placement{Position: pos, View: view})
	})

	frame := g.Paint(cells)
	assert.Equal(t, "aabbbb\nAABBBB", frame)
}

func TestGrid_PaintFillsEmptySpace(t *testing.T) {
	g := newGrid(1, 1, 6, 3)
	frame := g.Paint([]grid.Placement{{Position: grid.Position{Width: 4, Height: 2}, View: "ab\ncd"}})
	assert.Equal(t, "ab    \ncd    \n      ", frame)
}

func TestGrid_VisibleColumnsAndHeader(t *testing.T) {
	g := newGrid(1, 5, 6, 2)
	g.ScrollTo(2, 0)

	spans := g.VisibleColumns()
	require.Len(t, spans, 2)
	assert.Equal(t, Span{Index: 0, Offset: -2, Size: 4}, spans[0])
	assert.Equal(t, Span{Index: 1, Offset: 2, Size: 4}, spans[1])

	var cells []grid.Placement
	for _, s := range spans {
		cells = append(cells, grid.Placement{
			Position: grid.Position{Left: s.Offset + 2, Width: s.Size, Height: 1},
			View:     string(rune('A'+s.Index)) + "   ",
		})
	}
	assert.Equal(t, "  B   ", g.PaintHeader(cells))
}

func TestGrid_TotalSizeEstimate(t *testing.T) {
	g := newGrid(1000, 1, 4, 4)
	w, h := g.TotalSize()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2000, h)
}
