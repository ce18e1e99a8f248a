// Package grid renders a value matrix through a virtualization primitive,
// mounting a measured cell per visible (row, column) and feeding the
// measured box sizes back into per-axis size ledgers.
package grid

// Size is a measured box in terminal cells (columns x lines).
type Size struct {
	Width  int
	Height int
}

// Position places a cell in content coordinates.
type Position struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Placement is a rendered cell ready to be painted.
type Placement struct {
	Position Position
	View     string
}

// Virtualizer decides which cells are visible and composes them into a
// frame. It caches counts and offsets independently of the adapter, so it
// may ask for cells outside the current matrix right after a data swap.
type Virtualizer interface {
	SetSize(width, height int)
	SetCounts(rows, cols int)
	SetAccessors(rowHeight, columnWidth func(int) int)
	// ResetAfterIndices drops cached offsets from the given indices on.
	// A negative index leaves that axis untouched.
	ResetAfterIndices(row, col int)
	Render(cell func(row, col int, pos Position))
	Paint(cells []Placement) string
	CellAt(x, y int) (row, col int, ok bool)
	ScrollToItem(row, col int)
}
