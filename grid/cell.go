package grid

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// cellBorder draws only the right and bottom edges; neighbouring cells
// supply the rest, so interior corners are junctions.
var cellBorder = lipgloss.Border{
	Right:       "│",
	Bottom:      "─",
	BottomRight: "┼",
}

// Attributes are carried on the outer cell element untouched.
type Attributes struct {
	ID      string
	Title   string
	OnClick func()
}

// Props configures a Cell.
type Props struct {
	RowIndex    int
	ColumnIndex int
	RowCount    int
	ColumnCount int
	Content     string
	Position    Position

	// TextWrap selects natural-height word wrapping instead of a single
	// clipped line with an ellipsis.
	TextWrap    bool
	Padding     int
	BorderColor string
	Class       lipgloss.Style

	OnSizeMeasured func(Size)
	OnSizeChanged  func(Size)

	Attrs Attributes
}

type cellState int

const (
	cellMounting cellState = iota
	cellObserving
	cellUnmounted
)

// Cell is one mounted grid cell. It measures its rendered box once at
// mount and then reports every later change of that box until unmounted.
type Cell struct {
	props    Props
	state    cellState
	measured *handle
	changed  *handle
	observer *LayoutObserver

	view string
	size Size
}

// Mount renders p, reports the initial measured size and starts observing.
func Mount(p Props) *Cell {
	c := &Cell{
		props:    p,
		state:    cellMounting,
		measured: newHandle(p.OnSizeMeasured),
		changed:  newHandle(p.OnSizeChanged),
	}
	c.render()
	c.measured.deliver(c.size)
	c.observer = observe(c.size, c.changed)
	c.state = cellObserving
	return c
}

// Update re-renders the cell with new props. Callbacks are swapped behind
// their handles; the initial measurement is never repeated.
func (c *Cell) Update(p Props) {
	if c.state == cellUnmounted {
		return
	}
	c.measured.swap(p.OnSizeMeasured)
	c.changed.swap(p.OnSizeChanged)
	c.props = p
	c.render()
	c.observer.Notify(c.size)
}

// Unmount detaches the observer and both callbacks.
func (c *Cell) Unmount() {
	if c.state == cellUnmounted {
		return
	}
	c.observer.Disconnect()
	c.measured.detach()
	c.changed.detach()
	c.state = cellUnmounted
}

// Mounted reports whether the cell is still live.
func (c *Cell) Mounted() bool { return c.state != cellUnmounted }

// View returns the cell as displayed in its allotted position.
func (c *Cell) View() string { return c.view }

// Size returns the last measured box.
func (c *Cell) Size() Size { return c.size }

// Props returns the props of the last render.
func (c *Cell) Props() Props { return c.props }

// Click runs the forwarded click handler, if any.
func (c *Cell) Click() bool {
	if c.state == cellUnmounted || c.props.Attrs.OnClick == nil {
		return false
	}
	c.props.Attrs.OnClick()
	return true
}

func (c *Cell) render() {
	p := c.props
	w, h := p.Position.Width, p.Position.Height
	right := p.ColumnIndex != p.ColumnCount-1
	bottom := p.RowIndex != p.RowCount-1

	innerW := max(0, w-btoi(right))
	innerH := max(0, h-btoi(bottom))
	pad := max(0, p.Padding/2)
	contentW := max(0, innerW-2*pad)

	edges := lipgloss.NewStyle().
		Border(cellBorder, false, right, bottom, false).
		BorderForeground(lipgloss.Color(p.BorderColor))
	inner := p.Class.Padding(pad, pad).Width(innerW)

	if !p.TextWrap {
		text := runewidth.Truncate(flatten(p.Content), contentW, ellipsis)
		if contentW == 0 {
			text = ""
		}
		// The box is one line tall on its own; only the view fills the slot.
		c.size = measure(edges.Render(inner.MaxWidth(innerW).Render(text)))
		c.view = edges.Render(inner.Height(innerH).MaxHeight(innerH).MaxWidth(innerW).Render(text))
		return
	}

	text := p.Content
	if contentW == 0 {
		text = ""
	}
	natural := edges.Render(inner.MaxWidth(innerW).Render(text))
	c.size = measure(natural)
	c.view = edges.Render(inner.Height(innerH).MaxHeight(innerH).MaxWidth(innerW).Render(text))
}

func measure(box string) Size {
	return Size{Width: lipgloss.Width(box), Height: lipgloss.Height(box)}
}

// flatten collapses line breaks the way a no-wrap box does.
func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
