// Package workbook bridges an asynchronous spreadsheet engine to the grid:
// it opens a document in the background, announces readiness to any
// number of subscribers and exposes the document through accessors that
// fail fast while the document is loading or after it was destroyed.
package workbook

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/witanlabs/sheetview/internal"
	"go.uber.org/zap"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// Bridge owns exactly one engine document.
type Bridge struct {
	mu        sync.Mutex
	available bool
	doc       Document
	openErr   error
	fired     bool
	subs      map[int]func()
	nextSub   int

	ready  chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	log    *zap.Logger
}

// Open starts opening input (or a new document when input is empty) and
// returns immediately.
func Open(ctx context.Context, engine Engine, input []byte, opts ...Option) *Bridge {
	ctx, cancel := context.WithCancel(ctx)
	b := &Bridge{
		available: true,
		subs:      make(map[int]func()),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		cancel:    cancel,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.open(ctx, engine, input)
	return b
}

func (b *Bridge) open(ctx context.Context, engine Engine, input []byte) {
	defer close(b.done)

	doc, err := engine.Open(ctx, input)

	b.mu.Lock()
	if !b.available {
		b.mu.Unlock()
		if doc != nil {
			_ = doc.Close()
		}
		b.log.Debug("discarded document opened after destroy")
		return
	}
	if err != nil {
		b.openErr = engineErr("open", "", err)
		b.mu.Unlock()
		b.log.Error("failed to open workbook", zap.Error(err))
		return
	}
	b.doc = doc
	b.fired = true
	subs := b.takeSubs()
	sheets := doc.GetSheetList()
	close(b.ready)
	b.mu.Unlock()

	b.log.Info("workbook ready", zap.Int("bytes", len(input)), zap.Strings("sheets", sheets))
	for _, fn := range subs {
		fn()
	}
}

func (b *Bridge) takeSubs() []func() {
	subs := make([]func(), 0, len(b.subs))
	for i := 0; i < b.nextSub; i++ {
		if fn, ok := b.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	clear(b.subs)
	return subs
}

// OnReady registers fn to be called once when the document is open. If
// it already is, fn runs immediately. The returned func unsubscribes.
func (b *Bridge) OnReady(fn func()) (cancel func()) {
	b.mu.Lock()
	if !b.available {
		b.mu.Unlock()
		return func() {}
	}
	if b.fired {
		b.mu.Unlock()
		fn()
		return func() {}
	}
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Ready is closed once the document opened successfully.
func (b *Bridge) Ready() <-chan struct{} { return b.ready }

// Wait blocks until the open attempt settles and returns its error.
func (b *Bridge) Wait(ctx context.Context) error {
	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state()
}

// Destroy closes the document and makes every later call fail with
// ErrNotAvailable. A pending open is not waited for; its result is
// discarded when it arrives.
func (b *Bridge) Destroy() {
	b.mu.Lock()
	if !b.available {
		b.mu.Unlock()
		return
	}
	b.available = false
	doc := b.doc
	b.doc = nil
	clear(b.subs)
	b.mu.Unlock()

	b.cancel()
	if doc != nil {
		if err := doc.Close(); err != nil {
			b.log.Warn("closing workbook", zap.Error(err))
		}
	}
}

func (b *Bridge) state() error {
	switch {
	case !b.available:
		return ErrNotAvailable
	case b.openErr != nil:
		return b.openErr
	case b.doc == nil:
		return ErrNotReady
	}
	return nil
}

// use runs fn against the open document. The lock is held so Destroy
// cannot close the document underneath fn.
func (b *Bridge) use(fn func(doc Document) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.state(); err != nil {
		return err
	}
	return fn(b.doc)
}

// GetSheet returns the value matrix of sheet, or of the active sheet when
// sheet is empty.
func (b *Bridge) GetSheet(sheet string) (rows [][]string, err error) {
	err = b.use(func(doc Document) error {
		if sheet == "" {
			if sheet, err = activeName(doc); err != nil {
				return err
			}
		}
		rows, err = doc.GetRows(sheet)
		return engineErr("get rows", sheet, err)
	})
	return rows, err
}

// GetSheetList returns the sheet names in order.
func (b *Bridge) GetSheetList() (list []string, err error) {
	err = b.use(func(doc Document) error {
		list = doc.GetSheetList()
		return nil
	})
	return list, err
}

// GetSheetCount returns the number of sheets.
func (b *Bridge) GetSheetCount() (int, error) {
	list, err := b.GetSheetList()
	return len(list), err
}

// GetActiveSheetIndex returns the active sheet's index.
func (b *Bridge) GetActiveSheetIndex() (index int, err error) {
	err = b.use(func(doc Document) error {
		index = doc.GetActiveSheetIndex()
		return nil
	})
	return index, err
}

// GetSheetName returns the name of the sheet at index.
func (b *Bridge) GetSheetName(index int) (name string, err error) {
	err = b.use(func(doc Document) error {
		name, err = sheetName(doc, index)
		return err
	})
	return name, err
}

// GetActiveSheetName returns the active sheet's name.
func (b *Bridge) GetActiveSheetName() (name string, err error) {
	err = b.use(func(doc Document) error {
		name, err = activeName(doc)
		return err
	})
	return name, err
}

// GetColumnWidth returns the engine width of a zero-based column.
func (b *Bridge) GetColumnWidth(sheet string, col int) (width float64, err error) {
	err = b.use(func(doc Document) error {
		width, err = doc.GetColWidth(sheet, internal.ColumnLabel(col))
		return engineErr("get column width", sheet, err)
	})
	return width, err
}

// GetRowHeight returns the engine height of a zero-based row.
func (b *Bridge) GetRowHeight(sheet string, row int) (height float64, err error) {
	err = b.use(func(doc Document) error {
		height, err = doc.GetRowHeight(sheet, row+1)
		return engineErr("get row height", sheet, err)
	})
	return height, err
}

// SetCell writes value at a zero-based (row, col).
func (b *Bridge) SetCell(sheet string, row, col int, value any) error {
	return b.use(func(doc Document) error {
		if row < 0 || col < 0 {
			return engineErr("set cell", sheet, fmt.Errorf("invalid cell (%d, %d)", row, col))
		}
		return engineErr("set cell", sheet, doc.SetCellValue(sheet, internal.CellAddress(row, col), value))
	})
}

// SetFormula writes a formula at a zero-based (row, col). Cached values
// are not recalculated.
func (b *Bridge) SetFormula(sheet string, row, col int, formula string) error {
	return b.use(func(doc Document) error {
		if row < 0 || col < 0 {
			return engineErr("set formula", sheet, fmt.Errorf("invalid cell (%d, %d)", row, col))
		}
		formula = strings.TrimPrefix(formula, "=")
		return engineErr("set formula", sheet, doc.SetCellFormula(sheet, internal.CellAddress(row, col), formula))
	})
}

// ToBytes serializes the document.
func (b *Bridge) ToBytes() (data []byte, err error) {
	err = b.use(func(doc Document) error {
		buf, err := doc.WriteToBuffer()
		if err != nil {
			return engineErr("write", "", err)
		}
		data = buf.Bytes()
		return nil
	})
	return data, err
}

func sheetName(doc Document, index int) (string, error) {
	name := doc.GetSheetName(index)
	if name == "" {
		return "", engineErr("get sheet name", "", fmt.Errorf("no sheet at index %d", index))
	}
	return name, nil
}

func activeName(doc Document) (string, error) {
	return sheetName(doc, doc.GetActiveSheetIndex())
}
