package workbook

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet a new document starts with.
const DefaultSheet = "Sheet1"

// Document is an open spreadsheet. *excelize.File satisfies it.
type Document interface {
	GetRows(sheet string, opts ...excelize.Options) ([][]string, error)
	SetCellValue(sheet, cell string, value any) error
	SetCellFormula(sheet, cell, formula string, opts ...excelize.FormulaOpts) error
	GetColWidth(sheet, col string) (float64, error)
	GetRowHeight(sheet string, row int) (float64, error)
	GetSheetList() []string
	GetActiveSheetIndex() int
	GetSheetName(index int) string
	WriteToBuffer() (*bytes.Buffer, error)
	Close() error
}

// Engine opens documents. An empty input creates a new document with one
// active sheet.
type Engine interface {
	Open(ctx context.Context, input []byte) (Document, error)
}

// ExcelEngine is the excelize-backed engine.
type ExcelEngine struct {
	// Password unlocks encrypted workbooks.
	Password string
}

var _ Document = (*excelize.File)(nil)

// Open implements Engine.
func (e ExcelEngine) Open(ctx context.Context, input []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return newDocument()
	}
	f, err := excelize.OpenReader(bytes.NewReader(input), excelize.Options{Password: e.Password})
	if err != nil {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func newDocument() (Document, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(DefaultSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	return f, nil
}
