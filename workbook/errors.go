package workbook

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAvailable is returned once the bridge has been destroyed.
	ErrNotAvailable = errors.New("workbook: engine not available")
	// ErrNotReady is returned while the document is still opening.
	ErrNotReady = errors.New("workbook: document not ready")
)

// EngineError is a failure reported by the spreadsheet engine.
type EngineError struct {
	Op    string
	Sheet string
	Err   error
}

func (e *EngineError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("workbook: %s %q: %v", e.Op, e.Sheet, e.Err)
	}
	return fmt.Sprintf("workbook: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func engineErr(op, sheet string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Sheet: sheet, Err: err}
}
