package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/witanlabs/sheetview/client"
	"github.com/witanlabs/sheetview/workbook"
	"go.uber.org/zap"
)

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// readSource returns the workbook bytes behind a path or URL. Local files
// with a mismatched extension are renamed first; legacy binary workbooks
// are rejected.
func readSource(ctx context.Context, arg string) ([]byte, error) {
	if isURL(arg) {
		res, err := client.New(cfg.Token, !noCache).Fetch(ctx, arg)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", arg, err)
		}
		logger.Info("downloaded workbook",
			zap.String("url", arg),
			zap.Int("bytes", len(res.Body)),
			zap.Bool("cached", res.FromCache))
		return res.Body, nil
	}

	path, err := fixExcelExtension(arg)
	if err != nil {
		return nil, err
	}
	format, err := detectExcelFormat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	if format == excelFormatOLE2 {
		return nil, fmt.Errorf("%s is a legacy .xls workbook; save it as .xlsx first", filepath.Base(path))
	}
	return os.ReadFile(path)
}

// openWorkbook opens data (a new document when empty) and waits for it.
func openWorkbook(ctx context.Context, data []byte) (*workbook.Bridge, error) {
	b := workbook.Open(ctx, workbook.ExcelEngine{}, data, workbook.WithLogger(logger.Named("workbook")))
	if err := b.Wait(ctx); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// openSource reads and opens a path or URL.
func openSource(ctx context.Context, arg string) (*workbook.Bridge, error) {
	data, err := readSource(ctx, arg)
	if err != nil {
		return nil, err
	}
	return openWorkbook(ctx, data)
}

// writeWorkbook serializes b and replaces path atomically. Returns the
// path written, which differs when the extension had to be corrected.
func writeWorkbook(b *workbook.Bridge, path string) (string, error) {
	data, err := b.ToBytes()
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return fixWritebackExtension(path)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// loadSheet reads the values of one sheet of a path or URL. An empty sheet
// selects the active one.
func loadSheet(ctx context.Context, arg, sheet string) ([][]string, error) {
	b, err := openSource(ctx, arg)
	if err != nil {
		return nil, err
	}
	defer b.Destroy()
	if sheet == "" {
		if sheet, err = b.GetActiveSheetName(); err != nil {
			return nil, err
		}
	}
	return b.GetSheet(sheet)
}
