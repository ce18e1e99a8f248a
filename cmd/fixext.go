package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// excelFormat represents the detected binary format of an Excel file.
type excelFormat int

const (
	excelFormatUnknown excelFormat = iota
	excelFormatOLE2                // Binary .xls (magic: d0cf11e0a1b11ae1)
	excelFormatOOXML               // ZIP-based .xlsx (magic: 504b0304)
)

var (
	ole2Magic  = []byte{0xd0, 0xcf, 0x11, 0xe0}
	ooxmlMagic = []byte{0x50, 0x4b, 0x03, 0x04}
)

func (f excelFormat) String() string {
	switch f {
	case excelFormatOLE2:
		return "OLE2"
	case excelFormatOOXML:
		return "OOXML"
	default:
		return "unknown"
	}
}

// detectExcelFormat reads the first bytes of a file and returns the detected format.
func detectExcelFormat(filePath string) (excelFormat, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return excelFormatUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 8)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return excelFormatUnknown, nil
		}
		return excelFormatUnknown, err
	}
	return sniffExcelFormat(buf[:n]), nil
}

func sniffExcelFormat(header []byte) excelFormat {
	switch {
	case len(header) < 4:
		return excelFormatUnknown
	case bytes.HasPrefix(header, ole2Magic):
		return excelFormatOLE2
	case bytes.HasPrefix(header, ooxmlMagic):
		return excelFormatOOXML
	}
	return excelFormatUnknown
}

// matchingPath returns the path whose extension agrees with the file's
// content, or filePath itself when nothing needs to change.
func matchingPath(filePath string) (string, excelFormat, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".xls" && ext != ".xlsx" {
		return filePath, excelFormatUnknown, nil
	}

	format, err := detectExcelFormat(filePath)
	if err != nil {
		return filePath, excelFormatUnknown, err
	}

	switch {
	case ext == ".xls" && format == excelFormatOOXML:
		return filePath + "x", format, nil // .xls → .xlsx
	case ext == ".xlsx" && format == excelFormatOLE2:
		return strings.TrimSuffix(filePath, filepath.Ext(filePath)) + ".xls", format, nil
	}
	return filePath, format, nil
}

func renameTo(filePath, newPath string) error {
	// Don't silently overwrite an existing file
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("cannot rename %s to %s: target already exists", filepath.Base(filePath), filepath.Base(newPath))
	}
	if err := os.Rename(filePath, newPath); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(filePath), err)
	}
	logger.Info("renamed workbook to match its content", zap.String("from", filePath), zap.String("to", newPath))
	return nil
}

// fixExcelExtension checks whether a file's extension matches its actual content.
// On a mismatch (.xls with OOXML content or .xlsx with OLE2 content) it
// renames the file on disk and returns the new path, noting it on stderr.
func fixExcelExtension(filePath string) (string, error) {
	newPath, format, err := matchingPath(filePath)
	if err != nil || newPath == filePath {
		return filePath, err
	}
	if err := renameTo(filePath, newPath); err != nil {
		return "", err
	}
	fmt.Fprintf(os.Stderr, "note: %s is %s format — renamed to %s\n", filepath.Base(filePath), format, filepath.Base(newPath))
	return newPath, nil
}

// fixWritebackExtension renames a file that was just written as OOXML
// under a .xls name.
func fixWritebackExtension(filePath string) (string, error) {
	newPath, _, err := matchingPath(filePath)
	if err != nil || newPath == filePath {
		return filePath, err
	}
	if err := renameTo(filePath, newPath); err != nil {
		return "", err
	}
	fmt.Fprintf(os.Stderr, "note: output saved as %s\n", filepath.Base(newPath))
	return newPath, nil
}
