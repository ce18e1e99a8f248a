package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// cellRefRe matches a cell reference like A1, $B$2, AA100
var cellRefRe = regexp.MustCompile(`^\$?([A-Z]+)\$?(\d+)$`)

// ColumnLabel converts a zero-based column index to its spreadsheet letters
// (0 -> "A", 25 -> "Z", 26 -> "AA"). The numbering is bijective base-26:
// there is no digit for zero.
func ColumnLabel(col int) string {
	return ColToLetter(col + 1)
}

// CellAddress builds an A1-style address from zero-based row and column.
func CellAddress(row, col int) string {
	return ColumnLabel(col) + strconv.Itoa(row+1)
}

// ParseCellAddress is the inverse of CellAddress and returns zero-based
// (row, col).
func ParseCellAddress(ref string) (row, col int, err error) {
	c, r, err := parseRef(ref)
	if err != nil {
		return 0, 0, err
	}
	if r < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q: rows start at 1", ref)
	}
	return r - 1, c - 1, nil
}

// ParseRange parses an address like "Sheet1!A1:Z50" and returns
// (sheet, startRow, startCol, endRow, endCol) in 1-indexed form.
func ParseRange(address string) (sheet string, startRow, startCol, endRow, endCol int, err error) {
	// Split sheet!range
	sheetPart, rangePart, hasSheet := strings.Cut(address, "!")
	if !hasSheet {
		return "", 0, 0, 0, 0, fmt.Errorf("address must include sheet name (e.g. Sheet1!A1:B2), got %q", address)
	}

	// Remove surrounding quotes from sheet name
	sheet = strings.Trim(sheetPart, "'")

	fromRef, toRef, hasColon := strings.Cut(rangePart, ":")
	if !hasColon {
		toRef = fromRef
	}

	startCol, startRow, err = parseRef(fromRef)
	if err != nil {
		return "", 0, 0, 0, 0, fmt.Errorf("invalid start of range %q: %w", fromRef, err)
	}
	endCol, endRow, err = parseRef(toRef)
	if err != nil {
		return "", 0, 0, 0, 0, fmt.Errorf("invalid end of range %q: %w", toRef, err)
	}

	// Normalize order
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}
	if startCol > endCol {
		startCol, endCol = endCol, startCol
	}

	return sheet, startRow, startCol, endRow, endCol, nil
}

// SplitCellRef splits "Sheet1!B3" into the sheet name and the zero-based
// (row, col). The sheet part may be empty when no "!" is present.
func SplitCellRef(ref string) (sheet string, row, col int, err error) {
	cellPart := ref
	if i := strings.LastIndexByte(ref, '!'); i >= 0 {
		sheet = strings.Trim(ref[:i], "'")
		cellPart = ref[i+1:]
	}
	row, col, err = ParseCellAddress(cellPart)
	if err != nil {
		return "", 0, 0, err
	}
	return sheet, row, col, nil
}

// ColToLetter converts a 1-indexed column number to Excel letter(s)
func ColToLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// FormatAddress builds an address string like "Sheet1!A1:Z50"
func FormatAddress(sheet string, startRow, startCol, endRow, endCol int) string {
	from := ColToLetter(startCol) + strconv.Itoa(startRow)
	to := ColToLetter(endCol) + strconv.Itoa(endRow)
	if from == to {
		return sheet + "!" + from
	}
	return sheet + "!" + from + ":" + to
}

func parseRef(ref string) (col, row int, err error) {
	ref = strings.ReplaceAll(ref, "$", "")
	m := cellRefRe.FindStringSubmatch(strings.ToUpper(ref))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	col = letterToCol(m[1])
	row, _ = strconv.Atoi(m[2])
	return col, row, nil
}

func letterToCol(letters string) int {
	col := 0
	for _, c := range letters {
		col = col*26 + int(c-'A'+1)
	}
	return col
}
