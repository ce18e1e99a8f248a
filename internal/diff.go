package internal

import "fmt"

// CellChange is a single cell whose value differs between two grids.
// Row and Col are zero-based.
type CellChange struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Addr   string `json:"address"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// DiffGrids compares two value matrices cell by cell and returns the changed
// cells in row-major order, plus the number of cells compared. Rows need not
// be the same length; a missing cell compares as the empty string.
func DiffGrids(before, after [][]string) ([]CellChange, int) {
	rows := max(len(before), len(after))
	var changes []CellChange
	total := 0
	for r := 0; r < rows; r++ {
		b := rowAt(before, r)
		a := rowAt(after, r)
		cols := max(len(b), len(a))
		total += cols
		for c := 0; c < cols; c++ {
			bv := valueAt(b, c)
			av := valueAt(a, c)
			if bv == av {
				continue
			}
			changes = append(changes, CellChange{
				Row:    r,
				Col:    c,
				Addr:   CellAddress(r, c),
				Before: bv,
				After:  av,
			})
		}
	}
	return changes, total
}

func rowAt(grid [][]string, r int) []string {
	if r < len(grid) {
		return grid[r]
	}
	return nil
}

func valueAt(row []string, c int) string {
	if c < len(row) {
		return row[c]
	}
	return ""
}

// FormatDiffSummary returns a human-readable diff summary string.
func FormatDiffSummary(changed, total int) string {
	if changed == 0 {
		return "diff: no changes"
	}
	if total <= 0 {
		total = changed
	}
	pct := float64(changed) / float64(total) * 100
	noun := "cells"
	if changed == 1 {
		noun = "cell"
	}
	if pct < 0.1 {
		return fmt.Sprintf("diff: %d %s changed (<0.1%%)", changed, noun)
	}
	return fmt.Sprintf("diff: %d %s changed (%.1f%%)", changed, noun, pct)
}
