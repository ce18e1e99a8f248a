package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/witanlabs/sheetview/internal"
)

var getSheet string

var getCmd = &cobra.Command{
	Use:   "get <file|url> [range]",
	Short: "Print cell values",
	Long: `Print the values of a sheet, or of a range within it, tab-separated.

The range may carry a sheet prefix; otherwise --sheet or the active sheet is
used. Cells outside the used area print as empty.

Examples:
  sheetview get report.xlsx
  sheetview get report.xlsx "Sheet1!A1:C10"
  sheetview get report.xlsx B2 --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getSheet, "sheet", "", "Sheet to read (default: the active sheet)")
	rootCmd.AddCommand(getCmd)
}

type rangeResult struct {
	Address string     `json:"address"`
	Rows    [][]string `json:"rows"`
}

func runGet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	b, err := openSource(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer b.Destroy()

	sheet := getSheet
	var rangeArg string
	if len(args) == 2 {
		rangeArg = args[1]
		if i := strings.LastIndexByte(rangeArg, '!'); i >= 0 {
			sheet = strings.Trim(rangeArg[:i], "'")
			rangeArg = rangeArg[i+1:]
		}
	}
	if sheet == "" {
		if sheet, err = b.GetActiveSheetName(); err != nil {
			return err
		}
	}

	rows, err := b.GetSheet(sheet)
	if err != nil {
		return err
	}

	address := sheet
	if rangeArg != "" {
		_, r0, c0, r1, c1, err := internal.ParseRange(sheet + "!" + rangeArg)
		if err != nil {
			return err
		}
		rows = sliceRange(rows, r0-1, c0-1, r1-1, c1-1)
		address = internal.FormatAddress(sheet, r0, c0, r1, c1)
	}

	if jsonOutput {
		return jsonPrint(cmd.OutOrStdout(), rangeResult{Address: address, Rows: rows})
	}
	return printRows(cmd.OutOrStdout(), rows)
}

// sliceRange cuts the zero-based inclusive rectangle out of rows, padding
// with empty strings where the sheet is shorter.
func sliceRange(rows [][]string, r0, c0, r1, c1 int) [][]string {
	out := make([][]string, 0, r1-r0+1)
	for r := r0; r <= r1; r++ {
		line := make([]string, 0, c1-c0+1)
		for c := c0; c <= c1; c++ {
			v := ""
			if r < len(rows) && c < len(rows[r]) {
				v = rows[r][c]
			}
			line = append(line, v)
		}
		out = append(out, line)
	}
	return out
}
