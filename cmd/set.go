package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/witanlabs/sheetview/internal"
	"github.com/witanlabs/sheetview/workbook"
	"go.uber.org/zap"
)

var setOutput string

var setCmd = &cobra.Command{
	Use:   "set <file> [address=value ...] [flags]",
	Short: "Set cell values and formulas in a workbook",
	Long: `Set cell values or formulas in a workbook and save the result.

Each edit is specified as address=value. The sheet prefix is optional and
defaults to the active sheet. Use a leading = for formulas (double =).
Formulas are stored as written; cached results are not recalculated.

Examples:
  sheetview set report.xlsx "Sheet1!A1=42"
  sheetview set report.xlsx A1=42 B2=hello
  sheetview set report.xlsx "Sheet1!A1==SUM(B1:B10)"   # formula (double =)
  sheetview set report.xlsx "Sheet1!C3=true"            # boolean
  sheetview set report.xlsx "Sheet1!D4=null"            # clear cell
  sheetview set report.xlsx A1=1 -o copy.xlsx`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVarP(&setOutput, "output", "o", "", "Write to this path instead of replacing the input")
	rootCmd.AddCommand(setCmd)
}

// cellEdit is one parsed address=value argument.
type cellEdit struct {
	Sheet   string `json:"sheet,omitempty"`
	Address string `json:"address"`
	Row     int    `json:"-"`
	Col     int    `json:"-"`
	Value   any    `json:"value,omitempty"`
	Formula string `json:"formula,omitempty"`
}

// parseEditCell parses "Sheet1!A1=42" into a cellEdit.
// If the value starts with "=", it's treated as a formula.
// Otherwise: number → bool → null → string.
func parseEditCell(arg string) (cellEdit, error) {
	// Split on the first '=' after '!' so sheet names containing '=' are preserved.
	start := strings.IndexByte(arg, '!')
	if start < 0 {
		start = 0
	}
	idx := strings.IndexByte(arg[start:], '=')
	if idx < 0 {
		return cellEdit{}, fmt.Errorf("invalid edit %q: expected address=value", arg)
	}
	idx += start
	address := arg[:idx]
	remainder := arg[idx+1:]

	if address == "" {
		return cellEdit{}, fmt.Errorf("invalid edit %q: empty address", arg)
	}
	sheet, row, col, err := internal.SplitCellRef(address)
	if err != nil {
		return cellEdit{}, fmt.Errorf("invalid edit %q: %w", arg, err)
	}
	edit := cellEdit{Sheet: sheet, Address: address, Row: row, Col: col}

	// Formula keeps its leading "="
	if strings.HasPrefix(remainder, "=") {
		edit.Formula = remainder
		return edit, nil
	}

	if n, err := strconv.ParseFloat(remainder, 64); err == nil {
		edit.Value = n
		return edit, nil
	}

	lower := strings.ToLower(remainder)
	switch lower {
	case "true", "false":
		edit.Value = lower == "true"
	case "null":
		edit.Value = nil
	default:
		edit.Value = remainder
	}
	return edit, nil
}

func applyEdit(b *workbook.Bridge, e cellEdit) error {
	sheet := e.Sheet
	if sheet == "" {
		active, err := b.GetActiveSheetName()
		if err != nil {
			return err
		}
		sheet = active
	}
	if e.Formula != "" {
		return b.SetFormula(sheet, e.Row, e.Col, e.Formula)
	}
	return b.SetCell(sheet, e.Row, e.Col, e.Value)
}

func runSet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	filePath := args[0]
	if isURL(filePath) && setOutput == "" {
		return fmt.Errorf("--output is required when editing a URL")
	}

	edits := make([]cellEdit, 0, len(args)-1)
	for _, arg := range args[1:] {
		e, err := parseEditCell(arg)
		if err != nil {
			return err
		}
		edits = append(edits, e)
	}

	ctx := cmd.Context()
	b, err := openSource(ctx, filePath)
	if err != nil {
		return err
	}
	defer b.Destroy()

	for _, e := range edits {
		if err := applyEdit(b, e); err != nil {
			return fmt.Errorf("editing %s: %w", e.Address, err)
		}
	}

	out := setOutput
	if out == "" {
		out = filePath
	}
	written, err := writeWorkbook(b, out)
	if err != nil {
		return err
	}
	logger.Info("workbook saved", zap.String("path", written), zap.Int("edits", len(edits)))

	if jsonOutput {
		return jsonPrint(cmd.OutOrStdout(), map[string]any{"path": written, "edits": edits})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d cell(s) updated in %s\n", len(edits), written)
	return nil
}
