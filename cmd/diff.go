package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/witanlabs/sheetview/internal"
	"golang.org/x/sync/errgroup"
)

var diffSheet string

var diffCmd = &cobra.Command{
	Use:   "diff <before> <after>",
	Short: "Compare the values of two workbooks",
	Long: `Compare one sheet of two workbooks cell by cell.

Exits 0 when the sheets hold the same values and 2 when they differ.

Examples:
  sheetview diff old.xlsx new.xlsx
  sheetview diff old.xlsx https://example.com/new.xlsx --sheet Summary --json`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffSheet, "sheet", "", "Sheet to compare (default: each workbook's active sheet)")
	rootCmd.AddCommand(diffCmd)
}

type diffResult struct {
	Summary string                `json:"summary"`
	Total   int                   `json:"total"`
	Changes []internal.CellChange `json:"changes"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var grids [2][][]string
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, arg := range args {
		g.Go(func() error {
			rows, err := loadSheet(ctx, arg, diffSheet)
			if err != nil {
				return fmt.Errorf("%s: %w", arg, err)
			}
			grids[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	changes, total := internal.DiffGrids(grids[0], grids[1])
	summary := internal.FormatDiffSummary(len(changes), total)

	if jsonOutput {
		if changes == nil {
			changes = []internal.CellChange{}
		}
		if err := jsonPrint(cmd.OutOrStdout(), diffResult{Summary: summary, Total: total, Changes: changes}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, c := range changes {
			fmt.Fprintf(w, "%s\t%q -> %q\n", c.Addr, c.Before, c.After)
		}
		fmt.Fprintln(w, summary)
	}

	if len(changes) > 0 {
		return &ExitError{Code: 2}
	}
	return nil
}
