package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file|url>",
	Short: "List the sheets of a workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runSheets,
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}

type sheetInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

func runSheets(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	b, err := openSource(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer b.Destroy()

	names, err := b.GetSheetList()
	if err != nil {
		return err
	}
	active, err := b.GetActiveSheetName()
	if err != nil {
		return err
	}

	infos := make([]sheetInfo, 0, len(names))
	for i, name := range names {
		rows, err := b.GetSheet(name)
		if err != nil {
			return err
		}
		info := sheetInfo{Index: i, Name: name, Active: name == active, Rows: len(rows)}
		for _, r := range rows {
			info.Columns = max(info.Columns, len(r))
		}
		infos = append(infos, info)
	}

	if jsonOutput {
		return jsonPrint(cmd.OutOrStdout(), infos)
	}
	w := cmd.OutOrStdout()
	for _, s := range infos {
		marker := " "
		if s.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d  %s  (%d×%d)\n", marker, s.Index, s.Name, s.Rows, s.Columns)
	}
	return nil
}
