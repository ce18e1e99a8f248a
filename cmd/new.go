package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var newForce bool

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create an empty workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runNew,
}

func init() {
	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "Overwrite an existing file")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	path := args[0]
	if _, err := os.Stat(path); err == nil && !newForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	b, err := openWorkbook(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer b.Destroy()

	written, err := writeWorkbook(b, path)
	if err != nil {
		return err
	}
	if jsonOutput {
		return jsonPrint(cmd.OutOrStdout(), map[string]string{"path": written})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", written)
	return nil
}
