package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/witanlabs/sheetview/client"
	"github.com/witanlabs/sheetview/grid"
	"github.com/witanlabs/sheetview/tui"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	viewSheet string
	viewWatch string
)

var viewCmd = &cobra.Command{
	Use:   "view [file|url]",
	Short: "Browse a workbook in a scrollable grid",
	Long: `Open a workbook in the terminal. Without an argument a new, empty
document is shown.

Keys:
  arrows/hjkl  move the selection     pgup/pgdn  page
  home/end     first/last row          enter      select cell
  w            toggle text wrapping    q          quit

With --watch, the viewer subscribes to a websocket event stream and reloads
the workbook whenever a {"type":"revision"} event arrives.

Examples:
  sheetview view report.xlsx
  sheetview view --wrap --padding 2 report.xlsx
  sheetview view https://files.example.com/report.xlsx --watch wss://files.example.com/events`,
	Args:        cobra.MaximumNArgs(1),
	RunE:        runView,
	Annotations: map[string]string{interactiveAnnotation: "true"},
}

func init() {
	f := viewCmd.Flags()
	f.StringVar(&viewSheet, "sheet", "", "Sheet to show (default: the active sheet)")
	f.StringVar(&viewWatch, "watch", "", "Websocket URL announcing new revisions")
	f.String("border-color", "8", "Cell border color (ANSI index or hex)")
	f.Int("padding", 2, "Gap between neighbouring cell contents")
	f.Int("col-width", 12, "Default column width")
	f.Int("row-height", 2, "Default row height")
	f.Bool("wrap", false, "Wrap cell text instead of clipping it")
	f.Bool("sheet-sizes", false, "Start from the workbook's own column widths")
	rootCmd.AddCommand(viewCmd)
}

func viewOptions(input []byte) tui.Options {
	opts := tui.DefaultOptions()
	opts.Input = input
	opts.Sheet = viewSheet
	opts.BorderColor = cfg.View.BorderColor
	opts.CellPadding = cfg.View.CellPadding
	opts.DefaultColumnWidth = cfg.View.DefaultColumnWidth
	opts.DefaultRowHeight = cfg.View.DefaultRowHeight
	opts.TextWrap = cfg.View.TextWrap
	opts.UseSheetSizes = cfg.View.UseSheetSizes
	opts.CellClass = lipgloss.NewStyle()
	opts.Logger = logger.Named("view")
	opts.OnClickCell = func(ev grid.ClickEvent) {
		logger.Debug("cell clicked", zap.Int("row", ev.Row), zap.Int("column", ev.Column), zap.String("value", ev.Value))
	}
	return opts
}

func runView(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var source string
	var input []byte
	if len(args) == 1 {
		source = args[0]
		data, err := readSource(ctx, source)
		if err != nil {
			return err
		}
		input = data
	}

	m := tui.New(viewOptions(input))
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	if viewWatch != "" {
		if source == "" {
			return fmt.Errorf("--watch needs a file or URL to reload")
		}
		g.Go(func() error {
			return watchSource(gctx, viewWatch, source, p)
		})
	}

	_, runErr := p.Run()
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return m.Err()
}

// watchSource re-reads source on every revision event and hands the new
// bytes to the viewer.
func watchSource(ctx context.Context, wsURL, source string, p *tea.Program) error {
	c := client.New(cfg.Token, false)
	return c.Watch(ctx, wsURL, func(ev client.Event) {
		if ev.Type != client.EventRevision {
			return
		}
		data, err := readSource(ctx, source)
		if err != nil {
			logger.Warn("reloading workbook", zap.String("revision", ev.RevisionID), zap.Error(err))
			return
		}
		p.Send(tui.ReloadMsg{Input: data, Reason: "revision " + ev.RevisionID})
	})
}
