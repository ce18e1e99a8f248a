package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/witanlabs/sheetview/config"
	"github.com/witanlabs/sheetview/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	jsonOutput bool
	noCache    bool

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "sheetview",
	Short: "sheetview — browse and edit spreadsheets in the terminal",
	Long: `Open Excel workbooks (.xlsx, .xlsm) from disk or a URL in a scrollable,
virtualized grid, and inspect or edit them from scripts.

Configuration is read from $SHEETVIEW_CONFIG_DIR/config.json (or
$XDG_CONFIG_HOME/sheetview/config.json), SHEETVIEW_* environment variables
and flags, in increasing order of precedence.`,
	Version:           Version,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-formatted text")
	pf.BoolVar(&noCache, "no-cache", false, "Do not cache workbooks downloaded from URLs")
	pf.String("log-level", "info", "Log level (debug, info, warn, error) (env: SHEETVIEW_LOGGER_LEVEL)")
	pf.String("log-file", "", "Write JSON logs to this file, rotated (env: SHEETVIEW_LOGGER_LOG_FILE)")
	pf.BoolP("verbose", "v", false, "Also log to stderr (ignored by view, which owns the terminal)")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c
	logger = logging.Initialize(cfg.Logger, consoleSink(cmd))
	logger.Debug("command started", zap.String("command", cmd.CommandPath()), zap.Strings("args", args))
	return nil
}

// interactiveAnnotation marks commands that draw on the terminal; they get
// no console log output.
const interactiveAnnotation = "sheetview/interactive"

func consoleSink(cmd *cobra.Command) zapcore.WriteSyncer {
	if _, ok := cmd.Annotations[interactiveAnnotation]; ok {
		return nil
	}
	return logging.Stderr()
}

// Execute runs the root command; ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
