package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the persisted and layered sheetview configuration.
type Config struct {
	Token  string       `mapstructure:"token" json:"token,omitempty"`
	View   ViewConfig   `mapstructure:"view" json:"view"`
	Logger LoggerConfig `mapstructure:"logger" json:"logger"`
}

// ViewConfig holds the grid defaults used by the viewer.
type ViewConfig struct {
	BorderColor        string `mapstructure:"border_color" json:"border_color"`
	CellPadding        int    `mapstructure:"cell_padding" json:"cell_padding"`
	DefaultColumnWidth int    `mapstructure:"default_column_width" json:"default_column_width"`
	DefaultRowHeight   int    `mapstructure:"default_row_height" json:"default_row_height"`
	TextWrap           bool   `mapstructure:"text_wrap" json:"text_wrap"`
	UseSheetSizes      bool   `mapstructure:"use_sheet_sizes" json:"use_sheet_sizes"`
}

// LoggerConfig controls the zap logger. An empty LogFile with Console off
// disables logging.
type LoggerConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	Format     string `mapstructure:"format" json:"format"`
	Console    bool   `mapstructure:"console" json:"console"`
	LogFile    string `mapstructure:"log_file" json:"log_file,omitempty"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"border-color": "view.border_color",
	"padding":      "view.cell_padding",
	"col-width":    "view.default_column_width",
	"row-height":   "view.default_row_height",
	"wrap":         "view.text_wrap",
	"sheet-sizes":  "view.use_sheet_sizes",
	"log-level":    "logger.level",
	"log-file":     "logger.log_file",
	"verbose":      "logger.console",
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("token", "")

	v.SetDefault("view.border_color", "8")
	v.SetDefault("view.cell_padding", 2)
	v.SetDefault("view.default_column_width", 12)
	v.SetDefault("view.default_row_height", 2)
	v.SetDefault("view.text_wrap", false)
	v.SetDefault("view.use_sheet_sizes", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.console", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", false)
}

// Default returns the configuration with only built-in defaults applied.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshal default config: %v", err))
	}
	return cfg
}

func dir() (string, error) {
	if v := os.Getenv("SHEETVIEW_CONFIG_DIR"); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "sheetview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sheetview"), nil
}

func filePath() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.json"), nil
}

// Load layers defaults, the config file, SHEETVIEW_* environment variables
// and any changed flags in flags (which may be nil). A missing config file is
// not an error.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("SHEETVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	p, err := filePath()
	if err != nil {
		return Config{}, err
	}
	v.SetConfigFile(p)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// Save writes the config to disk atomically using a temp file + rename.
func Save(cfg Config) error {
	p, err := filePath()
	if err != nil {
		return err
	}
	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	// Remove dest first for Windows compat (os.Rename fails if dest exists on Windows).
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Delete removes the config file.
func Delete() error {
	p, err := filePath()
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
