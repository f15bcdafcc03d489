package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Dicklesworthstone/coremon/internal/logging"
	"github.com/Dicklesworthstone/coremon/internal/source"
)

// EnvPrefix namespaces the environment overrides.
const EnvPrefix = "COREMON_"

const (
	minInterval = 100 * time.Millisecond
	maxInterval = time.Hour
)

// Config carries runtime options for coremon.
type Config struct {
	Interval    time.Duration
	ProcRoot    string
	Source      string
	TUI         bool
	MetricsAddr string
	LogLevel    string
	ConfigFile  string
}

// Error reports an invalid option; the command exits with a config status.
type Error struct {
	Message string
}

func (e Error) Error() string { return e.Message }

func errorf(format string, a ...any) error { return Error{Message: fmt.Sprintf(format, a...)} }

func Default() Config {
	return Config{
		Interval:    2 * time.Second,
		ProcRoot:    source.DefaultProcRoot,
		Source:      source.NameProcfs,
		TUI:         false,
		MetricsAddr: "",
		LogLevel:    "warn",
	}
}

// fileConfig is the on-disk TOML layout.
type fileConfig struct {
	Sampling struct {
		Interval *time.Duration `toml:"interval"`
		ProcRoot *string        `toml:"proc_root"`
		Source   *string        `toml:"source"`
	} `toml:"sampling"`
	Output struct {
		TUI         *bool   `toml:"tui"`
		MetricsAddr *string `toml:"metrics_addr"`
		LogLevel    *string `toml:"log_level"`
	} `toml:"output"`
}

// LoadFile applies the TOML file at path on top of Default. Keys missing
// from the file keep their defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return cfg, errorf("config file %s: %v", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	if v := fc.Sampling.Interval; v != nil {
		cfg.Interval = *v
	}
	if v := fc.Sampling.ProcRoot; v != nil {
		cfg.ProcRoot = *v
	}
	if v := fc.Sampling.Source; v != nil {
		cfg.Source = *v
	}
	if v := fc.Output.TUI; v != nil {
		cfg.TUI = *v
	}
	if v := fc.Output.MetricsAddr; v != nil {
		cfg.MetricsAddr = *v
	}
	if v := fc.Output.LogLevel; v != nil {
		cfg.LogLevel = *v
	}
	cfg.ConfigFile = path
	return cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("coremon", flag.ContinueOnError)
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval")
	fs.StringVar(&cfg.ProcRoot, "proc", cfg.ProcRoot, "procfs mount point")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "counter source: "+strings.Join(source.Names, "|"))
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "interactive dashboard instead of plain refresh")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: "+strings.Join(logging.Levels, "|"))
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "TOML config file")
	return fs
}

// FromFlags resolves the configuration: defaults, then the -config file,
// then flags, then environment overrides. flag.ErrHelp is returned as is.
func FromFlags(args []string) (Config, error) {
	cfg := Default()
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return cfg, flagError(err)
	}

	if cfg.ConfigFile != "" {
		fromFile, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg = fromFile
		// Flags win over the file.
		if err := newFlagSet(&cfg).Parse(args); err != nil {
			return cfg, flagError(err)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Interval = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			cfg.Interval = parsed
		}
	}
	if v := os.Getenv(EnvPrefix + "PROC"); v != "" {
		cfg.ProcRoot = v
	}
	if v := os.Getenv(EnvPrefix + "SOURCE"); v != "" {
		cfg.Source = v
	}
	switch strings.ToLower(os.Getenv(EnvPrefix + "TUI")) {
	case "1", "true", "yes":
		cfg.TUI = true
	case "0", "false", "no":
		cfg.TUI = false
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if c.Interval < minInterval || c.Interval > maxInterval {
		return errorf("interval must be between %s and %s, got %s", minInterval, maxInterval, c.Interval)
	}
	if !slices.Contains(source.Names, c.Source) {
		return errorf("source must be one of %s, got %q", strings.Join(source.Names, ", "), c.Source)
	}
	if c.Source == source.NameProcfs && strings.TrimSpace(c.ProcRoot) == "" {
		return errorf("proc root must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errorf("%v", err)
	}
	return nil
}

func flagError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return errorf("%v", err)
}
