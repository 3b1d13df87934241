package app

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Capture sources.
const (
	SourceCSV       = "csv"
	SourceCandump   = "candump"
	SourceSocketCAN = "socketcan"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "jsonl"
	FormatCBOR = "cbor"
)

// Config collects runtime settings for the decoder.
type Config struct {
	// Source selects where capture events come from.
	Source string
	// InputPath is the capture export to decode (csv and candump sources).
	InputPath string
	// Interface is the SocketCAN interface name for live capture.
	Interface string
	// Format selects the record output encoding.
	Format string
	// OutputPath receives the records; "-" means stdout.
	OutputPath string
	LogLevel   string
	// DropNonFRC skips frames with standard 11-bit identifiers, which
	// cannot be FRC traffic.
	DropNonFRC bool
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Source:     SourceCSV,
		Interface:  "can0",
		Format:     FormatText,
		OutputPath: "-",
		LogLevel:   "info",
	}
}

type fileConfig struct {
	Source     string `toml:"source"`
	InputPath  string `toml:"input"`
	Interface  string `toml:"interface"`
	Format     string `toml:"format"`
	OutputPath string `toml:"output"`
	LogLevel   string `toml:"log_level"`
	DropNonFRC bool   `toml:"drop_non_frc"`
}

// Load reads a TOML configuration file on top of the defaults. Keys absent
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("source") {
		cfg.Source = strings.TrimSpace(raw.Source)
	}
	if meta.IsDefined("input") {
		cfg.InputPath = strings.TrimSpace(raw.InputPath)
	}
	if meta.IsDefined("interface") {
		cfg.Interface = strings.TrimSpace(raw.Interface)
	}
	if meta.IsDefined("format") {
		cfg.Format = strings.TrimSpace(raw.Format)
	}
	if meta.IsDefined("output") {
		cfg.OutputPath = strings.TrimSpace(raw.OutputPath)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("drop_non_frc") {
		cfg.DropNonFRC = raw.DropNonFRC
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Source {
	case SourceCSV, SourceCandump:
		if c.InputPath == "" {
			return fmt.Errorf("source %q requires an input path", c.Source)
		}
	case SourceSocketCAN:
		if c.Interface == "" {
			return fmt.Errorf("source %q requires an interface name", c.Source)
		}
	default:
		return fmt.Errorf("unknown capture source %q", c.Source)
	}

	switch c.Format {
	case FormatText, FormatJSON, FormatCBOR:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}

	if c.OutputPath == "" {
		return fmt.Errorf("output path must not be empty")
	}
	return nil
}
