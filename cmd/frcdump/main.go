package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/drsandytoes/saleae-frc-can/cmd/frcdump/internal/app"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional TOML configuration file")
		source     = flag.String("source", "", "Capture source (csv|candump|socketcan)")
		input      = flag.String("input", "", "Capture export to decode (csv and candump sources)")
		iface      = flag.String("interface", "", "SocketCAN interface name for live capture")
		format     = flag.String("format", "", "Record output format (text|jsonl|cbor)")
		output     = flag.String("output", "", "Output path, '-' for stdout")
		logLevel   = flag.String("log-level", "", "Log level (trace|debug|info|warn|error)")
		dropNonFRC = flag.Bool("drop-non-frc", false, "Skip frames with standard 11-bit identifiers")
	)

	flag.Parse()

	cfg := app.Default()
	if *configPath != "" {
		loaded, err := app.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
		cfg = loaded
	}

	// Flags given on the command line override the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source = *source
		case "input":
			cfg.InputPath = *input
		case "interface":
			cfg.Interface = *iface
		case "format":
			cfg.Format = *format
		case "output":
			cfg.OutputPath = *output
		case "log-level":
			cfg.LogLevel = *logLevel
		case "drop-non-frc":
			cfg.DropNonFRC = *dropNonFRC
		}
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	decoder, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise decoder: %v", err)
	}

	if err := decoder.Run(ctx); err != nil {
		log.Fatalf("decode failed: %v", err)
	}
}
