// Package app binds the capture sources, the frame assembler and the
// record sinks into the frcdump binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/drsandytoes/saleae-frc-can/cmd/frcdump/internal/capture"
	"github.com/drsandytoes/saleae-frc-can/cmd/frcdump/internal/export"
	"github.com/drsandytoes/saleae-frc-can/cmd/frcdump/internal/socketcan"
	"github.com/drsandytoes/saleae-frc-can/frccan"
)

// Source yields capture sub-events in bus order. Next returns io.EOF when
// an offline capture is exhausted.
type Source interface {
	Next(ctx context.Context) (frccan.Event, error)
	Close() error
}

// Sink receives each decoded record.
type Sink interface {
	Write(rec *frccan.Record) error
}

// App is the host adapter: it pumps capture events through the assembler
// and relays emitted records to the configured sink.
type App struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// Run decodes the configured capture until it is exhausted or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	source, err := a.openSource()
	if err != nil {
		return err
	}
	defer source.Close()

	out, closeOut, err := a.openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	sink, err := a.newSink(out)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("source", a.cfg.Source).
		Str("format", a.cfg.Format).
		Msg("decoding capture")

	err = a.pump(ctx, source, sink)
	if err != nil && ctx.Err() != nil {
		// Cancellation is a normal shutdown for the live source.
		a.logger.Info().Msg("capture cancelled")
		return nil
	}
	return err
}

// pump is the single-threaded decode loop: one event in, at most one
// record out.
func (a *App) pump(ctx context.Context, source Source, sink Sink) error {
	assembler := frccan.NewAssembler(a.logger)

	var records, busErrors, skipped int
	skipFrame := false

	for {
		ev, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read capture event: %w", err)
		}

		// Standard 11-bit identifiers cannot carry FRC addressing;
		// optionally drop the whole frame at the boundary.
		if ev.Kind == frccan.EventIdentifier {
			skipFrame = a.cfg.DropNonFRC && !ev.Extended
			if skipFrame {
				skipped++
				a.logger.Debug().
					Uint32("identifier", ev.Identifier).
					Msg("skipping standard-identifier frame")
			}
		}
		if skipFrame {
			if ev.Kind != frccan.EventError {
				continue
			}
			skipFrame = false
		}

		rec, err := assembler.Feed(ev)
		if err != nil {
			// Malformed stream; drop the event and keep decoding.
			a.logger.Warn().Err(err).Uint8("kind", uint8(ev.Kind)).Msg("dropped capture event")
			continue
		}
		if rec == nil {
			continue
		}

		if rec.Type == frccan.RecordError {
			busErrors++
		}
		records++
		if err := sink.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if assembler.Pending() {
		a.logger.Warn().Msg("capture ended with an unfinalized frame")
	}
	a.logger.Info().
		Int("records", records).
		Int("bus_errors", busErrors).
		Int("skipped_frames", skipped).
		Msg("capture decoded")
	return nil
}

func (a *App) openSource() (Source, error) {
	switch a.cfg.Source {
	case SourceCSV:
		return capture.OpenCSV(a.cfg.InputPath)
	case SourceCandump:
		return capture.OpenCandump(a.cfg.InputPath)
	case SourceSocketCAN:
		src, err := socketcan.Open(a.cfg.Interface)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", a.cfg.Source)
	}
}

func (a *App) openOutput() (io.Writer, func() error, error) {
	if a.cfg.OutputPath == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(a.cfg.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func (a *App) newSink(w io.Writer) (Sink, error) {
	switch a.cfg.Format {
	case FormatText:
		return export.NewText(w), nil
	case FormatJSON:
		return export.NewJSON(w), nil
	case FormatCBOR:
		return export.NewCBOR(w)
	default:
		return nil, fmt.Errorf("unknown output format %q", a.cfg.Format)
	}
}
