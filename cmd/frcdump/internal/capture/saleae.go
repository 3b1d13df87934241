// Package capture turns offline capture exports into the sub-event stream
// the frame assembler consumes.
package capture

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/drsandytoes/saleae-frc-can/frccan"
)

// CSVSource reads a Saleae Logic 2 CAN analyzer export. The export is one
// CSV row per analyzer sub-frame with a header naming the columns; rows
// whose type the decoder does not care about (CRC fields and the like) are
// skipped.
type CSVSource struct {
	r      *csv.Reader
	closer io.Closer
	col    map[string]int
}

// OpenCSV opens an analyzer export file.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture export: %w", err)
	}
	s, err := NewCSVSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewCSVSource reads the header row and prepares column mapping.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["type"]; !ok {
		return nil, errors.New("capture: export has no type column")
	}
	return &CSVSource{r: cr, col: col}, nil
}

// Next returns the next sub-event, or io.EOF at the end of the export.
func (s *CSVSource) Next(ctx context.Context) (frccan.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return frccan.Event{}, err
		}
		row, err := s.r.Read()
		if err != nil {
			return frccan.Event{}, err
		}
		ev, ok, err := s.parseRow(row)
		if err != nil {
			return frccan.Event{}, err
		}
		if !ok {
			continue
		}
		return ev, nil
	}
}

func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *CSVSource) field(row []string, name string) (string, bool) {
	i, ok := s.col[name]
	if !ok || i >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[i])
	return v, v != ""
}

func (s *CSVSource) uintField(row []string, name string) (uint64, error) {
	v, ok := s.field(row, name)
	if !ok {
		return 0, fmt.Errorf("capture: missing %s column", name)
	}
	// The exporter writes hex with an 0x prefix or plain decimal
	// depending on display settings; base 0 accepts both.
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("capture: bad %s value %q", name, v)
	}
	return n, nil
}

func (s *CSVSource) floatField(row []string, name string) float64 {
	v, ok := s.field(row, name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func (s *CSVSource) boolField(row []string, name string) bool {
	v, _ := s.field(row, name)
	return strings.EqualFold(v, "true") || v == "1"
}

func (s *CSVSource) parseRow(row []string) (frccan.Event, bool, error) {
	rowType, ok := s.field(row, "type")
	if !ok {
		return frccan.Event{}, false, nil
	}

	start := s.floatField(row, "start_time")
	ev := frccan.Event{Start: start, End: start + s.floatField(row, "duration")}

	switch rowType {
	case "identifier_field":
		id, err := s.uintField(row, "identifier")
		if err != nil {
			return frccan.Event{}, false, err
		}
		ev.Kind = frccan.EventIdentifier
		ev.Identifier = uint32(id)
		ev.Extended = s.boolField(row, "extended")
		ev.Remote = s.boolField(row, "remote_frame")
	case "control_field":
		n, err := s.uintField(row, "num_data_bytes")
		if err != nil {
			return frccan.Event{}, false, err
		}
		ev.Kind = frccan.EventControl
		ev.ExpectedBytes = int(n)
	case "data_field":
		b, err := s.uintField(row, "data")
		if err != nil {
			return frccan.Event{}, false, err
		}
		if b > 0xFF {
			return frccan.Event{}, false, fmt.Errorf("capture: data value %#x exceeds one byte", b)
		}
		ev.Kind = frccan.EventData
		ev.Byte = byte(b)
	case "ack_field":
		ev.Kind = frccan.EventAck
		ev.Ack = s.boolField(row, "ack")
	case "can_error":
		ev.Kind = frccan.EventError
	default:
		return frccan.Event{}, false, nil
	}
	return ev, true, nil
}
