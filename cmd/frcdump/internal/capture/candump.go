package capture

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/drsandytoes/saleae-frc-can/frccan"
)

// CandumpSource replays a candump log. candump records whole frames, so
// each line expands into the synthesized Identifier, Control, Data* and Ack
// sub-events the assembler expects.
type CandumpSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	queue   []frccan.Event
	line    int
}

// OpenCandump opens a candump log file.
func OpenCandump(path string) (*CandumpSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candump log: %w", err)
	}
	s := NewCandumpSource(f)
	s.closer = f
	return s, nil
}

// NewCandumpSource replays candump lines from r.
func NewCandumpSource(r io.Reader) *CandumpSource {
	return &CandumpSource{scanner: bufio.NewScanner(r)}
}

// Next returns the next synthesized sub-event, or io.EOF when the log is
// exhausted.
func (s *CandumpSource) Next(ctx context.Context) (frccan.Event, error) {
	for len(s.queue) == 0 {
		if err := ctx.Err(); err != nil {
			return frccan.Event{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return frccan.Event{}, err
			}
			return frccan.Event{}, io.EOF
		}
		s.line++
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		events, err := ParseCandumpLine(line)
		if err != nil {
			return frccan.Event{}, fmt.Errorf("candump line %d: %w", s.line, err)
		}
		s.queue = events
	}

	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, nil
}

func (s *CandumpSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ParseCandumpLine expands one "(timestamp) iface ID#PAYLOAD" line into a
// sub-event sequence. The timestamp and interface name are optional.
func ParseCandumpLine(line string) ([]frccan.Event, error) {
	hash := strings.Index(line, "#")
	if hash == -1 {
		return nil, errors.New("no # separator")
	}

	idPart := strings.TrimSpace(line[:hash])

	var ts float64
	if strings.HasPrefix(idPart, "(") {
		end := strings.Index(idPart, ")")
		if end == -1 {
			return nil, errors.New("unterminated timestamp")
		}
		v, err := strconv.ParseFloat(idPart[1:end], 64)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		ts = v
		idPart = strings.TrimSpace(idPart[end+1:])
	}

	// Anything left before the identifier is the interface name.
	if i := strings.LastIndex(idPart, " "); i != -1 {
		idPart = idPart[i+1:]
	}
	if idPart == "" {
		return nil, errors.New("missing identifier")
	}

	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("identifier %q: %w", idPart, err)
	}

	payloadPart := strings.TrimSpace(line[hash+1:])
	remote := strings.HasPrefix(payloadPart, "R")
	var payload []byte
	if !remote {
		payloadHex := strings.ReplaceAll(payloadPart, " ", "")
		payloadHex = strings.ReplaceAll(payloadHex, ".", "")
		payload, err = hex.DecodeString(payloadHex)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		if len(payload) > 8 {
			return nil, fmt.Errorf("payload too long: %d bytes", len(payload))
		}
	}

	// candump prints extended identifiers with eight digits, standard
	// ones with three.
	extended := len(idPart) > 3

	events := make([]frccan.Event, 0, len(payload)+3)
	events = append(events, frccan.Event{
		Kind:       frccan.EventIdentifier,
		Identifier: uint32(id),
		Extended:   extended,
		Remote:     remote,
		Start:      ts,
		End:        ts,
	})
	events = append(events, frccan.Event{
		Kind:          frccan.EventControl,
		ExpectedBytes: len(payload),
		Start:         ts,
		End:           ts,
	})
	for _, b := range payload {
		events = append(events, frccan.Event{Kind: frccan.EventData, Byte: b, Start: ts, End: ts})
	}
	events = append(events, frccan.Event{Kind: frccan.EventAck, Ack: true, Start: ts, End: ts})
	return events, nil
}
