package frccan

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// EventKind discriminates the capture sub-events that make up one frame.
type EventKind uint8

const (
	// EventIdentifier opens a frame: the arbitration field was decoded.
	EventIdentifier EventKind = iota
	// EventControl carries the declared data length. At most one per frame.
	EventControl
	// EventData carries one payload byte. Zero to eight per frame.
	EventData
	// EventAck finalizes the frame. The only successful completion path.
	EventAck
	// EventError reports a bus error in lieu of completion.
	EventError
)

// Event is one capture sub-event. Start and End are capture timestamps in
// seconds; the payload fields are valid per the Kind's doc comment.
type Event struct {
	Kind  EventKind
	Start float64
	End   float64

	Identifier uint32 // EventIdentifier
	Extended   bool   // EventIdentifier
	Remote     bool   // EventIdentifier

	ExpectedBytes int // EventControl

	Byte byte // EventData

	Ack bool // EventAck
}

// ErrNoFrame reports a control, data or ack sub-event with no frame in
// progress. The capture layer contract promises ordered sub-events, so this
// only fires on a malformed stream.
var ErrNoFrame = errors.New("frccan: sub-event with no frame in progress")

type assemblerState uint8

const (
	stateEmpty assemblerState = iota
	stateOpen
	stateCollecting
)

// Assembler reconstructs logical frames from the capture sub-event stream.
// It holds at most one in-progress frame and is not safe for concurrent
// use; the capture model is single-threaded by contract.
type Assembler struct {
	state  assemblerState
	frame  *Frame
	logger zerolog.Logger
}

// NewAssembler returns an assembler with no frame in progress. Pass
// zerolog.Nop() to silence the diagnostic events.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Feed consumes one sub-event. It returns a non-nil Record when the event
// finalized a frame (ack) or reported a bus error; otherwise nil.
func (a *Assembler) Feed(ev Event) (*Record, error) {
	switch ev.Kind {
	case EventIdentifier:
		// A new identifier always wins. An unfinalized frame is dropped
		// silently, matching the capture layer's best-effort contract.
		if a.frame != nil {
			a.logger.Debug().
				Uint32("identifier", a.frame.Identifier).
				Int("data_bytes", len(a.frame.Data)).
				Msg("replacing unfinalized frame")
		}
		a.frame = newFrame(ev.Identifier, ev.Extended, ev.Remote, ev.Start)
		a.state = stateOpen
		return nil, nil

	case EventControl:
		if a.frame == nil {
			return nil, ErrNoFrame
		}
		a.frame.ExpectedLength = ev.ExpectedBytes
		return nil, nil

	case EventData:
		if a.frame == nil {
			return nil, ErrNoFrame
		}
		a.frame.addData(ev.Byte)
		a.state = stateCollecting
		return nil, nil

	case EventAck:
		if a.frame == nil {
			return nil, ErrNoFrame
		}
		frame := a.frame
		frame.End = ev.End
		frame.Ack = ev.Ack
		a.frame = nil
		a.state = stateEmpty
		return frame.record(a.logger), nil

	case EventError:
		// The in-progress frame is discarded outright; the error record
		// carries only the error event's own bounds.
		a.frame = nil
		a.state = stateEmpty
		return &Record{Type: RecordError, Start: ev.Start, End: ev.End}, nil

	default:
		return nil, fmt.Errorf("frccan: unknown event kind %d", ev.Kind)
	}
}

// Pending reports whether a frame is currently in progress.
func (a *Assembler) Pending() bool {
	return a.state != stateEmpty
}
