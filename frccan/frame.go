package frccan

import "fmt"

// Frame is one logical CAN frame under reassembly. It is owned exclusively
// by the Assembler; callers only ever see the Record emitted when the frame
// finalizes.
type Frame struct {
	Identifier uint32
	Address    Address
	Extended   bool
	Remote     bool

	// Capture timestamps in seconds. End is set on finalization.
	Start float64
	End   float64

	Data    []byte
	DataHex string // running two-hex-digit rendering, one trailing space per byte

	// ExpectedLength is the byte count declared by the control field.
	// Informational only; never checked against len(Data).
	ExpectedLength int

	Ack bool
}

func newFrame(identifier uint32, extended, remote bool, start float64) *Frame {
	return &Frame{
		Identifier: identifier,
		Address:    DecodeAddress(identifier),
		Extended:   extended,
		Remote:     remote,
		Start:      start,
	}
}

func (f *Frame) addData(b byte) {
	f.Data = append(f.Data, b)
	f.DataHex += fmt.Sprintf("%02X ", b)
}

// Heartbeat flag bit positions within data byte 4.
const (
	heartbeatRedAlliance     = 0x80
	heartbeatEnabled         = 0x40
	heartbeatAutonomous      = 0x20
	heartbeatTest            = 0x10
	heartbeatWatchdogEnabled = 0x08
)

// heartbeatFlags decodes the match-state flags from data byte 4. Returns
// nil when fewer than five data bytes were collected; the flags are then
// absent from the record, not false.
func (f *Frame) heartbeatFlags() *HeartbeatFlags {
	if len(f.Data) < 5 {
		return nil
	}
	b := f.Data[4]
	return &HeartbeatFlags{
		RedAlliance:     b&heartbeatRedAlliance != 0,
		Enabled:         b&heartbeatEnabled != 0,
		Autonomous:      b&heartbeatAutonomous != 0,
		Test:            b&heartbeatTest != 0,
		WatchdogEnabled: b&heartbeatWatchdogEnabled != 0,
	}
}
