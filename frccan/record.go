package frccan

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RecordType classifies a finalized frame. Exactly one type applies.
type RecordType uint8

const (
	RecordNormal RecordType = iota
	RecordBroadcast
	RecordHeartbeat
	RecordControl
	RecordStatus
	RecordError
)

func (t RecordType) String() string {
	switch t {
	case RecordNormal:
		return "Normal"
	case RecordBroadcast:
		return "Broadcast"
	case RecordHeartbeat:
		return "Heartbeat"
	case RecordControl:
		return "Control"
	case RecordStatus:
		return "Status"
	case RecordError:
		return "Error"
	default:
		return fmt.Sprintf("RecordType(%d)", uint8(t))
	}
}

// MarshalText makes record types serialize by name.
func (t RecordType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a record type name.
func (t *RecordType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Normal":
		*t = RecordNormal
	case "Broadcast":
		*t = RecordBroadcast
	case "Heartbeat":
		*t = RecordHeartbeat
	case "Control":
		*t = RecordControl
	case "Status":
		*t = RecordStatus
	case "Error":
		*t = RecordError
	default:
		return fmt.Errorf("frccan: unknown record type %q", text)
	}
	return nil
}

// HeartbeatFlags are the match-state bits carried in data byte 4 of the
// heartbeat frame.
type HeartbeatFlags struct {
	RedAlliance     bool `json:"red_alliance" cbor:"red_alliance"`
	Enabled         bool `json:"enabled" cbor:"enabled"`
	Autonomous      bool `json:"autonomous" cbor:"autonomous"`
	Test            bool `json:"test" cbor:"test"`
	WatchdogEnabled bool `json:"watchdog_enabled" cbor:"watchdog_enabled"`
}

// FrameFields carries the decoded contents of a finalized frame. The
// conditional members follow the presence rules of the analyzer output:
// an empty string or nil pointer means the field does not apply, not that
// its value is empty.
type FrameFields struct {
	Identifier       uint32 `json:"identifier" cbor:"identifier"`
	DeviceType       uint8  `json:"device_type" cbor:"device_type"`
	DeviceTypeName   string `json:"device_type_name" cbor:"device_type_name"`
	Manufacturer     uint8  `json:"mfg" cbor:"mfg"`
	ManufacturerName string `json:"mfg_name" cbor:"mfg_name"`
	APIClass         uint8  `json:"api" cbor:"api"`
	APIIndex         uint8  `json:"idx" cbor:"idx"`
	DeviceID         uint8  `json:"device_id" cbor:"device_id"`
	Data             string `json:"data" cbor:"data"`
	ExpectedLength   int    `json:"expected_length" cbor:"expected_length"`
	Length           int    `json:"length" cbor:"length"`

	StatusType    string          `json:"status_type,omitempty" cbor:"status_type,omitempty"`
	ControlType   string          `json:"control_type,omitempty" cbor:"control_type,omitempty"`
	BroadcastType string          `json:"broadcast_type,omitempty" cbor:"broadcast_type,omitempty"`
	Heartbeat     *HeartbeatFlags `json:"heartbeat,omitempty" cbor:"heartbeat,omitempty"`
}

// Record is one classified output record. Fields is nil on Error records,
// which carry only the timing bounds of the bus error.
type Record struct {
	Type   RecordType   `json:"type" cbor:"type"`
	Start  float64      `json:"start" cbor:"start"`
	End    float64      `json:"end" cbor:"end"`
	Fields *FrameFields `json:"fields,omitempty" cbor:"fields,omitempty"`
}

// classify assigns the record type for a finalized frame. First match
// wins; Error never originates here.
func classify(a Address) RecordType {
	switch {
	case a.IsHeartbeat():
		return RecordHeartbeat
	case a.IsBroadcast():
		return RecordBroadcast
	}
	if _, ok := a.StatusType(); ok {
		return RecordStatus
	}
	if _, ok := a.ControlType(); ok {
		return RecordControl
	}
	return RecordNormal
}

// record builds the output record for a finalized frame. The conditional
// fields are driven by the underlying predicates, independent of the final
// type: a heartbeat that is also broadcast-shaped still carries its
// broadcast type.
func (f *Frame) record(logger zerolog.Logger) *Record {
	a := f.Address
	fields := &FrameFields{
		Identifier:       a.Raw,
		DeviceType:       a.DeviceType,
		DeviceTypeName:   a.DeviceTypeName(),
		Manufacturer:     a.ManufacturerCode,
		ManufacturerName: a.ManufacturerName(),
		APIClass:         a.APIClass,
		APIIndex:         a.APIIndex,
		DeviceID:         a.DeviceNumber,
		Data:             f.DataHex,
		ExpectedLength:   f.ExpectedLength,
		Length:           len(f.Data),
	}

	if name, ok := a.StatusType(); ok {
		fields.StatusType = name
	}

	if name, ok := a.ControlType(); ok {
		fields.ControlType = name
	} else if !a.isCTREMotor() && !a.isCTREPDP() && a.matchesCTREControlShape() {
		// Telemetry only: a foreign device is using a CTRE-shaped
		// control address.
		logger.Debug().
			Uint32("identifier", a.Raw).
			Uint8("device_type", a.DeviceType).
			Uint8("mfg", a.ManufacturerCode).
			Msg("possible unrecognized control frame")
	}

	if a.IsBroadcast() {
		fields.BroadcastType = a.BroadcastType()
	}

	if a.IsHeartbeat() {
		fields.Heartbeat = f.heartbeatFlags()
	}

	return &Record{
		Type:   classify(a),
		Start:  f.Start,
		End:    f.End,
		Fields: fields,
	}
}
