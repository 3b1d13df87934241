package frccan

import (
	"encoding/json"
	"testing"
)

// assemble runs a whole frame through an assembler and returns its record.
func assemble(t *testing.T, id uint32, data []byte) *Record {
	t.Helper()
	a := newTestAssembler()
	events := append([]Event{identifierEvent(id, 0)}, dataEvents(data...)...)
	events = append(events, Event{Kind: EventAck, Ack: true, End: 0.001})
	records := feed(t, a, events...)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	return records[0]
}

func TestClassifyPriority(t *testing.T) {
	cases := []struct {
		name string
		id   uint32
		data []byte
		want RecordType
	}{
		{"heartbeat", HeartbeatID, []byte{0, 0, 0, 0, 0x48}, RecordHeartbeat},
		{"global broadcast", makeID(0, 0, 0, 2, 0), nil, RecordBroadcast},
		{"device broadcast", makeID(2, 4, 5, 1, 63), nil, RecordBroadcast},
		{"ctre motor status", makeID(2, 4, 0, 0, 7) | 0x1440, []byte{1, 2}, RecordStatus},
		{"ctre motor control", makeID(2, 4, 0, 0, 3) | 0x040080, []byte{1}, RecordControl},
		{"ctre pdp status", makeID(8, 4, 5, 0, 1), nil, RecordStatus},
		{"plain frame", makeID(4, 9, 3, 2, 1), []byte{1, 2, 3}, RecordNormal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := assemble(t, c.id, c.data)
			if rec.Type != c.want {
				t.Fatalf("got %v want %v", rec.Type, c.want)
			}
		})
	}
}

func TestHeartbeatFlags(t *testing.T) {
	// 0xC8 = 1100 1000: red alliance, enabled, watchdog.
	rec := assemble(t, HeartbeatID, []byte{0, 0, 0, 0, 0xC8})
	flags := rec.Fields.Heartbeat
	if flags == nil {
		t.Fatalf("heartbeat flags absent")
	}
	if !flags.RedAlliance || !flags.Enabled || !flags.WatchdogEnabled {
		t.Fatalf("unexpected flags %+v", flags)
	}
	if flags.Autonomous || flags.Test {
		t.Fatalf("unexpected flags %+v", flags)
	}
}

func TestHeartbeatEndToEnd(t *testing.T) {
	// 0x48 = 0100 1000: enabled and watchdog only.
	rec := assemble(t, HeartbeatID, []byte{0, 0, 0, 0, 0x48})
	if rec.Type != RecordHeartbeat {
		t.Fatalf("got %v want Heartbeat", rec.Type)
	}
	flags := rec.Fields.Heartbeat
	if flags == nil {
		t.Fatalf("heartbeat flags absent")
	}
	want := HeartbeatFlags{Enabled: true, WatchdogEnabled: true}
	if *flags != want {
		t.Fatalf("got %+v want %+v", *flags, want)
	}
}

func TestHeartbeatFlagsOmittedWhenShort(t *testing.T) {
	rec := assemble(t, HeartbeatID, []byte{0, 0, 0, 0})
	if rec.Type != RecordHeartbeat {
		t.Fatalf("got %v want Heartbeat", rec.Type)
	}
	if rec.Fields.Heartbeat != nil {
		t.Fatalf("flags present on short heartbeat: %+v", rec.Fields.Heartbeat)
	}
}

func TestConditionalFieldsFollowPredicates(t *testing.T) {
	// A CTRE motor status address sent to device 63 classifies as
	// Broadcast, but the status type still rides along: conditional
	// fields track the predicates, not the winning tag.
	rec := assemble(t, makeID(2, 4, 0, 0, 63)|0x1440, nil)
	if rec.Type != RecordBroadcast {
		t.Fatalf("got %v want Broadcast", rec.Type)
	}
	if rec.Fields.BroadcastType != "Device-specific" {
		t.Fatalf("unexpected broadcast type %q", rec.Fields.BroadcastType)
	}
	if rec.Fields.StatusType != "Status 2 (Feedback PID0)" {
		t.Fatalf("unexpected status type %q", rec.Fields.StatusType)
	}
}

func TestRecordAlwaysPresentFields(t *testing.T) {
	rec := assemble(t, makeID(2, 5, 9, 3, 12), []byte{0xAB})
	f := rec.Fields
	if f.DeviceType != 2 || f.DeviceTypeName != "Motor Controller" {
		t.Fatalf("device type fields: %+v", f)
	}
	if f.Manufacturer != 5 || f.ManufacturerName != "REV Robotics" {
		t.Fatalf("manufacturer fields: %+v", f)
	}
	if f.APIClass != 9 || f.APIIndex != 3 || f.DeviceID != 12 {
		t.Fatalf("api fields: %+v", f)
	}
	if f.StatusType != "" || f.ControlType != "" || f.BroadcastType != "" {
		t.Fatalf("conditional fields leaked: %+v", f)
	}
	if f.Heartbeat != nil {
		t.Fatalf("heartbeat flags leaked: %+v", f.Heartbeat)
	}
}

func TestRecordJSONShape(t *testing.T) {
	rec := assemble(t, makeID(4, 9, 3, 2, 1), []byte{1, 2})
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "Normal" {
		t.Fatalf("type serialized as %v", decoded["type"])
	}
	fields, ok := decoded["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields missing: %s", raw)
	}
	// Conditional members must be absent, not empty.
	for _, key := range []string{"status_type", "control_type", "broadcast_type", "heartbeat"} {
		if _, present := fields[key]; present {
			t.Fatalf("conditional field %q serialized on a normal frame", key)
		}
	}

	errRec := &Record{Type: RecordError, Start: 1, End: 2}
	raw, err = json.Marshal(errRec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded = map[string]any{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := decoded["fields"]; present {
		t.Fatalf("error record serialized frame fields: %s", raw)
	}
}
