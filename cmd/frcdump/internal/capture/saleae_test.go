package capture

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/drsandytoes/saleae-frc-can/frccan"
)

const heartbeatExport = `name,type,start_time,duration,identifier,extended,remote_frame,num_data_bytes,data,ack
CAN,identifier_field,1.000000,0.000290,0x01011840,true,false,,,
CAN,control_field,1.000300,0.000060,,,,5,,
CAN,data_field,1.000400,0.000080,,,,,0x00,
CAN,data_field,1.000500,0.000080,,,,,0x00,
CAN,data_field,1.000600,0.000080,,,,,0x00,
CAN,data_field,1.000700,0.000080,,,,,0x00,
CAN,data_field,1.000800,0.000080,,,,,0x48,
CAN,crc_field,1.000900,0.000150,,,,,,
CAN,ack_field,1.001100,0.000020,,,,,,true
`

func readAll(t *testing.T, src *CSVSource) []frccan.Event {
	t.Helper()
	var events []frccan.Event
	for {
		ev, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		events = append(events, ev)
	}
}

func TestCSVSourceEvents(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader(heartbeatExport))
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}

	events := readAll(t, src)
	// The crc_field row is skipped: 1 identifier + 1 control + 5 data + 1 ack.
	if len(events) != 8 {
		t.Fatalf("expected 8 events, got %d", len(events))
	}

	id := events[0]
	if id.Kind != frccan.EventIdentifier {
		t.Fatalf("expected identifier event, got kind %d", id.Kind)
	}
	if id.Identifier != frccan.HeartbeatID {
		t.Fatalf("unexpected identifier %08X", id.Identifier)
	}
	if !id.Extended || id.Remote {
		t.Fatalf("unexpected flags: extended=%v remote=%v", id.Extended, id.Remote)
	}
	if id.Start != 1.0 {
		t.Fatalf("unexpected start %v", id.Start)
	}
	if math.Abs(id.End-1.00029) > 1e-9 {
		t.Fatalf("unexpected end %v", id.End)
	}

	if events[1].Kind != frccan.EventControl || events[1].ExpectedBytes != 5 {
		t.Fatalf("unexpected control event %+v", events[1])
	}
	if events[6].Kind != frccan.EventData || events[6].Byte != 0x48 {
		t.Fatalf("unexpected data event %+v", events[6])
	}
	if events[7].Kind != frccan.EventAck || !events[7].Ack {
		t.Fatalf("unexpected ack event %+v", events[7])
	}
}

func TestCSVSourceDrivesAssembler(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader(heartbeatExport))
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}

	assembler := frccan.NewAssembler(zerolog.Nop())
	var records []*frccan.Record
	for _, ev := range readAll(t, src) {
		rec, err := assembler.Feed(ev)
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		if rec != nil {
			records = append(records, rec)
		}
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Type != frccan.RecordHeartbeat {
		t.Fatalf("expected Heartbeat, got %v", rec.Type)
	}
	flags := rec.Fields.Heartbeat
	if flags == nil || !flags.Enabled || !flags.WatchdogEnabled || flags.RedAlliance {
		t.Fatalf("unexpected flags %+v", flags)
	}
}

func TestCSVSourceErrorRow(t *testing.T) {
	export := `name,type,start_time,duration,identifier,extended,remote_frame,num_data_bytes,data,ack
CAN,can_error,2.500000,0.000100,,,,,,
`
	src, err := NewCSVSource(strings.NewReader(export))
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	events := readAll(t, src)
	if len(events) != 1 || events[0].Kind != frccan.EventError {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].Start != 2.5 {
		t.Fatalf("unexpected start %v", events[0].Start)
	}
}

func TestCSVSourceDecimalValues(t *testing.T) {
	export := `type,start_time,duration,identifier,extended,remote_frame,num_data_bytes,data,ack
identifier_field,0,0,16848960,true,false,,,
data_field,0,0,,,,,72,
ack_field,0,0,,,,,,1
`
	src, err := NewCSVSource(strings.NewReader(export))
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	events := readAll(t, src)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Identifier != frccan.HeartbeatID {
		t.Fatalf("unexpected identifier %08X", events[0].Identifier)
	}
	if events[1].Byte != 72 {
		t.Fatalf("unexpected byte %d", events[1].Byte)
	}
	if !events[2].Ack {
		t.Fatalf("ack not parsed from numeric true")
	}
}

func TestCSVSourceMissingIdentifier(t *testing.T) {
	export := `type,start_time,duration,identifier
identifier_field,0,0,
`
	src, err := NewCSVSource(strings.NewReader(export))
	if err != nil {
		t.Fatalf("NewCSVSource: %v", err)
	}
	if _, err := src.Next(context.Background()); err == nil {
		t.Fatalf("expected error for identifier row without identifier")
	}
}

func TestCSVSourceNoTypeColumn(t *testing.T) {
	if _, err := NewCSVSource(strings.NewReader("a,b,c\n1,2,3\n")); err == nil {
		t.Fatalf("expected error for export without type column")
	}
}
