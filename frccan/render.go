package frccan

import (
	"fmt"
	"strconv"
)

// Summary renders the record using the literal presentation template for
// its type. These strings match the analyzer's display output byte for
// byte; downstream tooling greps them.
func (r *Record) Summary() string {
	f := r.Fields
	switch r.Type {
	case RecordBroadcast:
		return fmt.Sprintf("BROADCAST Type:%s Data: <%s>", f.BroadcastType, f.Data)
	case RecordHeartbeat:
		red, enabled, auton, test, watchdog := f.Heartbeat.flagStrings()
		return fmt.Sprintf("HEARTBEAT RedAlliance: %s Enabled: %s Autonomous: %s Test: %s WatchdogEnabled: %s Data: <%s>",
			red, enabled, auton, test, watchdog, f.Data)
	case RecordControl:
		return fmt.Sprintf("CONTROL Dev: %s Mfg: %s ControlType: %s DevID: %d Data: <%s>",
			f.DeviceTypeName, f.ManufacturerName, f.ControlType, f.DeviceID, f.Data)
	case RecordStatus:
		return fmt.Sprintf("STATUS Dev: %s Mfg: %s StatusType: %s DevID: %d Data: <%s>",
			f.DeviceTypeName, f.ManufacturerName, f.StatusType, f.DeviceID, f.Data)
	case RecordError:
		return "ERROR"
	default:
		return fmt.Sprintf("FRAME Dev: %s Mfg: %s API: %d Index: %d DevID: %d Data: <%s>",
			f.DeviceTypeName, f.ManufacturerName, f.APIClass, f.APIIndex, f.DeviceID, f.Data)
	}
}

// flagStrings renders the five flags for the heartbeat template. A nil
// receiver (heartbeat shorter than five bytes) renders empty placeholders,
// like a template interpolating missing keys.
func (h *HeartbeatFlags) flagStrings() (red, enabled, auton, test, watchdog string) {
	if h == nil {
		return
	}
	return strconv.FormatBool(h.RedAlliance),
		strconv.FormatBool(h.Enabled),
		strconv.FormatBool(h.Autonomous),
		strconv.FormatBool(h.Test),
		strconv.FormatBool(h.WatchdogEnabled)
}
