// Package frccan decodes FIRST Robotics Competition CAN traffic. It turns
// the sub-event stream produced by a bit-level CAN capture (identifier,
// control, data, ack, error) into classified frame records carrying the
// decoded FRC address fields and, where the vendor catalog knows them,
// status/control frame names.
package frccan

// The 29-bit extended identifier packs five fields:
//
//	| DeviceType   | Mfg Code   | API Class   | Idx   | Device #   |
//	 28         24 23        16 15         10 9     6 5          0
const (
	extendedIDMask = 0x1FFFFFFF

	// HeartbeatID is the fixed identifier of the roboRIO match-state
	// heartbeat broadcast.
	HeartbeatID = 0x01011840

	// deviceNumberBroadcast addresses every device regardless of number.
	deviceNumberBroadcast = 63
)

// Address is a decoded FRC CAN identifier.
type Address struct {
	Raw              uint32
	DeviceType       uint8
	ManufacturerCode uint8
	APIClass         uint8
	APIIndex         uint8
	DeviceNumber     uint8
}

// DecodeAddress splits a 29-bit identifier into its FRC address fields.
func DecodeAddress(raw uint32) Address {
	raw &= extendedIDMask
	return Address{
		Raw:              raw,
		DeviceType:       uint8(raw >> 24 & 0x1F),
		ManufacturerCode: uint8(raw >> 16 & 0xFF),
		APIClass:         uint8(raw >> 10 & 0x3F),
		APIIndex:         uint8(raw >> 6 & 0xF),
		DeviceNumber:     uint8(raw & 0x3F),
	}
}

const (
	unknownName  = "UNKNOWN"
	reservedName = "Reserved"
)

var broadcastTypeNames = map[uint8]string{
	0:  "Disable",
	1:  "Halt",
	2:  "Reset",
	3:  "Assign",
	4:  "Query",
	5:  "Heartbeat",
	6:  "Sync",
	7:  "Update",
	8:  "Version",
	9:  "Enumerate",
	10: "Resume",
}

var deviceTypeNames = map[uint8]string{
	0:  "Broadcast",
	1:  "Robot Controller",
	2:  "Motor Controller",
	3:  "Relay Controller",
	4:  "Gyro Sensor",
	5:  "Accelerometer",
	6:  "Ultrasonic Sensor",
	7:  "Gear Tooth Sensor",
	8:  "PDP/PDM",
	9:  "Pneumatics Controller",
	10: "Misc",
	11: "IO Breakout",
	31: "Firmware Update",
}

var manufacturerNames = map[uint8]string{
	0:  "Broadcast",
	1:  "NI",
	2:  "Luminary Micro",
	3:  "DEKA",
	4:  "CTR Electronics",
	5:  "REV Robotics",
	6:  "Grapple",
	7:  "MindSensors",
	8:  "Team Use",
	9:  "Kauai Labs",
	10: "Copperforge",
	11: "Playing with Fusion",
	12: "Sutdica",
}

// CTRE device types with documented private status/control layouts.
const (
	manufacturerCTRE          = 4
	deviceTypeMotorController = 2
	deviceTypePDP             = 8
)

// Masks isolating the API portion of a CTRE identifier, in place. The
// motor status keys cover the API class and index (bits 6-15); the motor
// control keys additionally embed the low manufacturer bits (bits 6-22)
// to match the constants in the CTRE headers.
const (
	ctreMotorStatusMask  = 0x3FF << 6
	ctreMotorControlMask = 0x1FFFF << 6
)

var ctreMotorStatusNames = map[uint32]string{
	0x1400: "Status 1 (General)",
	0x1440: "Status 2 (Feedback PID0)",
	0x14C0: "Status 4 (Analog sensor, temp, voltage)",
	0x1540: "Status 6 (Misc)",
	0x1580: "Status 7 (Comms)",
	0x1600: "Status 9 (Motion profile buffer)",
	0x1640: "Status 10 (Targets/MotionMagic)",
	0x16C0: "Status 12 (Feedback PID1)",
	0x1700: "Status 13 (Primary PIDF0)",
	0x1740: "Status 14 (Aux PIDF1)",
	0x1780: "Status 15 (Firmware/API status)",
	0x1C00: "Status 17 (Targets PID1)",
}

var ctreMotorControlNames = map[uint32]string{
	0x040040: "Control2 (Enable 50m)",
	0x040080: "Control3 (General)",
	0x0400C0: "Control4 (Advanced)",
	0x040100: "Control5 (Feedback override)",
	0x040140: "Control6 (Add trajectory point)",
}

var ctrePDPStatusNames = map[uint16]string{
	0x50: "Status1",
	0x51: "Status2",
	0x52: "Status3",
	0x5D: "StatusEnergy",
}

var ctrePDPControlNames = map[uint16]string{
	0x70: "Control1",
}

// IsDeviceBroadcast reports whether the frame is addressed to all devices
// of its type and manufacturer (device number 63).
func (a Address) IsDeviceBroadcast() bool {
	return a.DeviceNumber == deviceNumberBroadcast
}

// IsBroadcast reports whether the frame is any kind of broadcast: either
// device number 63, or the global broadcast space where device type,
// manufacturer and API class are all zero.
func (a Address) IsBroadcast() bool {
	return a.IsDeviceBroadcast() ||
		(a.DeviceType == 0 && a.ManufacturerCode == 0 && a.APIClass == 0)
}

// IsHeartbeat reports whether the identifier is the match-state heartbeat.
func (a Address) IsHeartbeat() bool {
	return a.Raw == HeartbeatID
}

// BroadcastType names the broadcast message carried by the API index.
func (a Address) BroadcastType() string {
	if a.IsDeviceBroadcast() {
		return "Device-specific"
	}
	if name, ok := broadcastTypeNames[a.APIIndex]; ok {
		return name
	}
	return unknownName
}

// DeviceTypeName names the device type. Types 12-30 are reserved by the
// addressing scheme and always render as such.
func (a Address) DeviceTypeName() string {
	if a.DeviceType >= 12 && a.DeviceType <= 30 {
		return reservedName
	}
	if name, ok := deviceTypeNames[a.DeviceType]; ok {
		return name
	}
	return unknownName
}

// ManufacturerName names the manufacturer. Codes 13-255 are reserved.
func (a Address) ManufacturerName() string {
	if a.ManufacturerCode >= 13 {
		return reservedName
	}
	if name, ok := manufacturerNames[a.ManufacturerCode]; ok {
		return name
	}
	return unknownName
}

func (a Address) isCTREMotor() bool {
	return a.DeviceType == deviceTypeMotorController && a.ManufacturerCode == manufacturerCTRE
}

func (a Address) isCTREPDP() bool {
	return a.DeviceType == deviceTypePDP && a.ManufacturerCode == manufacturerCTRE
}

// pdpKey collapses API class and index into the single byte the PDP tables
// are keyed by. Wider than uint8 so out-of-range classes cannot alias a
// real key.
func (a Address) pdpKey() uint16 {
	return uint16(a.APIClass)<<4 | uint16(a.APIIndex)
}

// StatusType names the vendor status frame this address carries, if the
// catalog recognizes one. A false return is not an error; it only means
// the address is not a known status frame.
func (a Address) StatusType() (string, bool) {
	switch {
	case a.isCTREMotor():
		name, ok := ctreMotorStatusNames[a.Raw&ctreMotorStatusMask]
		return name, ok
	case a.isCTREPDP():
		name, ok := ctrePDPStatusNames[a.pdpKey()]
		return name, ok
	}
	return "", false
}

// ControlType names the vendor control frame this address carries, if the
// catalog recognizes one.
func (a Address) ControlType() (string, bool) {
	switch {
	case a.isCTREMotor():
		name, ok := ctreMotorControlNames[a.Raw&ctreMotorControlMask]
		return name, ok
	case a.isCTREPDP():
		name, ok := ctrePDPControlNames[a.pdpKey()]
		return name, ok
	}
	return "", false
}

// matchesCTREControlShape reports whether a non-CTRE identifier lines up
// with a known CTRE motor-control pattern anyway. Diagnostic use only.
func (a Address) matchesCTREControlShape() bool {
	_, ok := ctreMotorControlNames[a.Raw&ctreMotorControlMask]
	return ok
}
