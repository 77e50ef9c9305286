package wire

// MaxPayload is the hard cap on any single payload, imposed by the
// one-byte wire length field (§3: "payloads larger than 255 bytes" are a
// non-goal).
const MaxPayload = 255

// layout describes how big a message type's payload is. Fixed-size types
// set size and leave variable false. Variable types set base (the portion
// read unconditionally, including the trailing length byte at
// base-1) and max (the largest permitted value of that length byte).
type layout struct {
	variable bool
	size     int // fixed payload size, when !variable
	base     int // base payload size, when variable (length byte is base-1)
	max      int // maximum extra payload bytes, when variable
}

var layouts = [typeEnd]layout{
	Probe:             {size: 1},
	Ack:               {size: 1},
	Command:           {size: 3},
	BlobRequest:       {size: 2},
	BlobAnswer:        {variable: true, base: 3, max: MaxPayload},
	DeviceInfoReq:     {size: 1},
	DeviceInfoAnw:     {variable: true, base: DeviceVersionSize + 1, max: MaxPayload},
	FileWriteRequest:  {size: 5},
	FileWriteChunk:    {variable: true, base: 2, max: MaxPayload},
	FileWriteFinalize: {size: 11},
	HealthReq:         {size: 1},
	HealthAnw:         {size: 4},
	Reboot:            {size: 8},
}

// FixedSize returns the payload size for t and true, or (0, false) if t's
// payload is variable-length.
func FixedSize(t MessageType) (int, bool) {
	if !t.Valid() {
		return 0, false
	}
	l := layouts[t]
	if l.variable {
		return 0, false
	}
	return l.size, true
}

// VariableBase returns the base size (including the trailing length byte)
// and the maximum extra-payload size for a variable-length type. ok is
// false for fixed-size or unknown types.
func VariableBase(t MessageType) (base, max int, ok bool) {
	if !t.Valid() {
		return 0, 0, false
	}
	l := layouts[t]
	if !l.variable {
		return 0, 0, false
	}
	return l.base, l.max, true
}

// IsVariable reports whether t's payload length depends on a length byte.
func IsVariable(t MessageType) bool {
	if !t.Valid() {
		return false
	}
	return layouts[t].variable
}

// PayloadSize returns the total payload size for a frame of type t whose
// variable-length byte (when applicable) reads extra. For fixed types,
// extra is ignored.
func PayloadSize(t MessageType, extra int) (int, bool) {
	if l, ok := FixedSize(t); ok {
		return l, true
	}
	base, max, ok := VariableBase(t)
	if !ok {
		return 0, false
	}
	if extra < 0 || extra > max {
		return 0, false
	}
	return base + extra, true
}
