// Package wire defines the UtilitaryRS frame layout: the message-type
// enum, the fixed header, per-type payload shapes, result/health codes,
// the CRC primitives, the size oracle, and the streaming parser/encoder.
//
// Everything here is allocation-free and stateless except Parser, which
// owns a single fixed buffer. Multi-byte fields are little-endian;
// structures are packed with no implicit padding.
package wire

// Preamble is the single synchronization byte that opens every frame.
const Preamble byte = 0x52 // 'R'

// BroadcastUID is the reserved "any device" / "no device" address.
const BroadcastUID uint8 = 0xFF

// HeaderSize is the fixed 4-byte header: receiverUID, transmitUID,
// messageType, number.
const HeaderSize = 4

// CRCSize is the trailing CRC-8 byte.
const CRCSize = 1

// FramingOverhead is preamble + crc, the bytes added around header+payload.
const FramingOverhead = 1 + CRCSize

// MessageType identifies the payload shape of a frame.
type MessageType uint8

const (
	Probe MessageType = iota
	Ack
	Command
	BlobRequest
	BlobAnswer
	DeviceInfoReq
	DeviceInfoAnw
	FileWriteRequest
	FileWriteChunk
	FileWriteFinalize
	HealthReq
	HealthAnw
	Reboot
	typeEnd // sentinel: first invalid type
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t < typeEnd
}

func (t MessageType) String() string {
	switch t {
	case Probe:
		return "Probe"
	case Ack:
		return "Ack"
	case Command:
		return "Command"
	case BlobRequest:
		return "BlobRequest"
	case BlobAnswer:
		return "BlobAnswer"
	case DeviceInfoReq:
		return "DeviceInfoReq"
	case DeviceInfoAnw:
		return "DeviceInfoAnw"
	case FileWriteRequest:
		return "FileWriteRequest"
	case FileWriteChunk:
		return "FileWriteChunk"
	case FileWriteFinalize:
		return "FileWriteFinalize"
	case HealthReq:
		return "HealthReq"
	case HealthAnw:
		return "HealthAnw"
	case Reboot:
		return "Reboot"
	default:
		return "Unknown"
	}
}

// Result is the wire-visible outcome code, carried in Ack payloads and
// returned by handler hooks.
type Result uint8

const (
	Ok Result = iota
	Error
	Wait
	Busy
	InvalidArg
	Timeout
	Unsupported
	ChecksumFailed
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "Ok"
	case Error:
		return "Error"
	case Wait:
		return "Wait"
	case Busy:
		return "Busy"
	case InvalidArg:
		return "InvalidArg"
	case Timeout:
		return "Timeout"
	case Unsupported:
		return "Unsupported"
	case ChecksumFailed:
		return "ChecksumFailed"
	default:
		return "Result(?)"
	}
}

// Health is a coarse device health code, carried in HealthAnw.
type Health uint8

const (
	WarmUp Health = iota
	Healthy
	Warning
	HealthError
	Critical
)

func (h Health) String() string {
	switch h {
	case WarmUp:
		return "WarmUp"
	case Healthy:
		return "Healthy"
	case Warning:
		return "Warning"
	case HealthError:
		return "Error"
	case Critical:
		return "Critical"
	default:
		return "Health(?)"
	}
}

// Header is the 4-byte packed frame header.
type Header struct {
	ReceiverUID uint8
	TransmitUID uint8
	MessageType MessageType
	Number      uint8
}

// Marshal writes the header to dst[0:4]. dst must have at least HeaderSize bytes.
func (h Header) Marshal(dst []byte) {
	dst[0] = h.ReceiverUID
	dst[1] = h.TransmitUID
	dst[2] = uint8(h.MessageType)
	dst[3] = h.Number
}

// UnmarshalHeader reads a header from src[0:4].
func UnmarshalHeader(src []byte) Header {
	return Header{
		ReceiverUID: src[0],
		TransmitUID: src[1],
		MessageType: MessageType(src[2]),
		Number:      src[3],
	}
}

// DeviceVersion is the packed 16-byte version record carried in
// DeviceInfoAnw: reserved(u8), hwRevision(u8), swMajor(u8), swMinor(u8),
// swRevision(u32 LE), hash(u64 LE).
type DeviceVersion struct {
	Reserved    uint8
	HWRevision  uint8
	SWMajor     uint8
	SWMinor     uint8
	SWRevision  uint32
	Hash        uint64
}

// DeviceVersionSize is the packed, on-wire size of DeviceVersion.
const DeviceVersionSize = 16

// Marshal writes v to dst[0:16] in little-endian order.
func (v DeviceVersion) Marshal(dst []byte) {
	dst[0] = v.Reserved
	dst[1] = v.HWRevision
	dst[2] = v.SWMajor
	dst[3] = v.SWMinor
	putU32(dst[4:8], v.SWRevision)
	putU64(dst[8:16], v.Hash)
}

// UnmarshalDeviceVersion reads a DeviceVersion from src[0:16].
func UnmarshalDeviceVersion(src []byte) DeviceVersion {
	return DeviceVersion{
		Reserved:   src[0],
		HWRevision: src[1],
		SWMajor:    src[2],
		SWMinor:    src[3],
		SWRevision: getU32(src[4:8]),
		Hash:       getU64(src[8:16]),
	}
}

// PutUint16 writes v to dst[0:2] little-endian.
func PutUint16(dst []byte, v uint16) {
	dst[0] = uint8(v)
	dst[1] = uint8(v >> 8)
}

// GetUint16 reads a little-endian uint16 from src[0:2].
func GetUint16(src []byte) uint16 {
	return uint16(src[0]) | uint16(src[1])<<8
}

// PutUint32 writes v to dst[0:4] little-endian.
func PutUint32(dst []byte, v uint32) {
	dst[0] = uint8(v)
	dst[1] = uint8(v >> 8)
	dst[2] = uint8(v >> 16)
	dst[3] = uint8(v >> 24)
}

// GetUint32 reads a little-endian uint32 from src[0:4].
func GetUint32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

// PutUint64 writes v to dst[0:8] little-endian.
func PutUint64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = uint8(v >> (8 * i))
	}
}

// GetUint64 reads a little-endian uint64 from src[0:8].
func GetUint64(src []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}

func putU16(dst []byte, v uint16) { PutUint16(dst, v) }
func getU16(src []byte) uint16    { return GetUint16(src) }
func putU32(dst []byte, v uint32) { PutUint32(dst, v) }
func getU32(src []byte) uint32    { return GetUint32(src) }
func putU64(dst []byte, v uint64) { PutUint64(dst, v) }
func getU64(src []byte) uint64    { return GetUint64(src) }
