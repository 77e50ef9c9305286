package node

import (
	"github.com/mterrel/utilitaryrs/internal/interfaces"
	"github.com/mterrel/utilitaryrs/internal/wire"
)

// Handler is one endpoint of the protocol: a hub talking to many devices
// and a device talking to its hub both run one Handler each (§4.2). It
// owns a single Parser, a single fixed send buffer, and nothing else
// that allocates once constructed.
type Handler struct {
	uid         uint8
	name        string
	nameBytes   []byte
	version     wire.DeviceVersion
	health      wire.Health
	healthFlags uint16

	number uint8 // wraps mod 256 by virtue of uint8 overflow

	parser *wire.Parser

	sendRaw    []byte // header+payload scratch, reused across sends
	sendFramed []byte // preamble+frame+crc scratch

	transport interfaces.Transport
	adapter   Adapter
	logger    interfaces.Logger
}

// Config bundles Handler construction parameters.
type Config struct {
	UID        uint8
	Name       string
	Version    wire.DeviceVersion
	BufferSize int // capacity of the receive parser and send scratch; 0 uses a sane default
	Transport  interfaces.Transport
	Adapter    Adapter
	Logger     interfaces.Logger
}

const defaultBufferSize = 256

// NewHandler builds a Handler from cfg. Adapter and Transport are
// required; a nil Logger becomes a NopLogger.
func NewHandler(cfg Config) *Handler {
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = interfaces.NopLogger{}
	}
	nameBytes := []byte(cfg.Name)
	if len(nameBytes) > 255 {
		nameBytes = nameBytes[:255]
	}
	return &Handler{
		uid:        cfg.UID,
		name:       cfg.Name,
		nameBytes:  nameBytes,
		version:    cfg.Version,
		health:     wire.WarmUp,
		parser:     wire.NewParser(bufSize),
		sendRaw:    make([]byte, bufSize),
		sendFramed: make([]byte, bufSize+2),
		transport:  cfg.Transport,
		adapter:    cfg.Adapter,
		logger:     logger,
	}
}

// UID returns this node's address.
func (h *Handler) UID() uint8 { return h.uid }

// SetHealth updates the health and flags this node reports in HealthAnw
// replies.
func (h *Handler) SetHealth(health wire.Health, flags uint16) {
	h.health = health
	h.healthFlags = flags
}

// Update feeds freshly-received bytes through the parser, dispatching and
// resetting for each complete frame, and returning control once data is
// exhausted. A single call may contain any number of frames.
func (h *Handler) Update(data []byte) {
	for len(data) > 0 {
		n := h.parser.Update(data)
		if n > 0 {
			data = data[n:]
		}
		if h.parser.State() == wire.Done {
			h.dispatch()
			h.parser.Reset()
			continue
		}
		if n == 0 {
			// The parser accepted nothing and isn't Done: can't make
			// progress on this data. Reset defensively rather than spin.
			h.parser.Reset()
			break
		}
	}
}

func (h *Handler) nextNumber() uint8 {
	n := h.number
	h.number++
	return n
}

// sendFrame writes a complete frame (header + payload) into the scratch
// buffers and hands the encoded bytes to the transport. It reports false
// without sending anything if header+payload would exceed the configured
// buffer size.
func (h *Handler) sendFrame(receiver uint8, mt wire.MessageType, number uint8, payloadLen int, fill func(p []byte)) bool {
	total := wire.HeaderSize + payloadLen
	if total > len(h.sendRaw) {
		h.logger.Warn("frame exceeds send buffer", "type", mt.String(), "size", total)
		return false
	}
	hdr := wire.Header{ReceiverUID: receiver, TransmitUID: h.uid, MessageType: mt, Number: number}
	hdr.Marshal(h.sendRaw[:wire.HeaderSize])
	if fill != nil {
		fill(h.sendRaw[wire.HeaderSize:total])
	}
	n := wire.Encode(h.sendFramed, h.sendRaw[:total])
	h.transport.Write(h.sendFramed[:n])
	return true
}

func (h *Handler) sendAck(receiver, number uint8, code wire.Result) {
	h.sendFrame(receiver, wire.Ack, number, 1, func(p []byte) { p[0] = uint8(code) })
}

// SendProbe sends a Probe frame and returns its assigned number.
func (h *Handler) SendProbe(receiver uint8) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.Probe, number, 1, func(p []byte) { p[0] = 0 })
	return number
}

// SendDeviceInfoRequest sends a DeviceInfoReq frame.
func (h *Handler) SendDeviceInfoRequest(receiver uint8) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.DeviceInfoReq, number, 1, func(p []byte) { p[0] = 0 })
	return number
}

// SendHealthRequest sends a HealthReq frame.
func (h *Handler) SendHealthRequest(receiver uint8) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.HealthReq, number, 1, func(p []byte) { p[0] = 0 })
	return number
}

// SendRebootCmd sends a Reboot frame gated by magic.
func (h *Handler) SendRebootCmd(receiver uint8, magic uint64) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.Reboot, number, 8, func(p []byte) { wire.PutUint64(p, magic) })
	return number
}

// SendCommand sends a Command frame.
func (h *Handler) SendCommand(receiver, cmd, val uint8) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.Command, number, 3, func(p []byte) {
		p[0], p[1], p[2] = cmd, val, 0
	})
	return number
}

// SendBlobRequest sends a BlobRequest frame asking for answerSize bytes
// tagged request.
func (h *Handler) SendBlobRequest(receiver, request, answerSize uint8) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.BlobRequest, number, 2, func(p []byte) {
		p[0], p[1] = request, answerSize
	})
	return number
}

// FileWriteRequest opens a file transfer of fileSize bytes.
func (h *Handler) FileWriteRequest(receiver, fileNumber uint8, fileSize uint32) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.FileWriteRequest, number, 5, func(p []byte) {
		p[0] = fileNumber
		wire.PutUint32(p[1:5], fileSize)
	})
	return number
}

// FileWriteChunk sends up to 255 bytes of chunk as one FileWriteChunk
// frame.
func (h *Handler) FileWriteChunk(receiver, fileNumber uint8, chunk []byte) uint8 {
	size := len(chunk)
	if size > wire.MaxPayload {
		size = wire.MaxPayload
	}
	number := h.nextNumber()
	h.sendFrame(receiver, wire.FileWriteChunk, number, 2+size, func(p []byte) {
		p[0] = fileNumber
		p[1] = uint8(size)
		copy(p[2:], chunk[:size])
	})
	return number
}

// FileWriteFinalize closes a file transfer, declaring the total chunk
// count and expected CRC-64.
func (h *Handler) FileWriteFinalize(receiver, fileNumber uint8, chunksNumber uint16, crc64 uint64) uint8 {
	number := h.nextNumber()
	h.sendFrame(receiver, wire.FileWriteFinalize, number, 11, func(p []byte) {
		p[0] = fileNumber
		wire.PutUint16(p[1:3], chunksNumber)
		wire.PutUint64(p[3:11], crc64)
	})
	return number
}

// SendAnswer replies to an in-progress BlobRequest (receiver, msgNumber
// identify it) with a BlobAnswer frame carrying size bytes of data. It
// fails without sending anything if size doesn't match requestedSize or
// the resulting frame would exceed the configured buffer size. Intended
// to be called from within an Adapter.ProcessBlobRequest hook.
func (h *Handler) SendAnswer(receiver, msgNumber, request uint8, requestedSize int, data []byte, size int) bool {
	if size != requestedSize || size > len(data) {
		return false
	}
	return h.sendFrame(receiver, wire.BlobAnswer, msgNumber, 3+size, func(p []byte) {
		p[0] = request
		p[1] = 0
		p[2] = uint8(size)
		copy(p[3:], data[:size])
	})
}

func (h *Handler) sendDeviceInfoAnswer(receiver, number uint8) {
	h.sendFrame(receiver, wire.DeviceInfoAnw, number, wire.DeviceVersionSize+1+len(h.nameBytes), func(p []byte) {
		h.version.Marshal(p[0:wire.DeviceVersionSize])
		p[wire.DeviceVersionSize] = uint8(len(h.nameBytes))
		copy(p[wire.DeviceVersionSize+1:], h.nameBytes)
	})
}

func (h *Handler) sendHealthAnswer(receiver, number uint8) {
	h.sendFrame(receiver, wire.HealthAnw, number, 4, func(p []byte) {
		p[0] = uint8(h.health)
		p[1] = 0
		wire.PutUint16(p[2:4], h.healthFlags)
	})
}

// dispatch handles the just-completed frame held by the parser: §4.2's
// automatic-acknowledgement table. Frames not addressed to this node are
// silently discarded (H4).
func (h *Handler) dispatch() {
	hdr := h.parser.Header()
	if hdr.ReceiverUID != h.uid {
		return
	}
	payload := h.parser.Payload()

	switch hdr.MessageType {
	case wire.Ack:
		h.adapter.HandleAck(hdr.TransmitUID, hdr.Number, wire.Result(payload[0]))

	case wire.Probe:
		h.sendAck(hdr.TransmitUID, hdr.Number, wire.Ok)

	case wire.Command:
		r := h.adapter.HandleCommand(hdr.TransmitUID, payload[0], payload[1])
		h.sendAck(hdr.TransmitUID, hdr.Number, r)

	case wire.BlobRequest:
		r := h.adapter.ProcessBlobRequest(h, hdr.TransmitUID, hdr.Number, payload[0], payload[1])
		if r != wire.Ok {
			h.sendAck(hdr.TransmitUID, hdr.Number, r)
		}

	case wire.BlobAnswer:
		dataSize := payload[2]
		r := h.adapter.HandleBlobAnswer(hdr.TransmitUID, hdr.Number, payload[0], payload[3:3+dataSize])
		h.sendAck(hdr.TransmitUID, hdr.Number, r)

	case wire.DeviceInfoReq:
		h.sendDeviceInfoAnswer(hdr.TransmitUID, hdr.Number)

	case wire.DeviceInfoAnw:
		version := wire.UnmarshalDeviceVersion(payload[0:wire.DeviceVersionSize])
		nameLen := payload[wire.DeviceVersionSize]
		name := string(payload[wire.DeviceVersionSize+1 : wire.DeviceVersionSize+1+int(nameLen)])
		h.adapter.HandleDeviceInfoAnswer(hdr.TransmitUID, hdr.Number, version, name)
		h.sendAck(hdr.TransmitUID, hdr.Number, wire.Ok)

	case wire.FileWriteRequest:
		fileSize := wire.GetUint32(payload[1:5])
		r := h.adapter.HandleFileWriteRequest(hdr.TransmitUID, payload[0], fileSize)
		h.sendAck(hdr.TransmitUID, hdr.Number, r)

	case wire.FileWriteChunk:
		chunkSize := payload[1]
		r := h.adapter.HandleWriteChunk(hdr.TransmitUID, payload[0], payload[2:2+chunkSize])
		h.sendAck(hdr.TransmitUID, hdr.Number, r)

	case wire.FileWriteFinalize:
		chunksNumber := wire.GetUint16(payload[1:3])
		crc := wire.GetUint64(payload[3:11])
		r := h.adapter.HandleWriteChunkFinalize(hdr.TransmitUID, payload[0], chunksNumber, crc)
		h.sendAck(hdr.TransmitUID, hdr.Number, r)

	case wire.HealthReq:
		h.sendHealthAnswer(hdr.TransmitUID, hdr.Number)

	case wire.HealthAnw:
		health := wire.Health(payload[0])
		flags := wire.GetUint16(payload[2:4])
		h.adapter.HandleDeviceHealth(hdr.TransmitUID, hdr.Number, health, flags)
		h.sendAck(hdr.TransmitUID, hdr.Number, wire.Ok)

	case wire.Reboot:
		magic := wire.GetUint64(payload[0:8])
		r := h.adapter.HandleReboot(hdr.TransmitUID, magic)
		h.sendAck(hdr.TransmitUID, hdr.Number, r)
	}
}
