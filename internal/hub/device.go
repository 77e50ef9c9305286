// Package hub implements the control loop that drives many devices over
// one shared half-duplex link (§4.3): a per-device state machine, a
// single-outstanding-request pending slot, command/blob/telemetry
// queues, and a stop-and-wait file-transfer driver.
package hub

import "github.com/mterrel/utilitaryrs/internal/wire"

// State is a device's position in the hub's per-device state machine.
type State int

const (
	Probing State = iota
	InfoRequest
	Running
	FileTransfer
	Suspended
	Lost
)

func (s State) String() string {
	switch s {
	case Probing:
		return "Probing"
	case InfoRequest:
		return "InfoRequest"
	case Running:
		return "Running"
	case FileTransfer:
		return "FileTransfer"
	case Suspended:
		return "Suspended"
	case Lost:
		return "Lost"
	default:
		return "State(?)"
	}
}

// pending is the single outstanding transaction a device may have.
type pending struct {
	msgNumber uint8
	msgType   wire.MessageType
	sentAt    uint64
}

// command is a queued Command(cmd, val) send.
type command struct {
	cmd, val uint8
}

// blobRequest is a queued BlobRequest(request, answerSize) send.
type blobRequest struct {
	request, answerSize uint8
}

// TelemetrySlot is one periodic blob request scheduled against a device
// (§4.3 "a due telemetry slot").
type TelemetrySlot struct {
	Request   uint8
	AnswerSize uint8
	Period    uint64
	lastFired uint64
}

// fileTransferState is fileCtx.state from §3.
type fileTransferState int

const (
	ftRequest fileTransferState = iota
	ftSending
	ftFinalize
	ftCancel
)

// fileTransferContext drives one outbound file transfer (§4.3.2).
type fileTransferContext struct {
	file       uint8
	data       []byte
	totalSize  int
	sentOffset int
	chunksSent int
	chunkSize  int

	packetAck   *wire.Result
	firstPacket bool
	state       fileTransferState
	lastAckCode wire.Result

	// waitRetry marks a chunk waiting out the post-Wait retry delay: no
	// ack is outstanding (packetAck is nil, same as the steady "nothing
	// arrived yet" case), but the next time sendingAction runs it must
	// resend the current chunk rather than treating the nil ack as still
	// in flight (§4.3.2 "Wait → delay 200ms, retry on next tick").
	waitRetry bool
}

// device is one hub-side wrapper for a known UID (§3 "Device wrapper").
type device struct {
	uid  uint8
	name string

	version wire.DeviceVersion
	state   State

	pending *pending
	// lastPendingType survives pending being cleared by timeoutCheck, so
	// the just-missed onAckNotReceivedEv can still report which request
	// type timed out.
	lastPendingType wire.MessageType

	nextCall uint64

	commandQueue []command
	blobQueue    []blobRequest
	telemSched   []TelemetrySlot

	timeoutCounter uint32

	// lastHealthReq and lastAck are the Running-state bookkeeping from §3:
	// lastHealthReq gates the idle HealthReq poll to its 1000ms cadence;
	// lastAck is the last time any request to this device was acked.
	lastHealthReq uint64
	lastAck       uint64

	fileCtx fileTransferContext
}

func newDevice(uid uint8) *device {
	return &device{
		uid:   uid,
		state: Probing,
	}
}
