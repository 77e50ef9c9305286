// Package node implements the symmetric UtilitaryRS node handler (§4.2):
// one Handler runs identically on a hub or a device, parsing incoming
// frames, replying automatically where the protocol requires it, and
// dispatching everything else to an Adapter.
package node

import "github.com/mterrel/utilitaryrs/internal/wire"

// Adapter is the capability set a node plugs into Handler. The protocol
// has no notion of a hub/device subtype hierarchy: instead of a base
// class with virtual overrides, Handler drives a table of hook calls and
// Adapter supplies them. Embed DefaultAdapter to pick up no-op/
// Unsupported defaults for hooks a given node doesn't implement.
//
// Every hook's leading sender parameter is the TransmitUID of the frame
// that triggered it, letting a multi-peer adapter (the hub, talking to
// many devices over one Handler) attribute the call without the handler
// needing any notion of "current peer".
type Adapter interface {
	// HandleAck is called for every received Ack frame, matched or not;
	// Handler never replies to an Ack.
	HandleAck(sender, number uint8, code wire.Result)

	// HandleCommand answers an incoming Command frame. The returned
	// Result becomes the payload of the automatic Ack.
	HandleCommand(sender, cmd, val uint8) wire.Result

	// ProcessBlobRequest answers an incoming BlobRequest. Implementations
	// that can answer synchronously should call h.SendAnswer and return
	// wire.Ok, which suppresses the automatic Ack (the BlobAnswer frame
	// already closes the transaction); any other Result causes Handler
	// to send a plain Ack(code) instead.
	ProcessBlobRequest(h *Handler, sender, msgNumber, request, answerSize uint8) wire.Result

	// HandleBlobAnswer is called when a BlobAnswer to a request this
	// node sent arrives; number is the frame's number, echoed from the
	// original BlobRequest, for request/reply correlation. The returned
	// Result becomes the automatic Ack.
	HandleBlobAnswer(sender, number, request uint8, data []byte) wire.Result

	// HandleReboot answers an incoming Reboot frame (magic-gated).
	HandleReboot(sender uint8, magic uint64) wire.Result

	// HandleFileWriteRequest answers the opening frame of a file
	// transfer.
	HandleFileWriteRequest(sender, fileNumber uint8, fileSize uint32) wire.Result

	// HandleWriteChunk answers one chunk of an in-progress file
	// transfer. chunk aliases the handler's receive buffer and is only
	// valid for the duration of this call.
	HandleWriteChunk(sender, fileNumber uint8, chunk []byte) wire.Result

	// HandleWriteChunkFinalize answers the closing frame of a file
	// transfer, which carries the chunk count and CRC-64 the receiver
	// should have accumulated.
	HandleWriteChunkFinalize(sender, fileNumber uint8, chunksNumber uint16, crc64 uint64) wire.Result

	// HandleDeviceInfoAnswer is called when a DeviceInfoAnw this node
	// requested arrives; number is the frame's number. Handler acks it
	// automatically afterward.
	HandleDeviceInfoAnswer(sender, number uint8, version wire.DeviceVersion, name string)

	// HandleDeviceHealth is called when a HealthAnw this node requested
	// arrives; number is the frame's number, for correlation against a
	// pending HealthReq. Handler acks it automatically afterward.
	HandleDeviceHealth(sender, number uint8, health wire.Health, flags uint16)
}

// DefaultAdapter implements Adapter with no-op/Unsupported defaults.
// Embed it in a concrete adapter and override only the hooks relevant
// to that node's role.
type DefaultAdapter struct{}

func (DefaultAdapter) HandleAck(uint8, uint8, wire.Result) {}

func (DefaultAdapter) HandleCommand(uint8, uint8, uint8) wire.Result { return wire.Unsupported }

func (DefaultAdapter) ProcessBlobRequest(*Handler, uint8, uint8, uint8, uint8) wire.Result {
	return wire.Unsupported
}

func (DefaultAdapter) HandleBlobAnswer(uint8, uint8, uint8, []byte) wire.Result { return wire.Ok }

func (DefaultAdapter) HandleReboot(uint8, uint64) wire.Result { return wire.Unsupported }

func (DefaultAdapter) HandleFileWriteRequest(uint8, uint8, uint32) wire.Result {
	return wire.Unsupported
}

func (DefaultAdapter) HandleWriteChunk(uint8, uint8, []byte) wire.Result { return wire.Unsupported }

func (DefaultAdapter) HandleWriteChunkFinalize(uint8, uint8, uint16, uint64) wire.Result {
	return wire.Unsupported
}

func (DefaultAdapter) HandleDeviceInfoAnswer(uint8, uint8, wire.DeviceVersion, string) {}

func (DefaultAdapter) HandleDeviceHealth(uint8, uint8, wire.Health, uint16) {}
