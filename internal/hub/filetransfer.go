package hub

import "github.com/mterrel/utilitaryrs/internal/wire"

// fileTransferAction dispatches the one outbound frame (if any) for a
// device currently in FileTransfer, per §4.3.2.
func (c *Controller) fileTransferAction(d *device, now uint64) {
	fc := &d.fileCtx
	switch fc.state {
	case ftRequest:
		number := c.handler.FileWriteRequest(d.uid, fc.file, uint32(fc.totalSize))
		c.arm(d, number, wire.FileWriteRequest, now, c.runningPollMs)

	case ftSending:
		c.sendingAction(d, fc, now)

	case ftFinalize:
		crc := wire.CRC64(fc.data[:fc.totalSize])
		number := c.handler.FileWriteFinalize(d.uid, fc.file, uint16(fc.chunksSent), crc)
		c.arm(d, number, wire.FileWriteFinalize, now, c.runningPollMs)

	case ftCancel:
		c.cancelFileTransfer(d, now)
	}
}

func (c *Controller) chunkAt(fc *fileTransferContext, offset int) []byte {
	end := offset + fc.chunkSize
	if end > fc.totalSize {
		end = fc.totalSize
	}
	return fc.data[offset:end]
}

func (c *Controller) sendingAction(d *device, fc *fileTransferContext, now uint64) {
	if fc.firstPacket {
		chunk := c.chunkAt(fc, fc.sentOffset)
		number := c.handler.FileWriteChunk(d.uid, fc.file, chunk)
		c.arm(d, number, wire.FileWriteChunk, now, c.runningPollMs)
		fc.firstPacket = false
		return
	}

	if fc.packetAck == nil {
		if fc.waitRetry {
			// The post-Wait delay has elapsed (scheduledAction only calls
			// back in here once now >= d.nextCall): resend the same chunk.
			fc.waitRetry = false
			chunk := c.chunkAt(fc, fc.sentOffset)
			number := c.handler.FileWriteChunk(d.uid, fc.file, chunk)
			c.arm(d, number, wire.FileWriteChunk, now, c.runningPollMs)
			return
		}
		// The chunk ack hasn't arrived yet (still pending) or a timeout
		// already flipped us to ftCancel in timeoutCheck; nothing to do
		// here either way.
		return
	}
	code := *fc.packetAck
	fc.packetAck = nil

	switch code {
	case wire.Busy:
		chunk := c.chunkAt(fc, fc.sentOffset)
		number := c.handler.FileWriteChunk(d.uid, fc.file, chunk)
		c.arm(d, number, wire.FileWriteChunk, now, c.runningPollMs)

	case wire.Wait:
		fc.waitRetry = true
		d.nextCall = now + c.waitDelayMs

	case wire.Ok:
		fc.sentOffset += fc.chunkSize
		if fc.sentOffset > fc.totalSize {
			fc.sentOffset = fc.totalSize
		}
		fc.chunksSent++
		if fc.sentOffset >= fc.totalSize {
			fc.state = ftFinalize
			d.nextCall = now + c.finalizeDelayMs
			return
		}
		chunk := c.chunkAt(fc, fc.sentOffset)
		number := c.handler.FileWriteChunk(d.uid, fc.file, chunk)
		c.arm(d, number, wire.FileWriteChunk, now, c.runningPollMs)

	default:
		fc.lastAckCode = code
		fc.state = ftCancel
		d.nextCall = now
	}
}

func (c *Controller) cancelFileTransfer(d *device, now uint64) {
	c.finishFileTransfer(d, lastAckOrError(&d.fileCtx))
	d.nextCall = now + c.runningPollMs
}

// lastAckOrError reports the last chunk/request ack code recorded against
// a file transfer, or Error if none was ever recorded (the zero value of
// wire.Result is Ok, which can't have been a real failure code) — §4.3.2
// "fire fileWriteResultEv(Error) (or the last recorded code if any)".
func lastAckOrError(fc *fileTransferContext) wire.Result {
	if fc.lastAckCode == wire.Ok {
		return wire.Error
	}
	return fc.lastAckCode
}

// finishFileTransfer resets a device's file context, returns it to
// Running, and reports the outcome to the observer (§4.3.2 "Cancel" and
// the Finalize-ack success path share this cleanup).
func (c *Controller) finishFileTransfer(d *device, code wire.Result) {
	d.fileCtx = fileTransferContext{}
	d.state = Running
	c.observer.FileWriteResultEv(d.name, code)
}
