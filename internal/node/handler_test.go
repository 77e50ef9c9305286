package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mterrel/utilitaryrs/internal/wire"
)

// captureTransport records every Write call verbatim.
type captureTransport struct {
	frames [][]byte
}

func (c *captureTransport) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	c.frames = append(c.frames, cp)
	return len(p), nil
}

func (c *captureTransport) last() []byte {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func encodeFrame(t *testing.T, hdr wire.Header, payload []byte) []byte {
	t.Helper()
	src := make([]byte, wire.HeaderSize+len(payload))
	hdr.Marshal(src)
	copy(src[wire.HeaderSize:], payload)
	dst := make([]byte, wire.EncodedLen(len(payload)))
	n := wire.Encode(dst, src)
	return dst[:n]
}

func decodeAck(t *testing.T, frame []byte) (wire.Header, wire.Result) {
	t.Helper()
	require.Greater(t, len(frame), wire.HeaderSize+wire.CRCSize+1)
	src := frame[1 : len(frame)-1]
	hdr := wire.UnmarshalHeader(src)
	require.Equal(t, wire.Ack, hdr.MessageType)
	return hdr, wire.Result(src[wire.HeaderSize])
}

type testAdapter struct {
	DefaultAdapter
	commandResult  wire.Result
	gotCmd, gotVal uint8
	blobResult     wire.Result
	answeredInHook bool
}

func (a *testAdapter) HandleCommand(sender, cmd, val uint8) wire.Result {
	a.gotCmd, a.gotVal = cmd, val
	return a.commandResult
}

func (a *testAdapter) ProcessBlobRequest(h *Handler, sender, msgNumber, request, answerSize uint8) wire.Result {
	if a.answeredInHook {
		data := []byte{0xAA, 0xBB, 0xCC}
		h.SendAnswer(sender, msgNumber, request, int(answerSize), data, len(data))
		return wire.Ok
	}
	return a.blobResult
}

func newTestHandler(uid uint8, adapter Adapter) (*Handler, *captureTransport) {
	tr := &captureTransport{}
	h := NewHandler(Config{
		UID:       uid,
		Name:      "test-node",
		Transport: tr,
		Adapter:   adapter,
	})
	return h, tr
}

// H1
func TestHandler_ProbeRepliesAckOk(t *testing.T) {
	h, tr := newTestHandler(0x01, &testAdapter{})
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.Probe, Number: 7}, []byte{0})
	h.Update(in)

	require.Len(t, tr.frames, 1)
	hdr, code := decodeAck(t, tr.last())
	require.Equal(t, uint8(7), hdr.Number)
	require.Equal(t, wire.Ok, code)
	require.Equal(t, uint8(0x02), hdr.ReceiverUID)
	require.Equal(t, uint8(0x01), hdr.TransmitUID)
}

// H2
func TestHandler_CommandInvokesHookAndAcksResult(t *testing.T) {
	adapter := &testAdapter{commandResult: wire.InvalidArg}
	h, tr := newTestHandler(0x01, adapter)
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.Command, Number: 9}, []byte{0x10, 0x20, 0})
	h.Update(in)

	require.Equal(t, uint8(0x10), adapter.gotCmd)
	require.Equal(t, uint8(0x20), adapter.gotVal)
	require.Len(t, tr.frames, 1)
	hdr, code := decodeAck(t, tr.last())
	require.Equal(t, uint8(9), hdr.Number)
	require.Equal(t, wire.InvalidArg, code)
}

// H3
func TestHandler_BlobRequestAnsweredInHookEmitsNoAck(t *testing.T) {
	adapter := &testAdapter{answeredInHook: true}
	h, tr := newTestHandler(0x01, adapter)
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.BlobRequest, Number: 3}, []byte{0x55, 3})
	h.Update(in)

	require.Len(t, tr.frames, 1)
	src := tr.last()[1 : len(tr.last())-1]
	hdr := wire.UnmarshalHeader(src)
	require.Equal(t, wire.BlobAnswer, hdr.MessageType)
	require.Equal(t, uint8(3), hdr.Number)
	payload := src[wire.HeaderSize:]
	require.Equal(t, uint8(0x55), payload[0])
	require.Equal(t, uint8(3), payload[2])
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, payload[3:6])
}

func TestHandler_BlobRequestNotAnsweredEmitsAckWithResult(t *testing.T) {
	adapter := &testAdapter{blobResult: wire.Busy}
	h, tr := newTestHandler(0x01, adapter)
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.BlobRequest, Number: 4}, []byte{0x01, 5})
	h.Update(in)

	require.Len(t, tr.frames, 1)
	_, code := decodeAck(t, tr.last())
	require.Equal(t, wire.Busy, code)
}

// H4
func TestHandler_NonLocalReceiverEmitsNothing(t *testing.T) {
	h, tr := newTestHandler(0x01, &testAdapter{})
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x02, TransmitUID: 0x03, MessageType: wire.Probe, Number: 1}, []byte{0})
	h.Update(in)
	require.Empty(t, tr.frames)
}

// H5
func TestHandler_SendAnswerSizeMismatchFails(t *testing.T) {
	h, tr := newTestHandler(0x01, &testAdapter{})
	ok := h.SendAnswer(0x02, 1, 0x10, 4, []byte{1, 2, 3}, 3)
	require.False(t, ok)
	require.Empty(t, tr.frames)
}

type ackCapture struct {
	DefaultAdapter
	sender, number uint8
	code           wire.Result
}

func (a *ackCapture) HandleAck(sender, number uint8, code wire.Result) {
	a.sender, a.number, a.code = sender, number, code
}

func TestHandler_AckDispatchesToAdapterWithoutReply(t *testing.T) {
	adapter := &ackCapture{}
	h, tr := newTestHandler(0x01, adapter)
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.Ack, Number: 42}, []byte{uint8(wire.Timeout)})
	h.Update(in)

	require.Equal(t, uint8(0x02), adapter.sender)
	require.Equal(t, uint8(42), adapter.number)
	require.Equal(t, wire.Timeout, adapter.code)
	require.Empty(t, tr.frames)
}

func TestHandler_DeviceInfoRequestRepliesWithNameAndVersion(t *testing.T) {
	tr := &captureTransport{}
	h := NewHandler(Config{
		UID:       0x01,
		Name:      "hub-1",
		Version:   wire.DeviceVersion{HWRevision: 1, SWMajor: 2, SWMinor: 3, SWRevision: 4, Hash: 5},
		Transport: tr,
		Adapter:   &testAdapter{},
	})
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.DeviceInfoReq, Number: 1}, []byte{0})
	h.Update(in)

	require.Len(t, tr.frames, 1)
	src := tr.last()[1 : len(tr.last())-1]
	hdr := wire.UnmarshalHeader(src)
	require.Equal(t, wire.DeviceInfoAnw, hdr.MessageType)
	require.Equal(t, uint8(1), hdr.Number)
	payload := src[wire.HeaderSize:]
	version := wire.UnmarshalDeviceVersion(payload[0:wire.DeviceVersionSize])
	require.Equal(t, uint8(2), version.SWMajor)
	nameLen := payload[wire.DeviceVersionSize]
	require.Equal(t, "hub-1", string(payload[wire.DeviceVersionSize+1:wire.DeviceVersionSize+1+int(nameLen)]))
}

func TestHandler_HealthRequestRepliesWithHealth(t *testing.T) {
	h, tr := newTestHandler(0x01, &testAdapter{})
	h.SetHealth(wire.Warning, 0x0042)
	in := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.HealthReq, Number: 1}, []byte{0})
	h.Update(in)

	require.Len(t, tr.frames, 1)
	src := tr.last()[1 : len(tr.last())-1]
	hdr := wire.UnmarshalHeader(src)
	require.Equal(t, wire.HealthAnw, hdr.MessageType)
	payload := src[wire.HeaderSize:]
	require.Equal(t, uint8(wire.Warning), payload[0])
	require.Equal(t, uint16(0x0042), wire.GetUint16(payload[2:4]))
}

func TestHandler_MultipleFramesInOneUpdate(t *testing.T) {
	h, tr := newTestHandler(0x01, &testAdapter{})
	f1 := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.Probe, Number: 1}, []byte{0})
	f2 := encodeFrame(t, wire.Header{ReceiverUID: 0x01, TransmitUID: 0x02, MessageType: wire.Probe, Number: 2}, []byte{0})
	combined := append(append([]byte(nil), f1...), f2...)
	h.Update(combined)

	require.Len(t, tr.frames, 2)
	hdr1, _ := decodeAck(t, tr.frames[0])
	hdr2, _ := decodeAck(t, tr.frames[1])
	require.Equal(t, uint8(1), hdr1.Number)
	require.Equal(t, uint8(2), hdr2.Number)
}

func TestHandler_SendProbeAssignsIncrementingNumbers(t *testing.T) {
	h, _ := newTestHandler(0x01, &testAdapter{})
	n1 := h.SendProbe(0x02)
	n2 := h.SendProbe(0x02)
	require.Equal(t, n1+1, n2)
}
