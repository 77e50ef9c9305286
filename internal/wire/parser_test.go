package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeFrame(t *testing.T, h Header, payload []byte) []byte {
	t.Helper()
	src := make([]byte, HeaderSize+len(payload))
	h.Marshal(src)
	copy(src[HeaderSize:], payload)
	dst := make([]byte, EncodedLen(len(payload)))
	n := Encode(dst, src)
	require.Equal(t, len(dst), n)
	return dst
}

func sampleProbe() ([]byte, Header, []byte) {
	h := Header{ReceiverUID: 0x01, TransmitUID: 0xFF, MessageType: Probe, Number: 7}
	payload := []byte{0x00}
	return nil, h, payload
}

// P1: parse(encode(m)) == m, and the parser ends Done.
func TestParser_RoundTrip(t *testing.T) {
	_, h, payload := sampleProbe()
	frame := encodeFrame(t, h, payload)

	p := NewParser(256)
	n := p.Update(frame)
	require.Equal(t, len(frame), n)
	require.Equal(t, Done, p.State())
	require.Equal(t, h, p.Header())
	require.Equal(t, payload, p.Payload())
}

// P2: encode(m) has length sizeof(packed(m))+2 and begins with 0x52.
func TestParser_EncodedLenAndPreamble(t *testing.T) {
	_, h, payload := sampleProbe()
	frame := encodeFrame(t, h, payload)
	require.Equal(t, HeaderSize+len(payload)+2, len(frame))
	require.Equal(t, Preamble, frame[0])
}

// P3: a flipped CRC byte never reaches Done.
func TestParser_BadCRCNeverDone(t *testing.T) {
	_, h, payload := sampleProbe()
	frame := encodeFrame(t, h, payload)
	frame[len(frame)-1] ^= 0xFF

	p := NewParser(256)
	p.Update(frame)
	require.NotEqual(t, Done, p.State())
}

// P4: byte-by-byte, two-at-a-time, and all-at-once yield identical results.
func TestParser_ChunkingInvariant(t *testing.T) {
	_, h, payload := sampleProbe()
	frame := encodeFrame(t, h, payload)

	feedAll := func(chunk int) (State, []byte) {
		p := NewParser(256)
		for i := 0; i < len(frame); i += chunk {
			end := i + chunk
			if end > len(frame) {
				end = len(frame)
			}
			consumed := p.Update(frame[i:end])
			require.Equal(t, end-i, consumed)
		}
		return p.State(), append([]byte(nil), p.Data()...)
	}

	s1, d1 := feedAll(1)
	s2, d2 := feedAll(2)
	s3, d3 := feedAll(len(frame))

	require.Equal(t, Done, s1)
	require.Equal(t, s1, s2)
	require.Equal(t, s1, s3)
	require.Equal(t, d1, d2)
	require.Equal(t, d1, d3)
}

// P5: garbage prefix, then a valid frame, resynchronises at the next 0x52.
func TestParser_ResyncsAfterGarbage(t *testing.T) {
	_, h, payload := sampleProbe()
	frame := encodeFrame(t, h, payload)

	// Includes a stray 0x52 mid-garbage; the four bytes after it form a
	// header with an invalid type, so the parser is back in Idle before
	// the real frame's preamble arrives.
	garbage := []byte{0x00, 0x01, 0x52, 0x99, 0x10, 0x63, 0x00}
	stream := append(append([]byte{}, garbage...), frame...)

	p := NewParser(256)
	p.Update(stream)
	require.Equal(t, Done, p.State())
	require.Equal(t, h, p.Header())
	require.Equal(t, payload, p.Payload())
}

// P6: every UtilitaryRS variable type caps its length byte at MaxPayload
// (255, the widest a single length byte can express), so no length byte
// can exceed the per-type maximum. This checks the boundary instead: a
// BlobAnswer declaring the maximum length reaches Done on a parser whose
// buffer holds header + base + MaxPayload bytes.
func TestParser_MaxLegalVariableLength(t *testing.T) {
	h := Header{ReceiverUID: 1, TransmitUID: 0xFF, MessageType: BlobAnswer, Number: 1}
	base, max, _ := VariableBase(BlobAnswer)
	payload := make([]byte, base+max)
	payload[base-1] = byte(max)
	frame := encodeFrame(t, h, payload)

	p := NewParser(HeaderSize + base + max + 16)
	p.Update(frame)
	require.Equal(t, Done, p.State(), "the declared maximum length is legal")
}

func TestParser_BufferOverflowResets(t *testing.T) {
	h := Header{ReceiverUID: 1, TransmitUID: 0xFF, MessageType: BlobAnswer, Number: 1}
	payload := make([]byte, 3+200)
	payload[2] = 200
	frame := encodeFrame(t, h, payload)

	p := NewParser(16) // far smaller than the frame
	p.Update(frame)
	require.NotEqual(t, Done, p.State())
}

func TestParser_UnknownTypeResets(t *testing.T) {
	h := Header{ReceiverUID: 1, TransmitUID: 0xFF, MessageType: MessageType(99), Number: 1}
	raw := make([]byte, HeaderSize)
	h.Marshal(raw)
	frame := make([]byte, HeaderSize+2)
	frame[0] = Preamble
	copy(frame[1:], raw)
	frame[len(frame)-1] = CRC8(raw)

	p := NewParser(64)
	p.Update(frame)
	require.Equal(t, Idle, p.State())
}

func TestParser_DoneConsumesNothing(t *testing.T) {
	_, h, payload := sampleProbe()
	frame := encodeFrame(t, h, payload)

	p := NewParser(256)
	p.Update(frame)
	require.Equal(t, Done, p.State())

	n := p.Update([]byte{0x11, 0x22})
	require.Equal(t, 0, n)
	require.Equal(t, Done, p.State())
}
