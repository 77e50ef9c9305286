package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode_LayoutAndLength(t *testing.T) {
	h := Header{ReceiverUID: 0x01, TransmitUID: 0xFF, MessageType: Command, Number: 5}
	payload := []byte{0x06, 0x07, 0x00}
	src := make([]byte, HeaderSize+len(payload))
	h.Marshal(src)
	copy(src[HeaderSize:], payload)

	dst := make([]byte, EncodedLen(len(payload)))
	n := Encode(dst, src)

	require.Equal(t, len(src)+2, n)
	require.Equal(t, Preamble, dst[0])
	require.Equal(t, src, dst[1:1+len(src)])
	require.Equal(t, CRC8(src), dst[len(dst)-1])
}

func TestDeviceVersion_RoundTrip(t *testing.T) {
	v := DeviceVersion{
		Reserved:   0,
		HWRevision: 3,
		SWMajor:    1,
		SWMinor:    2,
		SWRevision: 0xDEADBEEF,
		Hash:       0x1122334455667788,
	}
	buf := make([]byte, DeviceVersionSize)
	v.Marshal(buf)
	got := UnmarshalDeviceVersion(buf)
	require.Equal(t, v, got)
}

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{ReceiverUID: 0x10, TransmitUID: 0x20, MessageType: HealthAnw, Number: 0x99}
	buf := make([]byte, HeaderSize)
	h.Marshal(buf)
	got := UnmarshalHeader(buf)
	require.Equal(t, h, got)
}
