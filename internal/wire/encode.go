package wire

// Encode writes preamble | src[0:len] | crc8(src[0:len]) into dst and
// returns the number of bytes written (len+2). dst must have at least
// len+FramingOverhead bytes of room; the caller guarantees this (§4.1,
// "Frame encoder").
//
// Encode is stateless and allocation-free.
func Encode(dst, src []byte) int {
	dst[0] = Preamble
	n := copy(dst[1:], src)
	dst[1+n] = CRC8(src[:n])
	return n + FramingOverhead
}

// EncodedLen returns the on-wire length of a header+payload of size
// payloadLen.
func EncodedLen(payloadLen int) int {
	return HeaderSize + payloadLen + FramingOverhead
}
