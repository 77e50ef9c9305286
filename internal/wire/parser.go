package wire

// State is a streaming parser state, per §4.1's state machine:
//
//	Idle ── 'R' ──► Header ──► (ConstPayload | VariablePayload) ──► Crc ──► Done
//
// Any framing or CRC failure resets silently to Idle; Done holds until
// the caller reads the frame and calls Reset.
type State int

const (
	Idle State = iota
	InHeader
	InConstPayload
	InVariablePayload
	InCrc
	Done
)

// Parser is a byte-at-a-time, allocation-free streaming frame decoder.
// It is single-writer: exactly one goroutine may call Update/Reset on a
// given Parser (§5).
type Parser struct {
	buf        []byte
	size       int
	state      State
	msgType    MessageType
	payloadLen int
	varBase    int
	varMax     int
}

// NewParser creates a parser with an internal buffer capable of holding
// up to bufferSize bytes of header+payload. bufferSize must be at least
// HeaderSize plus the type's base size plus MaxPayload for the parser to
// ever reach Done on a maximum-size variable frame; the hub uses >= 256
// (§4.1).
func NewParser(bufferSize int) *Parser {
	if bufferSize <= 0 {
		bufferSize = HeaderSize + MaxPayload + 1
	}
	return &Parser{buf: make([]byte, bufferSize)}
}

// State returns the parser's current state.
func (p *Parser) State() State { return p.state }

// Length returns the number of header+payload bytes accumulated so far;
// once State()==Done this is the full frame length (header+payload).
func (p *Parser) Length() int { return p.size }

// Data returns the accumulated header+payload bytes (valid any time, but
// only a complete, CRC-verified frame once State()==Done).
func (p *Parser) Data() []byte { return p.buf[:p.size] }

// Header returns the parsed header. Only meaningful once at least
// HeaderSize bytes have been accumulated.
func (p *Parser) Header() Header { return UnmarshalHeader(p.buf[:HeaderSize]) }

// Payload returns the payload portion of a completed frame.
func (p *Parser) Payload() []byte { return p.buf[HeaderSize:p.size] }

// Reset discards any in-progress or completed frame and returns to Idle.
func (p *Parser) Reset() {
	p.size = 0
	p.state = Idle
	p.msgType = 0
	p.payloadLen = 0
	p.varBase = 0
	p.varMax = 0
}

// append adds b to the buffer. It reports false (and resets) on overflow.
func (p *Parser) append(b byte) bool {
	if p.size >= len(p.buf) {
		p.Reset()
		return false
	}
	p.buf[p.size] = b
	p.size++
	return true
}

// Update feeds up to len(data) bytes into the state machine and returns
// the number of bytes consumed. Callers loop until all input is
// consumed, checking State()==Done after each call. Once Done, Update
// consumes nothing until Reset is called.
func (p *Parser) Update(data []byte) int {
	consumed := 0
	for _, b := range data {
		if p.state == Done {
			break
		}
		consumed++

		switch p.state {
		case Idle:
			if b == Preamble {
				p.size = 0
				p.state = InHeader
			}

		case InHeader:
			if !p.append(b) {
				continue
			}
			if p.size == HeaderSize {
				mt := MessageType(p.buf[2])
				if !mt.Valid() {
					p.Reset()
					continue
				}
				p.msgType = mt
				if fixed, ok := FixedSize(mt); ok {
					p.payloadLen = fixed
					p.state = InConstPayload
				} else {
					base, max, _ := VariableBase(mt)
					p.varBase = base
					p.varMax = max
					p.state = InVariablePayload
				}
			}

		case InConstPayload:
			if !p.append(b) {
				continue
			}
			if p.size == HeaderSize+p.payloadLen {
				p.state = InCrc
			}

		case InVariablePayload:
			if !p.append(b) {
				continue
			}
			switch {
			case p.size == HeaderSize+p.varBase && p.payloadLen == 0:
				length := int(p.buf[p.size-1])
				if length > p.varMax {
					p.Reset()
					continue
				}
				p.payloadLen = p.varBase + length
				if length == 0 {
					p.state = InCrc
				}
			case p.payloadLen > 0 && p.size == HeaderSize+p.payloadLen:
				p.state = InCrc
			}

		case InCrc:
			want := CRC8(p.buf[:p.size])
			if b == want {
				p.state = Done
			} else {
				p.Reset()
			}
		}
	}
	return consumed
}
