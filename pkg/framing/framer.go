package framing

// Delimiter terminates every message on the wire. It is reserved and
// never appears inside a payload.
const Delimiter byte = '*'

// Framer reassembles discrete messages from a stream-oriented socket.
// A single read may carry zero, one, or many complete messages, or end
// mid-message; the trailing partial is retained until the next Add.
type Framer struct {
	delim byte
	buf   []byte
}

// New creates a framer using the package delimiter.
func New() *Framer {
	return NewWithDelimiter(Delimiter)
}

// NewWithDelimiter creates a framer splitting on the given byte.
func NewWithDelimiter(delim byte) *Framer {
	return &Framer{delim: delim}
}

// Add appends raw bytes received from the socket.
func (f *Framer) Add(data []byte) {
	if f == nil || len(data) == 0 {
		return
	}
	f.buf = append(f.buf, data...)
}

// Drain returns every complete message accumulated so far, stripped of
// the delimiter, preserving arrival order. Each returned slice is a copy
// and safe to retain.
func (f *Framer) Drain() [][]byte {
	if f == nil || len(f.buf) == 0 {
		return nil
	}

	var msgs [][]byte
	start := 0
	for i := 0; i < len(f.buf); i++ {
		if f.buf[i] != f.delim {
			continue
		}
		msg := make([]byte, i-start)
		copy(msg, f.buf[start:i])
		msgs = append(msgs, msg)
		start = i + 1
	}

	if start == 0 {
		return nil
	}

	rest := copy(f.buf, f.buf[start:])
	f.buf = f.buf[:rest]
	return msgs
}

// Len reports the number of buffered bytes awaiting a delimiter.
func (f *Framer) Len() int {
	if f == nil {
		return 0
	}
	return len(f.buf)
}

// Reset discards any buffered partial message.
func (f *Framer) Reset() {
	if f == nil {
		return
	}
	f.buf = f.buf[:0]
}
