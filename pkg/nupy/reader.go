package nupy

import "io"

// pushbackReader reads single bytes from an io.Reader and supports exactly
// one byte of pushback. Several scan rules read one character too far and
// hand it back for the next call; one byte of capacity is all they need.
type pushbackReader struct {
	r       io.Reader
	pending byte
	has     bool
	eof     bool
}

func newPushbackReader(r io.Reader) *pushbackReader {
	if r == nil {
		panic("nupy: input stream is nil (newPushbackReader)")
	}
	return &pushbackReader{r: r}
}

// readByte returns the next byte, preferring a pushed-back byte if present.
// The second result is false once the stream is exhausted. Read errors are
// treated as end of stream; the scanner classifies everything it gets and
// stops cleanly at whatever end the source presents.
func (p *pushbackReader) readByte() (byte, bool) {
	if p.has {
		p.has = false
		return p.pending, true
	}
	if p.eof {
		return 0, false
	}
	var buf [1]byte
	for {
		n, err := p.r.Read(buf[:])
		if n > 0 {
			return buf[0], true
		}
		if err != nil {
			p.eof = true
			return 0, false
		}
	}
}

// unread hands a byte back to be returned by the next readByte. Unreading
// twice without an intervening read is a programmer error.
func (p *pushbackReader) unread(b byte) {
	if p.has {
		panic("nupy: pushback buffer already full (unread)")
	}
	p.pending = b
	p.has = true
}
