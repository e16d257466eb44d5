// Package frame packs messages into checksummed frames for transport over a
// byte oriented serial line.
//
// A frame is the payload followed by its CRC-8/MAXIM, byte stuffed like SLIP
// and delimited by END bytes on both sides. Receivers resynchronize on the
// next END after a corrupted frame.
package frame

import (
	"errors"

	"github.com/sigurn/crc8"
)

const (
	End    = 0xc0
	Esc    = 0xdb
	EscEnd = 0xdc
	EscEsc = 0xdd
)

var (
	ErrShortBuffer = errors.New("frame: buffer too short")
	ErrChecksum    = errors.New("frame: checksum mismatch")
	ErrTooLong     = errors.New("frame: frame exceeds buffer")
	ErrEscape      = errors.New("frame: invalid escape sequence")
)

var maxim = crc8.MakeTable(crc8.Params{0x31, 0x00, true, true, 0x00, 0xA1, "CRC-8/MAXIM"})

// Checksum returns the CRC-8/MAXIM of p.
func Checksum(p []byte) uint8 {
	return crc8.Checksum(p, maxim)
}

// MaxEncodedLen returns the worst case size of the frame of an n byte payload.
func MaxEncodedLen(n int) int {
	return 2*(n+1) + 2
}

// Encode writes the frame of payload to dst and returns its length.
func Encode(dst, payload []byte) (int, error) {
	w := writer{dst: dst}
	w.put(End)
	for _, c := range payload {
		w.stuff(c)
	}
	w.stuff(Checksum(payload))
	w.put(End)
	if w.short {
		return 0, ErrShortBuffer
	}
	return w.n, nil
}

type writer struct {
	dst   []byte
	n     int
	short bool
}

func (w *writer) put(c byte) {
	if w.n >= len(w.dst) {
		w.short = true
		return
	}
	w.dst[w.n] = c
	w.n++
}

func (w *writer) stuff(c byte) {
	switch c {
	case End:
		w.put(Esc)
		w.put(EscEnd)
	case Esc:
		w.put(Esc)
		w.put(EscEsc)
	default:
		w.put(c)
	}
}
