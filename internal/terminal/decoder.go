// internal/terminal/decoder.go
package terminal

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns a byte stream into text. A multi-byte character split
// across reads is held back until the rest arrives; invalid bytes become
// U+FFFD. Not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

// NewDecoder creates a UTF-8 stream decoder
func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode decodes the next chunk of the stream
func (d *Decoder) Decode(p []byte) string {
	return d.decode(p, false)
}

// Flush decodes whatever is still pending at the end of the stream
func (d *Decoder) Flush() string {
	return d.decode(nil, true)
}

func (d *Decoder) decode(p []byte, atEOF bool) string {
	src := append(d.pending, p...)
	d.pending = nil
	if len(src) == 0 {
		return ""
	}

	// worst case every byte is replaced by the 3-byte U+FFFD
	dst := make([]byte, 3*len(src)+4)
	nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
	if err == transform.ErrShortSrc {
		d.pending = append([]byte(nil), src[nSrc:]...)
	}
	return string(dst[:nDst])
}
