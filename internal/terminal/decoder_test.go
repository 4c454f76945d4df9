package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecoderASCII(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, "OK\r\n", d.Decode([]byte("OK\r\n")))
	assert.Equal(t, "", d.Flush())
}

func TestDecoderSplitSequences(t *testing.T) {
	// "€" is E2 82 AC, "😀" is F0 9F 98 80
	input := []byte("a€b😀c")

	for split := 0; split <= len(input); split++ {
		d := NewDecoder()
		got := d.Decode(input[:split]) + d.Decode(input[split:]) + d.Flush()
		assert.Equal(t, "a€b😀c", got, "split at %d", split)
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	d := NewDecoder()
	var got string
	for _, b := range []byte("héllo wörld") {
		got += d.Decode([]byte{b})
	}
	assert.Equal(t, "héllo wörld", got)
}

func TestDecoderInvalidBytes(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, "a�b", d.Decode([]byte{'a', 0xFF, 'b'}))
}

func TestDecoderFlushIncomplete(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, "x", d.Decode([]byte{'x', 0xC3}))
	assert.Equal(t, "�", d.Flush())
	assert.Equal(t, "", d.Flush())
}

func TestFrameCommand(t *testing.T) {
	assert.Equal(t, []byte{0x41, 0x54, 0x0D, 0x0A}, FrameCommand("AT"))
	assert.Equal(t, []byte("\r\n"), FrameCommand(""))
}
