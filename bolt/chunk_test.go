package bolt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkRoundTrip(t *testing.T) {
	msg := []byte{0xB2, 0x10, 0x88, 0x52, 0x45, 0x54, 0x55, 0x52, 0x4E, 0x20, 0x31, 0xA0}

	var buf bytes.Buffer
	require.NoError(t, WriteChunked(&buf, msg))
	require.Equal(t, []byte{0x00, 0x0C}, buf.Bytes()[:2])

	got, err := ReadChunked(&buf)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestScenarioRunFraming(t *testing.T) {
	// A single Run message framed whole: length prefix, the message
	// bytes verbatim, then the zero-length terminator chunk.
	msg := []byte{0xB2, 0x10, 0x88, 0x52, 0x45, 0x54, 0x55, 0x52, 0x4E, 0x20, 0x31, 0xA0}
	var buf bytes.Buffer
	require.NoError(t, WriteChunked(&buf, msg))
	want := []byte{0x00, 0x0C, 0xB2, 0x10, 0x88, 0x52, 0x45, 0x54, 0x55, 0x52, 0x4E, 0x20, 0x31, 0xA0, 0x00, 0x00}
	require.Equal(t, want, buf.Bytes())
}

func TestChunkBoundaryIndependence(t *testing.T) {
	msg := []byte{0xB2, 0x10, 0x88, 0x52, 0x45, 0x54, 0x55, 0x52, 0x4E, 0x20, 0x31, 0xA0}

	for split := 0; split <= len(msg); split++ {
		var buf bytes.Buffer
		if split == 0 {
			require.NoError(t, WriteChunked(&buf, msg))
		} else {
			writeRawChunk(&buf, msg[:split])
			writeRawChunk(&buf, msg[split:])
			buf.Write([]byte{0x00, 0x00})
		}
		got, err := ReadChunked(&buf)
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}

func writeRawChunk(buf *bytes.Buffer, payload []byte) {
	if len(payload) == 0 {
		return
	}
	buf.WriteByte(byte(len(payload) >> 8))
	buf.WriteByte(byte(len(payload)))
	buf.Write(payload)
}

func TestReadChunkedRejectsTruncatedStream(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x05, 0x01, 0x02})
	_, err := ReadChunked(buf)
	require.Error(t, err)
}
