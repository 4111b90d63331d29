package bolt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory io.ReadWriter that lets a test queue a
// canned server reply ahead of the write.
type fakeTransport struct {
	written bytes.Buffer
	reply   *bytes.Buffer
}

func newFakeTransport(reply []byte) *fakeTransport {
	return &fakeTransport{reply: bytes.NewBuffer(reply)}
}

func (f *fakeTransport) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakeTransport) Read(p []byte) (int, error)  { return f.reply.Read(p) }

func TestScenarioHandshakeNegotiatesVersion4(t *testing.T) {
	// Server picks the third of four offered versions (4.0).
	tr := newFakeTransport([]byte{0x00, 0x00, 0x00, 0x04})

	v, err := NewHandshake(V4_4, V4_3, V4_0, V3).Negotiate(tr)
	require.NoError(t, err)
	require.Equal(t, Version{Major: 4, Minor: 0}, v)

	want := []byte{
		0x60, 0x60, 0xB0, 0x17,
		0x00, 0x00, 0x04, 0x04,
		0x00, 0x00, 0x03, 0x04,
		0x00, 0x00, 0x00, 0x04,
		0x00, 0x00, 0x00, 0x03,
	}
	require.Equal(t, want, tr.written.Bytes())
}

func TestHandshakeNoCommonVersion(t *testing.T) {
	tr := newFakeTransport([]byte{0x00, 0x00, 0x00, 0x00})
	_, err := NewHandshake(V1).Negotiate(tr)
	require.Error(t, err)
}

func TestHandshakeRejectsTooManyProposals(t *testing.T) {
	tr := newFakeTransport(nil)
	_, err := NewHandshake(V1, V2, V3, V4_0, V4_3).Negotiate(tr)
	require.Error(t, err)
}
