package bolt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/boltstream/bolt-go/packstream"
)

// script is an in-memory transport: everything the client writes lands in
// `written`; everything queued onto `reply` is what the client reads back,
// in order.
type script struct {
	written bytes.Buffer
	reply   bytes.Buffer
}

func (s *script) Write(p []byte) (int, error) { return s.written.Write(p) }
func (s *script) Read(p []byte) (int, error)  { return s.reply.Read(p) }

func (s *script) queueHandshake(v Version) {
	s.reply.Write([]byte{0x00, 0x00, v.Minor, v.Major})
}

func (s *script) queueSuccess(meta *packstream.Map) {
	if meta == nil {
		meta = packstream.NewMap()
	}
	buf, err := packstream.EncodeStruct(0x70, []interface{}{meta})
	if err != nil {
		panic(err)
	}
	if err := WriteChunked(&s.reply, buf); err != nil {
		panic(err)
	}
}

func (s *script) queueFailure(code, message string) {
	meta := packstream.NewMap()
	meta.Set("code", code)
	meta.Set("message", message)
	buf, err := packstream.EncodeStruct(0x7F, []interface{}{meta})
	if err != nil {
		panic(err)
	}
	if err := WriteChunked(&s.reply, buf); err != nil {
		panic(err)
	}
}

func (s *script) queueIgnored() {
	buf, err := packstream.EncodeStruct(0x7E, nil)
	if err != nil {
		panic(err)
	}
	if err := WriteChunked(&s.reply, buf); err != nil {
		panic(err)
	}
}

func (s *script) queueRecord(fields ...interface{}) {
	buf, err := packstream.EncodeStruct(0x71, []interface{}{fields})
	if err != nil {
		panic(err)
	}
	if err := WriteChunked(&s.reply, buf); err != nil {
		panic(err)
	}
}

func connectV4(t *testing.T, s *script) *Conn {
	t.Helper()
	s.queueHandshake(V4_0)
	c, err := Connect(s, WithProposals(V4_0))
	require.NoError(t, err)
	require.Equal(t, Negotiating, c.State())
	return c
}

func TestConnLifecycleToReady(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)

	s.queueSuccess(nil)
	require.NoError(t, c.Hello("boltstream-go/0.1", packstream.NewMap()))
	require.Equal(t, Ready, c.State())
}

func TestConnRunAndPullAllRecords(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("boltstream-go/0.1", packstream.NewMap()))

	s.queueSuccess(nil)
	require.NoError(t, c.Run("RETURN 1", packstream.NewMap()))
	require.Equal(t, Streaming, c.State())

	s.queueRecord(int64(1))
	doneMeta := packstream.NewMap()
	doneMeta.Set("has_more", false)
	s.queueSuccess(doneMeta)

	stream, err := c.Pull(-1, -1)
	require.NoError(t, err)

	rec, ok, err := stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []interface{}{int64(1)}, rec.Fields)

	rec, ok, err = stream.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, rec)
	require.Equal(t, Ready, c.State())
}

func TestConnPullHasMoreStaysStreaming(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("a", packstream.NewMap()))
	s.queueSuccess(nil)
	require.NoError(t, c.Run("RETURN 1", packstream.NewMap()))

	meta := packstream.NewMap()
	meta.Set("has_more", true)
	s.queueSuccess(meta)

	stream, err := c.Pull(1, -1)
	require.NoError(t, err)
	_, ok, err := stream.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, Streaming, c.State())
}

func TestConnDiscardIgnoresHasMore(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("a", packstream.NewMap()))
	s.queueSuccess(nil)
	require.NoError(t, c.Run("RETURN 1", packstream.NewMap()))

	meta := packstream.NewMap()
	meta.Set("has_more", true)
	s.queueSuccess(meta)

	stream, err := c.Discard(1, -1)
	require.NoError(t, err)
	_, ok, err := stream.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, Ready, c.State())
}

func TestConnFailureThenResetRecovers(t *testing.T) {
	// A Failure response moves the connection to Failed; further
	// requests draw Ignored until Reset brings it back to Ready.
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("a", packstream.NewMap()))

	s.queueFailure("Neo.ClientError.Statement.SyntaxError", "bad query")
	err := c.Run("NOT CYPHER", packstream.NewMap())
	require.Error(t, err)
	require.Equal(t, Failed, c.State())

	s.queueIgnored()
	stream, err := c.Pull(-1, -1)
	require.NoError(t, err)
	_, ok, err := stream.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, Failed, c.State())

	s.queueSuccess(nil)
	require.NoError(t, c.Reset())
	require.Equal(t, Ready, c.State())
}

func TestConnTransactionLifecycle(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("a", packstream.NewMap()))

	s.queueSuccess(nil)
	require.NoError(t, c.Begin(packstream.NewMap()))
	require.Equal(t, TxReady, c.State())

	s.queueSuccess(nil)
	require.NoError(t, c.Run("RETURN 1", packstream.NewMap()))
	require.Equal(t, TxStreaming, c.State())

	doneMeta := packstream.NewMap()
	doneMeta.Set("has_more", false)
	s.queueSuccess(doneMeta)
	stream, err := c.Pull(-1, -1)
	require.NoError(t, err)
	_, _, err = stream.Next()
	require.NoError(t, err)
	require.Equal(t, TxReady, c.State())

	s.queueSuccess(nil)
	require.NoError(t, c.Commit())
	require.Equal(t, Ready, c.State())
}

func TestCommitIllegalOutsideTransaction(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("a", packstream.NewMap()))

	err := c.Commit()
	require.Error(t, err)
}

func TestPullAllUnsupportedOnV4(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("a", packstream.NewMap()))
	s.queueSuccess(nil)
	require.NoError(t, c.Run("RETURN 1", packstream.NewMap()))

	_, err := c.PullAll()
	require.Error(t, err)
}

func TestRouteRequiresV43(t *testing.T) {
	s := &script{}
	c := connectV4(t, s)
	s.queueSuccess(nil)
	require.NoError(t, c.Hello("a", packstream.NewMap()))

	_, err := c.Route(packstream.NewMap(), nil, nil)
	require.Error(t, err)
}
