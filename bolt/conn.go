// The MIT License (MIT)
//
// Copyright (c) 2013-2017 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package bolt

import (
	"io"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/boltstream/bolt-go/bolterr"
	"github.com/boltstream/bolt-go/logger"
	"github.com/boltstream/bolt-go/packstream"
)

// State is one of the connection's mutually exclusive lifecycle states.
type State int

const (
	Disconnected State = iota
	Negotiating
	Ready
	Streaming
	TxReady
	TxStreaming
	Failed
	Interrupted
	Defunct
)

var stateNames = map[State]string{
	Disconnected: "Disconnected",
	Negotiating:  "Negotiating",
	Ready:        "Ready",
	Streaming:    "Streaming",
	TxReady:      "TxReady",
	TxStreaming:  "TxStreaming",
	Failed:       "Failed",
	Interrupted:  "Interrupted",
	Defunct:      "Defunct",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Conn is a single Bolt connection: a transport, a negotiated version, a
// current State, and the bookkeeping a request/response cycle needs. A
// Conn is not safe for concurrent use: it has a single owner and at most
// one logical request in flight at a time.
type Conn struct {
	rw      io.ReadWriter
	version Version
	state   State
	cid     string
	metrics *Metrics

	proposalsOverride []Version
}

// Option configures a Conn at construction.
type Option func(*Conn)

// WithMetrics attaches a Metrics recorder; pass nil (the default) to
// record nothing.
func WithMetrics(m *Metrics) Option {
	return func(c *Conn) { c.metrics = m }
}

// WithProposals overrides DefaultProposals for the handshake.
func WithProposals(proposals ...Version) Option {
	return func(c *Conn) { c.proposalsOverride = proposals }
}

// Connect performs the handshake over rw and returns a Conn in state
// Negotiating, ready to send Hello/Init. rw is consumed as-is; transport selection
// (TCP vs TLS) is the caller's concern, not this package's.
func Connect(rw io.ReadWriter, opts ...Option) (*Conn, error) {
	c := &Conn{rw: rw, state: Disconnected, cid: newCid()}
	for _, opt := range opts {
		opt(c)
	}

	proposals := c.proposalsOverride
	if len(proposals) == 0 {
		proposals = DefaultProposals
	}

	c.state = Negotiating
	v, err := NewHandshake(proposals...).Negotiate(rw)
	if err != nil {
		c.state = Defunct
		logger.W(c, "handshake failed:", err)
		return nil, err
	}
	c.version = v
	logger.T(c, "negotiated protocol version", v)
	return c, nil
}

// Cid implements logger.Context.
func (c *Conn) Cid() string { return c.cid }

// Version returns the negotiated protocol version.
func (c *Conn) Version() Version { return c.version }

// State returns the connection's current state.
func (c *Conn) State() State { return c.state }

func newCid() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "unknown"
	}
	return id.String()
}

func mapToGo(m *packstream.Map) map[string]interface{} {
	out := make(map[string]interface{}, m.Len())
	m.Range(func(k string, v interface{}) bool {
		out[k] = v
		return true
	})
	return out
}

func (c *Conn) send(msg Message) error {
	buf, err := EncodeMessage(c.version, msg)
	if err != nil {
		return err
	}
	if err := WriteChunked(c.rw, buf); err != nil {
		c.state = Defunct
		return err
	}
	logger.T(c, "sent", msg.messageName())
	c.metrics.observeSent(msg.messageName())
	return nil
}

func (c *Conn) recv() (Message, error) {
	raw, err := ReadChunked(c.rw)
	if err != nil {
		c.state = Defunct
		return nil, err
	}
	msg, err := DecodeMessage(raw)
	if err != nil {
		c.state = Defunct
		return nil, err
	}
	logger.T(c, "received", msg.messageName())
	c.metrics.observeReceived(msg.messageName())
	return msg, nil
}

// request sends msg, which expects exactly one terminal response (a
// Success, Failure, or, while the connection is Failed/Interrupted, an
// Ignored), and applies onSuccess to the state on a Success reply.
func (c *Conn) request(msg Message, onSuccess State) (Message, error) {
	start := time.Now()
	if err := c.send(msg); err != nil {
		return nil, err
	}
	resp, err := c.recv()
	if err != nil {
		return nil, err
	}
	c.metrics.observeLatency(time.Since(start).Seconds())

	switch r := resp.(type) {
	case Success:
		c.state = onSuccess
		return r, nil
	case Failure:
		c.state = Failed
		return r, bolterr.Failure(mapToGo(r.Metadata))
	case Ignored:
		return r, nil
	default:
		c.state = Defunct
		return nil, bolterr.New(bolterr.ProtocolViolation, "unexpected response %T to %s", resp, msg.messageName())
	}
}

// checkLegal returns WrongState unless the connection is in one of the
// allowed states. Failed and Interrupted are always allowed through: any
// request sent in those states draws an Ignored response from the server
// rather than being rejected locally.
func (c *Conn) checkLegal(name string, allowed ...State) error {
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}
	if c.state == Failed || c.state == Interrupted {
		return nil
	}
	return bolterr.New(bolterr.WrongState, "%s is not legal in state %v", name, c.state)
}

// Hello performs session initialization, sending Hello on protocol 3+ or
// Init on 1-2. It is only legal immediately after a successful handshake.
func (c *Conn) Hello(userAgent string, auth *packstream.Map) error {
	if c.state != Negotiating {
		return bolterr.New(bolterr.WrongState, "Hello/Init is only legal right after handshake, current state is %v", c.state)
	}

	var msg Message
	if c.version.AtLeast(3, 0) {
		meta := packstream.NewMap()
		meta.Set("user_agent", userAgent)
		if auth != nil {
			auth.Range(func(k string, v interface{}) bool {
				meta.Set(k, v)
				return true
			})
		}
		msg = Hello{Metadata: meta}
	} else {
		msg = Init{UserAgent: userAgent, Auth: auth}
	}

	_, err := c.request(msg, Ready)
	return err
}

// Run starts executing statement with params, opening a result stream.
// Legal in Ready or TxReady (which determines whether the stream lands
// back in Ready or TxReady once drained).
func (c *Conn) Run(statement string, params *packstream.Map) error {
	if err := c.checkLegal("Run", Ready, TxReady); err != nil {
		return err
	}

	next := Streaming
	if c.state == TxReady {
		next = TxStreaming
	}

	var msg Message
	if c.version.AtLeast(3, 0) {
		msg = RunWithMetadata{Statement: statement, Params: params, Metadata: packstream.NewMap()}
	} else {
		msg = Run{Statement: statement, Params: params}
	}

	_, err := c.request(msg, next)
	return err
}

// ResultStream is the lazy, finite, non-restartable sequence of
// responses to a streaming request: zero or more Records followed by one
// terminating Success, Failure, or Ignored. The caller must fully drain
// one ResultStream (via Next returning ok=false) before issuing another
// request on the same Conn.
type ResultStream struct {
	conn          *Conn
	onSuccessMore State
	onSuccessDone State
	ignoreHasMore bool
	closed        bool
}

// Next reads the next response. ok is true only when rec is a Record;
// once ok is false the stream is drained (rec is always nil then), and
// err carries any Failure or protocol error that terminated it.
func (s *ResultStream) Next() (rec *Record, ok bool, err error) {
	if s.closed {
		return nil, false, bolterr.New(bolterr.WrongState, "result stream already drained")
	}

	resp, err := s.conn.recv()
	if err != nil {
		s.closed = true
		return nil, false, err
	}

	switch r := resp.(type) {
	case Record:
		return &r, true, nil
	case Success:
		s.closed = true
		hasMore, _ := r.Metadata.Get("has_more")
		more, _ := hasMore.(bool)
		if more && !s.ignoreHasMore {
			s.conn.state = s.onSuccessMore
		} else {
			s.conn.state = s.onSuccessDone
		}
		return nil, false, nil
	case Failure:
		s.closed = true
		s.conn.state = Failed
		return nil, false, bolterr.Failure(mapToGo(r.Metadata))
	case Ignored:
		s.closed = true
		return nil, false, nil
	default:
		s.closed = true
		s.conn.state = Defunct
		return nil, false, bolterr.New(bolterr.ProtocolViolation, "unexpected response %T while streaming", resp)
	}
}

// streamingRequest issues msg and returns a ResultStream. When
// ignoreHasMore is true, a has_more:true on the terminating Success is
// not honored: the stream always lands in onSuccessDone, matching
// Discard/DiscardAll's unconditional Streaming->Ready transition (as
// opposed to Pull/PullAll, where has_more:true keeps the connection
// Streaming).
func (c *Conn) streamingRequest(name string, msg Message, ignoreHasMore bool) (*ResultStream, error) {
	if err := c.checkLegal(name, Streaming, TxStreaming); err != nil {
		return nil, err
	}
	streaming := c.state
	done := Ready
	if streaming == TxStreaming {
		done = TxReady
	}
	if err := c.send(msg); err != nil {
		return nil, err
	}
	return &ResultStream{conn: c, onSuccessMore: streaming, onSuccessDone: done, ignoreHasMore: ignoreHasMore}, nil
}

// PullAll streams every remaining record of the open result (v1-v3).
func (c *Conn) PullAll() (*ResultStream, error) {
	if c.version.AtLeast(4, 0) {
		return nil, unsupported("PullAll", c.version, "superseded by Pull")
	}
	return c.streamingRequest("PullAll", PullAll{}, false)
}

// Pull streams up to n records of the open result; qid selects which
// open query when more than one is outstanding, or -1 for the most
// recent (v4+).
func (c *Conn) Pull(n, qid int64) (*ResultStream, error) {
	if !c.version.AtLeast(4, 0) {
		return nil, unsupported("Pull", c.version, "requires >= 4.0, use PullAll")
	}
	meta := packstream.NewMap()
	meta.Set("n", n)
	meta.Set("qid", qid)
	return c.streamingRequest("Pull", Pull{Metadata: meta}, false)
}

// DiscardAll discards the remainder of the open result (v1-v3). Unlike
// Pull/PullAll, the resulting stream always lands back in Ready/TxReady
// once its terminating Success arrives, regardless of has_more.
func (c *Conn) DiscardAll() (*ResultStream, error) {
	if c.version.AtLeast(4, 0) {
		return nil, unsupported("DiscardAll", c.version, "superseded by Discard")
	}
	return c.streamingRequest("DiscardAll", DiscardAll{}, true)
}

// Discard discards up to n records of the open result (v4+); qid selects
// which open query when more than one is outstanding, or -1 for the most
// recent. Unlike Pull, the resulting stream always lands back in
// Ready/TxReady once its terminating Success arrives, regardless of
// has_more: a partial Discard(n) still ends the caller's interest in
// this stream.
func (c *Conn) Discard(n, qid int64) (*ResultStream, error) {
	if !c.version.AtLeast(4, 0) {
		return nil, unsupported("Discard", c.version, "requires >= 4.0, use DiscardAll")
	}
	meta := packstream.NewMap()
	meta.Set("n", n)
	meta.Set("qid", qid)
	return c.streamingRequest("Discard", Discard{Metadata: meta}, true)
}

// Begin opens an explicit transaction (v3+).
func (c *Conn) Begin(metadata *packstream.Map) error {
	if !c.version.AtLeast(3, 0) {
		return unsupported("Begin", c.version, "requires >= 3.0")
	}
	if err := c.checkLegal("Begin", Ready); err != nil {
		return err
	}
	_, err := c.request(Begin{Metadata: metadata}, TxReady)
	return err
}

// Commit commits the current explicit transaction (v3+).
func (c *Conn) Commit() error {
	if err := c.checkLegal("Commit", TxReady); err != nil {
		return err
	}
	_, err := c.request(Commit{}, Ready)
	return err
}

// Rollback rolls back the current explicit transaction (v3+).
func (c *Conn) Rollback() error {
	if err := c.checkLegal("Rollback", TxReady); err != nil {
		return err
	}
	_, err := c.request(Rollback{}, Ready)
	return err
}

// Route asks the server for routing information (v4.3+).
func (c *Conn) Route(routing *packstream.Map, bookmarks []string, dbName *string) (*packstream.Map, error) {
	if !c.version.AtLeast(4, 3) {
		return nil, unsupported("Route", c.version, "requires >= 4.3")
	}
	if err := c.checkLegal("Route", Ready); err != nil {
		return nil, err
	}
	resp, err := c.request(Route{Routing: routing, Bookmarks: bookmarks, DbName: dbName}, Ready)
	if err != nil {
		return nil, err
	}
	succ, ok := resp.(Success)
	if !ok {
		return nil, bolterr.New(bolterr.ProtocolViolation, "Route did not resolve to a Success")
	}
	return succ.Metadata, nil
}

// AckFailure is the v1-v2 failure-recovery acknowledgement.
func (c *Conn) AckFailure() error {
	if c.version.AtLeast(3, 0) {
		return unsupported("AckFailure", c.version, "removed in 3.0, use Reset")
	}
	if c.state != Failed {
		return bolterr.New(bolterr.WrongState, "AckFailure is only legal in Failed, current state is %v", c.state)
	}
	_, err := c.request(AckFailure{}, Ready)
	return err
}

// Reset drains all outstanding requests and returns the connection to
// Ready with no open stream. Legal from any state, including mid-stream.
func (c *Conn) Reset() error {
	c.state = Interrupted
	_, err := c.request(Reset{}, Ready)
	return err
}

// Goodbye politely ends the session (v3+). No response follows; the
// connection becomes Defunct once it is sent.
func (c *Conn) Goodbye() error {
	if !c.version.AtLeast(3, 0) {
		return unsupported("Goodbye", c.version, "requires >= 3.0")
	}
	err := c.send(Goodbye{})
	c.state = Defunct
	return err
}
