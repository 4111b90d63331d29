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
	"github.com/boltstream/bolt-go/bolterr"
	"github.com/boltstream/bolt-go/packstream"
)

// Message is any client request or server response. The concrete types
// below are a closed set. Tags 0x01 (Init/Hello) and 0x10
// (Run/RunWithMetadata) are shared across two message kinds,
// disambiguated solely by the negotiated version, so the set of legal
// Message values depends on a Version and cannot be decided by the tag
// byte alone.
type Message interface {
	messageName() string
}

// --- client requests ---

// Init is the v1-v2 session initialization request, replaced by Hello
// in v3.
type Init struct {
	UserAgent string
	Auth      *packstream.Map
}

func (Init) messageName() string { return "Init" }

// Hello is the v3+ session initialization request.
type Hello struct {
	Metadata *packstream.Map
}

func (Hello) messageName() string { return "Hello" }

// AckFailure is the v1-v2 failure-recovery acknowledgement, removed in
// v3 in favor of Reset.
type AckFailure struct{}

func (AckFailure) messageName() string { return "AckFailure" }

// Reset is the v3+ failure-recovery acknowledgement; also legal at any
// time to interrupt and drain a connection back to Ready.
type Reset struct{}

func (Reset) messageName() string { return "Reset" }

// Goodbye politely ends the session (v3+); the connection becomes
// Defunct once it is sent, since no response follows.
type Goodbye struct{}

func (Goodbye) messageName() string { return "Goodbye" }

// Run is the v1-v2 query execution request, superseded by
// RunWithMetadata in v3.
type Run struct {
	Statement string
	Params    *packstream.Map
}

func (Run) messageName() string { return "Run" }

// RunWithMetadata is the v3+ query execution request.
type RunWithMetadata struct {
	Statement string
	Params    *packstream.Map
	Metadata  *packstream.Map
}

func (RunWithMetadata) messageName() string { return "RunWithMetadata" }

// Begin opens an explicit transaction (v3+).
type Begin struct {
	Metadata *packstream.Map
}

func (Begin) messageName() string { return "Begin" }

// Commit commits the current explicit transaction (v3+).
type Commit struct{}

func (Commit) messageName() string { return "Commit" }

// Rollback rolls back the current explicit transaction (v3+).
type Rollback struct{}

func (Rollback) messageName() string { return "Rollback" }

// DiscardAll discards the remainder of the open result stream (v1-v3),
// superseded by Discard in v4.
type DiscardAll struct{}

func (DiscardAll) messageName() string { return "DiscardAll" }

// Discard discards up to n records of the open result (v4+); Metadata
// carries "n" and "qid".
type Discard struct {
	Metadata *packstream.Map
}

func (Discard) messageName() string { return "Discard" }

// PullAll streams every remaining record of the open result (v1-v3),
// superseded by Pull in v4.
type PullAll struct{}

func (PullAll) messageName() string { return "PullAll" }

// Pull streams up to n records of the open result (v4+); Metadata
// carries "n" and "qid".
type Pull struct {
	Metadata *packstream.Map
}

func (Pull) messageName() string { return "Pull" }

// Route asks the server for routing information (v4.3+).
type Route struct {
	Routing   *packstream.Map
	Bookmarks []string
	DbName    *string
}

func (Route) messageName() string { return "Route" }

// --- server responses ---

// Success terminates a request with its result metadata.
type Success struct {
	Metadata *packstream.Map
}

func (Success) messageName() string { return "Success" }

// Ignored terminates a request sent while the connection is Failed or
// Interrupted.
type Ignored struct{}

func (Ignored) messageName() string { return "Ignored" }

// Failure terminates a request the server could not honor; Metadata
// carries "code" and "message".
type Failure struct {
	Metadata *packstream.Map
}

func (Failure) messageName() string { return "Failure" }

// Record is one row of a streaming result.
type Record struct {
	Fields []interface{}
}

func (Record) messageName() string { return "Record" }

// --- encode ---

func mapOrEmpty(m *packstream.Map) *packstream.Map {
	if m == nil {
		return packstream.NewMap()
	}
	return m
}

func unsupported(name string, v Version, why string) error {
	return bolterr.New(bolterr.UnsupportedByVersion, "%s is not legal for protocol %v: %s", name, v, why)
}

// EncodeMessage packs a client request into its PackStream structure for
// the negotiated version v, failing with UnsupportedByVersion if msg is
// not legal for v.
func EncodeMessage(v Version, msg Message) ([]byte, error) {
	tag, fields, err := requestFields(v, msg)
	if err != nil {
		return nil, err
	}
	return packstream.EncodeStruct(tag, fields)
}

func requestFields(v Version, msg Message) (byte, []interface{}, error) {
	switch m := msg.(type) {
	case Init:
		if v.AtLeast(3, 0) {
			return 0, nil, unsupported("Init", v, "replaced by Hello in 3.0")
		}
		return 0x01, []interface{}{m.UserAgent, mapOrEmpty(m.Auth)}, nil
	case Hello:
		if !v.AtLeast(3, 0) {
			return 0, nil, unsupported("Hello", v, "requires >= 3.0")
		}
		return 0x01, []interface{}{mapOrEmpty(m.Metadata)}, nil
	case AckFailure:
		if v.AtLeast(3, 0) {
			return 0, nil, unsupported("AckFailure", v, "removed in 3.0, use Reset")
		}
		return 0x02, nil, nil
	case Goodbye:
		if !v.AtLeast(3, 0) {
			return 0, nil, unsupported("Goodbye", v, "requires >= 3.0")
		}
		return 0x02, nil, nil
	case Reset:
		return 0x0F, nil, nil
	case Run:
		if v.AtLeast(3, 0) {
			return 0, nil, unsupported("Run", v, "superseded by RunWithMetadata in 3.0")
		}
		return 0x10, []interface{}{m.Statement, mapOrEmpty(m.Params)}, nil
	case RunWithMetadata:
		if !v.AtLeast(3, 0) {
			return 0, nil, unsupported("RunWithMetadata", v, "requires >= 3.0")
		}
		return 0x10, []interface{}{m.Statement, mapOrEmpty(m.Params), mapOrEmpty(m.Metadata)}, nil
	case Begin:
		if !v.AtLeast(3, 0) {
			return 0, nil, unsupported("Begin", v, "requires >= 3.0")
		}
		return 0x11, []interface{}{mapOrEmpty(m.Metadata)}, nil
	case Commit:
		if !v.AtLeast(3, 0) {
			return 0, nil, unsupported("Commit", v, "requires >= 3.0")
		}
		return 0x12, nil, nil
	case Rollback:
		if !v.AtLeast(3, 0) {
			return 0, nil, unsupported("Rollback", v, "requires >= 3.0")
		}
		return 0x13, nil, nil
	case DiscardAll:
		if v.AtLeast(4, 0) {
			return 0, nil, unsupported("DiscardAll", v, "superseded by Discard in 4.0")
		}
		return 0x2F, nil, nil
	case Discard:
		if !v.AtLeast(4, 0) {
			return 0, nil, unsupported("Discard", v, "requires >= 4.0")
		}
		return 0x2F, []interface{}{mapOrEmpty(m.Metadata)}, nil
	case PullAll:
		if v.AtLeast(4, 0) {
			return 0, nil, unsupported("PullAll", v, "superseded by Pull in 4.0")
		}
		return 0x3F, nil, nil
	case Pull:
		if !v.AtLeast(4, 0) {
			return 0, nil, unsupported("Pull", v, "requires >= 4.0")
		}
		return 0x3F, []interface{}{mapOrEmpty(m.Metadata)}, nil
	case Route:
		if !v.AtLeast(4, 3) {
			return 0, nil, unsupported("Route", v, "requires >= 4.3")
		}
		bookmarks := make([]interface{}, len(m.Bookmarks))
		for i, b := range m.Bookmarks {
			bookmarks[i] = b
		}
		var dbName interface{}
		if m.DbName != nil {
			dbName = *m.DbName
		}
		return 0x66, []interface{}{mapOrEmpty(m.Routing), bookmarks, dbName}, nil
	}
	return 0, nil, bolterr.New(bolterr.WrongState, "%T is not a client request message", msg)
}

// --- decode ---

func wantFieldCount(tag byte, got, want int) error {
	if got != want {
		return bolterr.New(bolterr.ProtocolViolation, "message tag 0x%02X expects %d fields, got %d", tag, want, got)
	}
	return nil
}

func asMap(v interface{}) (*packstream.Map, error) {
	m, ok := v.(*packstream.Map)
	if !ok {
		return nil, bolterr.New(bolterr.ProtocolViolation, "expected a Map field, got %T", v)
	}
	return m, nil
}

// DecodeMessage reads one server response from data. Only Success,
// Failure, Ignored, and Record ever arrive from the server (§4.4), and
// their tags are not overloaded by version, so decoding them takes no
// Version.
func DecodeMessage(data []byte) (Message, error) {
	tag, fields, consumed, err := packstream.DecodeStruct(data)
	if err != nil {
		return nil, err
	}
	if consumed != len(data) {
		return nil, bolterr.New(bolterr.ProtocolViolation, "%d trailing bytes after message", len(data)-consumed)
	}

	switch tag {
	case 0x70:
		if err := wantFieldCount(tag, len(fields), 1); err != nil {
			return nil, err
		}
		m, err := asMap(fields[0])
		if err != nil {
			return nil, err
		}
		return Success{Metadata: m}, nil
	case 0x7E:
		if err := wantFieldCount(tag, len(fields), 0); err != nil {
			return nil, err
		}
		return Ignored{}, nil
	case 0x7F:
		if err := wantFieldCount(tag, len(fields), 1); err != nil {
			return nil, err
		}
		m, err := asMap(fields[0])
		if err != nil {
			return nil, err
		}
		return Failure{Metadata: m}, nil
	case 0x71:
		if err := wantFieldCount(tag, len(fields), 1); err != nil {
			return nil, err
		}
		list, ok := fields[0].([]interface{})
		if !ok {
			return nil, bolterr.New(bolterr.ProtocolViolation, "Record.fields is not a List")
		}
		return Record{Fields: list}, nil
	}
	return nil, bolterr.New(bolterr.ProtocolViolation, "tag 0x%02X is not a valid server response", tag)
}
