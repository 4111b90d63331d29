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
	"encoding/binary"
	"io"

	"github.com/boltstream/bolt-go/bolterr"
)

// magicPreamble identifies a Bolt connection before any version has been
// agreed.
var magicPreamble = [4]byte{0x60, 0x60, 0xB0, 0x17}

// Handshake negotiates a protocol version over rw: the magic preamble
// plus up to four version proposals, highest preference first.
type Handshake struct {
	Proposals []Version
}

// NewHandshake builds a Handshake offering proposals in the given order.
// At most four are sent; unused slots are zero, meaning "no proposal".
func NewHandshake(proposals ...Version) *Handshake {
	return &Handshake{Proposals: proposals}
}

// Negotiate writes the preamble and proposals, then reads the server's
// single 4-byte reply and returns the negotiated version. The handshake
// is not chunk-framed.
func (h *Handshake) Negotiate(rw io.ReadWriter) (Version, error) {
	if len(h.Proposals) == 0 || len(h.Proposals) > 4 {
		return Version{}, bolterr.New(bolterr.HandshakeFailed, "handshake takes 1-4 version proposals, got %d", len(h.Proposals))
	}

	buf := make([]byte, 0, 20)
	buf = append(buf, magicPreamble[:]...)
	for i := 0; i < 4; i++ {
		if i < len(h.Proposals) {
			p := h.Proposals[i]
			buf = append(buf, 0x00, 0x00, p.Minor, p.Major)
		} else {
			buf = append(buf, 0x00, 0x00, 0x00, 0x00)
		}
	}
	if _, err := rw.Write(buf); err != nil {
		return Version{}, bolterr.Wrap(bolterr.IoError, err, "writing handshake")
	}

	reply := make([]byte, 4)
	if _, err := io.ReadFull(rw, reply); err != nil {
		return Version{}, bolterr.Wrap(bolterr.IoError, err, "reading handshake reply")
	}
	if binary.BigEndian.Uint32(reply) == 0 {
		return Version{}, bolterr.New(bolterr.NoCommonVersion, "server accepted none of the offered versions")
	}
	return Version{Major: reply[3], Minor: reply[2]}, nil
}
