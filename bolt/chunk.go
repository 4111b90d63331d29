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

// maxChunkSize is the largest payload a single chunk header can declare.
const maxChunkSize = 0xFFFF

// WriteChunked splits msg into chunks of at most maxChunkSize bytes, each
// preceded by its 2-byte big-endian length, and terminates the message
// with a zero-length chunk header. The framer does not inspect msg's
// contents; it never fails on the shape of the payload, only on I/O.
func WriteChunked(w io.Writer, msg []byte) error {
	hdr := make([]byte, 2)
	for len(msg) > 0 {
		n := len(msg)
		if n > maxChunkSize {
			n = maxChunkSize
		}
		binary.BigEndian.PutUint16(hdr, uint16(n))
		if _, err := w.Write(hdr); err != nil {
			return bolterr.Wrap(bolterr.IoError, err, "writing chunk header")
		}
		if _, err := w.Write(msg[:n]); err != nil {
			return bolterr.Wrap(bolterr.IoError, err, "writing chunk payload")
		}
		msg = msg[n:]
	}
	if _, err := w.Write([]byte{0x00, 0x00}); err != nil {
		return bolterr.Wrap(bolterr.IoError, err, "writing end-of-message marker")
	}
	return nil
}

// ReadChunked reads chunks from r until a zero-length header terminates
// the message and returns the concatenated payload. The caller must not
// assume any correspondence between chunk boundaries and message
// structure; a single Value may span several chunks.
func ReadChunked(r io.Reader) ([]byte, error) {
	var msg []byte
	hdr := make([]byte, 2)
	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			return nil, bolterr.Wrap(bolterr.IoError, err, "reading chunk header")
		}
		n := binary.BigEndian.Uint16(hdr)
		if n == 0 {
			return msg, nil
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, bolterr.Wrap(bolterr.IoError, err, "reading chunk payload")
		}
		msg = append(msg, chunk...)
	}
}
