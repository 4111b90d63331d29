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

// The bolt package implements the Bolt wire protocol's handshake,
// chunked framing, message layer, and client connection state machine.
package bolt

import "fmt"

// Version is a negotiated Bolt protocol version.
type Version struct {
	Major byte
	Minor byte
}

// AtLeast reports whether v is greater than or equal to major.minor.
func (v Version) AtLeast(major, minor byte) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsZero reports whether v is the unnegotiated zero value.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// V1 through V4_4 are the protocol versions this package knows, listed
// highest first. Only the newest four are offered by default; see
// DefaultProposals.
var (
	V4_4 = Version{Major: 4, Minor: 4}
	V4_3 = Version{Major: 4, Minor: 3}
	V4_0 = Version{Major: 4, Minor: 0}
	V3   = Version{Major: 3, Minor: 0}
	V2   = Version{Major: 2, Minor: 0}
	V1   = Version{Major: 1, Minor: 0}
)

// DefaultProposals is the highest-to-lowest preference order offered by
// Connect when the caller passes none of its own. The handshake carries
// at most four proposals, so this is trimmed to the newest four.
var DefaultProposals = []Version{V4_4, V4_3, V4_0, V3}
