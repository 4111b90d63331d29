// Package packstream implements PackStream, the self-describing
// binary value encoding used by the Bolt wire protocol. Every value
// begins with a marker byte that selects its type and, for the small
// forms, carries its length or magnitude directly.
//
// A Value is represented as a plain Go value rather than a wrapper
// type: nil, bool, int64, float64, []byte, string, []interface{}, *Map,
// or one of the structure types in values.go (Node, Relationship,
// Path, Date, Duration, Point2D, ...). Marshal accepts the usual
// narrower Go numeric types too (int, int32, float32, ...) by
// reflection, the same way a driver's outgoing layer does, so callers
// don't have to cast every literal to int64.
package packstream

import (
	"encoding/binary"
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/boltstream/bolt-go/bolterr"
)

// Marker byte ranges and fixed markers.
const (
	markerTinyIntMin     = 0x00
	markerTinyIntMax     = 0x7F
	markerTinyStringMin  = 0x80
	markerTinyStringMax  = 0x8F
	markerTinyListMin    = 0x90
	markerTinyListMax    = 0x9F
	markerTinyMapMin     = 0xA0
	markerTinyMapMax     = 0xAF
	markerTinyStructMin  = 0xB0
	markerTinyStructMax  = 0xBF
	markerNull           = 0xC0
	markerFloat64        = 0xC1
	markerFalse          = 0xC2
	markerTrue           = 0xC3
	markerInt8           = 0xC8
	markerInt16          = 0xC9
	markerInt32          = 0xCA
	markerInt64          = 0xCB
	markerBytes8         = 0xCC
	markerBytes16        = 0xCD
	markerBytes32        = 0xCE
	markerString8        = 0xD0
	markerString16       = 0xD1
	markerString32       = 0xD2
	markerList8          = 0xD4
	markerList16         = 0xD5
	markerList32         = 0xD6
	markerMap8           = 0xD8
	markerMap16          = 0xD9
	markerMap32          = 0xDA
	markerStruct8        = 0xDC
	markerStruct16       = 0xDD
	markerTinyIntNegMin  = 0xF0 // -16
)

// Structure tags for Value structures. Message structure tags live in
// the bolt package, since those are version-gated and some are shared
// across two message kinds.
const (
	structNode                = 0x4E
	structRelationship        = 0x52
	structUnboundRelationship = 0x72
	structPath                = 0x50
	structDate                = 0x44
	structTime                = 0x54
	structLocalTime           = 0x74
	structDateTimeOffset      = 0x46
	structDateTimeZoned       = 0x66
	structLocalDateTime       = 0x64
	structDuration            = 0x45
	structPoint2D             = 0x58
	structPoint3D             = 0x59
)

// Marshal encodes a Value into its minimal PackStream form: the
// shortest marker that fits the value is always chosen.
func Marshal(v interface{}) ([]byte, error) {
	var buf []byte
	buf, err := appendValue(buf, v)
	return buf, err
}

// Unmarshal decodes exactly one Value from data, failing with
// ProtocolViolation if trailing bytes remain. Use Decode when the
// value is embedded in a larger buffer (e.g. one field of a Record).
func Unmarshal(data []byte) (interface{}, error) {
	v, n, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, bolterr.New(bolterr.ProtocolViolation, "%d trailing bytes after value", len(data)-n)
	}
	return v, nil
}

// Decode reads one Value from the front of data and returns how many
// bytes it consumed, leaving any remainder to the caller.
func Decode(data []byte) (interface{}, int, error) {
	return decodeValue(data)
}

func appendValue(buf []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return append(buf, markerNull), nil
	}

	switch val := v.(type) {
	case bool:
		if val {
			return append(buf, markerTrue), nil
		}
		return append(buf, markerFalse), nil
	case int64:
		return appendInt(buf, val), nil
	case float64:
		return appendFloat(buf, val), nil
	case []byte:
		return appendBytes(buf, val)
	case string:
		return appendString(buf, val)
	case []interface{}:
		return appendList(buf, val)
	case *Map:
		return appendMap(buf, val)
	case Node:
		return appendNode(buf, val)
	case Relationship:
		return appendRelationship(buf, val)
	case UnboundRelationship:
		return appendUnboundRelationship(buf, val)
	case Path:
		return appendPath(buf, val)
	case Date:
		return appendDate(buf, val)
	case Time:
		return appendTime(buf, val)
	case LocalTime:
		return appendLocalTime(buf, val)
	case DateTimeOffset:
		return appendDateTimeOffset(buf, val)
	case DateTimeZoned:
		return appendDateTimeZoned(buf, val)
	case LocalDateTime:
		return appendLocalDateTime(buf, val)
	case Duration:
		return appendDuration(buf, val)
	case Point2D:
		return appendPoint2D(buf, val)
	case Point3D:
		return appendPoint3D(buf, val)
	}

	// Fall back to reflection for convenience numeric/slice/map types,
	// the same way a driver's outgoing pack layer widens int/int32/...
	// to the wire's canonical Integer representation.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return appendInt(buf, rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, bolterr.New(bolterr.ValueOutOfRange, "unsigned value %d exceeds the 64-bit signed Integer range", u)
		}
		return appendInt(buf, int64(u)), nil
	case reflect.Float32:
		return appendFloat(buf, rv.Float()), nil
	case reflect.Map:
		m := NewMap()
		for _, k := range rv.MapKeys() {
			m.Set(k.String(), rv.MapIndex(k).Interface())
		}
		return appendMap(buf, m)
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		list := make([]interface{}, n)
		for i := 0; i < n; i++ {
			list[i] = rv.Index(i).Interface()
		}
		return appendList(buf, list)
	}

	return nil, bolterr.New(bolterr.ValueOutOfRange, "cannot encode value of type %T", v)
}

func appendInt(buf []byte, n int64) []byte {
	switch {
	case n >= -16 && n <= 127:
		return append(buf, byte(int8(n)))
	case n >= -128 && n <= -17:
		return append(buf, markerInt8, byte(int8(n)))
	case n >= math.MinInt16 && n <= math.MaxInt16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(int16(n)))
		return append(append(buf, markerInt16), b...)
	case n >= math.MinInt32 && n <= math.MaxInt32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(int32(n)))
		return append(append(buf, markerInt32), b...)
	default:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(n))
		return append(append(buf, markerInt64), b...)
	}
}

func appendFloat(buf []byte, f float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f))
	return append(append(buf, markerFloat64), b...)
}

func appendSized(buf []byte, tinyMin, tinyMax, m8, m16, m32 byte, n int, body []byte) ([]byte, error) {
	switch {
	case n <= int(tinyMax-tinyMin):
		buf = append(buf, tinyMin+byte(n))
	case n <= 0xFF:
		buf = append(buf, m8, byte(n))
	case n <= 0xFFFF:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(n))
		buf = append(append(buf, m16), b...)
	case n <= math.MaxInt32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(n))
		buf = append(append(buf, m32), b...)
	default:
		return nil, bolterr.New(bolterr.ValueOutOfRange, "length %d exceeds PackStream's 32-bit size limit", n)
	}
	return append(buf, body...), nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	return appendSized(buf, markerTinyStringMin, markerTinyStringMax, markerString8, markerString16, markerString32, len(s), []byte(s))
}

func appendBytes(buf []byte, b []byte) ([]byte, error) {
	// Bytes has no tiny form; every length, including zero, carries an
	// explicit size byte/word after the marker.
	n := len(b)
	switch {
	case n <= 0xFF:
		buf = append(buf, markerBytes8, byte(n))
	case n <= 0xFFFF:
		hdr := make([]byte, 2)
		binary.BigEndian.PutUint16(hdr, uint16(n))
		buf = append(append(buf, markerBytes16), hdr...)
	case n <= math.MaxInt32:
		hdr := make([]byte, 4)
		binary.BigEndian.PutUint32(hdr, uint32(n))
		buf = append(append(buf, markerBytes32), hdr...)
	default:
		return nil, bolterr.New(bolterr.ValueOutOfRange, "byte length %d exceeds PackStream's 32-bit size limit", n)
	}
	return append(buf, b...), nil
}

func appendList(buf []byte, list []interface{}) ([]byte, error) {
	var body []byte
	for _, el := range list {
		var err error
		if body, err = appendValue(body, el); err != nil {
			return nil, err
		}
	}
	return appendSized(buf, markerTinyListMin, markerTinyListMax, markerList8, markerList16, markerList32, len(list), body)
}

func appendMap(buf []byte, m *Map) ([]byte, error) {
	var body []byte
	var err error
	seen := make(map[string]bool, m.Len())
	for _, k := range m.Keys() {
		if seen[k] {
			return nil, bolterr.New(bolterr.DuplicateMapKey, "duplicate map key %q", k)
		}
		seen[k] = true
		val, _ := m.Get(k)
		if body, err = appendString(body, k); err != nil {
			return nil, err
		}
		if body, err = appendValue(body, val); err != nil {
			return nil, err
		}
	}
	return appendSized(buf, markerTinyMapMin, markerTinyMapMax, markerMap8, markerMap16, markerMap32, m.Len(), body)
}

func appendStructHeader(buf []byte, tag byte, fieldCount int) []byte {
	switch {
	case fieldCount <= 15:
		buf = append(buf, byte(markerTinyStructMin+fieldCount))
	case fieldCount <= 0xFF:
		buf = append(buf, markerStruct8, byte(fieldCount))
	default:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(fieldCount))
		buf = append(append(buf, markerStruct16), b...)
	}
	return append(buf, tag)
}

func appendNode(buf []byte, n Node) ([]byte, error) {
	buf = appendStructHeader(buf, structNode, 3)
	buf = appendInt(buf, n.Id)
	labels := make([]interface{}, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = l
	}
	var err error
	if buf, err = appendList(buf, labels); err != nil {
		return nil, err
	}
	return appendMap(buf, n.Properties)
}

func appendRelationship(buf []byte, r Relationship) ([]byte, error) {
	buf = appendStructHeader(buf, structRelationship, 5)
	buf = appendInt(buf, r.Id)
	buf = appendInt(buf, r.StartNodeId)
	buf = appendInt(buf, r.EndNodeId)
	var err error
	if buf, err = appendString(buf, r.Type); err != nil {
		return nil, err
	}
	return appendMap(buf, r.Properties)
}

func appendUnboundRelationship(buf []byte, r UnboundRelationship) ([]byte, error) {
	buf = appendStructHeader(buf, structUnboundRelationship, 3)
	buf = appendInt(buf, r.Id)
	var err error
	if buf, err = appendString(buf, r.Type); err != nil {
		return nil, err
	}
	return appendMap(buf, r.Properties)
}

func appendPath(buf []byte, p Path) ([]byte, error) {
	buf = appendStructHeader(buf, structPath, 3)
	nodes := make([]interface{}, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = n
	}
	var err error
	if buf, err = appendList(buf, nodes); err != nil {
		return nil, err
	}
	rels := make([]interface{}, len(p.Relationships))
	for i, r := range p.Relationships {
		rels[i] = r
	}
	if buf, err = appendList(buf, rels); err != nil {
		return nil, err
	}
	seq := make([]interface{}, len(p.Sequence))
	for i, s := range p.Sequence {
		seq[i] = s
	}
	return appendList(buf, seq)
}

func appendDate(buf []byte, d Date) ([]byte, error) {
	buf = appendStructHeader(buf, structDate, 1)
	return appendInt(buf, d.Days), nil
}

func appendLocalTime(buf []byte, t LocalTime) ([]byte, error) {
	buf = appendStructHeader(buf, structLocalTime, 1)
	return appendInt(buf, t.Nanoseconds), nil
}

func appendTime(buf []byte, t Time) ([]byte, error) {
	buf = appendStructHeader(buf, structTime, 2)
	buf = appendInt(buf, t.Nanoseconds)
	return appendInt(buf, t.OffsetSeconds), nil
}

func appendDateTimeOffset(buf []byte, t DateTimeOffset) ([]byte, error) {
	buf = appendStructHeader(buf, structDateTimeOffset, 3)
	buf = appendInt(buf, t.Seconds)
	buf = appendInt(buf, t.Nanoseconds)
	return appendInt(buf, t.OffsetSeconds), nil
}

func appendDateTimeZoned(buf []byte, t DateTimeZoned) ([]byte, error) {
	buf = appendStructHeader(buf, structDateTimeZoned, 3)
	buf = appendInt(buf, t.Seconds)
	buf = appendInt(buf, t.Nanoseconds)
	return appendString(buf, t.ZoneId)
}

func appendLocalDateTime(buf []byte, t LocalDateTime) ([]byte, error) {
	buf = appendStructHeader(buf, structLocalDateTime, 2)
	buf = appendInt(buf, t.Seconds)
	return appendInt(buf, t.Nanoseconds), nil
}

func appendDuration(buf []byte, d Duration) ([]byte, error) {
	buf = appendStructHeader(buf, structDuration, 4)
	buf = appendInt(buf, d.Months)
	buf = appendInt(buf, d.Days)
	buf = appendInt(buf, d.Seconds)
	return appendInt(buf, d.Nanoseconds), nil
}

func appendPoint2D(buf []byte, p Point2D) ([]byte, error) {
	buf = appendStructHeader(buf, structPoint2D, 3)
	buf = appendInt(buf, p.Srid)
	buf = appendFloat(buf, p.X)
	return appendFloat(buf, p.Y), nil
}

func appendPoint3D(buf []byte, p Point3D) ([]byte, error) {
	buf = appendStructHeader(buf, structPoint3D, 4)
	buf = appendInt(buf, p.Srid)
	buf = appendFloat(buf, p.X)
	buf = appendFloat(buf, p.Y)
	return appendFloat(buf, p.Z), nil
}

// --- decode ---

func decodeValue(p []byte) (interface{}, int, error) {
	if len(p) < 1 {
		return nil, 0, bolterr.New(bolterr.ProtocolViolation, "empty buffer, expected a marker byte")
	}
	m := p[0]

	switch {
	case m <= markerTinyIntMax:
		return int64(m), 1, nil
	case m >= markerTinyIntNegMin:
		return int64(int8(m)), 1, nil
	case m >= markerTinyStringMin && m <= markerTinyStringMax:
		return decodeFixedString(p, int(m-markerTinyStringMin), 1)
	case m >= markerTinyListMin && m <= markerTinyListMax:
		return decodeFixedList(p, int(m-markerTinyListMin), 1)
	case m >= markerTinyMapMin && m <= markerTinyMapMax:
		return decodeFixedMap(p, int(m-markerTinyMapMin), 1)
	case m >= markerTinyStructMin && m <= markerTinyStructMax:
		return decodeStruct(p, int(m-markerTinyStructMin), 1)
	}

	switch m {
	case markerNull:
		return nil, 1, nil
	case markerFalse:
		return false, 1, nil
	case markerTrue:
		return true, 1, nil
	case markerFloat64:
		if len(p) < 9 {
			return nil, 0, errShort()
		}
		return math.Float64frombits(binary.BigEndian.Uint64(p[1:9])), 9, nil
	case markerInt8:
		if len(p) < 2 {
			return nil, 0, errShort()
		}
		return int64(int8(p[1])), 2, nil
	case markerInt16:
		if len(p) < 3 {
			return nil, 0, errShort()
		}
		return int64(int16(binary.BigEndian.Uint16(p[1:3]))), 3, nil
	case markerInt32:
		if len(p) < 5 {
			return nil, 0, errShort()
		}
		return int64(int32(binary.BigEndian.Uint32(p[1:5]))), 5, nil
	case markerInt64:
		if len(p) < 9 {
			return nil, 0, errShort()
		}
		return int64(binary.BigEndian.Uint64(p[1:9])), 9, nil
	case markerBytes8, markerBytes16, markerBytes32:
		n, hdr, err := decodeSizeHeader(p, markerBytes8, markerBytes16, markerBytes32)
		if err != nil {
			return nil, 0, err
		}
		if len(p) < hdr+n {
			return nil, 0, errShort()
		}
		out := make([]byte, n)
		copy(out, p[hdr:hdr+n])
		return out, hdr + n, nil
	case markerString8, markerString16, markerString32:
		n, hdr, err := decodeSizeHeader(p, markerString8, markerString16, markerString32)
		if err != nil {
			return nil, 0, err
		}
		return decodeFixedString(p, n, hdr)
	case markerList8, markerList16, markerList32:
		n, hdr, err := decodeSizeHeader(p, markerList8, markerList16, markerList32)
		if err != nil {
			return nil, 0, err
		}
		return decodeFixedList(p, n, hdr)
	case markerMap8, markerMap16, markerMap32:
		n, hdr, err := decodeSizeHeader(p, markerMap8, markerMap16, markerMap32)
		if err != nil {
			return nil, 0, err
		}
		return decodeFixedMap(p, n, hdr)
	case markerStruct8, markerStruct16:
		var n, hdr int
		if m == markerStruct8 {
			if len(p) < 2 {
				return nil, 0, errShort()
			}
			n, hdr = int(p[1]), 2
		} else {
			if len(p) < 3 {
				return nil, 0, errShort()
			}
			n, hdr = int(binary.BigEndian.Uint16(p[1:3])), 3
		}
		return decodeStruct(p, n, hdr)
	}

	return nil, 0, bolterr.New(bolterr.InvalidMarker, "unrecognized marker byte 0x%02X", m)
}

func errShort() error {
	return bolterr.New(bolterr.ProtocolViolation, "buffer too short for declared value")
}

// decodeSizeHeader reads the big-endian length following an _8/_16/_32
// marker and returns (length, bytes consumed by marker+length header).
func decodeSizeHeader(p []byte, m8, m16, m32 byte) (int, int, error) {
	switch p[0] {
	case m8:
		if len(p) < 2 {
			return 0, 0, errShort()
		}
		return int(p[1]), 2, nil
	case m16:
		if len(p) < 3 {
			return 0, 0, errShort()
		}
		return int(binary.BigEndian.Uint16(p[1:3])), 3, nil
	default: // m32
		if len(p) < 5 {
			return 0, 0, errShort()
		}
		return int(binary.BigEndian.Uint32(p[1:5])), 5, nil
	}
}

func decodeFixedString(p []byte, n, hdr int) (interface{}, int, error) {
	if len(p) < hdr+n {
		return nil, 0, errShort()
	}
	raw := p[hdr : hdr+n]
	if !utf8.Valid(raw) {
		return nil, 0, bolterr.New(bolterr.Utf8Error, "string field is not valid UTF-8")
	}
	return string(raw), hdr + n, nil
}

func decodeFixedList(p []byte, n, hdr int) (interface{}, int, error) {
	list := make([]interface{}, 0, n)
	off := hdr
	for i := 0; i < n; i++ {
		v, used, err := decodeValue(p[off:])
		if err != nil {
			return nil, 0, err
		}
		list = append(list, v)
		off += used
	}
	return list, off, nil
}

func decodeFixedMap(p []byte, n, hdr int) (interface{}, int, error) {
	m := NewMap()
	off := hdr
	for i := 0; i < n; i++ {
		kv, used, err := decodeValue(p[off:])
		if err != nil {
			return nil, 0, err
		}
		key, ok := kv.(string)
		if !ok {
			return nil, 0, bolterr.New(bolterr.ProtocolViolation, "map key is not a String")
		}
		off += used

		val, used, err := decodeValue(p[off:])
		if err != nil {
			return nil, 0, err
		}
		off += used

		if _, dup := m.Get(key); dup {
			return nil, 0, bolterr.New(bolterr.DuplicateMapKey, "duplicate map key %q", key)
		}
		m.Set(key, val)
	}
	return m, off, nil
}

func decodeStruct(p []byte, fieldCount, hdr int) (interface{}, int, error) {
	tag, fields, off, err := decodeStructRaw(p, fieldCount, hdr)
	if err != nil {
		return nil, 0, err
	}
	v, err := buildStruct(tag, fields)
	if err != nil {
		return nil, 0, err
	}
	return v, off, nil
}

// decodeStructRaw reads a structure's tag byte and its fieldCount fields
// without interpreting the tag, so callers outside this package (the bolt
// message layer) can decode structure tags this package doesn't know
// about. Nested fields that happen to be Value structures (e.g. a Node
// inside a Record) are still built via decodeValue/buildStruct, since
// decodeValue is used recursively for each field.
func decodeStructRaw(p []byte, fieldCount, hdr int) (tag byte, fields []interface{}, consumed int, err error) {
	if len(p) < hdr+1 {
		return 0, nil, 0, errShort()
	}
	tag = p[hdr]
	off := hdr + 1

	fields = make([]interface{}, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		v, used, verr := decodeValue(p[off:])
		if verr != nil {
			return 0, nil, 0, verr
		}
		fields = append(fields, v)
		off += used
	}
	return tag, fields, off, nil
}

// structHeader reads a structure marker (tiny/8/16 form) and returns the
// declared field count and the number of bytes the header itself occupies.
func structHeader(p []byte) (fieldCount, hdr int, err error) {
	if len(p) < 1 {
		return 0, 0, errShort()
	}
	m := p[0]
	switch {
	case m >= markerTinyStructMin && m <= markerTinyStructMax:
		return int(m - markerTinyStructMin), 1, nil
	case m == markerStruct8:
		if len(p) < 2 {
			return 0, 0, errShort()
		}
		return int(p[1]), 2, nil
	case m == markerStruct16:
		if len(p) < 3 {
			return 0, 0, errShort()
		}
		return int(binary.BigEndian.Uint16(p[1:3])), 3, nil
	}
	return 0, 0, bolterr.New(bolterr.ProtocolViolation, "expected a structure marker, got 0x%02X", m)
}

// EncodeStruct appends the PackStream encoding of a raw structure (header
// + tag + fields) for a tag this package does not itself interpret, such
// as a Bolt message tag. Callers that need a Value structure (Node,
// Duration, ...) should use Marshal instead.
func EncodeStruct(tag byte, fields []interface{}) ([]byte, error) {
	var buf []byte
	buf = appendStructHeader(buf, tag, len(fields))
	for _, f := range fields {
		var err error
		if buf, err = appendValue(buf, f); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeStruct reads one raw structure (header + tag + fields) from the
// front of data without interpreting the tag, returning the tag, the
// decoded fields, and the number of bytes consumed. It is the bolt
// package's entry point for decoding message structures, whose tags live
// in a namespace disjoint from (and in places overloaded across) the
// Value structure tags this package knows about.
func DecodeStruct(data []byte) (tag byte, fields []interface{}, consumed int, err error) {
	fieldCount, hdr, err := structHeader(data)
	if err != nil {
		return 0, nil, 0, err
	}
	return decodeStructRaw(data, fieldCount, hdr)
}

func wantFields(tag byte, got, want int) error {
	if got != want {
		return bolterr.New(bolterr.ProtocolViolation, "structure tag 0x%02X expects %d fields, got %d", tag, want, got)
	}
	return nil
}

func buildStruct(tag byte, f []interface{}) (interface{}, error) {
	switch tag {
	case structNode:
		if err := wantFields(tag, len(f), 3); err != nil {
			return nil, err
		}
		labels, err := toStringSlice(f[1])
		if err != nil {
			return nil, err
		}
		props, err := toMap(f[2])
		if err != nil {
			return nil, err
		}
		return Node{Id: toInt(f[0]), Labels: labels, Properties: props}, nil
	case structRelationship:
		if err := wantFields(tag, len(f), 5); err != nil {
			return nil, err
		}
		props, err := toMap(f[4])
		if err != nil {
			return nil, err
		}
		typ, _ := f[3].(string)
		return Relationship{Id: toInt(f[0]), StartNodeId: toInt(f[1]), EndNodeId: toInt(f[2]), Type: typ, Properties: props}, nil
	case structUnboundRelationship:
		if err := wantFields(tag, len(f), 3); err != nil {
			return nil, err
		}
		props, err := toMap(f[2])
		if err != nil {
			return nil, err
		}
		typ, _ := f[1].(string)
		return UnboundRelationship{Id: toInt(f[0]), Type: typ, Properties: props}, nil
	case structPath:
		if err := wantFields(tag, len(f), 3); err != nil {
			return nil, err
		}
		rawNodes, ok := f[0].([]interface{})
		if !ok {
			return nil, bolterr.New(bolterr.ProtocolViolation, "Path.nodes is not a List")
		}
		nodes := make([]Node, len(rawNodes))
		for i, rn := range rawNodes {
			n, ok := rn.(Node)
			if !ok {
				return nil, bolterr.New(bolterr.ProtocolViolation, "Path.nodes[%d] is not a Node", i)
			}
			nodes[i] = n
		}
		rawRels, ok := f[1].([]interface{})
		if !ok {
			return nil, bolterr.New(bolterr.ProtocolViolation, "Path.relationships is not a List")
		}
		rels := make([]UnboundRelationship, len(rawRels))
		for i, rr := range rawRels {
			r, ok := rr.(UnboundRelationship)
			if !ok {
				return nil, bolterr.New(bolterr.ProtocolViolation, "Path.relationships[%d] is not an UnboundRelationship", i)
			}
			rels[i] = r
		}
		rawSeq, ok := f[2].([]interface{})
		if !ok {
			return nil, bolterr.New(bolterr.ProtocolViolation, "Path.sequence is not a List")
		}
		seq := make([]int64, len(rawSeq))
		for i, rs := range rawSeq {
			seq[i] = toInt(rs)
		}
		if err := validatePathSequence(seq, len(nodes), len(rels)); err != nil {
			return nil, err
		}
		return Path{Nodes: nodes, Relationships: rels, Sequence: seq}, nil
	case structDate:
		if err := wantFields(tag, len(f), 1); err != nil {
			return nil, err
		}
		return Date{Days: toInt(f[0])}, nil
	case structTime:
		if err := wantFields(tag, len(f), 2); err != nil {
			return nil, err
		}
		return Time{Nanoseconds: toInt(f[0]), OffsetSeconds: toInt(f[1])}, nil
	case structLocalTime:
		if err := wantFields(tag, len(f), 1); err != nil {
			return nil, err
		}
		return LocalTime{Nanoseconds: toInt(f[0])}, nil
	case structDateTimeOffset:
		if err := wantFields(tag, len(f), 3); err != nil {
			return nil, err
		}
		return DateTimeOffset{Seconds: toInt(f[0]), Nanoseconds: toInt(f[1]), OffsetSeconds: toInt(f[2])}, nil
	case structDateTimeZoned:
		if err := wantFields(tag, len(f), 3); err != nil {
			return nil, err
		}
		zone, _ := f[2].(string)
		return DateTimeZoned{Seconds: toInt(f[0]), Nanoseconds: toInt(f[1]), ZoneId: zone}, nil
	case structLocalDateTime:
		if err := wantFields(tag, len(f), 2); err != nil {
			return nil, err
		}
		return LocalDateTime{Seconds: toInt(f[0]), Nanoseconds: toInt(f[1])}, nil
	case structDuration:
		if err := wantFields(tag, len(f), 4); err != nil {
			return nil, err
		}
		return Duration{Months: toInt(f[0]), Days: toInt(f[1]), Seconds: toInt(f[2]), Nanoseconds: toInt(f[3])}, nil
	case structPoint2D:
		if err := wantFields(tag, len(f), 3); err != nil {
			return nil, err
		}
		return Point2D{Srid: toInt(f[0]), X: toFloat(f[1]), Y: toFloat(f[2])}, nil
	case structPoint3D:
		if err := wantFields(tag, len(f), 4); err != nil {
			return nil, err
		}
		return Point3D{Srid: toInt(f[0]), X: toFloat(f[1]), Y: toFloat(f[2]), Z: toFloat(f[3])}, nil
	}
	return nil, bolterr.New(bolterr.InvalidStructureTag, "unrecognized structure tag 0x%02X", tag)
}

func validatePathSequence(seq []int64, nodeCount, relCount int) error {
	if len(seq)%2 != 0 {
		return bolterr.New(bolterr.ProtocolViolation, "Path.sequence has odd length %d", len(seq))
	}
	for i := 0; i < len(seq); i += 2 {
		r := seq[i]
		if r == 0 || r > int64(relCount) || -r > int64(relCount) {
			return bolterr.New(bolterr.ProtocolViolation, "Path.sequence[%d]=%d indexes outside relationships[1..%d]", i, r, relCount)
		}
		n := seq[i+1]
		if n < 0 || n >= int64(nodeCount) {
			return bolterr.New(bolterr.ProtocolViolation, "Path.sequence[%d]=%d indexes outside nodes[0..%d)", i+1, n, nodeCount)
		}
	}
	return nil
}

func toInt(v interface{}) int64 {
	n, _ := v.(int64)
	return n
}

func toFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func toMap(v interface{}) (*Map, error) {
	m, ok := v.(*Map)
	if !ok {
		return nil, bolterr.New(bolterr.ProtocolViolation, "expected a Map field, got %T", v)
	}
	return m, nil
}

func toStringSlice(v interface{}) ([]string, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, bolterr.New(bolterr.ProtocolViolation, "expected a List field, got %T", v)
	}
	out := make([]string, len(list))
	for i, el := range list {
		s, ok := el.(string)
		if !ok {
			return nil, bolterr.New(bolterr.ProtocolViolation, "list element %d is not a String", i)
		}
		out[i] = s
	}
	return out, nil
}
