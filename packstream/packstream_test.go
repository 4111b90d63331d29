package packstream

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v interface{}) interface{} {
	t.Helper()
	buf, err := Marshal(v)
	require.NoError(t, err)
	out, err := Unmarshal(buf)
	require.NoError(t, err)
	return out
}

func TestRoundTripScalars(t *testing.T) {
	cases := []interface{}{
		nil, true, false,
		int64(0), int64(42), int64(-16), int64(-17), int64(127), int64(128),
		int64(32767), int64(32768), int64(math.MaxInt32), int64(math.MaxInt32) + 1,
		int64(math.MinInt64), int64(math.MaxInt64),
		3.14159, math.Copysign(0, -1), math.Inf(1), math.Inf(-1),
		[]byte{}, []byte{1, 2, 3},
		"", "hello", strings.Repeat("a", 256),
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		if !ValuesEqual(c, got) {
			t.Errorf("round trip %#v: got %#v", c, got)
		}
	}
}

func TestRoundTripNaNBitPattern(t *testing.T) {
	nan := math.NaN()
	got := roundTrip(t, nan)
	gf, ok := got.(float64)
	require.True(t, ok)
	require.Equal(t, math.Float64bits(nan), math.Float64bits(gf))
}

func TestRoundTripListAndMap(t *testing.T) {
	m := NewMap()
	m.Set("name", "Alice")
	m.Set("age", int64(30))
	m.Set("tags", []interface{}{"a", "b"})

	got := roundTrip(t, m)
	gm, ok := got.(*Map)
	require.True(t, ok)
	if diff := deep.Equal(m.Keys(), gm.Keys()); diff != nil {
		t.Error(diff)
	}
	if !m.Equal(gm) {
		t.Errorf("maps not equal after round trip")
	}
}

func TestMapEqualityIgnoresOrder(t *testing.T) {
	a := NewMap()
	a.Set("x", int64(1))
	a.Set("y", int64(2))

	b := NewMap()
	b.Set("y", int64(2))
	b.Set("x", int64(1))

	require.True(t, a.Equal(b))
	require.NotEqual(t, a.Keys(), b.Keys())
}

func TestDecodeRejectsDuplicateMapKey(t *testing.T) {
	// TINY_MAP{2}: "a":1, "a":2
	buf := []byte{0xA2, 0x81, 'a', 0x01, 0x81, 'a', 0x02}
	_, _, err := Decode(buf)
	require.Error(t, err)
}

func TestDecodeRejectsInvalidUtf8(t *testing.T) {
	// TINY_STRING len 1 with an invalid UTF-8 continuation byte.
	buf := []byte{0x81, 0x80}
	_, _, err := Decode(buf)
	require.Error(t, err)
}

func TestDecodeRejectsUnknownMarker(t *testing.T) {
	_, _, err := Decode([]byte{0xC4})
	require.Error(t, err)
}

func TestDecodeRejectsUnknownStructureTag(t *testing.T) {
	// TINY_STRUCT{0} with an unrecognized tag.
	_, _, err := Decode([]byte{0xB0, 0xFF})
	require.Error(t, err)
}

func TestStructureFieldCountMismatchIsProtocolViolation(t *testing.T) {
	// Node (0x4E) is declared with only 2 fields instead of 3.
	buf := []byte{0xB2, 0x4E, 0x01, 0xA0}
	_, _, err := Decode(buf)
	require.Error(t, err)
}

func TestRoundTripTemporalAndSpatialValues(t *testing.T) {
	cases := []interface{}{
		Date{Days: 19345},
		Time{Nanoseconds: 3600000000000, OffsetSeconds: -18000},
		LocalTime{Nanoseconds: 123456789},
		DateTimeOffset{Seconds: 1700000000, Nanoseconds: 1, OffsetSeconds: 3600},
		DateTimeZoned{Seconds: 1700000000, Nanoseconds: 2, ZoneId: "Europe/Stockholm"},
		LocalDateTime{Seconds: 1700000000, Nanoseconds: 3},
		Duration{Months: 1, Days: 2, Seconds: 3, Nanoseconds: 4},
		Duration{Months: -1, Days: 40, Seconds: -3, Nanoseconds: 0},
		Point2D{Srid: 7203, X: 1.5, Y: 2.5},
		Point3D{Srid: 9157, X: 1.5, Y: 2.5, Z: 3.5},
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		if diff := deep.Equal(c, got); diff != nil {
			t.Errorf("round trip %#v: %v", c, diff)
		}
	}
}

func TestDurationComponentsAreNotNormalized(t *testing.T) {
	// Duration fields are stored as given; the codec never folds days
	// into months or seconds into days.
	d := Duration{Months: 1, Days: 2, Seconds: 3, Nanoseconds: 4}
	buf, err := Marshal(d)
	require.NoError(t, err)
	require.Equal(t, []byte{0xB4, 0x45, 0x01, 0x02, 0x03, 0x04}, buf)
}

func TestRoundTripGraphTypes(t *testing.T) {
	props := NewMap()
	props.Set("name", "Alice")

	node := Node{Id: 1, Labels: []string{"Person"}, Properties: props}
	rel := Relationship{Id: 10, StartNodeId: 1, EndNodeId: 2, Type: "KNOWS", Properties: NewMap()}
	unbound := UnboundRelationship{Id: 10, Type: "KNOWS", Properties: NewMap()}
	path := Path{
		Nodes:         []Node{node, {Id: 2, Labels: nil, Properties: NewMap()}},
		Relationships: []UnboundRelationship{unbound},
		Sequence:      []int64{1, 1},
	}

	for _, c := range []interface{}{node, rel, unbound, path} {
		got := roundTrip(t, c)
		if !ValuesEqual(c, got) {
			t.Errorf("round trip %#v: got %#v", c, got)
		}
	}
}

func TestPathSequenceValidation(t *testing.T) {
	path := Path{
		Nodes:         []Node{{Id: 1, Properties: NewMap()}},
		Relationships: nil,
		Sequence:      []int64{1, 0}, // relationship index 1 but zero relationships
	}
	buf, err := Marshal(path)
	require.NoError(t, err)
	_, _, err = Decode(buf)
	require.Error(t, err)
}

// --- encoder minimality ---

func markerOf(t *testing.T, v interface{}) byte {
	t.Helper()
	buf, err := Marshal(v)
	require.NoError(t, err)
	require.NotEmpty(t, buf)
	return buf[0]
}

func TestEncoderIntegerMinimality(t *testing.T) {
	cases := []struct {
		v    int64
		want byte
	}{
		{-17, markerInt8},
		{-16, 0xF0},
		{127, 0x7F},
		{128, markerInt16},
		{32767, markerInt16},
		{32768, markerInt32},
		{math.MaxInt32, markerInt32},
		{math.MaxInt32 + 1, markerInt64},
	}
	for _, c := range cases {
		if got := markerOf(t, c.v); got != c.want {
			t.Errorf("encode(%d): marker 0x%02X, want 0x%02X", c.v, got, c.want)
		}
	}
}

func TestEncoderStringMinimality(t *testing.T) {
	cases := []struct {
		n    int
		want byte
	}{
		{15, markerTinyStringMax},
		{16, markerString8},
		{255, markerString8},
		{256, markerString16},
		{65535, markerString16},
		{65536, markerString32},
	}
	for _, c := range cases {
		s := strings.Repeat("x", c.n)
		buf, err := Marshal(s)
		require.NoError(t, err)
		if c.n <= 15 {
			require.Equal(t, byte(markerTinyStringMin+c.n), buf[0])
		} else {
			require.Equal(t, c.want, buf[0])
		}
	}
}

func TestEncoderListSizeMinimality(t *testing.T) {
	sizes := []int{15, 16, 255, 256, 65535, 65536}
	for _, n := range sizes {
		list := make([]interface{}, n)
		for i := range list {
			list[i] = int64(0)
		}
		buf, err := Marshal(list)
		require.NoError(t, err)
		switch {
		case n <= 15:
			require.Equal(t, byte(markerTinyListMin+n), buf[0])
		case n <= 0xFF:
			require.Equal(t, byte(markerList8), buf[0])
		case n <= 0xFFFF:
			require.Equal(t, byte(markerList16), buf[0])
		default:
			require.Equal(t, byte(markerList32), buf[0])
		}
	}
}

func TestEncoderMapSizeMinimality(t *testing.T) {
	sizes := []int{15, 16, 255, 256}
	for _, n := range sizes {
		m := NewMap()
		for i := 0; i < n; i++ {
			m.Set(fmt.Sprintf("k%d", i), int64(0))
		}
		buf, err := Marshal(m)
		require.NoError(t, err)
		switch {
		case n <= 15:
			require.Equal(t, byte(markerTinyMapMin+n), buf[0])
		case n <= 0xFF:
			require.Equal(t, byte(markerMap8), buf[0])
		default:
			require.Equal(t, byte(markerMap16), buf[0])
		}
	}
}

// --- decoder permissiveness ---

func TestDecoderAcceptsOverWideIntegerEncodings(t *testing.T) {
	wide := []byte{markerInt32, 0x00, 0x00, 0x00, 0x05}
	v, n, err := Decode(wide)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, int64(5), v)
}

func TestDecoderAcceptsOverWideStringEncoding(t *testing.T) {
	wide := append([]byte{markerString32, 0, 0, 0, 5}, []byte("hello")...)
	v, _, err := Decode(wide)
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}

// --- fixed marker-byte scenarios ---

func TestScenarioTinyInt42(t *testing.T) {
	buf, err := Marshal(int64(42))
	require.NoError(t, err)
	require.Equal(t, []byte{0x2A}, buf)

	v, _, err := Decode([]byte{0x2A})
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}

func TestScenarioStringHello(t *testing.T) {
	buf, err := Marshal("hello")
	require.NoError(t, err)
	require.Equal(t, []byte{0x85, 0x68, 0x65, 0x6C, 0x6C, 0x6F}, buf)

	v, _, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}
