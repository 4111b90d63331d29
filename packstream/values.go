package packstream

import "math"

// Node is the PackStream structure tag 0x4E.
type Node struct {
	Id         int64
	Labels     []string
	Properties *Map
}

// Relationship is structure tag 0x52.
type Relationship struct {
	Id          int64
	StartNodeId int64
	EndNodeId   int64
	Type        string
	Properties  *Map
}

// UnboundRelationship is structure tag 0x72, used inside a Path where
// the relationship's endpoints are implied by the path sequence rather
// than carried directly.
type UnboundRelationship struct {
	Id         int64
	Type       string
	Properties *Map
}

// Path is structure tag 0x50. Sequence alternates relationship-index
// and node-index entries; to walk it, start at Nodes[0], then for each
// pair (r, n) in Sequence follow (r>0 ? Relationships[r-1] : reversed
// Relationships[-r-1]) to Nodes[n].
type Path struct {
	Nodes         []Node
	Relationships []UnboundRelationship
	Sequence      []int64
}

// Date is structure tag 0x44: days since the Unix epoch.
type Date struct {
	Days int64
}

// Time is structure tag 0x54: a time-of-day with a UTC offset.
type Time struct {
	Nanoseconds   int64
	OffsetSeconds int64
}

// LocalTime is structure tag 0x74: a time-of-day with no zone.
type LocalTime struct {
	Nanoseconds int64
}

// DateTimeOffset is structure tag 0x46: an instant carrying a fixed
// UTC offset rather than a zone name.
type DateTimeOffset struct {
	Seconds       int64
	Nanoseconds   int64
	OffsetSeconds int64
}

// DateTimeZoned is structure tag 0x66: an instant carrying an IANA
// zone name, e.g. "Europe/Stockholm".
type DateTimeZoned struct {
	Seconds     int64
	Nanoseconds int64
	ZoneId      string
}

// LocalDateTime is structure tag 0x64: a calendar date and time of day
// with no zone or offset attached.
type LocalDateTime struct {
	Seconds     int64
	Nanoseconds int64
}

// Duration is structure tag 0x45. Every component is independently
// signed and never normalized: (1 month, 40 days) is not folded into
// anything, and is preserved exactly on round-trip.
type Duration struct {
	Months      int64
	Days        int64
	Seconds     int64
	Nanoseconds int64
}

// Point2D is structure tag 0x58: a point in a spatial reference system
// identified by SRID.
type Point2D struct {
	Srid int64
	X, Y float64
}

// Point3D is structure tag 0x59.
type Point3D struct {
	Srid    int64
	X, Y, Z float64
}

// ValuesEqual compares two decoded/constructed Values for equality:
// Map equality ignores key order, and float equality is bit-exact (so
// NaN equals NaN, and +0/-0 are distinct).
func ValuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && math.Float64bits(av) == math.Float64bits(bv)
	case []byte:
		bv, ok := b.([]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	case Path:
		bv, ok := b.(Path)
		if !ok || len(av.Nodes) != len(bv.Nodes) || len(av.Relationships) != len(bv.Relationships) || len(av.Sequence) != len(bv.Sequence) {
			return false
		}
		for i := range av.Nodes {
			if !ValuesEqual(av.Nodes[i], bv.Nodes[i]) {
				return false
			}
		}
		for i := range av.Relationships {
			if !ValuesEqual(av.Relationships[i], bv.Relationships[i]) {
				return false
			}
		}
		for i := range av.Sequence {
			if av.Sequence[i] != bv.Sequence[i] {
				return false
			}
		}
		return true
	case Node:
		bv, ok := b.(Node)
		if !ok || av.Id != bv.Id || len(av.Labels) != len(bv.Labels) {
			return false
		}
		for i := range av.Labels {
			if av.Labels[i] != bv.Labels[i] {
				return false
			}
		}
		return av.Properties.Equal(bv.Properties)
	case Relationship:
		bv, ok := b.(Relationship)
		return ok && av.Id == bv.Id && av.StartNodeId == bv.StartNodeId &&
			av.EndNodeId == bv.EndNodeId && av.Type == bv.Type && av.Properties.Equal(bv.Properties)
	case UnboundRelationship:
		bv, ok := b.(UnboundRelationship)
		return ok && av.Id == bv.Id && av.Type == bv.Type && av.Properties.Equal(bv.Properties)
	case Point2D:
		bv, ok := b.(Point2D)
		return ok && av.Srid == bv.Srid && math.Float64bits(av.X) == math.Float64bits(bv.X) &&
			math.Float64bits(av.Y) == math.Float64bits(bv.Y)
	case Point3D:
		bv, ok := b.(Point3D)
		return ok && av.Srid == bv.Srid && math.Float64bits(av.X) == math.Float64bits(bv.X) &&
			math.Float64bits(av.Y) == math.Float64bits(bv.Y) && math.Float64bits(av.Z) == math.Float64bits(bv.Z)
	default:
		return a == b
	}
}
