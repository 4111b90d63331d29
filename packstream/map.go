package packstream

// Use a slice of key/value pairs for Map, not a Go map, so decoded
// insertion order survives a re-encode and duplicate keys can be
// detected while decoding.
type entry struct {
	key   string
	value interface{}
}

// Map is the ordered, duplicate-free PackStream Map value. Equality
// between two Maps ignores order (see Equal); decode always preserves
// the order bytes arrived in.
type Map struct {
	entries []entry
}

// NewMap returns an empty Map ready for Set.
func NewMap() *Map {
	return &Map{}
}

// MapOf builds a Map from a plain Go map. Go map iteration order is
// random, so callers that need a specific wire order should build the
// Map with repeated Set calls instead.
func MapOf(m map[string]interface{}) *Map {
	v := NewMap()
	for k, val := range m {
		v.Set(k, val)
	}
	return v
}

// Len returns the number of entries.
func (v *Map) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}

// Get returns the value for key and whether it was present.
func (v *Map) Get(key string) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	for _, e := range v.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Set inserts key/value, or overwrites the value in place if key
// already exists so wire order is preserved across updates.
func (v *Map) Set(key string, value interface{}) {
	for i, e := range v.entries {
		if e.key == key {
			v.entries[i].value = value
			return
		}
	}
	v.entries = append(v.entries, entry{key: key, value: value})
}

// Keys returns the keys in insertion (wire) order.
func (v *Map) Keys() []string {
	if v == nil {
		return nil
	}
	keys := make([]string, len(v.entries))
	for i, e := range v.entries {
		keys[i] = e.key
	}
	return keys
}

// Range calls f for every entry in wire order; f returning false stops
// iteration early.
func (v *Map) Range(f func(key string, value interface{}) bool) {
	if v == nil {
		return
	}
	for _, e := range v.entries {
		if !f(e.key, e.value) {
			return
		}
	}
}

// Equal compares two Maps ignoring entry order. Values are compared
// with ValuesEqual, so nested Maps (including Maps inside Lists) also
// ignore entry order, Lists compare element by element in order, and
// floats compare bit-exactly.
func (v *Map) Equal(o *Map) bool {
	if v.Len() != o.Len() {
		return false
	}
	for _, e := range v.entries {
		ov, ok := o.Get(e.key)
		if !ok || !ValuesEqual(e.value, ov) {
			return false
		}
	}
	return true
}
