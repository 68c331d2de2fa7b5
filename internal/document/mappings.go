package document

import "strings"

// Mappings is the id → position side table. Keys compare case-insensitively,
// keep the spelling of their first insertion and iterate in insertion order.
type Mappings struct {
	keys  []string
	index map[string]int // lower(key) -> slot in keys
	vals  []int
}

func NewMappings() *Mappings {
	return &Mappings{index: make(map[string]int)}
}

// Set records pos for name; a later Set for the same name wins.
func (m *Mappings) Set(name string, pos int) {
	k := strings.ToLower(name)
	if slot, ok := m.index[k]; ok {
		m.vals[slot] = pos
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, name)
	m.vals = append(m.vals, pos)
}

func (m *Mappings) Get(name string) (int, bool) {
	slot, ok := m.index[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	return m.vals[slot], true
}

func (m *Mappings) Len() int {
	return len(m.keys)
}

func (m *Mappings) Clear() {
	m.keys = nil
	m.vals = nil
	m.index = make(map[string]int)
}

// Each visits entries in insertion order.
func (m *Mappings) Each(fn func(name string, pos int)) {
	for i, k := range m.keys {
		fn(k, m.vals[i])
	}
}

// ToMap returns a plain copy keyed by the stored spelling.
func (m *Mappings) ToMap() map[string]int {
	out := make(map[string]int, len(m.keys))
	m.Each(func(name string, pos int) { out[name] = pos })
	return out
}

func (m *Mappings) Clone() *Mappings {
	c := NewMappings()
	m.Each(c.Set)
	return c
}
