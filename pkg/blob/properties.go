package blob

import (
	"bytes"
	"encoding/json"
)

// Properties is a string-keyed map that remembers insertion order.
//
// The zero value is ready to use. Setting an existing key replaces the value
// in place.
type Properties struct {
	keys   []string
	values map[string]any
}

// Set stores v under k.
func (p *Properties) Set(k string, v any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.values[k] = v
}

// SetString stores v under k unless v is empty.
func (p *Properties) SetString(k, v string) {
	if v == "" {
		return
	}
	p.Set(k, v)
}

// Get returns the value stored under k.
func (p *Properties) Get(k string) (any, bool) {
	v, ok := p.values[k]
	return v, ok
}

// Keys returns keys in insertion order.
func (p *Properties) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys.
func (p *Properties) Len() int {
	return len(p.keys)
}

// MarshalJSON encodes the properties as an object with keys in insertion order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
