package sphsig

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

type entry struct {
	name  string
	value string
}

// ParameterSet is the set of named fields making up one logical request to
// the gateway: HTTP headers for server-to-server calls, or form fields for
// browser redirects.
//
// Names match case-insensitively but keep their original spelling. Setting
// an existing name overwrites it. Insertion order carries no meaning; the
// canonical order is imposed when signing.
//
// The zero value is an empty set ready to use.
type ParameterSet struct {
	entries map[string]entry
}

// NewParameterSet builds a ParameterSet from a plain map. Two keys that
// differ only in case are a construction error.
func NewParameterSet(fields map[string]string) (*ParameterSet, error) {
	p := &ParameterSet{entries: make(map[string]entry, len(fields))}

	for name, value := range fields {
		if err := p.add(name, value); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// FromHeader builds a ParameterSet from HTTP headers. A signable header
// with several values is a duplicate; one with no value is null. Other
// multi-value headers are joined with ", ".
func FromHeader(h http.Header) (*ParameterSet, error) {
	p := &ParameterSet{entries: make(map[string]entry, len(h))}

	for name, values := range h {
		value, err := singleValue(name, values, ", ")
		if err != nil {
			return nil, err
		}

		if value == nil {
			continue
		}

		if err := p.add(name, *value); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// FromValues builds a ParameterSet from form or query values with the same
// duplicate and null rules as FromHeader. Repeated non-signable values are
// joined with ",".
func FromValues(v url.Values) (*ParameterSet, error) {
	p := &ParameterSet{entries: make(map[string]entry, len(v))}

	for name, values := range v {
		value, err := singleValue(name, values, ",")
		if err != nil {
			return nil, err
		}

		if value == nil {
			continue
		}

		if err := p.add(name, *value); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func singleValue(name string, values []string, sep string) (*string, error) {
	if IsSignable(name) {
		switch len(values) {
		case 0:
			return nil, fmt.Errorf("%w: %s", ErrNullField, name)
		case 1:
			return &values[0], nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, name)
		}
	}

	if len(values) == 0 {
		return nil, nil
	}

	joined := strings.Join(values, sep)

	return &joined, nil
}

// add inserts a field that must not already be present.
func (p *ParameterSet) add(name, value string) error {
	key := strings.ToLower(name)
	if prev, ok := p.entries[key]; ok {
		return fmt.Errorf("%w: %s and %s", ErrDuplicateField, prev.name, name)
	}

	p.entries[key] = entry{name: name, value: value}

	return nil
}

// Set stores value under name, replacing any field whose name matches
// case-insensitively.
func (p *ParameterSet) Set(name Field, value string) {
	if p.entries == nil {
		p.entries = make(map[string]entry)
	}

	p.entries[strings.ToLower(string(name))] = entry{name: string(name), value: value}
}

// Get returns the value stored under name.
func (p *ParameterSet) Get(name Field) (string, bool) {
	if p == nil {
		return "", false
	}

	e, ok := p.entries[strings.ToLower(string(name))]

	return e.value, ok
}

// Del removes name from the set.
func (p *ParameterSet) Del(name Field) {
	if p == nil {
		return
	}

	delete(p.entries, strings.ToLower(string(name)))
}

// Len returns the number of fields.
func (p *ParameterSet) Len() int {
	if p == nil {
		return 0
	}

	return len(p.entries)
}

// Names returns field names in their original spelling, ordered by their
// lower-cased form.
func (p *ParameterSet) Names() []Field {
	if p == nil {
		return nil
	}

	keys := p.sortedKeys()
	names := make([]Field, 0, len(keys))

	for _, k := range keys {
		names = append(names, Field(p.entries[k].name))
	}

	return names
}

// Each calls fn for every field in Names order.
func (p *ParameterSet) Each(fn func(name Field, value string)) {
	if p == nil {
		return
	}

	for _, k := range p.sortedKeys() {
		e := p.entries[k]
		fn(Field(e.name), e.value)
	}
}

// Clone returns an independent copy.
func (p *ParameterSet) Clone() *ParameterSet {
	c := &ParameterSet{entries: make(map[string]entry, p.Len())}
	if p == nil {
		return c
	}

	for k, e := range p.entries {
		c.entries[k] = e
	}

	return c
}

// Values returns the fields as url.Values using their original spelling.
func (p *ParameterSet) Values() url.Values {
	v := make(url.Values, p.Len())
	if p == nil {
		return v
	}

	for _, e := range p.entries {
		v.Set(e.name, e.value)
	}

	return v
}

// ApplyHeader writes every field into h, replacing existing values. It
// fails without modifying h when a name or value is not valid in an HTTP
// header.
func (p *ParameterSet) ApplyHeader(h http.Header) error {
	if p == nil {
		return nil
	}

	for _, e := range p.entries {
		if !httpguts.ValidHeaderFieldName(e.name) {
			return fmt.Errorf("%w: header name %q", ErrInvalidField, e.name)
		}

		if !httpguts.ValidHeaderFieldValue(e.value) {
			return fmt.Errorf("%w: header %s value", ErrInvalidField, e.name)
		}
	}

	for _, e := range p.entries {
		h.Set(e.name, e.value)
	}

	return nil
}

// signable returns the lower-cased signable keys in sorted order together
// with their values, excluding the signature field.
func (p *ParameterSet) signable() []entry {
	if p == nil {
		return nil
	}

	out := make([]entry, 0, len(p.entries))

	for _, k := range p.sortedKeys() {
		if !IsSignable(k) || k == string(FieldSignature) {
			continue
		}

		out = append(out, entry{name: k, value: p.entries[k].value})
	}

	return out
}

func (p *ParameterSet) sortedKeys() []string {
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
