package query

import (
	"net/url"
	"sort"
	"strings"
)

// Pair is a single wire parameter.
type Pair struct {
	Key   string
	Value string
}

// Params is an ordered string-keyed parameter mapping. Keys keep the position
// of their first insertion; setting an existing key overwrites its value in
// place.
type Params struct {
	pairs []Pair
}

// ParamsFromMap builds Params from a map, ordering keys alphabetically.
func ParamsFromMap(m map[string]string) Params {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var p Params
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Set assigns value to key.
func (p *Params) Set(key, value string) {
	for i := range p.pairs {
		if p.pairs[i].Key == key {
			p.pairs[i].Value = value
			return
		}
	}
	p.pairs = append(p.pairs, Pair{Key: key, Value: value})
}

// Get returns the value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, pair := range p.pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return "", false
}

// Delete removes key if present.
func (p *Params) Delete(key string) {
	for i := range p.pairs {
		if p.pairs[i].Key == key {
			p.pairs = append(p.pairs[:i:i], p.pairs[i+1:]...)
			return
		}
	}
}

// Len returns the number of parameters.
func (p Params) Len() int { return len(p.pairs) }

// Keys returns the keys in insertion order.
func (p Params) Keys() []string {
	keys := make([]string, len(p.pairs))
	for i, pair := range p.pairs {
		keys[i] = pair.Key
	}
	return keys
}

// Pairs returns a copy of the parameters in insertion order.
func (p Params) Pairs() []Pair {
	out := make([]Pair, len(p.pairs))
	copy(out, p.pairs)
	return out
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	return Params{pairs: p.Pairs()}
}

// Encode renders key=value pairs joined by '&' in insertion order, without
// escaping. It is meant for canonical URIs and diagnostics, not for the wire.
func (p Params) Encode() string {
	parts := make([]string, len(p.pairs))
	for i, pair := range p.pairs {
		parts[i] = pair.Key + "=" + pair.Value
	}
	return strings.Join(parts, "&")
}

// Values converts to url.Values for transport encoding.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p.pairs))
	for _, pair := range p.pairs {
		v.Set(pair.Key, pair.Value)
	}
	return v
}

// Merge combines sources in increasing precedence: a key present in a later
// source silently overwrites the value from an earlier one.
func Merge(sources ...Params) Params {
	var out Params
	for _, src := range sources {
		for _, pair := range src.pairs {
			out.Set(pair.Key, pair.Value)
		}
	}
	return out
}

// Collisions returns the keys of override that are already present in base.
func Collisions(base, override Params) []string {
	var keys []string
	for _, key := range override.Keys() {
		if _, ok := base.Get(key); ok {
			keys = append(keys, key)
		}
	}
	return keys
}
