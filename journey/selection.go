package journey

import "slices"

// Selection is the output of content resolution: the catalog keys to render,
// in order, and the named values they interpolate. It is recomputed on every
// render and never persisted.
type Selection struct {
	Keys   []string          `json:"keys"`
	Values map[string]string `json:"values,omitempty"`
}

// Add appends keys not already selected.
func (s *Selection) Add(keys ...string) {
	for _, k := range keys {
		if !slices.Contains(s.Keys, k) {
			s.Keys = append(s.Keys, k)
		}
	}
}

// AddIf appends keys when cond holds.
func (s *Selection) AddIf(cond bool, keys ...string) {
	if cond {
		s.Add(keys...)
	}
}

// Set records a named value.
func (s *Selection) Set(name, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[name] = value
}

// Has reports whether key is selected.
func (s Selection) Has(key string) bool {
	return slices.Contains(s.Keys, key)
}
