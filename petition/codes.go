package petition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Codes is a set of jurisdiction connection codes (A to I). Upstream case
// data encodes it either as an object keyed by code or as an array.
type Codes map[string]struct{}

// NewCodes builds a set from the given codes.
func NewCodes(codes ...string) Codes {
	c := make(Codes, len(codes))
	for _, code := range codes {
		c[code] = struct{}{}
	}
	return c
}

// Has reports whether code is in the set. A nil set has no codes.
func (c Codes) Has(code string) bool {
	_, ok := c[code]
	return ok
}

// Sorted returns the codes in lexical order.
func (c Codes) Sorted() []string {
	out := make([]string, 0, len(c))
	for code := range c {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (c Codes) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Sorted())
}

// UnmarshalJSON accepts null, an object keyed by code, an array of codes or a
// single code string.
func (c *Codes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}

	switch data[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode codes object: %w", err)
		}
		set := make(Codes, len(obj))
		for code := range obj {
			set[code] = struct{}{}
		}
		*c = set
	case '[':
		var arr []string
		if err := json.Unmarshal(data, &arr); err != nil {
			return fmt.Errorf("decode codes array: %w", err)
		}
		*c = NewCodes(arr...)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode code: %w", err)
		}
		if s == "" {
			*c = Codes{}
			return nil
		}
		*c = NewCodes(s)
	default:
		return fmt.Errorf("decode codes: unexpected JSON %q", data)
	}
	return nil
}

// StringList is a list of strings that also decodes from a single string.
type StringList []string

// Contains reports whether v is in the list.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts null, a string or an array of strings.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string list: %w", err)
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = StringList{s}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	*l = arr
	return nil
}
