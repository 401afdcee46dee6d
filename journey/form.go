package journey

import (
	"net/mail"
	"slices"
	"strings"
	"unicode/utf8"
)

// Error keys reported by the built-in rules. The journey API resolves them
// against the step catalog.
const (
	ErrKeyRequired = "errors.required"
	ErrKeyInvalid  = "errors.invalid"
	ErrKeyEmail    = "errors.email"
	ErrKeyTooLong  = "errors.tooLong"
)

// Rule checks one field value against the whole submission. It returns the
// error key of the first problem, or "".
type Rule func(value string, fields map[string]string) string

// Field is a named form input and its rules, applied in order.
type Field struct {
	Name  string
	Rules []Rule
}

// FieldError is a validation failure for one field.
type FieldError struct {
	Field string `json:"field"`
	Key   string `json:"key"`
	Text  string `json:"text,omitempty"`
}

// Form is the schema of a question.
type Form struct {
	Fields []Field
}

// NewForm builds a form from fields.
func NewForm(fields ...Field) Form {
	return Form{Fields: fields}
}

// Names returns the declared field names.
func (f Form) Names() []string {
	names := make([]string, 0, len(f.Fields))
	for _, fd := range f.Fields {
		names = append(names, fd.Name)
	}
	return names
}

// Bind keeps only declared fields, trimmed of surrounding whitespace. Empty
// values are dropped.
func (f Form) Bind(raw map[string]string) map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, fd := range f.Fields {
		v := strings.TrimSpace(raw[fd.Name])
		if v != "" {
			out[fd.Name] = v
		}
	}
	return out
}

// Validate applies every field's rules and returns one error per failing
// field, in declaration order.
func (f Form) Validate(fields map[string]string) []FieldError {
	var errs []FieldError
	for _, fd := range f.Fields {
		v := fields[fd.Name]
		for _, rule := range fd.Rules {
			if key := rule(v, fields); key != "" {
				errs = append(errs, FieldError{Field: fd.Name, Key: key})
				break
			}
		}
	}
	return errs
}

// Required fails on an empty value.
func Required() Rule {
	return func(v string, _ map[string]string) string {
		if v == "" {
			return ErrKeyRequired
		}
		return ""
	}
}

// RequiredIf fails on an empty value when field other holds one of values.
func RequiredIf(other string, values ...string) Rule {
	return func(v string, fields map[string]string) string {
		if v == "" && slices.Contains(values, fields[other]) {
			return ErrKeyRequired
		}
		return ""
	}
}

// OneOf fails when a non-empty value is not one of allowed.
func OneOf(allowed ...string) Rule {
	return func(v string, _ map[string]string) string {
		if v != "" && !slices.Contains(allowed, v) {
			return ErrKeyInvalid
		}
		return ""
	}
}

// Email fails when a non-empty value is not a bare email address.
func Email() Rule {
	return func(v string, _ map[string]string) string {
		if v == "" {
			return ""
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@"):], ".") {
			return ErrKeyEmail
		}
		return ""
	}
}

// MaxLength fails when a value is longer than n characters.
func MaxLength(n int) Rule {
	return func(v string, _ map[string]string) string {
		if utf8.RuneCountInString(v) > n {
			return ErrKeyTooLong
		}
		return ""
	}
}
