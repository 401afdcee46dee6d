package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormValidate(t *testing.T) {
	form := NewForm(
		Field{Name: "consentDecree", Rules: []Rule{Required(), OneOf("Yes", "No")}},
		Field{Name: "willDefend", Rules: []Rule{RequiredIf("consentDecree", "No"), OneOf("Yes", "No")}},
		Field{Name: "email", Rules: []Rule{Email(), MaxLength(20)}},
	)

	tests := []struct {
		name   string
		fields map[string]string
		want   []FieldError
	}{
		{
			name:   "valid",
			fields: map[string]string{"consentDecree": "Yes"},
		},
		{
			name:   "missing required",
			fields: map[string]string{},
			want:   []FieldError{{Field: "consentDecree", Key: ErrKeyRequired}},
		},
		{
			name:   "unknown option",
			fields: map[string]string{"consentDecree": "Maybe"},
			want:   []FieldError{{Field: "consentDecree", Key: ErrKeyInvalid}},
		},
		{
			name:   "conditional required",
			fields: map[string]string{"consentDecree": "No"},
			want:   []FieldError{{Field: "willDefend", Key: ErrKeyRequired}},
		},
		{
			name:   "conditional satisfied",
			fields: map[string]string{"consentDecree": "No", "willDefend": "No"},
		},
		{
			name:   "bad email",
			fields: map[string]string{"consentDecree": "Yes", "email": "not-an-email"},
			want:   []FieldError{{Field: "email", Key: ErrKeyEmail}},
		},
		{
			name:   "email without domain dot",
			fields: map[string]string{"consentDecree": "Yes", "email": "a@localhost"},
			want:   []FieldError{{Field: "email", Key: ErrKeyEmail}},
		},
		{
			name:   "too long",
			fields: map[string]string{"consentDecree": "Yes", "email": "someone.long@example.com"},
			want:   []FieldError{{Field: "email", Key: ErrKeyTooLong}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, form.Validate(tt.fields))
		})
	}
}

func TestFormBind(t *testing.T) {
	form := NewForm(Field{Name: "response"}, Field{Name: "details"})
	got := form.Bind(map[string]string{
		"response": "  proceed ",
		"details":  "   ",
		"_csrf":    "token",
	})
	assert.Equal(t, map[string]string{"response": "proceed"}, got)
	assert.Equal(t, []string{"response", "details"}, form.Names())
}
