package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	a := Base{StepName: "A", StepPath: "/a"}
	b := Base{StepName: "B", StepPath: "/b", Fees: []string{"fee-b"}}

	r, err := NewRegistry(map[string]string{"B": "/custom-b"}, a, b)
	require.NoError(t, err)

	assert.Equal(t, "/a", r.Path("A"))
	assert.Equal(t, "/custom-b", r.Path("B"))

	s, err := r.ByPath("/custom-b")
	require.NoError(t, err)
	assert.Equal(t, "B", s.Name())
	assert.Equal(t, []string{"fee-b"}, s.FeeCodes())

	_, err = r.ByPath("/b")
	assert.ErrorIs(t, err, ErrUnknownStep)
	_, err = r.Step("C")
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Len(t, r.Steps(), 2)
}

func TestRegistryRejects(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		steps     []Step
		wantErr   error
	}{
		{
			name:    "duplicate name",
			steps:   []Step{Base{StepName: "A", StepPath: "/a"}, Base{StepName: "A", StepPath: "/a2"}},
			wantErr: ErrDuplicateStep,
		},
		{
			name:    "duplicate path",
			steps:   []Step{Base{StepName: "A", StepPath: "/a"}, Base{StepName: "B", StepPath: "/a"}},
			wantErr: ErrDuplicateStep,
		},
		{
			name:      "override for unknown step",
			overrides: map[string]string{"Z": "/z"},
			steps:     []Step{Base{StepName: "A", StepPath: "/a"}},
			wantErr:   ErrUnknownStep,
		},
		{
			name:      "relative path",
			overrides: map[string]string{"A": "a"},
			steps:     []Step{Base{StepName: "A", StepPath: "/a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.overrides, tt.steps...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSelection(t *testing.T) {
	var s Selection
	s.Add("a", "b")
	s.Add("a")
	s.AddIf(false, "c")
	s.AddIf(true, "d")
	s.Set("caseReference", "LV17D80101")

	assert.Equal(t, []string{"a", "b", "d"}, s.Keys)
	assert.True(t, s.Has("d"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, "LV17D80101", s.Values["caseReference"])
}
