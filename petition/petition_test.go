package petition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodesUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"object", `{"A":"","C":""}`, []string{"A", "C"}},
		{"array", `["G"]`, []string{"G"}},
		{"empty object", `{}`, []string{}},
		{"single string", `"B"`, []string{"B"}},
		{"null", `null`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Codes
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.want, c.Sorted())
		})
	}
}

func TestCodesUnmarshalRejectsNumbers(t *testing.T) {
	var c Codes
	assert.Error(t, json.Unmarshal([]byte(`42`), &c))
}

func TestPetitionDecode(t *testing.T) {
	raw := `{
		"reasonForDivorce": "adultery",
		"reasonForDivorceClaimingAdultery": false,
		"jurisdictionConnection": {"A": "", "C": ""},
		"newLegalConnectionPolicy": "Yes",
		"jurisdictionConnectionNewPolicy": ["G", "H", "I"],
		"claimsCosts": "Yes",
		"claimsCostsFrom": ["correspondent"],
		"financialOrder": "Yes",
		"financialOrderFor": "petitioner",
		"reasonForDivorceAdultery3rdAddress": ["line1", "line2", "postcode"],
		"petitionerCorrespondenceAddress": {"address": "129 king road"}
	}`

	var p Petition
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, ReasonAdultery, p.ReasonForDivorce)
	assert.True(t, p.UsesNewLegalConnectionPolicy())
	assert.Equal(t, []string{"G", "H", "I"}, p.Jurisdiction().Sorted())
	assert.Equal(t, []string{"A", "C"}, p.JurisdictionConnection.Sorted())
	assert.Equal(t, StringList{"petitioner"}, p.FinancialOrderFor)
	assert.False(t, p.ClaimsCostsFromRespondent())
	assert.True(t, p.ClaimsCostsFromCoRespondent())
	assert.Equal(t, []string{"129 king road"}, p.PetitionerCorrespondenceAddress.Lines())
	assert.Len(t, p.ReasonForDivorceAdultery3rdAddress, 3)
}

func TestClaimsCostsFromDefaultsToRespondent(t *testing.T) {
	p := Petition{ClaimsCosts: Yes}
	assert.True(t, p.ClaimsCostsFromRespondent())
	assert.False(t, p.ClaimsCostsFromCoRespondent())
}

func TestCodesRoundTripAsArray(t *testing.T) {
	out, err := json.Marshal(NewCodes("C", "A"))
	require.NoError(t, err)
	assert.JSONEq(t, `["A","C"]`, string(out))
}
