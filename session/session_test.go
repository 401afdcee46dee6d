package session

import (
	"encoding/json"
	"testing"

	"github.com/c360studio/aos/petition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReplacesEntry(t *testing.T) {
	s := New("user-1", nil)
	s.Record("ChooseAResponse", map[string]string{"response": "defend"}, Flags{RespDefendsDivorce: "Yes", RespAdmitOrConsentToFact: "No"}.Deltas())
	s.Record("ChooseAResponse", map[string]string{"response": "proceed"}, Flags{RespDefendsDivorce: "No"}.Deltas())

	assert.Equal(t, "proceed", s.Field("ChooseAResponse", "response"))
	f := s.DerivedFlags()
	assert.Equal(t, "No", f.RespDefendsDivorce)
	assert.Empty(t, f.RespAdmitOrConsentToFact, "stale admit flag must not survive a new answer")
}

func TestRecordCopiesMaps(t *testing.T) {
	s := New("user-1", nil)
	fields := map[string]string{"response": "defend"}
	s.Record("ChooseAResponse", fields, nil)
	fields["response"] = "proceed"

	assert.Equal(t, "defend", s.Field("ChooseAResponse", "response"))
}

func TestValueUsesMostRecentWriter(t *testing.T) {
	s := New("user-1", nil)
	s.Record("AdmitAdultery", map[string]string{"response": "admit"}, map[string]string{KeyRespAdmitOrConsentToFact: "Yes"})
	s.Record("ChooseAResponse", map[string]string{"response": "defend"}, map[string]string{KeyRespDefendsDivorce: "Yes"})

	f := s.DerivedFlags()
	assert.Equal(t, "Yes", f.RespDefendsDivorce)
	assert.Equal(t, "Yes", f.RespAdmitOrConsentToFact)
	assert.True(t, s.Defended())

	s.Record("AdmitAdultery", map[string]string{"response": "doNotAdmit"}, map[string]string{KeyRespAdmitOrConsentToFact: "No"})
	assert.Equal(t, "No", s.DerivedFlags().RespAdmitOrConsentToFact)
}

func TestFlagsAbsentWithoutResponse(t *testing.T) {
	s := New("user-1", nil)
	s.Record("ReviewApplication", map[string]string{"respConfirmReadPetition": "Yes"}, nil)

	_, ok := s.Value(KeyRespDefendsDivorce)
	assert.False(t, ok)
	assert.Equal(t, Flags{}, s.DerivedFlags())
	assert.False(t, s.Defended())
}

func TestPetitionNeverNil(t *testing.T) {
	var s *Session
	require.NotNil(t, s.Petition())
	assert.Equal(t, petition.Reason(""), New("u", nil).Petition().ReasonForDivorce)
}

func TestSessionJSON(t *testing.T) {
	s := New("user-1", &petition.Petition{ReasonForDivorce: petition.ReasonDesertion})
	s.Record("Jurisdiction", map[string]string{"jurisdictionAgree": "Yes"}, nil)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got Session
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, petition.ReasonDesertion, got.Petition().ReasonForDivorce)
	assert.Equal(t, "Yes", got.Field("Jurisdiction", "jurisdictionAgree"))
	assert.Equal(t, s.Seq, got.Seq)
}
