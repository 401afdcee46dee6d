package steps

import (
	"fmt"
	"testing"

	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBehaviour(t *testing.T) {
	tests := []struct {
		answer string
		want   session.Flags
	}{
		{ResponseProceed, session.Flags{RespDefendsDivorce: "No", RespAdmitOrConsentToFact: "Yes"}},
		{ResponseProceedButDisagree, session.Flags{RespDefendsDivorce: "No", RespAdmitOrConsentToFact: "No"}},
		{ResponseDefend, session.Flags{RespDefendsDivorce: "Yes", RespAdmitOrConsentToFact: "No"}},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, err := Classify(tt.answer, petition.ReasonBehaviour)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyOtherReasons(t *testing.T) {
	reasons := []petition.Reason{
		petition.ReasonAdultery,
		petition.ReasonSeparation2Years,
		petition.ReasonSeparation5Years,
		petition.ReasonDesertion,
		"",
	}
	answers := map[string]string{
		ResponseProceed:            "No",
		ResponseProceedButDisagree: "Yes",
		ResponseDefend:             "Yes",
	}
	for _, reason := range reasons {
		for answer, defends := range answers {
			t.Run(fmt.Sprintf("%s/%s", reason, answer), func(t *testing.T) {
				got, err := Classify(answer, reason)
				require.NoError(t, err)
				assert.Equal(t, defends, got.RespDefendsDivorce)
				assert.Empty(t, got.RespAdmitOrConsentToFact)
			})
		}
	}
}

func TestClassifyUnknownBehaviourAnswer(t *testing.T) {
	_, err := Classify("maybe", petition.ReasonBehaviour)
	assert.ErrorIs(t, err, journey.ErrInvariant)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		answer string
		reason petition.Reason
		want   string
	}{
		{ResponseDefend, petition.ReasonSeparation5Years, NameDefendFinancialHardship},
		{ResponseProceed, petition.ReasonSeparation5Years, NameFinancialSituation},
		{ResponseProceedButDisagree, petition.ReasonSeparation5Years, NameJurisdiction},
		{ResponseDefend, petition.ReasonBehaviour, NameConfirmDefence},
		{ResponseProceed, petition.ReasonBehaviour, NameJurisdiction},
		{ResponseProceedButDisagree, petition.ReasonBehaviour, NameJurisdiction},
		{ResponseDefend, petition.ReasonDesertion, NameConfirmDefence},
		{ResponseProceed, petition.ReasonAdultery, NameJurisdiction},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.answer, tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.answer, tt.reason))
		})
	}
}

func TestChooseAResponseSubmission(t *testing.T) {
	step := NewChooseAResponse()
	sess := session.New("u1", &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour})

	fields := step.Form().Bind(map[string]string{"response": " proceedButDisagree ", "other": "x"})
	require.Empty(t, step.Form().Validate(fields))
	assert.Equal(t, map[string]string{"response": ResponseProceedButDisagree}, fields)

	c := journey.Context{Session: sess, Fields: fields}
	deltas, err := step.Values(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		session.KeyRespDefendsDivorce:       "No",
		session.KeyRespAdmitOrConsentToFact: "No",
	}, deltas)

	next, err := step.Next(c)
	require.NoError(t, err)
	assert.Equal(t, NameJurisdiction, next)
}

func TestChooseAResponseRejectsUnknownAnswer(t *testing.T) {
	step := NewChooseAResponse()
	errs := step.Form().Validate(map[string]string{"response": "later"})
	require.Len(t, errs, 1)
	assert.Equal(t, journey.ErrKeyInvalid, errs[0].Key)

	errs = step.Form().Validate(map[string]string{})
	require.Len(t, errs, 1)
	assert.Equal(t, journey.ErrKeyRequired, errs[0].Key)
}

func TestChooseAResponseRevisitReplacesFlags(t *testing.T) {
	step := NewChooseAResponse()
	sess := session.New("u1", &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour})

	for _, answer := range []string{ResponseDefend, ResponseProceed} {
		c := journey.Context{Session: sess, Fields: map[string]string{"response": answer}}
		deltas, err := step.Values(c)
		require.NoError(t, err)
		sess.Record(NameChooseAResponse, c.Fields, deltas)
	}
	assert.Equal(t, session.Flags{RespDefendsDivorce: "No", RespAdmitOrConsentToFact: "Yes"}, sess.DerivedFlags())
}

func TestChooseAResponseContent(t *testing.T) {
	step := NewChooseAResponse()
	sess := session.New("u1", &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour})

	sel := step.Content(journey.Context{Session: sess, Fees: feeSet("DefendDivorcePayService", 245)})
	assert.True(t, sel.Has("behaviourProceedButDisagreeHint"))
	assert.Equal(t, "245", sel.Values["feesDefendDivorce"])

	sess.OriginalPetition.ReasonForDivorce = petition.ReasonDesertion
	sel = step.Content(journey.Context{Session: sess})
	assert.False(t, sel.Has("behaviourProceedButDisagreeHint"))
	assert.True(t, sel.Has("fields.response.defend.heading"))
}
