package steps

import (
	"testing"

	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every key a step can select must have English text.
func TestSelectedKeysHaveText(t *testing.T) {
	catalog, err := content.LoadEmbedded(nil)
	require.NoError(t, err)
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	base := petition.Petition{
		CaseReference:                                 "LV17D80101",
		MarriagePlaceOfMarriage:                       "Cardiff",
		PreviousCaseID:                                "1",
		ClaimsCosts:                                   "Yes",
		ClaimsCostsFrom:                               petition.StringList{"respondent", "correspondent"},
		FinancialOrder:                                "Yes",
		FinancialOrderFor:                             petition.StringList{"children"},
		PetitionerContactDetailsConfidential:          petition.ContactDetailsShare,
		ReasonForDivorceAdulteryWishToName:            "Yes",
		ReasonForDivorceAdulteryKnowWhere:             "Yes",
		ReasonForDivorceAdulteryKnowWhen:              "Yes",
		ReasonForDivorceAdulterySecondHandInfo:        "Yes",
		ReasonForDivorceAdulterySecondHandInfoDetails: "x",
		ReasonForDivorceAdultery3rdAddress:            petition.StringList{"1 High St"},
		ReasonForDivorceDesertionAgreed:               "Yes",
		JurisdictionConnection:                        petition.NewCodes("A", "B", "C", "D", "E", "F", "Z"),
	}

	var petitions []petition.Petition
	for _, reason := range []petition.Reason{
		petition.ReasonAdultery,
		petition.ReasonBehaviour,
		petition.ReasonSeparation2Years,
		petition.ReasonSeparation5Years,
		petition.ReasonDesertion,
	} {
		p := base
		p.ReasonForDivorce = reason
		petitions = append(petitions, p)
	}
	newPolicy := base
	newPolicy.NewLegalConnectionPolicy = "Yes"
	newPolicy.JurisdictionConnectionNewPolicy = petition.NewCodes("A", "B", "C", "D", "E", "F", "G", "H", "I")
	petitions = append(petitions, newPolicy, petition.Petition{})

	for _, p := range petitions {
		sess := session.New("u1", &p)
		for _, st := range reg.Steps() {
			sel := st.Content(journey.Context{Session: sess})
			for _, key := range sel.Keys {
				ok := catalog.Has(content.LocaleEnglish, st.Name(), key) ||
					catalog.Has(content.LocaleEnglish, content.CommonStep, key)
				assert.True(t, ok, "%s: no text for %q", st.Name(), key)
			}
		}
	}
}
