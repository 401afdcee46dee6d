package steps

import (
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
)

// Done confirms the response was sent and explains what happens next.
type Done struct {
	journey.Base
}

// NewDone creates the step.
func NewDone() *Done {
	return &Done{Base: journey.Base{
		StepName: NameDone,
		StepPath: "/done",
		Fees:     []string{fees.CodeAmend, fees.CodeDefendedPetition},
	}}
}

func (s *Done) Form() journey.Form { return journey.NewForm() }

func (s *Done) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *Done) Next(journey.Context) (string, error) { return NameEnd, nil }

// Content selects the defended or undefended next-steps text.
func (s *Done) Content(c journey.Context) journey.Selection {
	return ResolveDone(c.Session, c.Fees)
}

// DefendedAnswer reports whether the respondent said they will defend, either
// on ChooseAResponse or when refusing consent on ConsentDecree.
func DefendedAnswer(sess *session.Session) bool {
	return sess.Field(NameChooseAResponse, "response") == ResponseDefend ||
		petition.IsYes(sess.Field(NameConsentDecree, "willDefend"))
}

// ResolveDone selects the closing page text.
func ResolveDone(sess *session.Session, annotations fees.Annotations) journey.Selection {
	var sel journey.Selection
	p := sess.Petition()
	sel.Add("title", "responseSent")

	switch {
	case DefendedAnswer(sess):
		sel.Add(
			"defendedHeading",
			"defendedText1",
			"defendedText2",
			"defendedText3",
			"defendedText4",
			"defendedText5",
			"defendedText6",
		)

	case p.ReasonForDivorce == petition.ReasonAdultery &&
		sess.Field(NameAdmitAdultery, "response") == AdulteryDoNotAdmit:
		sel.Add(
			"notDefendedHeading",
			"notDefendedAdultery1",
			"notDefendedAdultery2",
			"notDefendedAdulteryLi1",
			"notDefendedAdulteryLi2",
			"notDefendedAdultery3",
		)

	case p.ReasonForDivorce == petition.ReasonSeparation2Years &&
		sess.Field(NameConsentDecree, "consentDecree") == petition.No:
		sel.Add(
			"notDefendedHeading",
			"notDefended2YearsNoConsent",
			"notDefended2YearsNoConsent1",
			"notDefended2YearsNoConsent2",
			"notDefended2YearsNoConsent3",
			"notDefended2YearsNoConsentH2",
			"notDefended2YearsNoConsent4",
			"notDefendedAdultery3",
		)

	default:
		sel.Add(
			"notDefendedHeading",
			"notDefendedText1",
			"notDefendedText2",
			"notDefendedListItem1",
			"notDefendedListItem2",
			"notDefendedText3",
			"notDefendedText4",
			"notDefendedText5",
		)
	}

	setText(&sel, "caseReference", p.CaseReference)
	setText(&sel, "respEmailAddress", p.RespEmailAddress)
	setText(&sel, "divorceCenterName", sess.DivorceCenter.Name)
	setText(&sel, "divorceCenterPoBox", sess.DivorceCenter.PoBox)
	setText(&sel, "divorceCenterCourtCity", sess.DivorceCenter.CourtCity)
	setText(&sel, "divorceCenterPostCode", sess.DivorceCenter.PostCode)
	setText(&sel, "divorceCenterStreet", sess.DivorceCenter.Street)
	sel.Set("amendFee", annotations.Amount(fees.CodeAmend))
	sel.Set("defendedPetitionFee", annotations.Amount(fees.CodeDefendedPetition))
	return sel
}
