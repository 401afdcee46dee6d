// Package steps implements the respondent journey: one type per page, each
// declaring its form, derived values, routing and content selection.
package steps

import (
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
)

// Step names.
const (
	NameRespond                 = "Respond"
	NameReviewApplication       = "ReviewApplication"
	NameLanguagePreference      = "LanguagePreference"
	NameSolicitorRepresentation = "SolicitorRepresentation"
	NameSolicitorDetails        = "SolicitorDetails"
	NameAdmitAdultery           = "AdmitAdultery"
	NameConsentDecree           = "ConsentDecree"
	NameChooseAResponse         = "ChooseAResponse"
	NameConfirmDefence          = "ConfirmDefence"
	NameDefendFinancialHardship = "DefendFinancialHardship"
	NameFinancialSituation      = "FinancialSituation"
	NameJurisdiction            = "Jurisdiction"
	NameLegalProceedings        = "LegalProceedings"
	NameAgreeToPayCosts         = "AgreeToPayCosts"
	NameContactDetails          = "ContactDetails"
	NameCheckYourAnswers        = "CheckYourAnswers"
	NameDone                    = "Done"
	NameEnd                     = "End"
)

// All returns every step of the journey in page order.
func All() []journey.Step {
	return []journey.Step{
		NewRespond(),
		NewReviewApplication(),
		NewLanguagePreference(),
		NewSolicitorRepresentation(),
		NewSolicitorDetails(),
		NewAdmitAdultery(),
		NewConsentDecree(),
		NewChooseAResponse(),
		NewConfirmDefence(),
		NewDefendFinancialHardship(),
		NewFinancialSituation(),
		NewJurisdiction(),
		NewLegalProceedings(),
		NewAgreeToPayCosts(),
		NewContactDetails(),
		NewCheckYourAnswers(),
		NewDone(),
		NewEnd(),
	}
}

// NewRegistry registers All with the given path overrides.
func NewRegistry(paths map[string]string) (*journey.Registry, error) {
	return journey.NewRegistry(paths, All()...)
}

// responseStep is where the respondent gives their answer to the petition
// once the preliminaries are done.
func responseStep(reason petition.Reason) string {
	switch reason {
	case petition.ReasonAdultery:
		return NameAdmitAdultery
	case petition.ReasonSeparation2Years:
		return NameConsentDecree
	default:
		return NameChooseAResponse
	}
}

func yesNo(name string) journey.Field {
	return journey.Field{
		Name:  name,
		Rules: []journey.Rule{journey.Required(), journey.OneOf(petition.Yes, petition.No)},
	}
}

func choice(name string, options ...string) journey.Field {
	return journey.Field{
		Name:  name,
		Rules: []journey.Rule{journey.Required(), journey.OneOf(options...)},
	}
}

// mustConfirm accepts only Yes.
func mustConfirm(name string) journey.Field {
	return choice(name, petition.Yes)
}

// optionAnswer renders a radio answer as its question title and the chosen
// option's answer text.
func optionAnswer(step, field, value string, texts journey.Texts) journey.Answer {
	return journey.Answer{
		Step:     step,
		Question: texts.Lookup("en", step, "title"),
		Answer:   texts.Lookup("en", step, "fields."+field+"."+value+".answer"),
	}
}

// textAnswer renders a free-text answer under its question title.
func textAnswer(step, key, value string, texts journey.Texts) journey.Answer {
	return journey.Answer{
		Step:     step,
		Question: texts.Lookup("en", step, key),
		Answer:   value,
	}
}

// keys is a fixed selection.
func keys(k ...string) journey.Selection {
	var sel journey.Selection
	sel.Add(k...)
	return sel
}
