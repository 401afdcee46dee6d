package steps

import (
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
)

// Respond is the landing page of the journey.
type Respond struct {
	journey.Base
}

// NewRespond creates the step.
func NewRespond() *Respond {
	return &Respond{Base: journey.Base{StepName: NameRespond, StepPath: "/respond"}}
}

func (s *Respond) Form() journey.Form { return journey.NewForm() }

func (s *Respond) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *Respond) Next(journey.Context) (string, error) { return NameReviewApplication, nil }

func (s *Respond) Content(c journey.Context) journey.Selection {
	sel := keys("title", "intro", "timeLimit")
	setText(&sel, "caseReference", c.Session.Petition().CaseReference)
	return sel
}

// LanguagePreference asks whether the respondent wants to receive documents
// in Welsh.
type LanguagePreference struct {
	journey.Base
}

// NewLanguagePreference creates the step.
func NewLanguagePreference() *LanguagePreference {
	return &LanguagePreference{Base: journey.Base{
		StepName: NameLanguagePreference,
		StepPath: "/language-preference",
	}}
}

func (s *LanguagePreference) Form() journey.Form {
	return journey.NewForm(yesNo("languagePreferenceWelsh"))
}

func (s *LanguagePreference) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *LanguagePreference) Next(c journey.Context) (string, error) {
	if c.Features.SolicitorDetails {
		return NameSolicitorRepresentation, nil
	}
	return responseStep(c.Session.Petition().ReasonForDivorce), nil
}

func (s *LanguagePreference) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	return []journey.Answer{optionAnswer(NameLanguagePreference, "languagePreferenceWelsh", c.Fields["languagePreferenceWelsh"], texts)}
}

func (s *LanguagePreference) Content(journey.Context) journey.Selection {
	return keys("title", "fields.languagePreferenceWelsh.Yes.heading", "fields.languagePreferenceWelsh.No.heading")
}

// SolicitorRepresentation asks whether a solicitor acts for the respondent.
type SolicitorRepresentation struct {
	journey.Base
}

// NewSolicitorRepresentation creates the step.
func NewSolicitorRepresentation() *SolicitorRepresentation {
	return &SolicitorRepresentation{Base: journey.Base{
		StepName: NameSolicitorRepresentation,
		StepPath: "/solicitor-representation",
	}}
}

func (s *SolicitorRepresentation) Form() journey.Form {
	return journey.NewForm(yesNo("respondentSolicitorRepresented"))
}

func (s *SolicitorRepresentation) Values(journey.Context) (map[string]string, error) {
	return nil, nil
}

func (s *SolicitorRepresentation) Next(c journey.Context) (string, error) {
	if petition.IsYes(c.Fields["respondentSolicitorRepresented"]) {
		return NameSolicitorDetails, nil
	}
	return responseStep(c.Session.Petition().ReasonForDivorce), nil
}

func (s *SolicitorRepresentation) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	return []journey.Answer{optionAnswer(NameSolicitorRepresentation, "respondentSolicitorRepresented", c.Fields["respondentSolicitorRepresented"], texts)}
}

func (s *SolicitorRepresentation) Content(journey.Context) journey.Selection {
	return keys("title", "fields.respondentSolicitorRepresented.Yes.heading", "fields.respondentSolicitorRepresented.No.heading")
}

// SolicitorDetails captures the representing solicitor. A represented
// respondent's solicitor answers the petition, so the journey goes straight
// to the final check.
type SolicitorDetails struct {
	journey.Base
}

// NewSolicitorDetails creates the step.
func NewSolicitorDetails() *SolicitorDetails {
	return &SolicitorDetails{Base: journey.Base{
		StepName: NameSolicitorDetails,
		StepPath: "/solicitor-details",
	}}
}

var solicitorFields = []string{
	"respSolName",
	"respSolCompany",
	"respSolEmail",
	"respSolPhone",
	"respSolReferenceNumber",
}

func (s *SolicitorDetails) Form() journey.Form {
	return journey.NewForm(
		journey.Field{Name: "respSolName", Rules: []journey.Rule{journey.Required(), journey.MaxLength(100)}},
		journey.Field{Name: "respSolCompany", Rules: []journey.Rule{journey.Required(), journey.MaxLength(100)}},
		journey.Field{Name: "respSolEmail", Rules: []journey.Rule{journey.Required(), journey.Email()}},
		journey.Field{Name: "respSolPhone", Rules: []journey.Rule{journey.MaxLength(20)}},
		journey.Field{Name: "respSolReferenceNumber", Rules: []journey.Rule{journey.MaxLength(50)}},
	)
}

func (s *SolicitorDetails) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *SolicitorDetails) Next(journey.Context) (string, error) { return NameCheckYourAnswers, nil }

func (s *SolicitorDetails) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	var answers []journey.Answer
	for _, f := range solicitorFields {
		if v := c.Fields[f]; v != "" {
			answers = append(answers, textAnswer(NameSolicitorDetails, "fields."+f+".label", v, texts))
		}
	}
	return answers
}

func (s *SolicitorDetails) Content(journey.Context) journey.Selection {
	sel := keys("title")
	for _, f := range solicitorFields {
		sel.Add("fields." + f + ".label")
	}
	return sel
}
