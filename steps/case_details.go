package steps

import (
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
)

// Jurisdiction asks whether the respondent agrees the courts of England and
// Wales can deal with the case.
type Jurisdiction struct {
	journey.Base
}

// NewJurisdiction creates the step.
func NewJurisdiction() *Jurisdiction {
	return &Jurisdiction{Base: journey.Base{StepName: NameJurisdiction, StepPath: "/jurisdiction"}}
}

func (s *Jurisdiction) Form() journey.Form {
	return journey.NewForm(
		yesNo("jurisdictionAgree"),
		journey.Field{Name: "jurisdictionDisagreeReason", Rules: []journey.Rule{
			journey.RequiredIf("jurisdictionAgree", petition.No),
			journey.MaxLength(10000),
		}},
		journey.Field{Name: "jurisdictionCountry", Rules: []journey.Rule{
			journey.RequiredIf("jurisdictionAgree", petition.No),
			journey.MaxLength(100),
		}},
	)
}

func (s *Jurisdiction) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *Jurisdiction) Next(journey.Context) (string, error) { return NameLegalProceedings, nil }

func (s *Jurisdiction) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	answers := []journey.Answer{optionAnswer(NameJurisdiction, "jurisdictionAgree", c.Fields["jurisdictionAgree"], texts)}
	for _, f := range []string{"jurisdictionDisagreeReason", "jurisdictionCountry"} {
		if v := c.Fields[f]; v != "" {
			answers = append(answers, textAnswer(NameJurisdiction, "fields."+f+".label", v, texts))
		}
	}
	return answers
}

// Content lists the connections the petitioner relied on.
func (s *Jurisdiction) Content(c journey.Context) journey.Selection {
	sel := keys("title", "connectionsIntro")
	sel.Add(JurisdictionKeys(c.Session.Petition())...)
	sel.Add("fields.jurisdictionAgree.Yes.heading", "fields.jurisdictionAgree.No.heading")
	return sel
}

// LegalProceedings asks about other court cases relating to the marriage.
type LegalProceedings struct {
	journey.Base
}

// NewLegalProceedings creates the step.
func NewLegalProceedings() *LegalProceedings {
	return &LegalProceedings{Base: journey.Base{StepName: NameLegalProceedings, StepPath: "/legal-proceedings"}}
}

func (s *LegalProceedings) Form() journey.Form {
	return journey.NewForm(
		yesNo("legalProceedingsExist"),
		journey.Field{Name: "legalProceedingsDescription", Rules: []journey.Rule{
			journey.RequiredIf("legalProceedingsExist", petition.Yes),
			journey.MaxLength(10000),
		}},
	)
}

func (s *LegalProceedings) Values(journey.Context) (map[string]string, error) { return nil, nil }

// Next asks about costs only when the petitioner claims them from the
// respondent.
func (s *LegalProceedings) Next(c journey.Context) (string, error) {
	p := c.Session.Petition()
	if petition.IsYes(p.ClaimsCosts) && p.ClaimsCostsFromRespondent() {
		return NameAgreeToPayCosts, nil
	}
	return NameContactDetails, nil
}

func (s *LegalProceedings) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	answers := []journey.Answer{optionAnswer(NameLegalProceedings, "legalProceedingsExist", c.Fields["legalProceedingsExist"], texts)}
	if v := c.Fields["legalProceedingsDescription"]; v != "" {
		answers = append(answers, textAnswer(NameLegalProceedings, "fields.legalProceedingsDescription.label", v, texts))
	}
	return answers
}

func (s *LegalProceedings) Content(journey.Context) journey.Selection {
	return keys("title", "fields.legalProceedingsExist.Yes.heading", "fields.legalProceedingsExist.No.heading", "fields.legalProceedingsDescription.label")
}

// AgreeToPayCosts asks whether the respondent agrees to pay the costs the
// petitioner claims.
type AgreeToPayCosts struct {
	journey.Base
}

// NewAgreeToPayCosts creates the step.
func NewAgreeToPayCosts() *AgreeToPayCosts {
	return &AgreeToPayCosts{Base: journey.Base{StepName: NameAgreeToPayCosts, StepPath: "/agree-to-pay-costs"}}
}

func (s *AgreeToPayCosts) Form() journey.Form {
	return journey.NewForm(
		yesNo("respAgreeToCosts"),
		journey.Field{Name: "respCostsReason", Rules: []journey.Rule{
			journey.RequiredIf("respAgreeToCosts", petition.No),
			journey.MaxLength(10000),
		}},
	)
}

func (s *AgreeToPayCosts) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *AgreeToPayCosts) Next(journey.Context) (string, error) { return NameContactDetails, nil }

func (s *AgreeToPayCosts) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	answers := []journey.Answer{optionAnswer(NameAgreeToPayCosts, "respAgreeToCosts", c.Fields["respAgreeToCosts"], texts)}
	if v := c.Fields["respCostsReason"]; v != "" {
		answers = append(answers, textAnswer(NameAgreeToPayCosts, "fields.respCostsReason.label", v, texts))
	}
	return answers
}

func (s *AgreeToPayCosts) Content(c journey.Context) journey.Selection {
	sel := keys("title")
	sel.AddIf(c.Session.Petition().ClaimsCostsFromCoRespondent(), "sharedWithCoRespondent")
	sel.Add("fields.respAgreeToCosts.Yes.heading", "fields.respAgreeToCosts.No.heading", "fields.respCostsReason.label")
	return sel
}

// ContactDetails captures how the court may contact the respondent.
type ContactDetails struct {
	journey.Base
}

// NewContactDetails creates the step.
func NewContactDetails() *ContactDetails {
	return &ContactDetails{Base: journey.Base{StepName: NameContactDetails, StepPath: "/contact-details"}}
}

func (s *ContactDetails) Form() journey.Form {
	return journey.NewForm(
		journey.Field{Name: "respPhoneNumber", Rules: []journey.Rule{journey.MaxLength(20)}},
		mustConfirm("respConsentToEmail"),
	)
}

func (s *ContactDetails) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *ContactDetails) Next(journey.Context) (string, error) { return NameCheckYourAnswers, nil }

func (s *ContactDetails) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	var answers []journey.Answer
	if v := c.Fields["respPhoneNumber"]; v != "" {
		answers = append(answers, textAnswer(NameContactDetails, "fields.respPhoneNumber.label", v, texts))
	}
	return append(answers, optionAnswer(NameContactDetails, "respConsentToEmail", c.Fields["respConsentToEmail"], texts))
}

func (s *ContactDetails) Content(c journey.Context) journey.Selection {
	sel := keys("title", "emailIntro", "fields.respPhoneNumber.label", "fields.respConsentToEmail.label")
	setText(&sel, "respEmailAddress", c.Session.Petition().RespEmailAddress)
	return sel
}
