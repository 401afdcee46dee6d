package steps

import (
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
)

// Answers to AdmitAdultery.
const (
	AdulteryAdmit      = "admit"
	AdulteryDoNotAdmit = "doNotAdmit"
)

// Answers to ConfirmDefence.
const (
	DefenceConfirm        = "confirm"
	DefenceChangeResponse = "changeResponse"
)

// AdmitAdultery asks a respondent to an adultery petition whether they admit
// the adultery.
type AdmitAdultery struct {
	journey.Base
}

// NewAdmitAdultery creates the step.
func NewAdmitAdultery() *AdmitAdultery {
	return &AdmitAdultery{Base: journey.Base{StepName: NameAdmitAdultery, StepPath: "/admit-adultery"}}
}

func (s *AdmitAdultery) Form() journey.Form {
	return journey.NewForm(choice("response", AdulteryAdmit, AdulteryDoNotAdmit))
}

func (s *AdmitAdultery) Values(c journey.Context) (map[string]string, error) {
	admit := petition.No
	if c.Fields["response"] == AdulteryAdmit {
		admit = petition.Yes
	}
	return session.Flags{RespAdmitOrConsentToFact: admit}.Deltas(), nil
}

func (s *AdmitAdultery) Next(journey.Context) (string, error) { return NameChooseAResponse, nil }

func (s *AdmitAdultery) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	return []journey.Answer{optionAnswer(NameAdmitAdultery, "response", c.Fields["response"], texts)}
}

func (s *AdmitAdultery) Content(c journey.Context) journey.Selection {
	p := c.Session.Petition()
	sel := keys("title", "fields.response.admit.heading", "fields.response.doNotAdmit.heading")
	sel.AddIf(petition.IsYes(p.ReasonForDivorceAdulteryWishToName), "coRespondentNamed")
	setText(&sel, "reasonForDivorceAdulteryDetails", p.ReasonForDivorceAdulteryDetails)
	return sel
}

// ConsentDecree asks a respondent to a two-year separation petition whether
// they consent to the divorce, and if not whether they will defend it.
type ConsentDecree struct {
	journey.Base
}

// NewConsentDecree creates the step.
func NewConsentDecree() *ConsentDecree {
	return &ConsentDecree{Base: journey.Base{
		StepName: NameConsentDecree,
		StepPath: "/consent-decree",
		Fees:     []string{fees.CodeDefendDivorcePayService},
	}}
}

func (s *ConsentDecree) Form() journey.Form {
	return journey.NewForm(
		yesNo("consentDecree"),
		journey.Field{Name: "willDefend", Rules: []journey.Rule{
			journey.RequiredIf("consentDecree", petition.No),
			journey.OneOf(petition.Yes, petition.No),
		}},
	)
}

// Values derives both flags. Consenting admits the fact and does not defend;
// refusing consent defends only when the respondent says so.
func (s *ConsentDecree) Values(c journey.Context) (map[string]string, error) {
	if petition.IsYes(c.Fields["consentDecree"]) {
		return session.Flags{RespAdmitOrConsentToFact: petition.Yes, RespDefendsDivorce: petition.No}.Deltas(), nil
	}
	defends := petition.No
	if petition.IsYes(c.Fields["willDefend"]) {
		defends = petition.Yes
	}
	return session.Flags{RespAdmitOrConsentToFact: petition.No, RespDefendsDivorce: defends}.Deltas(), nil
}

func (s *ConsentDecree) Next(c journey.Context) (string, error) {
	if !petition.IsYes(c.Fields["consentDecree"]) && petition.IsYes(c.Fields["willDefend"]) {
		return NameConfirmDefence, nil
	}
	return NameJurisdiction, nil
}

func (s *ConsentDecree) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	answers := []journey.Answer{optionAnswer(NameConsentDecree, "consentDecree", c.Fields["consentDecree"], texts)}
	if v := c.Fields["willDefend"]; v != "" {
		answers = append(answers, journey.Answer{
			Step:     NameConsentDecree,
			Question: texts.Lookup("en", NameConsentDecree, "fields.willDefend.question"),
			Answer:   texts.Lookup("en", NameConsentDecree, "fields.willDefend."+v+".answer"),
		})
	}
	return answers
}

func (s *ConsentDecree) Content(c journey.Context) journey.Selection {
	sel := keys("title", "fields.consentDecree.Yes.heading", "fields.consentDecree.No.heading", "fields.willDefend.question", "defendFeeHint")
	sel.Set("feesDefendDivorce", c.Fees.Amount(fees.CodeDefendDivorcePayService))
	return sel
}

// ConfirmDefence makes the respondent confirm they intend to defend.
type ConfirmDefence struct {
	journey.Base
}

// NewConfirmDefence creates the step.
func NewConfirmDefence() *ConfirmDefence {
	return &ConfirmDefence{Base: journey.Base{
		StepName: NameConfirmDefence,
		StepPath: "/confirm-defence",
		Fees:     []string{fees.CodeDefendDivorcePayService},
	}}
}

func (s *ConfirmDefence) Form() journey.Form {
	return journey.NewForm(choice("response", DefenceConfirm, DefenceChangeResponse))
}

func (s *ConfirmDefence) Values(journey.Context) (map[string]string, error) { return nil, nil }

// Next goes back to whichever page captured the response when the
// respondent changes their mind.
func (s *ConfirmDefence) Next(c journey.Context) (string, error) {
	if c.Fields["response"] == DefenceConfirm {
		return NameJurisdiction, nil
	}
	if c.Session.Petition().ReasonForDivorce == petition.ReasonSeparation2Years {
		return NameConsentDecree, nil
	}
	return NameChooseAResponse, nil
}

func (s *ConfirmDefence) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	return []journey.Answer{optionAnswer(NameConfirmDefence, "response", c.Fields["response"], texts)}
}

func (s *ConfirmDefence) Content(c journey.Context) journey.Selection {
	sel := keys("title", "defendText", "fields.response.confirm.heading", "fields.response.changeResponse.heading")
	sel.Set("feesDefendDivorce", c.Fees.Amount(fees.CodeDefendDivorcePayService))
	return sel
}

// DefendFinancialHardship asks a respondent defending a five-year separation
// petition whether the divorce would cause them grave financial hardship.
type DefendFinancialHardship struct {
	journey.Base
}

// NewDefendFinancialHardship creates the step.
func NewDefendFinancialHardship() *DefendFinancialHardship {
	return &DefendFinancialHardship{Base: journey.Base{
		StepName: NameDefendFinancialHardship,
		StepPath: "/financial-hardship",
	}}
}

func (s *DefendFinancialHardship) Form() journey.Form {
	return journey.NewForm(
		yesNo("respHardshipDefenseResponse"),
		journey.Field{Name: "respHardshipDescription", Rules: []journey.Rule{
			journey.RequiredIf("respHardshipDefenseResponse", petition.Yes),
			journey.MaxLength(10000),
		}},
	)
}

func (s *DefendFinancialHardship) Values(journey.Context) (map[string]string, error) {
	return nil, nil
}

func (s *DefendFinancialHardship) Next(journey.Context) (string, error) {
	return NameConfirmDefence, nil
}

func (s *DefendFinancialHardship) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	answers := []journey.Answer{optionAnswer(NameDefendFinancialHardship, "respHardshipDefenseResponse", c.Fields["respHardshipDefenseResponse"], texts)}
	if v := c.Fields["respHardshipDescription"]; v != "" {
		answers = append(answers, textAnswer(NameDefendFinancialHardship, "fields.respHardshipDescription.label", v, texts))
	}
	return answers
}

func (s *DefendFinancialHardship) Content(journey.Context) journey.Selection {
	return keys("title", "fields.respHardshipDefenseResponse.Yes.heading", "fields.respHardshipDefenseResponse.No.heading", "fields.respHardshipDescription.label")
}

// FinancialSituation asks a respondent not defending a five-year separation
// petition whether they want the court to consider their financial position.
type FinancialSituation struct {
	journey.Base
}

// NewFinancialSituation creates the step.
func NewFinancialSituation() *FinancialSituation {
	return &FinancialSituation{Base: journey.Base{
		StepName: NameFinancialSituation,
		StepPath: "/financial-situation",
	}}
}

func (s *FinancialSituation) Form() journey.Form {
	return journey.NewForm(yesNo("respConsiderFinancialSituation"))
}

func (s *FinancialSituation) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *FinancialSituation) Next(journey.Context) (string, error) { return NameJurisdiction, nil }

func (s *FinancialSituation) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	return []journey.Answer{optionAnswer(NameFinancialSituation, "respConsiderFinancialSituation", c.Fields["respConsiderFinancialSituation"], texts)}
}

func (s *FinancialSituation) Content(journey.Context) journey.Selection {
	return keys("title", "fields.respConsiderFinancialSituation.Yes.heading", "fields.respConsiderFinancialSituation.No.heading")
}
