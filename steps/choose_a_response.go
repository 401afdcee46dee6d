package steps

import (
	"fmt"

	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
)

// Answers to ChooseAResponse.
const (
	ResponseProceed            = "proceed"
	ResponseProceedButDisagree = "proceedButDisagree"
	ResponseDefend             = "defend"
)

// Classify derives the respondent flags from their answer and the reason the
// petition relies on. Behaviour petitions distinguish admitting the facts
// from proceeding without admitting them; every other reason only records
// whether the divorce is defended.
func Classify(answer string, reason petition.Reason) (session.Flags, error) {
	if reason == petition.ReasonBehaviour {
		switch answer {
		case ResponseProceed:
			return session.Flags{RespDefendsDivorce: petition.No, RespAdmitOrConsentToFact: petition.Yes}, nil
		case ResponseProceedButDisagree:
			return session.Flags{RespDefendsDivorce: petition.No, RespAdmitOrConsentToFact: petition.No}, nil
		case ResponseDefend:
			return session.Flags{RespDefendsDivorce: petition.Yes, RespAdmitOrConsentToFact: petition.No}, nil
		default:
			return session.Flags{}, fmt.Errorf("unknown response %q to behaviour petition: %w", answer, journey.ErrInvariant)
		}
	}

	if answer == ResponseProceed {
		return session.Flags{RespDefendsDivorce: petition.No}, nil
	}
	return session.Flags{RespDefendsDivorce: petition.Yes}, nil
}

// Route picks the step after ChooseAResponse. First match wins.
func Route(answer string, reason petition.Reason) string {
	fiveYears := reason == petition.ReasonSeparation5Years
	switch {
	case answer == ResponseDefend && fiveYears:
		return NameDefendFinancialHardship
	case answer == ResponseProceed && fiveYears:
		return NameFinancialSituation
	case answer == ResponseDefend:
		return NameConfirmDefence
	default:
		return NameJurisdiction
	}
}

// ChooseAResponse asks whether the respondent proceeds, proceeds without
// admitting the allegations, or defends.
type ChooseAResponse struct {
	journey.Base
}

// NewChooseAResponse creates the step.
func NewChooseAResponse() *ChooseAResponse {
	return &ChooseAResponse{Base: journey.Base{
		StepName: NameChooseAResponse,
		StepPath: "/choose-a-response",
		Fees:     []string{fees.CodeDefendDivorcePayService},
	}}
}

func (s *ChooseAResponse) Form() journey.Form {
	return journey.NewForm(choice("response", ResponseProceed, ResponseProceedButDisagree, ResponseDefend))
}

// Values returns the derived flags. They replace whatever an earlier answer
// produced.
func (s *ChooseAResponse) Values(c journey.Context) (map[string]string, error) {
	flags, err := Classify(c.Fields["response"], c.Session.Petition().ReasonForDivorce)
	if err != nil {
		return nil, err
	}
	return flags.Deltas(), nil
}

func (s *ChooseAResponse) Next(c journey.Context) (string, error) {
	return Route(c.Fields["response"], c.Session.Petition().ReasonForDivorce), nil
}

func (s *ChooseAResponse) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	return []journey.Answer{optionAnswer(NameChooseAResponse, "response", c.Fields["response"], texts)}
}

func (s *ChooseAResponse) Content(c journey.Context) journey.Selection {
	var sel journey.Selection
	behaviour := c.Session.Petition().ReasonForDivorce == petition.ReasonBehaviour

	sel.Add(
		"title",
		"fields.response.proceed.heading",
		"fields.response.proceedButDisagree.heading",
		"fields.response.defend.heading",
		"defendFeeHint",
	)
	sel.AddIf(behaviour, "behaviourProceedButDisagreeHint")

	sel.Set("feesDefendDivorce", c.Fees.Amount(fees.CodeDefendDivorcePayService))
	sel.Set("reasonIsBehaviour", fmt.Sprint(behaviour))
	return sel
}
