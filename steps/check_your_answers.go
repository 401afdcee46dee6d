package steps

import (
	"fmt"

	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
)

// CheckYourAnswers shows the collected answers and takes the statement of
// truth. Its successful submission files the response.
type CheckYourAnswers struct {
	journey.Base
}

// NewCheckYourAnswers creates the step.
func NewCheckYourAnswers() *CheckYourAnswers {
	return &CheckYourAnswers{Base: journey.Base{StepName: NameCheckYourAnswers, StepPath: "/check-your-answers"}}
}

// Response names the respondent's answer for the case record. A session
// whose response step is unanswered, or which has not yet decided whether to
// defend, has nothing to file.
func (s *CheckYourAnswers) Response(sess *session.Session) (string, error) {
	reason := sess.Petition().ReasonForDivorce
	if !sess.Answered(responseStep(reason)) || sess.DerivedFlags().RespDefendsDivorce == "" {
		return "", fmt.Errorf("no response recorded for %q petition: %w", reason, journey.ErrInvariant)
	}
	switch {
	case DefendedAnswer(sess):
		return ResponseDefend, nil
	case sess.Answered(NameChooseAResponse):
		return sess.Field(NameChooseAResponse, "response"), nil
	case petition.IsYes(sess.Field(NameConsentDecree, "consentDecree")):
		return "consent", nil
	case sess.Answered(NameConsentDecree):
		return "noConsent", nil
	default:
		return "", fmt.Errorf("unrecognised response for %q petition: %w", reason, journey.ErrInvariant)
	}
}

func (s *CheckYourAnswers) Form() journey.Form {
	return journey.NewForm(mustConfirm("respStatementOfTruth"))
}

func (s *CheckYourAnswers) Values(journey.Context) (map[string]string, error) { return nil, nil }

func (s *CheckYourAnswers) Next(journey.Context) (string, error) { return NameDone, nil }

func (s *CheckYourAnswers) Content(c journey.Context) journey.Selection {
	sel := keys("title", "caseReference", "fields.respStatementOfTruth.label")
	setText(&sel, "caseReference", c.Session.Petition().CaseReference)
	return sel
}
