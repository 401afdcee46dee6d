// Package journey defines the contracts a step offers to the journey API:
// a path, the fees it displays, the content it selects and, for questions,
// a form, derived values and a routing decision.
package journey

import (
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/session"
)

// Features are the runtime toggles steps may branch on.
type Features struct {
	SolicitorDetails bool `json:"respSolicitorDetails"`
	Welsh            bool `json:"welsh"`
}

// Context is everything a step sees while rendering or handling a submission.
type Context struct {
	Session  *session.Session
	Fields   map[string]string
	Fees     fees.Annotations
	Features Features
}

// Texts looks up catalog text for a step.
type Texts interface {
	Lookup(locale, step, key string) string
}

// Step is a page of the journey.
type Step interface {
	Name() string
	DefaultPath() string
	FeeCodes() []string
	Content(c Context) Selection
}

// Question is a step with a form.
type Question interface {
	Step
	Form() Form
	// Values returns the session deltas derived from validated fields.
	Values(c Context) (map[string]string, error)
	// Next returns the name of the step to continue to.
	Next(c Context) (string, error)
}

// Answerer is implemented by questions that contribute to the
// check-your-answers record.
type Answerer interface {
	Answers(c Context, texts Texts) []Answer
}

// ExitPoint is a terminal step. Reaching one ends the respondent's
// authenticated session.
type ExitPoint interface {
	Step
	ExitPoint()
}

// Submitter is the step whose successful submission files the response
// with the court.
type Submitter interface {
	Question
	// Response names the respondent's answer for the case record. It
	// fails with ErrInvariant when no response has been given.
	Response(s *session.Session) (string, error)
}

// Answer is one line of the check-your-answers record.
type Answer struct {
	Step     string `json:"step"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Base carries the static parts of a step.
type Base struct {
	StepName string
	StepPath string
	Fees     []string
}

func (b Base) Name() string        { return b.StepName }
func (b Base) DefaultPath() string { return b.StepPath }

// FeeCodes returns a copy of the fee codes the step displays.
func (b Base) FeeCodes() []string {
	if len(b.Fees) == 0 {
		return nil
	}
	out := make([]string, len(b.Fees))
	copy(out, b.Fees)
	return out
}

// Content selects nothing. Steps with conditional content override it.
func (b Base) Content(Context) Selection {
	return Selection{}
}
