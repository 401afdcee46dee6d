package steps

import "github.com/c360studio/aos/journey"

// End is where the journey finishes. Reaching it signs the respondent out.
type End struct {
	journey.Base
}

// NewEnd creates the exit point.
func NewEnd() *End {
	return &End{Base: journey.Base{StepName: NameEnd, StepPath: "/end"}}
}

func (s *End) ExitPoint() {}

func (s *End) Content(journey.Context) journey.Selection {
	return keys("title", "signedOut")
}
