// Package session holds the respondent's accumulated journey state: the
// petition being answered plus one entry per answered step.
package session

import (
	"maps"
	"time"

	"github.com/c360studio/aos/petition"
	"github.com/google/uuid"
)

// Keys of the derived flags written by response-bearing steps.
const (
	KeyRespDefendsDivorce       = "respDefendsDivorce"
	KeyRespAdmitOrConsentToFact = "respAdmitOrConsentToFact"
)

// Flags are the derived answers persisted so that later steps and the case
// submission never re-derive them.
type Flags struct {
	RespDefendsDivorce       string `json:"respDefendsDivorce,omitempty"`
	RespAdmitOrConsentToFact string `json:"respAdmitOrConsentToFact,omitempty"`
}

// Deltas returns the set flags as session deltas. Unset flags are omitted.
func (f Flags) Deltas() map[string]string {
	d := make(map[string]string, 2)
	if f.RespDefendsDivorce != "" {
		d[KeyRespDefendsDivorce] = f.RespDefendsDivorce
	}
	if f.RespAdmitOrConsentToFact != "" {
		d[KeyRespAdmitOrConsentToFact] = f.RespAdmitOrConsentToFact
	}
	return d
}

// StepAnswers is what one step captured.
type StepAnswers struct {
	// Fields are the submitted form values.
	Fields map[string]string `json:"fields,omitempty"`

	// Deltas are values the step derived from its fields.
	Deltas map[string]string `json:"deltas,omitempty"`

	// Seq orders writes within the session; higher is more recent.
	Seq uint64 `json:"seq"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DivorceCenter is the court centre handling the case.
type DivorceCenter struct {
	Name      string `json:"name,omitempty"`
	PoBox     string `json:"po_box,omitempty"`
	CourtCity string `json:"court_city,omitempty"`
	PostCode  string `json:"post_code,omitempty"`
	Street    string `json:"street,omitempty"`
}

// Session is the per-respondent journey record.
type Session struct {
	// ID uniquely identifies this session (format: s-{uuid})
	ID string `json:"id"`

	// UserID is the authenticated respondent the session belongs to
	UserID string `json:"user_id"`

	// CaseID is the case service identifier of the petition
	CaseID string `json:"case_id,omitempty"`

	OriginalPetition *petition.Petition `json:"original_petition,omitempty"`
	DivorceCenter    DivorceCenter      `json:"divorce_center"`

	// Steps maps a step name to the answers it captured
	Steps map[string]*StepAnswers `json:"steps,omitempty"`

	// Seq is the sequence number of the last write
	Seq uint64 `json:"seq"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// New creates an empty session for a respondent answering p.
func New(userID string, p *petition.Petition) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:               "s-" + uuid.New().String(),
		UserID:           userID,
		OriginalPetition: p,
		Steps:            make(map[string]*StepAnswers),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Petition returns the petition under answer. A session without one yields
// an empty petition so content rules fall through to their defaults.
func (s *Session) Petition() *petition.Petition {
	if s == nil || s.OriginalPetition == nil {
		return &petition.Petition{}
	}
	return s.OriginalPetition
}

// Record replaces the entry for step with the given fields and deltas.
// Earlier answers of the same step are discarded, never merged.
func (s *Session) Record(step string, fields, deltas map[string]string) {
	if s.Steps == nil {
		s.Steps = make(map[string]*StepAnswers)
	}
	s.Seq++
	now := time.Now().UTC()
	s.Steps[step] = &StepAnswers{
		Fields:    maps.Clone(fields),
		Deltas:    maps.Clone(deltas),
		Seq:       s.Seq,
		UpdatedAt: now,
	}
	s.UpdatedAt = now
}

// Answered reports whether step has an entry.
func (s *Session) Answered(step string) bool {
	_, ok := s.Steps[step]
	return ok
}

// Field returns a captured answer, or "" when the step or field is absent.
func (s *Session) Field(step, field string) string {
	a, ok := s.Steps[step]
	if !ok {
		return ""
	}
	return a.Fields[field]
}

// Value resolves a derived value from the most recently written step entry
// that carries it.
func (s *Session) Value(key string) (string, bool) {
	var (
		best  *StepAnswers
		value string
	)
	for _, a := range s.Steps {
		v, ok := a.Deltas[key]
		if !ok {
			continue
		}
		if best == nil || a.Seq > best.Seq {
			best, value = a, v
		}
	}
	return value, best != nil
}

// DerivedFlags returns the current derived flags. A flag is empty until a
// response-bearing step has written it.
func (s *Session) DerivedFlags() Flags {
	var f Flags
	f.RespDefendsDivorce, _ = s.Value(KeyRespDefendsDivorce)
	f.RespAdmitOrConsentToFact, _ = s.Value(KeyRespAdmitOrConsentToFact)
	return f
}

// Defended reports whether the respondent has chosen to defend.
func (s *Session) Defended() bool {
	v, _ := s.Value(KeyRespDefendsDivorce)
	return v == petition.Yes
}

// MarkSubmitted stamps the submission time.
func (s *Session) MarkSubmitted(at time.Time) {
	at = at.UTC()
	s.SubmittedAt = &at
	s.UpdatedAt = at
}
