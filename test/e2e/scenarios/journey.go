package scenarios

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/c360studio/aos/events"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
	"github.com/c360studio/aos/test/e2e/client"
	"github.com/c360studio/aos/test/e2e/config"
)

// Seeder stores a respondent's session before the journey starts.
type Seeder interface {
	Put(ctx context.Context, sess *session.Session) error
}

// SubmissionWatcher waits for the event announcing a submitted case.
type SubmissionWatcher interface {
	WaitForSubmitted(ctx context.Context, caseID string, timeout time.Duration) (*events.Submitted, error)
}

// Page is one step of a journey: the answers posted and the step the
// service must route to.
type Page struct {
	Step   string
	Fields map[string]string
	Next   string
}

// Journey describes one path through the respondent journey.
type Journey struct {
	Name        string
	Description string
	Petition    petition.Petition
	Pages       []Page

	// Response is the answer the case record must carry.
	Response string

	// DoneKeys must all be selected on the closing page.
	DoneKeys []string
}

// JourneyOption configures a JourneyScenario.
type JourneyOption func(*JourneyScenario)

// WithSeeder replaces the NATS session bucket as the place sessions are seeded.
func WithSeeder(s Seeder) JourneyOption {
	return func(js *JourneyScenario) { js.seeder = s }
}

// WithWatcher replaces the NATS events stream as the source of submissions.
func WithWatcher(w SubmissionWatcher) JourneyOption {
	return func(js *JourneyScenario) { js.watcher = w }
}

// JourneyScenario seeds a session, walks the pages of a Journey over HTTP and
// checks the submitted case.
type JourneyScenario struct {
	journey Journey
	config  *config.Config

	http    *client.JourneyClient
	nats    *client.NATSClient
	mockFee *client.MockFeesClient
	seeder  Seeder
	watcher SubmissionWatcher

	caseID string
}

// NewJourneyScenario creates a scenario for j.
func NewJourneyScenario(j Journey, cfg *config.Config, opts ...JourneyOption) *JourneyScenario {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &JourneyScenario{journey: j, config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the scenario name.
func (s *JourneyScenario) Name() string { return s.journey.Name }

// Description returns the scenario description.
func (s *JourneyScenario) Description() string { return s.journey.Description }

// Setup connects to the service. NATS is only dialled when no seeder or
// watcher was supplied.
func (s *JourneyScenario) Setup(ctx context.Context) error {
	s.http = client.NewJourneyClient(s.config.BaseURL, s.config.APIPrefix, s.config.CookieName, s.config.Token)

	if s.seeder == nil || s.watcher == nil {
		nc, err := client.NewNATSClient(ctx, s.config.NATSURL)
		if err != nil {
			return fmt.Errorf("create NATS client: %w", err)
		}
		s.nats = nc
		if s.seeder == nil {
			s.seeder = nc
		}
		if s.watcher == nil {
			s.watcher = nc
		}
	}

	if s.config.MockFeesURL != "" {
		s.mockFee = client.NewMockFeesClient(s.config.MockFeesURL)
	}
	return nil
}

// Execute runs the scenario stages in order and stops at the first failure.
func (s *JourneyScenario) Execute(ctx context.Context) (*Result, error) {
	result := NewResult(s.journey.Name)
	defer result.Complete()

	stages := []struct {
		name    string
		fn      func(context.Context, *Result) error
		timeout time.Duration
	}{
		{"seed-session", s.stageSeed, s.config.StageTimeout},
		{"reject-empty-answers", s.stageRejectEmpty, s.config.StageTimeout},
		{"walk-journey", s.stageWalk, s.config.StageTimeout},
		{"verify-done", s.stageVerifyDone, s.config.StageTimeout},
		{"verify-event", s.stageVerifyEvent, s.config.EventTimeout + s.config.StageTimeout},
		{"verify-fees", s.stageVerifyFees, s.config.StageTimeout},
	}

	for _, stage := range stages {
		stageStart := time.Now()
		stageCtx, cancel := context.WithTimeout(ctx, stage.timeout)
		err := stage.fn(stageCtx, result)
		cancel()
		stageDuration := time.Since(stageStart)
		if err != nil {
			result.AddStage(stage.name, false, stageDuration, err.Error())
			result.AddError(fmt.Sprintf("%s: %v", stage.name, err))
			result.Error = fmt.Sprintf("%s failed: %v", stage.name, err)
			return result, nil
		}
		result.AddStage(stage.name, true, stageDuration, "")
	}

	result.Success = true
	return result, nil
}

// Teardown closes the NATS connection if Setup opened one.
func (s *JourneyScenario) Teardown(ctx context.Context) error {
	if s.nats != nil {
		return s.nats.Close(ctx)
	}
	return nil
}

// stageSeed stores a fresh session under a case number unique to this run,
// so events from earlier runs never match.
func (s *JourneyScenario) stageSeed(ctx context.Context, result *Result) error {
	s.caseID = fmt.Sprintf("%016d", time.Now().UnixNano()%1e16)

	p := s.journey.Petition
	sess := session.New(s.config.UserID, &p)
	sess.CaseID = s.caseID
	sess.DivorceCenter = session.DivorceCenter{
		Name:      "East Midlands Regional Divorce Centre",
		PoBox:     "PO Box 10447",
		CourtCity: "Nottingham",
		PostCode:  "NG2 9QN",
	}
	if err := s.seeder.Put(ctx, sess); err != nil {
		return fmt.Errorf("seed session: %w", err)
	}

	result.SetDetail(DetailCaseID, s.caseID)
	result.SetDetail("session_id", sess.ID)
	return nil
}

// stageRejectEmpty posts nothing to the first page and expects every
// required field to be reported.
func (s *JourneyScenario) stageRejectEmpty(ctx context.Context, result *Result) error {
	if len(s.journey.Pages) == 0 {
		return fmt.Errorf("journey has no pages")
	}
	first := s.journey.Pages[0]

	sub, err := s.http.PostStep(ctx, first.Step, map[string]string{})
	if err != nil {
		return err
	}
	if sub.Invalid == nil {
		return fmt.Errorf("%s accepted empty answers (HTTP %d)", first.Step, sub.Status)
	}
	if len(sub.Invalid.Errors) == 0 {
		return fmt.Errorf("%s rejected empty answers without field errors", first.Step)
	}
	for _, fe := range sub.Invalid.Errors {
		if fe.Text == "" {
			result.AddWarning(fmt.Sprintf("%s: no error text for %s/%s", first.Step, fe.Field, fe.Key))
		}
	}
	result.SetDetail("empty_answer_errors", len(sub.Invalid.Errors))
	return nil
}

// stageWalk renders and answers each page, checking the route taken. The
// pages walked are recorded even when the walk fails, and a wrong turn is
// recorded as the mismatch detail.
func (s *JourneyScenario) stageWalk(ctx context.Context, result *Result) error {
	var visited []string
	defer func() { result.SetDetail(DetailRoute, visited) }()

	for _, page := range s.journey.Pages {
		rc, err := s.http.GetStep(ctx, page.Step, s.config.Locale)
		if err != nil {
			return err
		}
		if rc.Step != page.Step {
			return fmt.Errorf("rendered %s, expected %s", rc.Step, page.Step)
		}
		if rc.Text["title"] == "" {
			result.AddWarning(fmt.Sprintf("%s rendered without a title", page.Step))
		}

		sub, err := s.http.PostStep(ctx, page.Step, page.Fields)
		if err != nil {
			return err
		}
		if sub.Invalid != nil {
			return fmt.Errorf("%s rejected answers: %+v", page.Step, sub.Invalid.Errors)
		}
		if sub.Next != page.Next {
			result.SetDetail(DetailMismatch, Mismatch{Step: page.Step, Got: sub.Next, Want: page.Next})
			return fmt.Errorf("%s routed to %s, expected %s", page.Step, sub.Next, page.Next)
		}
		if sub.Location != sub.Path {
			return fmt.Errorf("%s redirected to %q but reported path %q", page.Step, sub.Location, sub.Path)
		}
		if sub.RecordID != "" {
			result.SetDetail(DetailRecordID, sub.RecordID)
		}
		visited = append(visited, page.Step)
	}

	if _, ok := result.GetDetailString(DetailRecordID); !ok {
		return fmt.Errorf("journey finished without a case record")
	}
	return nil
}

// stageVerifyDone checks the closing page reflects the response.
func (s *JourneyScenario) stageVerifyDone(ctx context.Context, result *Result) error {
	rc, err := s.http.GetStep(ctx, "Done", s.config.Locale)
	if err != nil {
		return err
	}
	for _, key := range s.journey.DoneKeys {
		if !slices.Contains(rc.Keys, key) {
			return fmt.Errorf("done page missing %s (keys: %v)", key, rc.Keys)
		}
	}
	if want := s.journey.Petition.CaseReference; want != "" && rc.Values["caseReference"] != want {
		return fmt.Errorf("done page case reference %q, expected %q", rc.Values["caseReference"], want)
	}
	result.SetDetail("done_keys", len(rc.Keys))
	return nil
}

// stageVerifyEvent waits for the submission event of this run's case.
func (s *JourneyScenario) stageVerifyEvent(ctx context.Context, result *Result) error {
	ev, err := s.watcher.WaitForSubmitted(ctx, s.caseID, s.config.EventTimeout)
	if err != nil {
		return err
	}
	if ev.Response != s.journey.Response {
		return fmt.Errorf("submitted response %q, expected %q", ev.Response, s.journey.Response)
	}
	if ev.Reason != string(s.journey.Petition.ReasonForDivorce) {
		return fmt.Errorf("submitted reason %q, expected %q", ev.Reason, s.journey.Petition.ReasonForDivorce)
	}
	if rec, _ := result.GetDetailString(DetailRecordID); ev.RecordID != rec {
		return fmt.Errorf("event record %s, expected %s", ev.RecordID, rec)
	}
	result.SetDetail("respDefendsDivorce", ev.Flags.RespDefendsDivorce)
	return nil
}

// stageVerifyFees checks the mock fee service was consulted.
func (s *JourneyScenario) stageVerifyFees(ctx context.Context, result *Result) error {
	if s.mockFee == nil {
		return nil
	}
	stats, err := s.mockFee.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get fee stats: %w", err)
	}
	if stats.TotalCalls == 0 {
		return fmt.Errorf("no fee lookups reached the fee service")
	}
	result.SetDetail("fee_calls", stats.TotalCalls)
	return nil
}

// Journeys returns the built-in journeys.
func Journeys() []Journey {
	behaviour := petition.Petition{
		CaseReference:                    "LV17D80102",
		ReasonForDivorce:                 petition.ReasonBehaviour,
		ReasonForDivorceBehaviourDetails: petition.StringList{"My wife is lazy"},
		IssueDate:                        "2006-02-02T00:00:00.000Z",
		MarriageDate:                     "2001-02-02T00:00:00.000Z",
		PetitionerFirstName:              "John",
		PetitionerLastName:               "Smith",
		RespondentFirstName:              "Jane",
		RespondentLastName:               "Jamed",
		RespEmailAddress:                 "jane@example.com",
		JurisdictionConnection:           petition.NewCodes("A", "C"),
		ClaimsCosts:                      petition.Yes,
	}

	separation5 := behaviour
	separation5.ReasonForDivorce = petition.ReasonSeparation5Years
	separation5.ReasonForDivorceBehaviourDetails = nil
	separation5.ReasonForDivorceLivingApartDate = "2010-01-01T00:00:00.000Z"
	separation5.ClaimsCosts = petition.No

	adultery := behaviour
	adultery.ReasonForDivorce = petition.ReasonAdultery
	adultery.ReasonForDivorceBehaviourDetails = nil
	adultery.ReasonForDivorceAdulteryDetails = "Details of the adultery"
	adultery.ClaimsCosts = petition.No

	separation2 := behaviour
	separation2.ReasonForDivorce = petition.ReasonSeparation2Years
	separation2.ReasonForDivorceBehaviourDetails = nil
	separation2.ReasonForDivorceLivingApartDate = "2015-01-01T00:00:00.000Z"
	separation2.ClaimsCosts = petition.No

	review := Page{Step: "ReviewApplication", Fields: map[string]string{"respConfirmReadPetition": petition.Yes}, Next: "LanguagePreference"}
	language := func(next string) Page {
		return Page{Step: "LanguagePreference", Fields: map[string]string{"languagePreferenceWelsh": petition.No}, Next: next}
	}
	caseDetails := func(costs bool) []Page {
		legal := Page{Step: "LegalProceedings", Fields: map[string]string{"legalProceedingsExist": petition.No}, Next: "ContactDetails"}
		pages := []Page{
			{Step: "Jurisdiction", Fields: map[string]string{"jurisdictionAgree": petition.Yes}, Next: "LegalProceedings"},
		}
		if costs {
			legal.Next = "AgreeToPayCosts"
			pages = append(pages, legal,
				Page{Step: "AgreeToPayCosts", Fields: map[string]string{"respAgreeToCosts": petition.Yes}, Next: "ContactDetails"})
		} else {
			pages = append(pages, legal)
		}
		return append(pages,
			Page{Step: "ContactDetails", Fields: map[string]string{"respConsentToEmail": petition.Yes}, Next: "CheckYourAnswers"},
			Page{Step: "CheckYourAnswers", Fields: map[string]string{"respStatementOfTruth": petition.Yes}, Next: "Done"},
		)
	}
	journey := func(pages ...[]Page) []Page {
		return slices.Concat(pages...)
	}

	return []Journey{
		{
			Name:        "behaviour-proceed",
			Description: "Behaviour petition, respondent proceeds and agrees to pay costs",
			Petition:    behaviour,
			Pages: journey(
				[]Page{review, language("ChooseAResponse"),
					{Step: "ChooseAResponse", Fields: map[string]string{"response": "proceed"}, Next: "Jurisdiction"}},
				caseDetails(true),
			),
			Response: "proceed",
			DoneKeys: []string{"notDefendedHeading", "notDefendedText1"},
		},
		{
			Name:        "behaviour-defend",
			Description: "Behaviour petition, respondent defends and confirms the defence",
			Petition:    behaviour,
			Pages: journey(
				[]Page{review, language("ChooseAResponse"),
					{Step: "ChooseAResponse", Fields: map[string]string{"response": "defend"}, Next: "ConfirmDefence"},
					{Step: "ConfirmDefence", Fields: map[string]string{"response": "confirm"}, Next: "Jurisdiction"}},
				caseDetails(true),
			),
			Response: "defend",
			DoneKeys: []string{"defendedHeading", "defendedText1"},
		},
		{
			Name:        "separation-5-years",
			Description: "Five-year separation, respondent proceeds without a financial review",
			Petition:    separation5,
			Pages: journey(
				[]Page{review, language("ChooseAResponse"),
					{Step: "ChooseAResponse", Fields: map[string]string{"response": "proceed"}, Next: "FinancialSituation"},
					{Step: "FinancialSituation", Fields: map[string]string{"respConsiderFinancialSituation": petition.No}, Next: "Jurisdiction"}},
				caseDetails(false),
			),
			Response: "proceed",
			DoneKeys: []string{"notDefendedHeading", "notDefendedText1"},
		},
		{
			Name:        "adultery-not-admitted",
			Description: "Adultery petition, respondent does not admit it but does not defend",
			Petition:    adultery,
			Pages: journey(
				[]Page{review, language("AdmitAdultery"),
					{Step: "AdmitAdultery", Fields: map[string]string{"response": "doNotAdmit"}, Next: "ChooseAResponse"},
					{Step: "ChooseAResponse", Fields: map[string]string{"response": "proceed"}, Next: "Jurisdiction"}},
				caseDetails(false),
			),
			Response: "proceed",
			DoneKeys: []string{"notDefendedHeading", "notDefendedAdultery1"},
		},
		{
			Name:        "separation-2-years-consent",
			Description: "Two-year separation, respondent consents to the decree",
			Petition:    separation2,
			Pages: journey(
				[]Page{review, language("ConsentDecree"),
					{Step: "ConsentDecree", Fields: map[string]string{"consentDecree": petition.Yes}, Next: "Jurisdiction"}},
				caseDetails(false),
			),
			Response: "consent",
			DoneKeys: []string{"notDefendedHeading", "notDefendedText1"},
		},
	}
}
