package steps

import (
	"strings"

	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"golang.org/x/net/html"
)

// ReviewApplication shows the petition back to the respondent and asks them
// to confirm they have read it.
type ReviewApplication struct {
	journey.Base
}

// NewReviewApplication creates the step.
func NewReviewApplication() *ReviewApplication {
	return &ReviewApplication{Base: journey.Base{
		StepName: NameReviewApplication,
		StepPath: "/review-application",
		Fees: []string{
			fees.CodePetitionIssue,
			fees.CodeGeneralApplication,
			fees.CodeFinancialOrder,
		},
	}}
}

func (s *ReviewApplication) Form() journey.Form {
	return journey.NewForm(mustConfirm("respConfirmReadPetition"))
}

func (s *ReviewApplication) Values(journey.Context) (map[string]string, error) {
	return nil, nil
}

// Next asks for a language preference unless the petition already recorded
// a Welsh preference, then offers solicitor representation when enabled.
func (s *ReviewApplication) Next(c journey.Context) (string, error) {
	p := c.Session.Petition()
	switch {
	case !petition.IsYes(p.LanguagePreferenceWelsh):
		return NameLanguagePreference, nil
	case c.Features.SolicitorDetails:
		return NameSolicitorRepresentation, nil
	default:
		return responseStep(p.ReasonForDivorce), nil
	}
}

func (s *ReviewApplication) Answers(c journey.Context, texts journey.Texts) []journey.Answer {
	return []journey.Answer{optionAnswer(NameReviewApplication, "respConfirmReadPetition", c.Fields["respConfirmReadPetition"], texts)}
}

// Content selects the petition text for the respondent to review.
func (s *ReviewApplication) Content(c journey.Context) journey.Selection {
	return ResolvePetition(c.Session.Petition(), c.Fees)
}

// ResolvePetition selects the petition fragments and values. It reads the
// petition only; missing fields fall through to the default variant of
// each block.
func ResolvePetition(p *petition.Petition, annotations fees.Annotations) journey.Selection {
	var sel journey.Selection
	sel.Add("title", "caseReferenceHeading", "issueDateHeading", "parties", "marriage")

	setText(&sel, "caseReference", p.CaseReference)
	sel.Set("issueDate", petition.FormatDate(p.IssueDate))
	sel.Set("marriageDate", petition.FormatDate(p.MarriageDate))
	setText(&sel, "petitionerFirstName", p.PetitionerFirstName)
	setText(&sel, "petitionerLastName", p.PetitionerLastName)
	setText(&sel, "respondentFirstName", p.RespondentFirstName)
	setText(&sel, "respondentLastName", p.RespondentLastName)
	setText(&sel, "divorceWho", p.DivorceWho)

	if p.MarriagePlaceOfMarriage != "" {
		sel.Add("whereTheMarriage")
		setText(&sel, "marriagePlaceOfMarriage", p.MarriagePlaceOfMarriage)
	}

	resolveAmendCase(&sel, p)
	sel.Add("jurisdiction")
	resolveJurisdiction(&sel, p)
	resolveLegalProceedings(&sel, p)
	resolveReason(&sel, p)
	resolveCostsIntro(&sel, p)
	resolveCostOrders(&sel, p)
	resolveFinancialOrders(&sel, p)
	resolveAddresses(&sel, p)

	sel.Set("petitionIssueFee", annotations.Amount(fees.CodePetitionIssue))
	sel.Set("generalApplicationFee", annotations.Amount(fees.CodeGeneralApplication))
	sel.Set("financialOrderFee", annotations.Amount(fees.CodeFinancialOrder))

	sel.Add("feesNote", "readConfirmationQuestion", "readConfirmationYes")
	return sel
}

func resolveAmendCase(sel *journey.Selection, p *petition.Petition) {
	if p.PreviousCaseID == "" {
		return
	}
	sel.Add("amendAppDetails")
	sel.Set("previousIssueDate", petition.FormatDate(p.PreviousIssueDate))
	sel.Set("issueDate", petition.FormatDate(p.IssueDate))
}

var oldPolicyConnections = map[string]string{
	"A": "jurisdictionConnectionBothResident",
	"B": "jurisdictionConnectionOneResides",
	"C": "jurisdictionConnectionRespondent",
	"D": "jurisdictionConnectionPetitioner",
	"E": "jurisdictionConnectionPetitionerSixMonths",
	"F": "jurisdictionConnectionBothDomiciled",
}

var newPolicyConnections = map[string]string{
	"A": "jurisdictionConnectionBothResident",
	"B": "jurisdictionConnectionOneResides",
	"C": "jurisdictionConnectionRespondent",
	"D": "jurisdictionConnectionPetitioner",
	"E": "jurisdictionConnectionPetitionerSixMonths",
	"F": "jurisdictionConnectionBothDomiciled",
	"G": "jurisdictionConnectionPetDomiciled",
	"H": "jurisdictionConnectionResDomiciled",
	"I": "jurisdictionConnectionNewPolicyOther",
}

// JurisdictionKeys maps each connection code to its fragment, under the
// wording of the policy the petition was issued with. Codes with no wording
// of their own use the policy's residual fragment.
func JurisdictionKeys(p *petition.Petition) []string {
	table, other := oldPolicyConnections, "jurisdictionConnectionOther"
	if p.UsesNewLegalConnectionPolicy() {
		table, other = newPolicyConnections, "jurisdictionConnectionNewPolicyOther"
	}

	var keys []string
	seen := make(map[string]bool)
	for _, code := range p.Jurisdiction().Sorted() {
		key, ok := table[code]
		if !ok {
			key = other
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

func resolveJurisdiction(sel *journey.Selection, p *petition.Petition) {
	sel.Add(JurisdictionKeys(p)...)
}

func resolveLegalProceedings(sel *journey.Selection, p *petition.Petition) {
	if p.LegalProceedings == petition.No {
		sel.Add("onGoingCasesNo")
		return
	}
	sel.Add("onGoingCasesYes")
	setText(sel, "legalProceedingsDetails", p.LegalProceedingsDetails)
}

func resolveReason(sel *journey.Selection, p *petition.Petition) {
	switch p.ReasonForDivorce {
	case petition.ReasonAdultery:
		resolveAdultery(sel, p)

	case petition.ReasonBehaviour:
		sel.Add(
			"reasonForDivorceUnreasonableBehaviourBrokenDown",
			"reasonForDivorceUnreasonableBehaviourStatement",
			"descriptionOfBehaviour",
		)
		sel.Set("reasonForDivorceBehaviourDetails", strings.Join(AlignSections(p.ReasonForDivorceBehaviourDetails), "\n"))

	case petition.ReasonSeparation2Years:
		sel.Add(
			"reasonForDivorceSeparationTwoYearsBrokenDown",
			"reasonForDivorceSeparationTwoYears",
			"reasonForDivorceSeparationTwoYears2DatesRecent",
		)
		setSeparationDates(sel, p)

	case petition.ReasonSeparation5Years:
		sel.Add("reasonForDivorceSeparationFiveYearsBrokenDown")
		if p.ReasonForDivorceDecisionDate != "" && p.ReasonForDivorceLivingApartDate != "" {
			sel.Add("reasonForDivorceSeparationFiveYearsOver", "reasonForDivorceSeparationFiveYearsLvingApart")
		} else {
			sel.Add("reasonForDivorceSeparationFiveYears")
		}
		sel.Add("reasonForDivorceSeparationFiveYears2DatesRecent")
		setSeparationDates(sel, p)

	case petition.ReasonDesertion:
		sel.Add(
			"reasonForDivorceDesertionBrokenDown",
			"reasonForDivorceDesertion",
			"reasonForDivorceDesertionStatement",
			"descriptionOfDesertion",
		)
		sel.AddIf(petition.IsYes(p.ReasonForDivorceDesertionAgreed), "reasonForDivorceDesertionAgreed")
		setText(sel, "reasonForDivorceDesertionDetails", p.ReasonForDivorceDesertionDetails)
	}
}

func setSeparationDates(sel *journey.Selection, p *petition.Petition) {
	sel.Set("reasonForDivorceDecisionDate", petition.FormatDate(p.ReasonForDivorceDecisionDate))
	sel.Set("reasonForDivorceLivingApartDate", petition.FormatDate(p.ReasonForDivorceLivingApartDate))
}

func resolveAdultery(sel *journey.Selection, p *petition.Petition) {
	named := petition.IsYes(p.ReasonForDivorceAdulteryWishToName)
	if named {
		sel.Add("reasonForDivorceAdulteryCorrespondentNamed", "coRespondent", "coRespRoleExplain")
		setText(sel, "coRespondentFirstName", p.ReasonForDivorceAdultery3rdPartyFirstName)
		setText(sel, "coRespondentLastName", p.ReasonForDivorceAdultery3rdPartyLastName)
	} else {
		sel.Add("reasonForDivorceAdulteryCorrespondentNotNamed")
	}

	if petition.IsYes(p.ReasonForDivorceAdulteryKnowWhere) {
		sel.Add("reasonForDivorceAdulteryWhere")
		setText(sel, "reasonForDivorceAdulteryWhereDetails", p.ReasonForDivorceAdulteryWhereDetails)
	}
	if petition.IsYes(p.ReasonForDivorceAdulteryKnowWhen) {
		sel.Add("reasonForDivorceAdulteryWhen")
		setText(sel, "reasonForDivorceAdulteryWhenDetails", p.ReasonForDivorceAdulteryWhenDetails)
	}

	sel.Add("reasonForDivorceAdulteryStatement", "descriptionOfAdultery")
	setText(sel, "reasonForDivorceAdulteryDetails", p.ReasonForDivorceAdulteryDetails)

	details := strings.TrimSpace(p.ReasonForDivorceAdulterySecondHandInfoDetails)
	if petition.IsYes(p.ReasonForDivorceAdulterySecondHandInfo) && details != "" {
		sel.Add("statementOfSecondHandInformationAboutAdultery")
		sel.Set("reasonForDivorceAdulterySecondHandInfoDetails", html.EscapeString(`"`+details+`"`))
	}
}

// resolveCostsIntro picks the opening sentence about what the petitioner
// is asking the court to order.
func resolveCostsIntro(sel *journey.Selection, p *petition.Petition) {
	costs := petition.IsYes(p.ClaimsCosts)
	financial := petition.IsYes(p.FinancialOrder)
	fromRespondent := p.ClaimsCostsFrom.Contains(petition.PartyRespondent)
	fromCoRespondent := p.ClaimsCostsFrom.Contains(petition.PartyCoRespondent)

	switch {
	case costs && financial:
		switch {
		case fromRespondent && fromCoRespondent:
			sel.Add("costsPetitionerPayedByRespondentAndCorrespondent")
		case fromCoRespondent:
			sel.Add("costsPetitionerPayedByCorrespondent")
		default:
			sel.Add("costsPetitionerPayedByRespondent")
		}
	case costs:
		switch {
		case fromRespondent && fromCoRespondent:
			sel.Add("costsPetitionerDivorceCostsByRespondentAndCorespondent")
		case fromCoRespondent:
			sel.Add("costsPetitionerDivorceCostsByCorespondent")
		default:
			sel.Add("costsPetitionerDivorceCostsByRespondent")
		}
	case financial:
		sel.Add("costsPetitionerDivorceCostsByFinancialOrder")
	default:
		sel.Add("costsPetitionerDivorceNoCosts")
	}
}

func resolveCostOrders(sel *journey.Selection, p *petition.Petition) {
	if !petition.IsYes(p.ClaimsCosts) {
		sel.Add("notClaimingForDivorce")
		return
	}
	fromRespondent := p.ClaimsCostsFrom.Contains(petition.PartyRespondent)
	fromCoRespondent := p.ClaimsCostsFrom.Contains(petition.PartyCoRespondent)
	switch {
	case fromRespondent && fromCoRespondent:
		sel.Add("claimingCostsFromRespondentCoRespondent")
	case fromCoRespondent:
		sel.Add("claimingCostsFromCoRespondent")
	default:
		sel.Add("claimingCostsFromRespondent")
	}
}

func resolveFinancialOrders(sel *journey.Selection, p *petition.Petition) {
	if !petition.IsYes(p.FinancialOrder) {
		sel.Add("financialOrdersNone")
		return
	}
	children := p.FinancialOrderFor.Contains(petition.PartyChildren)
	petitioner := p.FinancialOrderFor.Contains(petition.PartyPetitioner)
	switch {
	case children && petitioner:
		sel.Add("financialOrdersPropertyMoneyPensionsChildren")
	case children:
		sel.Add("financialOrdersChildren")
	default:
		sel.Add("financialOrdersPropertyMoneyPensions")
	}
}

func resolveAddresses(sel *journey.Selection, p *petition.Petition) {
	if p.PetitionerContactDetailsConfidential == petition.ContactDetailsShare {
		sel.Add("petitionerCorrespondenceAddressHeading", "applicantsCorrespondenceAddress")
		sel.Set("petitionerCorrespondenceAddress", joinLines(p.PetitionerCorrespondenceAddress.Lines()))
	}
	if len(p.ReasonForDivorceAdultery3rdAddress) > 0 {
		sel.Add("coRespondentsCorrespondenceAddress")
		sel.Set("coRespondentAddress", joinLines(p.ReasonForDivorceAdultery3rdAddress))
	}
}

// AlignSections rebuilds the paragraph breaks of free text that was stored as
// a flat list of lines. A trailing carriage return marks a line that ends a
// paragraph; every other line except the last is followed by a line break.
// The marker is removed, lines left empty are dropped and the text is HTML
// escaped.
func AlignSections(lines []string) []string {
	type line struct {
		text   string
		marked bool
	}
	kept := make([]line, 0, len(lines))
	for _, l := range lines {
		marked := strings.HasSuffix(l, "\r")
		text := strings.TrimSuffix(l, "\r")
		if text == "" {
			continue
		}
		kept = append(kept, line{text: text, marked: marked})
	}

	out := make([]string, 0, len(kept))
	for i, l := range kept {
		s := html.EscapeString(l.text)
		if !l.marked && i < len(kept)-1 {
			s += "<br>"
		}
		out = append(out, s)
	}
	return out
}

func setText(sel *journey.Selection, name, value string) {
	if value == "" {
		return
	}
	sel.Set(name, html.EscapeString(value))
}

func joinLines(lines []string) string {
	escaped := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			escaped = append(escaped, html.EscapeString(l))
		}
	}
	return strings.Join(escaped, "<br>")
}
