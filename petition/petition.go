// Package petition models the divorce petition a respondent is answering.
// The petition is supplied by the case service and is read-only for the
// duration of the journey.
package petition

import "strings"

// Yes and No are the literal answer values used throughout petition and
// session data.
const (
	Yes = "Yes"
	No  = "No"
)

// Reason is the fact the petitioner relies on for the divorce.
type Reason string

const (
	ReasonAdultery         Reason = "adultery"
	ReasonBehaviour        Reason = "unreasonable-behaviour"
	ReasonSeparation2Years Reason = "separation-2-years"
	ReasonSeparation5Years Reason = "separation-5-years"
	ReasonDesertion        Reason = "desertion"
)

// Parties named in claimsCostsFrom and financialOrderFor.
const (
	PartyRespondent   = "respondent"
	PartyCoRespondent = "correspondent"
	PartyPetitioner   = "petitioner"
	PartyChildren     = "children"
)

// Confidentiality value under which the petitioner's address may be shown.
const ContactDetailsShare = "share"

// Address is a postal address as captured by the petition.
type Address struct {
	Address  StringList `json:"address,omitempty"`
	Postcode string     `json:"postcode,omitempty"`
}

// Lines returns the non-empty address lines, postcode last.
func (a *Address) Lines() []string {
	if a == nil {
		return nil
	}
	lines := make([]string, 0, len(a.Address)+1)
	for _, l := range a.Address {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if a.Postcode != "" {
		lines = append(lines, a.Postcode)
	}
	return lines
}

// Petition is the original petition record held in the session under
// originalPetition.
type Petition struct {
	CaseReference string `json:"caseReference,omitempty"`
	DivorceWho    string `json:"divorceWho,omitempty"`

	ReasonForDivorce                 Reason `json:"reasonForDivorce,omitempty"`
	ReasonForDivorceClaimingAdultery bool   `json:"reasonForDivorceClaimingAdultery,omitempty"`

	JurisdictionConnection          Codes  `json:"jurisdictionConnection,omitempty"`
	NewLegalConnectionPolicy        string `json:"newLegalConnectionPolicy,omitempty"`
	JurisdictionConnectionNewPolicy Codes  `json:"jurisdictionConnectionNewPolicy,omitempty"`

	IssueDate                       string `json:"issueDate,omitempty"`
	MarriageDate                    string `json:"marriageDate,omitempty"`
	MarriagePlaceOfMarriage         string `json:"marriagePlaceOfMarriage,omitempty"`
	PreviousCaseID                  string `json:"previousCaseId,omitempty"`
	PreviousIssueDate               string `json:"previousIssueDate,omitempty"`
	ReasonForDivorceDecisionDate    string `json:"reasonForDivorceDecisionDate,omitempty"`
	ReasonForDivorceLivingApartDate string `json:"reasonForDivorceLivingApartDate,omitempty"`

	ClaimsCosts       string     `json:"claimsCosts,omitempty"`
	ClaimsCostsFrom   StringList `json:"claimsCostsFrom,omitempty"`
	FinancialOrder    string     `json:"financialOrder,omitempty"`
	FinancialOrderFor StringList `json:"financialOrderFor,omitempty"`

	PetitionerFirstName                  string   `json:"petitionerFirstName,omitempty"`
	PetitionerLastName                   string   `json:"petitionerLastName,omitempty"`
	RespondentFirstName                  string   `json:"respondentFirstName,omitempty"`
	RespondentLastName                   string   `json:"respondentLastName,omitempty"`
	PetitionerContactDetailsConfidential string   `json:"petitionerContactDetailsConfidential,omitempty"`
	PetitionerCorrespondenceAddress      *Address `json:"petitionerCorrespondenceAddress,omitempty"`
	RespEmailAddress                     string   `json:"respEmailAddress,omitempty"`

	ReasonForDivorceAdulteryWishToName            string     `json:"reasonForDivorceAdulteryWishToName,omitempty"`
	ReasonForDivorceAdulteryKnowWhere             string     `json:"reasonForDivorceAdulteryKnowWhere,omitempty"`
	ReasonForDivorceAdulteryKnowWhen              string     `json:"reasonForDivorceAdulteryKnowWhen,omitempty"`
	ReasonForDivorceAdulteryDetails               string     `json:"reasonForDivorceAdulteryDetails,omitempty"`
	ReasonForDivorceAdulteryWhereDetails          string     `json:"reasonForDivorceAdulteryWhereDetails,omitempty"`
	ReasonForDivorceAdulteryWhenDetails           string     `json:"reasonForDivorceAdulteryWhenDetails,omitempty"`
	ReasonForDivorceAdulterySecondHandInfo        string     `json:"reasonForDivorceAdulterySecondHandInfo,omitempty"`
	ReasonForDivorceAdulterySecondHandInfoDetails string     `json:"reasonForDivorceAdulterySecondHandInfoDetails,omitempty"`
	ReasonForDivorceAdultery3rdPartyFirstName     string     `json:"reasonForDivorceAdultery3rdPartyFirstName,omitempty"`
	ReasonForDivorceAdultery3rdPartyLastName      string     `json:"reasonForDivorceAdultery3rdPartyLastName,omitempty"`
	ReasonForDivorceAdultery3rdAddress            StringList `json:"reasonForDivorceAdultery3rdAddress,omitempty"`

	ReasonForDivorceBehaviourDetails StringList `json:"reasonForDivorceBehaviourDetails,omitempty"`
	ReasonForDivorceDesertionDetails string     `json:"reasonForDivorceDesertionDetails,omitempty"`
	ReasonForDivorceDesertionAgreed  string     `json:"reasonForDivorceDesertionAgreed,omitempty"`

	LegalProceedings        string `json:"legalProceedings,omitempty"`
	LegalProceedingsDetails string `json:"legalProceedingsDetails,omitempty"`

	LanguagePreferenceWelsh string `json:"languagePreferenceWelsh,omitempty"`
}

// IsYes reports whether an answer field holds the literal Yes.
func IsYes(v string) bool {
	return v == Yes
}

// ClaimsCostsFromRespondent reports whether a costs claim names the
// respondent. An empty claimsCostsFrom defaults to the respondent.
func (p *Petition) ClaimsCostsFromRespondent() bool {
	return len(p.ClaimsCostsFrom) == 0 || p.ClaimsCostsFrom.Contains(PartyRespondent)
}

// ClaimsCostsFromCoRespondent reports whether a costs claim names the
// co-respondent.
func (p *Petition) ClaimsCostsFromCoRespondent() bool {
	return p.ClaimsCostsFrom.Contains(PartyCoRespondent)
}

// UsesNewLegalConnectionPolicy reports whether the case was issued after the
// jurisdiction policy change and must be described with the new wording.
func (p *Petition) UsesNewLegalConnectionPolicy() bool {
	return IsYes(p.NewLegalConnectionPolicy)
}

// Jurisdiction returns the connection codes that apply to the case under
// whichever policy the petition was issued with.
func (p *Petition) Jurisdiction() Codes {
	if p.UsesNewLegalConnectionPolicy() {
		return p.JurisdictionConnectionNewPolicy
	}
	return p.JurisdictionConnection
}
