package dispute

import (
	"time"

	"claimflow/request"
)

// ResolutionStatus is the lifecycle of a multi-claimant dispute. UNDER_REVIEW
// is entered automatically once the panel vote count reaches the required
// quorum; RESOLVED and ESCALATED are the two possible outcomes of tallying.
type ResolutionStatus string

const (
	StatusPending     ResolutionStatus = "PENDING"
	StatusUnderReview ResolutionStatus = "UNDER_REVIEW"
	StatusResolved    ResolutionStatus = "RESOLVED"
	StatusEscalated   ResolutionStatus = "ESCALATED"
)

// Decision records how the outcome was reached.
type Decision string

const (
	DecisionAwarded        Decision = "AWARDED"
	DecisionManual         Decision = "MANUAL"
	DecisionPoliceFindings Decision = "POLICE_FINDINGS"
)

// ClaimStatus tracks one claimant's standing inside the dispute.
type ClaimStatus string

const (
	ClaimSubmitted ClaimStatus = "SUBMITTED"
	ClaimVerified  ClaimStatus = "VERIFIED"
	ClaimRejected  ClaimStatus = "REJECTED"
)

// EvidenceKind classifies a submitted piece of evidence.
type EvidenceKind string

const (
	EvidenceReceipt EvidenceKind = "RECEIPT"
	EvidencePhoto   EvidenceKind = "PHOTO"
	EvidenceSerial  EvidenceKind = "SERIAL"
	EvidenceWitness EvidenceKind = "WITNESS"
)

// EvidenceOutcome is the verifier's verdict on one evidence item.
type EvidenceOutcome string

const (
	EvidencePendingReview EvidenceOutcome = "PENDING"
	EvidenceValid         EvidenceOutcome = "VALID"
	EvidenceInvalid       EvidenceOutcome = "INVALID"
	EvidenceInconclusive  EvidenceOutcome = "INCONCLUSIVE"
)

// DefaultPanelVotesRequired is the quorum used when the caller does not set
// one explicitly.
const DefaultPanelVotesRequired = 3

// Claimant is owned exclusively by its dispute; it is never shared between
// aggregates.
type Claimant struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Name        string                 `json:"name"`
	Enterprise  request.EnterpriseType `json:"enterprise"`
	TrustScore  int                    `json:"trust_score"`
	Narrative   string                 `json:"narrative"`
	ProofSum    string                 `json:"proof_summary"`
	EvidenceIDs []string               `json:"evidence_ids"`
	Status      ClaimStatus            `json:"status"`
	AddedAt     time.Time              `json:"added_at"`
}

// PanelMember is one seat on the voting panel. A member votes at most once;
// a re-vote replaces the prior choice without inflating the vote count.
type PanelMember struct {
	ID                 string                 `json:"id"`
	UserID             string                 `json:"user_id"`
	Name               string                 `json:"name"`
	Role               request.Role           `json:"role"`
	Enterprise         request.EnterpriseType `json:"enterprise"`
	HasVoted           bool                   `json:"has_voted"`
	VotedForClaimantID string                 `json:"voted_for_claimant_id,omitempty"`
	Rationale          string                 `json:"rationale,omitempty"`
	VotedAt            *time.Time             `json:"voted_at,omitempty"`
}

// EvidenceItem is a verifiable artifact submitted in support of (optionally)
// one claimant.
type EvidenceItem struct {
	ID          string          `json:"id"`
	SubmitterID string          `json:"submitter_id"`
	Kind        EvidenceKind    `json:"kind"`
	Description string          `json:"description"`
	ClaimantID  string          `json:"claimant_id,omitempty"`
	Outcome     EvidenceOutcome `json:"outcome"`
	VerifierID  string          `json:"verifier_id,omitempty"`
	VerifiedAt  *time.Time      `json:"verified_at,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Dispute is the aggregate for a multi-enterprise dispute resolution. All
// child records are owned by the dispute and mutated only through the named
// engine operations; Version backs the optimistic-concurrency guard at the
// persistence boundary.
type Dispute struct {
	ID                  string                   `json:"id"`
	RequestID           string                   `json:"request_id"`
	ItemID              string                   `json:"item_id"`
	ResolutionStatus    ResolutionStatus         `json:"resolution_status"`
	PanelVotesRequired  int                      `json:"panel_votes_required"`
	Decision            Decision                 `json:"decision,omitempty"`
	AwardedClaimantID   string                   `json:"awarded_claimant_id,omitempty"`
	Rationale           string                   `json:"rationale,omitempty"`
	PoliceInvolved      bool                     `json:"police_involved"`
	PoliceCaseNotes     string                   `json:"police_case_notes,omitempty"`
	InvolvedEnterprises []request.EnterpriseType `json:"involved_enterprises"`
	Claimants           []Claimant               `json:"claimants"`
	Panel               []PanelMember            `json:"panel"`
	Evidence            []EvidenceItem           `json:"evidence"`
	Version             int                      `json:"version"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
	ResolvedAt          *time.Time               `json:"resolved_at,omitempty"`
}

// VoteCount returns the number of panel members who have voted.
func (d *Dispute) VoteCount() int {
	n := 0
	for _, m := range d.Panel {
		if m.HasVoted {
			n++
		}
	}
	return n
}

// ClaimantByID returns the owned claimant record, or nil.
func (d *Dispute) ClaimantByID(id string) *Claimant {
	for i := range d.Claimants {
		if d.Claimants[i].ID == id {
			return &d.Claimants[i]
		}
	}
	return nil
}

// PanelMemberByUserID returns the seat held by the given user, or nil.
func (d *Dispute) PanelMemberByUserID(userID string) *PanelMember {
	for i := range d.Panel {
		if d.Panel[i].UserID == userID {
			return &d.Panel[i]
		}
	}
	return nil
}

// IsSettled reports whether the dispute has reached a final outcome.
func (d *Dispute) IsSettled() bool {
	return d.ResolutionStatus == StatusResolved
}
