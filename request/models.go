package request

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the work-request variants. Exactly one payload field on
// WorkRequest is non-nil for a given kind.
type Kind string

const (
	KindItemClaim            Kind = "ITEM_CLAIM"
	KindCrossCampusTransfer  Kind = "CROSS_CAMPUS_TRANSFER"
	KindTransitToUniversity  Kind = "TRANSIT_TO_UNIVERSITY"
	KindAirportToUniversity  Kind = "AIRPORT_TO_UNIVERSITY"
	KindMBTAAirportEmergency Kind = "MBTA_AIRPORT_EMERGENCY"
	KindPoliceEvidence       Kind = "POLICE_EVIDENCE"
	KindDispute              Kind = "DISPUTE"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// IsTerminal reports whether no further approver action is possible.
// APPROVED is deliberately not terminal: an external fulfillment step
// converts it to COMPLETED.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// Role identifies an accountable approver role in a chain.
type Role string

const (
	RoleStudent              Role = "STUDENT"
	RoleCampusCoordinator    Role = "CAMPUS_COORDINATOR"
	RoleStationManager       Role = "STATION_MANAGER"
	RoleMBTAStationManager   Role = "MBTA_STATION_MANAGER"
	RoleAirportLostFound     Role = "AIRPORT_LOST_FOUND_SPECIALIST"
	RoleAirportSpecialist    Role = "AIRPORT_SPECIALIST"
	RolePoliceEvidenceCustod Role = "POLICE_EVIDENCE_CUSTODIAN"
)

// EnterpriseType classifies the organization holding or receiving an item.
type EnterpriseType string

const (
	EnterpriseHigherEducation EnterpriseType = "HIGHER_EDUCATION"
	EnterprisePublicTransit   EnterpriseType = "PUBLIC_TRANSIT"
	EnterpriseAirport         EnterpriseType = "AIRPORT"
	EnterpriseLawEnforcement  EnterpriseType = "LAW_ENFORCEMENT"
)

// HighValueThresholdUSD is the declared value above which a claim requires
// police verification.
const HighValueThresholdUSD = 500.0

// StolenDBOutcome records the result of checking identifiers against the
// stolen-property database.
type StolenDBOutcome string

const (
	StolenDBClear       StolenDBOutcome = "CLEAR"
	StolenDBFlagged     StolenDBOutcome = "FLAGGED"
	StolenDBUnavailable StolenDBOutcome = "UNAVAILABLE"
)

// WorkRequest is the aggregate shared by every request variant. The chain is
// resolved once at creation; ApprovalStep is the 0-indexed cursor into it and
// always equals len(ApproverIDs).
type WorkRequest struct {
	ID                  string         `json:"id"`
	Kind                Kind           `json:"kind"`
	Status              Status         `json:"status"`
	Priority            Priority       `json:"priority"`
	RequesterID         string         `json:"requester_id"`
	RequesterName       string         `json:"requester_name"`
	RequesterEnterprise EnterpriseType `json:"requester_enterprise"`
	TargetEnterprise    EnterpriseType `json:"target_enterprise,omitempty"`
	Chain               []Role         `json:"chain"`
	ApprovalStep        int            `json:"approval_step"`
	ApproverIDs         []string       `json:"approver_ids"`
	ApproverNames       []string       `json:"approver_names"`
	Notes               []string       `json:"notes"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`

	Claim    *ClaimDetails    `json:"claim,omitempty"`
	Transfer *TransferDetails `json:"transfer,omitempty"`
	Handoff  *HandoffDetails  `json:"handoff,omitempty"`
	Evidence *EvidenceDetails `json:"evidence,omitempty"`
	Dispute  *DisputeRef      `json:"dispute,omitempty"`
}

// ClaimDetails is the payload of an item-claim request.
type ClaimDetails struct {
	ItemID              string         `json:"item_id"`
	ItemName            string         `json:"item_name"`
	ItemValue           float64        `json:"item_value"`
	Category            string         `json:"category"`
	Narrative           string         `json:"narrative"`
	IdentifyingFeatures string         `json:"identifying_features"`
	HoldingEnterprise   EnterpriseType `json:"holding_enterprise,omitempty"`
}

// TransferDetails is the payload of a cross-campus transfer request.
type TransferDetails struct {
	ItemID             string `json:"item_id"`
	SourceCampus       string `json:"source_campus"`
	DestinationCampus  string `json:"destination_campus"`
	SourceCoordinator  string `json:"source_coordinator_id"`
	DestCoordinator    string `json:"dest_coordinator_id"`
	DestinationRole    Role   `json:"destination_role"`
	RecipientStudentID string `json:"recipient_student_id"`
}

// HandoffDetails is shared by the fixed-chain custody handoff variants
// (transit to university, airport to university, MBTA to airport emergency).
type HandoffDetails struct {
	ItemID              string   `json:"item_id"`
	OriginFacility      string   `json:"origin_facility"`
	DestinationFacility string   `json:"destination_facility"`
	CourierID           string   `json:"courier_id"`
	LocationTrail       []string `json:"location_trail"`
	Delivered           bool     `json:"delivered"`
}

// EvidenceDetails is the payload of a police-evidence request.
type EvidenceDetails struct {
	ItemID       string          `json:"item_id"`
	SerialNumber string          `json:"serial_number"`
	IMEI         string          `json:"imei,omitempty"`
	StolenDB     StolenDBOutcome `json:"stolen_db_outcome"`
	CaseNumber   string          `json:"case_number"`
}

// DisputeRef links a dispute-resolution request to the dispute aggregate it
// administratively gates. The aggregate itself lives in the dispute package.
type DisputeRef struct {
	DisputeID    string   `json:"dispute_id"`
	ItemID       string   `json:"item_id"`
	ClaimantIDs  []string `json:"claimant_ids"`
	PanelSize    int      `json:"panel_size"`
	VotesNeeded  int      `json:"votes_needed"`
	DisputeNotes string   `json:"dispute_notes,omitempty"`
}

// Validate checks the variant-specific preconditions. A request that fails
// here must never reach the chain resolver or the lifecycle operations.
func (w *WorkRequest) Validate() error {
	if w.RequesterID == "" {
		return fmt.Errorf("%w: missing requester id", ErrInvalidRequest)
	}
	switch w.Kind {
	case KindItemClaim:
		if w.Claim == nil {
			return fmt.Errorf("%w: item claim payload missing", ErrInvalidRequest)
		}
		if w.Claim.ItemID == "" {
			return fmt.Errorf("%w: item claim requires item id", ErrInvalidRequest)
		}
		if strings.TrimSpace(w.Claim.Narrative) == "" {
			return fmt.Errorf("%w: item claim requires a narrative", ErrInvalidRequest)
		}
		if w.Claim.ItemValue < 0 {
			return fmt.Errorf("%w: negative item value", ErrInvalidRequest)
		}
	case KindCrossCampusTransfer:
		if w.Transfer == nil {
			return fmt.Errorf("%w: transfer payload missing", ErrInvalidRequest)
		}
		if w.Transfer.SourceCampus == "" || w.Transfer.DestinationCampus == "" {
			return fmt.Errorf("%w: transfer requires source and destination campuses", ErrInvalidRequest)
		}
		if w.Transfer.ItemID == "" {
			return fmt.Errorf("%w: transfer requires item id", ErrInvalidRequest)
		}
	case KindTransitToUniversity, KindAirportToUniversity, KindMBTAAirportEmergency:
		if w.Handoff == nil {
			return fmt.Errorf("%w: handoff payload missing", ErrInvalidRequest)
		}
		if w.Handoff.ItemID == "" {
			return fmt.Errorf("%w: handoff requires item id", ErrInvalidRequest)
		}
		if w.Handoff.OriginFacility == "" || w.Handoff.DestinationFacility == "" {
			return fmt.Errorf("%w: handoff requires origin and destination facilities", ErrInvalidRequest)
		}
		if w.Kind == KindMBTAAirportEmergency && w.Priority != PriorityUrgent {
			return fmt.Errorf("%w: emergency handoff must be urgent", ErrInvalidRequest)
		}
	case KindPoliceEvidence:
		if w.Evidence == nil {
			return fmt.Errorf("%w: evidence payload missing", ErrInvalidRequest)
		}
		if w.Evidence.SerialNumber == "" && w.Evidence.IMEI == "" {
			return fmt.Errorf("%w: evidence requires a serial number or IMEI", ErrInvalidRequest)
		}
	case KindDispute:
		if w.Dispute == nil {
			return fmt.Errorf("%w: dispute payload missing", ErrInvalidRequest)
		}
		if len(w.Dispute.ClaimantIDs) < 2 {
			return fmt.Errorf("%w: dispute requires at least two claimants", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown request kind %q", ErrInvalidRequest, w.Kind)
	}
	return nil
}

// AppendNote records free-text context. Notes stay writable after the
// request reaches a terminal status; nothing else does.
func (w *WorkRequest) AppendNote(note string, now time.Time) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	w.Notes = append(w.Notes, note)
	w.UpdatedAt = now
}
