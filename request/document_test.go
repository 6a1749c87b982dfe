package request

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The persisted jsonb document is the authoritative representation; every
// model field must survive a marshal/unmarshal cycle bit-for-bit.
func TestDocumentRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	completed := created.Add(26 * time.Hour)

	w := &WorkRequest{
		ID:                  "11111111-2222-3333-4444-555555555555",
		Kind:                KindItemClaim,
		Status:              StatusCompleted,
		Priority:            PriorityHigh,
		RequesterID:         "user-1",
		RequesterName:       "Riley Requester",
		RequesterEnterprise: EnterpriseHigherEducation,
		TargetEnterprise:    EnterprisePublicTransit,
		Chain:               []Role{RoleCampusCoordinator, RoleStationManager},
		ApprovalStep:        2,
		ApproverIDs:         []string{"coord-1", "mgr-1"},
		ApproverNames:       []string{"Casey Coordinator", "Morgan Manager"},
		Notes:               []string{"owner described the sticker on the lid"},
		CreatedAt:           created,
		UpdatedAt:           completed,
		CompletedAt:         &completed,
		Claim: &ClaimDetails{
			ItemID:              "item-1",
			ItemName:            "silver laptop",
			ItemValue:           899.99,
			Category:            "electronics",
			Narrative:           "left on the inbound green line",
			IdentifyingFeatures: "dent near the hinge, hex sticker",
			HoldingEnterprise:   EnterprisePublicTransit,
		},
	}

	doc, err := json.Marshal(w)
	require.NoError(t, err)

	var got WorkRequest
	require.NoError(t, json.Unmarshal(doc, &got))
	require.Equal(t, *w, got)
}

func TestDocumentRoundTrip_DisputeVariant(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	w := &WorkRequest{
		ID:            "66666666-7777-8888-9999-000000000000",
		Kind:          KindDispute,
		Status:        StatusPending,
		Priority:      PriorityHigh,
		RequesterID:   "coord-1",
		Chain:         []Role{RolePoliceEvidenceCustod},
		ApproverIDs:   []string{},
		ApproverNames: []string{},
		Notes:         []string{},
		CreatedAt:     created,
		UpdatedAt:     created,
		Dispute: &DisputeRef{
			DisputeID:   "dispute-1",
			ItemID:      "item-1",
			ClaimantIDs: []string{"claimant-a", "claimant-b"},
			PanelSize:   3,
			VotesNeeded: 3,
		},
	}

	doc, err := json.Marshal(w)
	require.NoError(t, err)

	var got WorkRequest
	require.NoError(t, json.Unmarshal(doc, &got))
	require.Equal(t, *w, got)
}
