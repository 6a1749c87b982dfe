package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimRequest(holder EnterpriseType, value float64) *WorkRequest {
	return &WorkRequest{
		Kind:                KindItemClaim,
		RequesterID:         "user-1",
		RequesterEnterprise: EnterpriseHigherEducation,
		Claim: &ClaimDetails{
			ItemID:            "item-1",
			ItemValue:         value,
			Narrative:         "left it on the green line",
			HoldingEnterprise: holder,
		},
	}
}

func TestResolveChain_ItemClaim(t *testing.T) {
	tests := []struct {
		name   string
		holder EnterpriseType
		value  float64
		want   []Role
	}{
		{
			name:   "on campus low value",
			holder: EnterpriseHigherEducation,
			value:  40,
			want:   []Role{RoleCampusCoordinator},
		},
		{
			name:   "holder unset low value",
			holder: "",
			value:  40,
			want:   []Role{RoleCampusCoordinator},
		},
		{
			name:   "transit holder",
			holder: EnterprisePublicTransit,
			value:  40,
			want:   []Role{RoleCampusCoordinator, RoleStationManager},
		},
		{
			name:   "airport holder",
			holder: EnterpriseAirport,
			value:  40,
			want:   []Role{RoleCampusCoordinator, RoleAirportLostFound},
		},
		{
			name:   "police holder",
			holder: EnterpriseLawEnforcement,
			value:  40,
			want:   []Role{RoleCampusCoordinator, RolePoliceEvidenceCustod},
		},
		{
			name:   "high value on campus adds police",
			holder: EnterpriseHigherEducation,
			value:  750,
			want:   []Role{RoleCampusCoordinator, RolePoliceEvidenceCustod},
		},
		{
			name:   "high value transit adds police after station manager",
			holder: EnterprisePublicTransit,
			value:  750,
			want:   []Role{RoleCampusCoordinator, RoleStationManager, RolePoliceEvidenceCustod},
		},
		{
			name:   "high value police holder does not duplicate police",
			holder: EnterpriseLawEnforcement,
			value:  750,
			want:   []Role{RoleCampusCoordinator, RolePoliceEvidenceCustod},
		},
		{
			name:   "threshold is exclusive",
			holder: EnterpriseHigherEducation,
			value:  500,
			want:   []Role{RoleCampusCoordinator},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveChain(claimRequest(tt.holder, tt.value))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveChain_PoliceRoleAppearsOnce(t *testing.T) {
	chain := ResolveChain(claimRequest(EnterpriseLawEnforcement, 9999))
	count := 0
	for _, r := range chain {
		if r == RolePoliceEvidenceCustod {
			count++
		}
	}
	assert.Equal(t, 1, count, "police custodian must appear exactly once")
}

func TestDestinationRole_Precedence(t *testing.T) {
	tests := []struct {
		destination string
		want        Role
	}{
		{"MBTA Transit Hub", RoleMBTAStationManager},
		{"South Station", RoleMBTAStationManager},
		{"Logan Airport Lost & Found", RoleAirportSpecialist},
		{"Boston Police HQ", RolePoliceEvidenceCustod},
		{"Northeastern University", RoleCampusCoordinator},
		// composite names resolve by precedence: transit, airport, police
		{"Police Airport Shuttle", RoleAirportSpecialist},
		{"Airport Transit Connector", RoleMBTAStationManager},
		{"", RoleCampusCoordinator},
	}

	for _, tt := range tests {
		t.Run(tt.destination, func(t *testing.T) {
			assert.Equal(t, tt.want, DestinationRole(tt.destination))
		})
	}
}

func TestResolveChain_CrossCampusTransfer(t *testing.T) {
	w := &WorkRequest{
		Kind: KindCrossCampusTransfer,
		Transfer: &TransferDetails{
			ItemID:            "item-1",
			SourceCampus:      "Northeastern University",
			DestinationCampus: "Logan Airport",
		},
	}
	assert.Equal(t, []Role{RoleCampusCoordinator, RoleAirportSpecialist, RoleStudent}, ResolveChain(w))
}

func TestResolveChain_FixedChains(t *testing.T) {
	tests := []struct {
		kind Kind
		want []Role
	}{
		{KindTransitToUniversity, []Role{RoleStationManager, RoleCampusCoordinator}},
		{KindAirportToUniversity, []Role{RoleAirportLostFound, RoleCampusCoordinator}},
		{KindMBTAAirportEmergency, []Role{RoleStationManager, RoleAirportLostFound}},
		{KindPoliceEvidence, []Role{RolePoliceEvidenceCustod}},
		{KindDispute, []Role{RolePoliceEvidenceCustod}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveChain(&WorkRequest{Kind: tt.kind}))
		})
	}
}

// A request whose Validate passes must never resolve to an empty chain; an
// empty chain would degenerate into immediate approval.
func TestResolveChain_NeverEmptyForValidRequests(t *testing.T) {
	requests := []*WorkRequest{
		claimRequest(EnterpriseHigherEducation, 10),
		{
			Kind:        KindCrossCampusTransfer,
			RequesterID: "user-1",
			Transfer: &TransferDetails{
				ItemID:            "item-1",
				SourceCampus:      "Main Campus",
				DestinationCampus: "Satellite Campus",
			},
		},
		{
			Kind:        KindTransitToUniversity,
			RequesterID: "user-1",
			Handoff: &HandoffDetails{
				ItemID:              "item-1",
				OriginFacility:      "Park Street Station",
				DestinationFacility: "Campus Security Desk",
			},
		},
		{
			Kind:        KindAirportToUniversity,
			RequesterID: "user-1",
			Handoff: &HandoffDetails{
				ItemID:              "item-1",
				OriginFacility:      "Terminal B",
				DestinationFacility: "Campus Security Desk",
			},
		},
		{
			Kind:        KindMBTAAirportEmergency,
			RequesterID: "user-1",
			Priority:    PriorityUrgent,
			Handoff: &HandoffDetails{
				ItemID:              "item-1",
				OriginFacility:      "Airport Station",
				DestinationFacility: "Terminal C",
			},
		},
		{
			Kind:        KindPoliceEvidence,
			RequesterID: "user-1",
			Evidence:    &EvidenceDetails{ItemID: "item-1", SerialNumber: "SN-1"},
		},
		{
			Kind:        KindDispute,
			RequesterID: "user-1",
			Dispute:     &DisputeRef{DisputeID: "d-1", ClaimantIDs: []string{"c1", "c2"}},
		},
	}

	for _, w := range requests {
		require.NoError(t, w.Validate(), "kind %s", w.Kind)
		assert.NotEmpty(t, ResolveChain(w), "kind %s", w.Kind)
	}
}
