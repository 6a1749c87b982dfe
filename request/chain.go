package request

import "strings"

// externalHolderRole maps the enterprise currently holding a claimed item to
// the role that must countersign release when the holder differs from the
// requester's home enterprise. HIGHER_EDUCATION is intentionally absent: an
// on-campus item needs no external step.
var externalHolderRole = map[EnterpriseType]Role{
	EnterprisePublicTransit:  RoleStationManager,
	EnterpriseAirport:        RoleAirportLostFound,
	EnterpriseLawEnforcement: RolePoliceEvidenceCustod,
}

// ResolveChain computes the ordered roles that must approve the request. It
// is pure with respect to the request's already-set fields and must never
// return an empty chain for a request whose Validate passes.
func ResolveChain(w *WorkRequest) []Role {
	switch w.Kind {
	case KindItemClaim:
		return resolveClaimChain(w)
	case KindCrossCampusTransfer:
		dest := RoleCampusCoordinator
		if w.Transfer != nil {
			dest = DestinationRole(w.Transfer.DestinationCampus)
		}
		return []Role{RoleCampusCoordinator, dest, RoleStudent}
	case KindTransitToUniversity:
		return []Role{RoleStationManager, RoleCampusCoordinator}
	case KindAirportToUniversity:
		return []Role{RoleAirportLostFound, RoleCampusCoordinator}
	case KindMBTAAirportEmergency:
		return []Role{RoleStationManager, RoleAirportLostFound}
	case KindPoliceEvidence:
		return []Role{RolePoliceEvidenceCustod}
	case KindDispute:
		// The chain gates only the administrative creation of the dispute
		// record; resolution belongs to the voting panel.
		return []Role{RolePoliceEvidenceCustod}
	default:
		return nil
	}
}

func resolveClaimChain(w *WorkRequest) []Role {
	chain := []Role{RoleCampusCoordinator}
	if w.Claim == nil {
		return chain
	}
	holder := w.Claim.HoldingEnterprise
	if holder != "" && holder != w.RequesterEnterprise {
		if role, ok := externalHolderRole[holder]; ok {
			chain = append(chain, role)
		}
	}
	if w.Claim.ItemValue > HighValueThresholdUSD && !containsRole(chain, RolePoliceEvidenceCustod) {
		chain = append(chain, RolePoliceEvidenceCustod)
	}
	return chain
}

// DestinationRole infers the approver role at a transfer destination from
// its display name. Precedence is transit, then airport, then police, then
// the default campus coordinator; composite names like "Police Airport
// Shuttle" resolve by that order.
func DestinationRole(destinationName string) Role {
	name := strings.ToLower(destinationName)
	switch {
	case strings.Contains(name, "transit") || strings.Contains(name, "mbta") || strings.Contains(name, "station"):
		return RoleMBTAStationManager
	case strings.Contains(name, "airport"):
		return RoleAirportSpecialist
	case strings.Contains(name, "police"):
		return RolePoliceEvidenceCustod
	default:
		return RoleCampusCoordinator
	}
}

func containsRole(chain []Role, role Role) bool {
	for _, r := range chain {
		if r == role {
			return true
		}
	}
	return false
}
