package auth

import (
	"time"

	"claimflow/request"
)

type Role string

const (
	RoleStudent           Role = "student"
	RoleCoordinator       Role = "campus_coordinator"
	RoleStationManager    Role = "station_manager"
	RoleAirportSpecialist Role = "airport_specialist"
	RolePoliceCustodian   Role = "police_evidence_custodian"
)

// ApprovalRole maps an account role onto the approval-chain role it may act
// as. Callers use this to authorize before invoking engine operations.
func (r Role) ApprovalRole() (request.Role, bool) {
	switch r {
	case RoleStudent:
		return request.RoleStudent, true
	case RoleCoordinator:
		return request.RoleCampusCoordinator, true
	case RoleStationManager:
		return request.RoleStationManager, true
	case RoleAirportSpecialist:
		return request.RoleAirportLostFound, true
	case RolePoliceCustodian:
		return request.RolePoliceEvidenceCustod, true
	default:
		return "", false
	}
}

// User is the domain representation of an authenticated user.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Enterprise   request.EnterpriseType
	TrustScore   int
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Email      string                 `json:"email"`
	Password   string                 `json:"password"`
	FullName   string                 `json:"full_name"`
	Role       Role                   `json:"role"`
	Enterprise request.EnterpriseType `json:"enterprise"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
