package auth

// Role identifies the caller category carried in the access token.
// The string values are part of the wire contract with the user-admin
// service and must not change.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDoctor      Role = "doctor"
	RoleSecretariat Role = "secretariat"
	RolePatient     Role = "patient"

	// RoleService marks tokens minted for service-to-service calls.
	RoleService Role = "citas-service"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleDoctor, RoleSecretariat, RolePatient, RoleService:
		return Role(s), true
	}
	return "", false
}
