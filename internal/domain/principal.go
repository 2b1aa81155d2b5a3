package domain

// Principal is the resolved identity of an authenticated caller. It is
// derived per request from a bearer credential and never persisted; only the
// derived Role influences cache keys.
type Principal struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Role is derived per request: Authenticated when a principal resolved,
// Guest otherwise. Exactly these two values exist.
type Role string

const (
	// RoleGuest is the default role for requests without a valid credential.
	RoleGuest Role = "guest"
	// RoleAuthenticated is the role of requests carrying a valid credential.
	RoleAuthenticated Role = "auth"
)

// RoleOf maps an optional principal to its role.
func RoleOf(p *Principal) Role {
	if p == nil {
		return RoleGuest
	}
	return RoleAuthenticated
}
