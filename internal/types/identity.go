// README: Caller identity shared by transport, session cache and upstream client.
package types

// ID identifies a platform user (the backend's user id as a string).
type ID string

// Identity is the already-authenticated caller of a chat turn.
type Identity struct {
	ID       ID
	Username string
	Role     string
	// Token is the raw bearer token, forwarded to the backend on refresh.
	Token string
}

// RoleOrDefault returns the caller role, "regular" when none was decoded.
func (i Identity) RoleOrDefault() string {
	if i.Role == "" {
		return "regular"
	}
	return i.Role
}
