package models

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// ValidRole reports whether role can be assigned at registration.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleViewer
}
