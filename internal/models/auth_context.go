package models

// AuthContext is the resolved identity of the current request, produced once
// by the auth middleware and passed by value into services. Role and display
// name are re-read from the users table on every request, so a promotion
// takes effect without re-login.
type AuthContext struct {
	UserID      string   `json:"userId"`
	Role        UserRole `json:"role"`
	DisplayName string   `json:"displayName"`
}

func (a AuthContext) IsAdmin() bool {
	return a.Role == UserRoleAdmin
}
