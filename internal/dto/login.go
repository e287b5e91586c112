package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is shared by Login and VerifyTwoFactor. Either Requires2FA is
// true and Method/Challenge identify the pending step, or Token/Role carry a
// completed login.
type LoginResult struct {
	Requires2FA bool   `json:"requires2FA,omitempty"`
	Method      string `json:"method,omitempty"`
	Challenge   string `json:"challenge,omitempty"`

	Token  string `json:"token,omitempty"`
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

type LogoutRequest struct {
	Timestamp string `json:"timestamp"`
	IP        string `json:"ip"`
	Success   bool   `json:"success"`
	// UserID lets an administrator mark another account's session as
	// logged out. Empty means the caller's own account.
	UserID string `json:"userId,omitempty"`
}
