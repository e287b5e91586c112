package dto

type VerifyTwoFactorRequest struct {
	UserID string `json:"userId"`
	Type   string `json:"type"` // "email" | "totp"
	Data   string `json:"data"` // the submitted code
	// Challenge is the opaque token handed out with a pending login. When
	// empty the call is a setup confirmation, not a login completion.
	Challenge string `json:"token,omitempty"`
}

type TwoFactorRequest struct {
	Type string `json:"type"`
	// UserID targets another account; admin only.
	UserID string `json:"userId,omitempty"`
}

// TwoFactorProvision is returned from a TOTP enable so the caller can show
// the secret and provisioning URI. Empty for email OTP.
type TwoFactorProvision struct {
	Secret string `json:"secret,omitempty"`
	URI    string `json:"uri,omitempty"`
}
