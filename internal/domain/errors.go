package domain

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountNotActive     = errors.New("account not active")
	ErrAccountNotFound      = errors.New("account not found")
	ErrSecondFactorRequired = errors.New("second factor required")
	ErrFactorNotEnabled     = errors.New("second factor not enabled")
	ErrInvalidSecondFactor  = errors.New("invalid or expired code")
	ErrChallengeMismatch    = errors.New("unknown login challenge")
	ErrForbidden            = errors.New("forbidden")
	ErrProjectNotFound      = errors.New("project not found")
	ErrRateLimited          = errors.New("rate limited")
)
