package service

import (
	"atelier/internal/domain"
	"atelier/internal/dto"
)

// TokenService mints and checks stateless session tokens. Validation is pure:
// signature plus expiry, no revocation list.
type TokenService interface {
	Issue(account *domain.Account) (string, error)
	Validate(token string) (*dto.SessionClaims, error)
}
