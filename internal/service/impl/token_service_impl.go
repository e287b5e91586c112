package impl

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"atelier/internal/domain"
	"atelier/internal/dto"
)

const sessionLifetime = 7 * 24 * time.Hour

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type TokenConfig struct {
	Issuer     string
	SigningKey []byte // HS256 secret, required
}

// TokenServiceImpl mints and validates stateless session tokens. There is no
// session table and no revocation: a token is good until its expiry.
type TokenServiceImpl struct {
	cfg    TokenConfig
	parser *jwt.Parser
	now    func() time.Time
}

func NewTokenServiceHS256(cfg TokenConfig) *TokenServiceImpl {
	return &TokenServiceImpl{
		cfg:    cfg,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		now:    time.Now,
	}
}

func (t *TokenServiceImpl) Issue(account *domain.Account) (string, error) {
	if len(t.cfg.SigningKey) == 0 {
		return "", errors.New("signing key not configured")
	}
	now := t.now().UTC()
	claims := dto.SessionClaims{
		UserID:  account.ID.String(),
		Email:   account.Email,
		IsAdmin: account.IsAdmin(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.cfg.SigningKey)
}

func (t *TokenServiceImpl) Validate(tokenStr string) (*dto.SessionClaims, error) {
	claims := &dto.SessionClaims{}
	tok, err := t.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
