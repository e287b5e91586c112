package impl

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier compares presented secrets against stored ones and decides
// when a stored secret needs the one-time legacy migration. Stored values are
// either bcrypt hashes or, for accounts imported from the old site, plaintext
// that gets re-hashed on the first successful login.
type PasswordVerifier struct {
	cost int
}

func NewPasswordVerifier() *PasswordVerifier {
	return &PasswordVerifier{cost: bcrypt.DefaultCost}
}

func (p *PasswordVerifier) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), p.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether the presented secret matches the stored one, and
// whether the stored value is legacy plaintext that should be migrated now.
func (p *PasswordVerifier) Verify(presented, stored string) (ok, migrate bool) {
	if presented == "" || stored == "" {
		return false, false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil, false
	}
	// Legacy plaintext. Constant-time compare, then migrate on match.
	ok = subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
	return ok, ok
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
