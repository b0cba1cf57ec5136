package services

import (
	"crypto/subtle"
	"errors"
	"strings"

	"listingdesk/internal/domain"
	"listingdesk/internal/repos"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users *repos.UserRepo
	// APIKey is the shared secret for privileged callers. Empty disables it.
	APIKey string
}

func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

// Authorize classifies a caller. A session wins over a key; a key is accepted
// only when it equals the configured secret after trimming both.
func (s *AuthService) Authorize(user *domain.User, key string) domain.Access {
	if user != nil && user.ID != "" {
		return domain.Access{Mode: domain.AccessSession, UserID: user.ID}
	}
	secret := strings.TrimSpace(s.APIKey)
	key = strings.TrimSpace(key)
	if secret != "" && key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(secret)) == 1 {
		return domain.Access{Mode: domain.AccessPrivileged}
	}
	return domain.Access{Mode: domain.AccessUnauthorized}
}
