package service

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rag_server/server/chat/domain"
	commonauth "rag_server/server/common/auth"
)

type SeedUser struct {
	Email    string
	Name     string
	Password string
}

type seededUser struct {
	user         domain.User
	passwordHash []byte
}

// AuthService resolves identities against a directory seeded at startup.
// The directory is read-only after construction.
type AuthService struct {
	tokens *commonauth.Service
	users  map[string]seededUser
}

func NewAuthService(tokens *commonauth.Service, seeds []SeedUser) (*AuthService, error) {
	users := make(map[string]seededUser, len(seeds))
	for _, seed := range seeds {
		email := strings.ToLower(strings.TrimSpace(seed.Email))
		if email == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		users[email] = seededUser{
			user: domain.User{
				ID:       uuid.NewString(),
				Email:    email,
				Name:     seed.Name,
				IsActive: true,
			},
			passwordHash: hash,
		}
	}
	return &AuthService{tokens: tokens, users: users}, nil
}

func (s *AuthService) Login(email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	seeded, ok := s.users[email]
	if !ok || !seeded.user.IsActive {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(seeded.passwordHash, []byte(password)); err != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := s.tokens.GenerateToken(seeded.user.ID, seeded.user.Email, seeded.user.Name)
	if err != nil {
		return domain.User{}, "", err
	}
	return seeded.user, token, nil
}

// GuestLogin issues a fresh anonymous identity so unauthenticated callers
// can still own the sessions they create.
func (s *AuthService) GuestLogin() (domain.User, string, error) {
	user := domain.User{
		ID:       uuid.NewString(),
		Name:     "Guest",
		IsActive: true,
	}
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}
