package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrLoginDisabled      = errors.New("auth: вход по паролю не настроен")
	ErrInvalidCredentials = errors.New("auth: неверный email или пароль")
)

// LoginResult описывает токен, выданный администратору.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	AdminID     uuid.UUID `json:"admin_id"`
}

// AdminAuthenticator проверяет пароль единственного администратора из конфигурации.
type AdminAuthenticator struct {
	email        string
	passwordHash []byte
	tokens       *TokenManager
}

func NewAdminAuthenticator(email, passwordHash string, tokens *TokenManager) *AdminAuthenticator {
	return &AdminAuthenticator{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
		tokens:       tokens,
	}
}

func (a *AdminAuthenticator) Enabled() bool {
	return a.email != "" && len(a.passwordHash) > 0
}

// Login сверяет пароль с bcrypt-хешем и выпускает токен с ролью admin.
// ID администратора выводится из email, поэтому он одинаков между входами.
func (a *AdminAuthenticator) Login(email, password string) (*LoginResult, error) {
	if !a.Enabled() {
		return nil, ErrLoginDisabled
	}
	if strings.ToLower(strings.TrimSpace(email)) != a.email {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	adminID := AdminID(a.email)
	token, exp, err := a.tokens.Issue(adminID, RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, ExpiresAt: exp, AdminID: adminID}, nil
}

// AdminID возвращает стабильный ID администратора для email.
func AdminID(email string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email))))
}

// HashPassword готовит значение для ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("auth: пароль не может быть пустым")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: не удалось захешировать пароль: %w", err)
	}
	return string(hash), nil
}
