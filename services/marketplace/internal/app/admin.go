package app

import (
	"strings"
	"time"

	"elearnhub/pkg/auth"
)

type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login checks the single configured admin account and issues a session
// token.
func (a *App) Login(email, password string) (AdminSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AdminSession{}, ErrInvalidCredentials
	}
	if !strings.EqualFold(email, a.adminEmail) || !auth.CheckPassword(password, a.adminPasswordHash) {
		return AdminSession{}, ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(a.adminEmail)
	if err != nil {
		return AdminSession{}, err
	}
	return AdminSession{Token: token, ExpiresAt: time.Now().Add(a.sessions.TTL()).UTC()}, nil
}

func (a *App) Logout(token string) error {
	return a.sessions.Revoke(token)
}

// AdminSubject validates an admin token and returns its subject.
func (a *App) AdminSubject(token string) (string, error) {
	return a.sessions.Subject(token)
}
