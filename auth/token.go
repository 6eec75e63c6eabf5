// Package auth supplies credentials for the remote TaskFlow API.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
)

// Static is a fixed token, typically loaded from the environment. An
// empty value means requests go out unauthenticated.
type Static string

func (s Static) Token(context.Context) (string, error) { return string(s), nil }

// NewStatic wraps a fixed token, logging a warning when the token is a
// JWT that has already expired. Tokens are attached regardless; the
// server is the authority on validity.
func NewStatic(token string, logger *log.Logger) Static {
	if logger != nil && token != "" {
		warnIfExpired(token, logger)
	}
	return Static(token)
}

func warnIfExpired(token string, logger *log.Logger) {
	// DRF-style opaque keys have no dots; only JWTs carry inspectable claims.
	if strings.Count(token, ".") != 2 {
		return
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		logger.WithField("expired_at", claims.ExpiresAt.Time).Warn("configured token is expired")
	}
}

// LoginFunc exchanges credentials for a token (see client.Login).
type LoginFunc func(ctx context.Context, username, password string) (string, error)

// Session obtains a token by logging in on first use and caches it for
// the life of the process.
type Session struct {
	mu       sync.Mutex
	login    LoginFunc
	username string
	password string
	token    string
	logger   *log.Logger
}

func NewSession(login LoginFunc, username, password string, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Session{login: login, username: username, password: password, logger: logger}
}

func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	token, err := s.login(ctx, s.username, s.password)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	s.logger.WithField("username", s.username).Debug("session established")
	s.token = token
	return token, nil
}

// Reset drops the cached token so the next call logs in again.
func (s *Session) Reset() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
