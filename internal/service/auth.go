// Package service contains the console's application services: sign-in,
// list resource definitions and single-record lookups.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/model"
	"github.com/and161185/admin-console/internal/transport"
)

// SignInPath is the credential exchange endpoint.
const SignInPath = "/api/v1/auth/sign-in"

// API is the part of the transport client the services use.
type API interface {
	Send(ctx context.Context, method, path string, query url.Values, body any) (*transport.Response, error)
	SendAnonymous(ctx context.Context, method, path string, query url.Values, body any) (*transport.Response, error)
}

// Sessions is the session store as seen by the auth service.
type Sessions interface {
	IsValid() bool
	Get() (model.Session, bool)
	Set(ctx context.Context, token string, ttl time.Duration) error
	SetUntil(ctx context.Context, token string, expiresAt time.Time) error
	Clear(ctx context.Context) error
}

// AuthService defines the operator's sign-in lifecycle.
type AuthService interface {
	// Login exchanges credentials for a session and persists it.
	Login(ctx context.Context, email, password string) (model.Session, error)
	// Logout forgets the session.
	Logout(ctx context.Context) error
	// IsAuthenticated reports whether a valid session exists now.
	IsAuthenticated() bool
}

type AuthServiceImpl struct {
	api         API
	sessions    Sessions
	fallbackTTL time.Duration
	successCode string
	log         *zap.Logger
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService. fallbackTTL applies when neither the
// response nor the token itself carries an expiry.
func NewAuthService(api API, sessions Sessions, fallbackTTL time.Duration, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{
		api:         api,
		sessions:    sessions,
		fallbackTTL: fallbackTTL,
		successCode: model.CodeSuccess,
		log:         log,
	}
}

// Login signs in with email and password. A 401 here is a rejected credential
// and comes back as *errs.ServerError, not errs.ErrUnauthorized.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.Session{}, errors.New("validation: empty email/password")
	}

	resp, err := s.api.SendAnonymous(ctx, http.MethodPost, SignInPath, nil, model.Credentials{Email: email, Password: password})
	if err != nil {
		return model.Session{}, fmt.Errorf("sign in: %w", err)
	}
	var data model.AuthData
	if err := transport.DecodeEnvelope(resp, s.successCode, &data); err != nil {
		return model.Session{}, fmt.Errorf("sign in: %w", err)
	}
	if data.AccessToken == "" {
		return model.Session{}, errors.New("sign in: empty access token")
	}

	switch {
	case data.AccessTokenExpireTime > 0:
		err = s.sessions.Set(ctx, data.AccessToken, time.Duration(data.AccessTokenExpireTime)*time.Millisecond)
	default:
		if exp, ok := tokenExpiry(data.AccessToken); ok {
			err = s.sessions.SetUntil(ctx, data.AccessToken, exp)
			break
		}
		if s.fallbackTTL <= 0 {
			return model.Session{}, errors.New("sign in: token lifetime unknown")
		}
		s.log.Info("token lifetime not reported, using fallback", zap.Duration("ttl", s.fallbackTTL))
		err = s.sessions.Set(ctx, data.AccessToken, s.fallbackTTL)
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("store session: %w", err)
	}

	sess, _ := s.sessions.Get()
	s.log.Info("signed in", zap.Time("expiresAt", sess.ExpiresAt))
	return sess, nil
}

// Logout clears the session. It never calls the API.
func (s *AuthServiceImpl) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

func (s *AuthServiceImpl) IsAuthenticated() bool { return s.sessions.IsValid() }

// tokenExpiry reads the exp claim without verifying the signature; the console
// never holds the signing key.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
