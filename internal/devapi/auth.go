package devapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/admin-console/internal/crypto"
	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/limiter"
	"github.com/and161185/admin-console/internal/model"
)

// Account is an operator allowed to sign in.
type Account struct {
	ID    int64
	Email string
	Role  model.RoleType
	Cred  crypto.Credential
}

// Auth checks credentials and issues HS256 access tokens.
type Auth struct {
	params    crypto.Params
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time

	mu       sync.RWMutex
	accounts map[string]*Account
	nextID   int64
}

// NewAuth constructs Auth.
func NewAuth(params crypto.Params, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *Auth {
	return &Auth{
		params:    params,
		signKey:   signKey,
		accessTTL: accessTTL,
		lim:       lim,
		now:       time.Now,
		accounts:  map[string]*Account{},
	}
}

// Register adds an account with a freshly salted password hash.
func (a *Auth) Register(email, password string, role model.RoleType) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return 0, errors.New("empty email/password")
	}
	cred, err := a.params.NewCredential(password)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.accounts[email]; exists {
		return 0, errs.ErrAlreadyExists
	}
	a.nextID++
	a.accounts[email] = &Account{ID: a.nextID, Email: email, Role: role, Cred: cred}
	return a.nextID, nil
}

// LoginWithIP authenticates with rate limiting by (email, ip) and returns a
// signed token and its lifetime.
func (a *Auth) LoginWithIP(ctx context.Context, email, password, ip string) (string, time.Duration, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ipHash := limiter.HashIP(ip)

	allowed, _, err := a.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return "", 0, err
	}
	if !allowed {
		return "", 0, errs.ErrRateLimited
	}

	a.mu.RLock()
	acc, ok := a.accounts[email]
	a.mu.RUnlock()

	if !ok || !a.params.Verify(acc.Cred, password) {
		if blocked, _, ferr := a.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return "", 0, errs.ErrRateLimited
		}
		// unknown account and wrong password look the same
		return "", 0, errs.ErrUnauthorized
	}

	_ = a.lim.Success(ctx, email, ipHash)

	tok, err := a.issueAccessToken(acc.ID)
	if err != nil {
		return "", 0, err
	}
	return tok, a.accessTTL, nil
}

func (a *Auth) issueAccessToken(accountID int64) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(accountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signKey)
}

// Account returns the account with id.
func (a *Auth) Account(id int64) (Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, acc := range a.accounts {
		if acc.ID == id {
			return *acc, nil
		}
	}
	return Account{}, errs.ErrNotFound
}

// Verify checks signature and expiry and returns the account ID.
func (a *Auth) Verify(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return a.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return id, nil
}
