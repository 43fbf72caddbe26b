package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrTokenBlacklisted = errors.New("token has been revoked")
)

// CustomClaims identify the operator behind a local terminal session. The
// remote credential rides along so the core can call the remote API on the
// operator's behalf; it is empty for sessions opened offline.
type CustomClaims struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	RemoteToken string `json:"rtk,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates local session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu          sync.RWMutex
	blacklisted map[string]time.Time // jti -> expiry
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenManager{
		secret:      []byte(secret),
		ttl:         ttl,
		now:         time.Now,
		blacklisted: make(map[string]time.Time),
	}
}

func (tm *TokenManager) GenerateToken(userID uint, username, role, remoteToken string) (string, error) {
	now := tm.now()
	claims := &CustomClaims{
		UserID:      userID,
		Username:    username,
		Role:        role,
		RemoteToken: remoteToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "pos-terminal",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

func (tm *TokenManager) ParseToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(tm.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if tm.isBlacklisted(claims.ID) {
		return nil, ErrTokenBlacklisted
	}
	return claims, nil
}

// Revoke blacklists the token until it would have expired anyway.
func (tm *TokenManager) Revoke(claims *CustomClaims) {
	expiry := tm.now().Add(tm.ttl)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.blacklisted[claims.ID] = expiry
	// Bersihkan token kadaluarsa
	now := tm.now()
	for id, exp := range tm.blacklisted {
		if now.After(exp) {
			delete(tm.blacklisted, id)
		}
	}
}

func (tm *TokenManager) isBlacklisted(id string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	expiry, exists := tm.blacklisted[id]
	return exists && tm.now().Before(expiry)
}
