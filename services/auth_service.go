package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuthRemote interface {
	Login(ctx context.Context, username, password string) (*RemoteSession, error)
	Me(ctx context.Context, token string) (*RemoteUser, error)
}

type LoginResult struct {
	Token       string     `json:"token"`
	User        RemoteUser `json:"user"`
	Offline     bool       `json:"offline"`
	RemoteToken string     `json:"-"`
}

func (r *LoginResult) Operator() Operator {
	return Operator{UserID: r.User.ID, Username: r.User.Username, Role: r.User.Role, Token: r.RemoteToken}
}

// AuthService opens local terminal sessions. Logins go to the remote when it
// is reachable; otherwise operators who logged in before are checked against
// the cached credential.
type AuthService struct {
	db       *gorm.DB
	remote   AuthRemote
	tokens   *utils.TokenManager
	clock    Clock
	hashCost int
}

func NewAuthService(db *gorm.DB, remote AuthRemote, tokens *utils.TokenManager, clock Clock) *AuthService {
	if clock == nil {
		clock = SystemClock
	}
	return &AuthService{db: db, remote: remote, tokens: tokens, clock: clock, hashCost: bcrypt.DefaultCost}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validationErrorf("username and password are required")
	}

	session, err := s.remote.Login(ctx, username, password)
	if errors.Is(err, ErrTransientNetwork) {
		utils.ErrorLogger.WithError(err).Warn("remote login unavailable; trying offline credentials")
		return s.offlineLogin(ctx, username, password)
	}
	if err != nil {
		return nil, err
	}
	if !session.User.IsActive {
		return nil, fmt.Errorf("%w: account %s is disabled", ErrUnauthorized, username)
	}

	if err := s.cacheCredential(ctx, session.User, password); err != nil {
		// The session is still valid; only offline login is affected.
		utils.ErrorLogger.WithError(err).Error("failed to cache operator credential")
	}

	token, err := s.tokens.GenerateToken(session.User.ID, session.User.Username, session.User.Role, session.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id": session.User.ID,
		"role":    session.User.Role,
	}).Info("operator logged in")
	return &LoginResult{Token: token, User: session.User, RemoteToken: session.Token}, nil
}

func (s *AuthService) cacheCredential(ctx context.Context, user RemoteUser, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return err
	}
	cached := models.User{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: string(hash),
		Role:         user.Role,
		LastLoginAt:  s.clock.Now().UTC(),
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A username may have moved to another remote account.
		if err := tx.Where("username = ? AND id <> ?", user.Username, user.ID).Delete(&models.User{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "email", "password_hash", "role", "last_login_at", "updated_at"}),
		}).Create(&cached).Error
	})
}

func (s *AuthService) offlineLogin(ctx context.Context, username, password string) (*LoginResult, error) {
	var cached models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&cached).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: remote is unreachable and %s has no cached login", ErrUnauthorized, username)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cached.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, err := s.tokens.GenerateToken(cached.ID, cached.Username, cached.Role, "")
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	utils.InfoLogger.WithField("user_id", cached.ID).Info("operator logged in offline")
	return &LoginResult{
		Token: token,
		User: RemoteUser{
			ID:       cached.ID,
			Username: cached.Username,
			Email:    cached.Email,
			Role:     cached.Role,
			IsActive: true,
		},
		Offline: true,
	}, nil
}

func (s *AuthService) Logout(claims *utils.CustomClaims) {
	s.tokens.Revoke(claims)
	utils.InfoLogger.WithField("user_id", claims.UserID).Info("operator logged out")
}

// Me revalidates the session against the remote when the session carries a
// remote credential. While offline the local claims are trusted.
func (s *AuthService) Me(ctx context.Context, claims *utils.CustomClaims) (*RemoteUser, error) {
	local := &RemoteUser{ID: claims.UserID, Username: claims.Username, Role: claims.Role, IsActive: true}
	if claims.RemoteToken == "" {
		return local, nil
	}
	user, err := s.remote.Me(ctx, claims.RemoteToken)
	if errors.Is(err, ErrTransientNetwork) {
		return local, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// OperatorFromClaims maps a verified session to the operator acting at the
// terminal.
func OperatorFromClaims(claims *utils.CustomClaims) Operator {
	return Operator{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Token:    claims.RemoteToken,
	}
}
