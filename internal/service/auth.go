package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/treatment-companion/internal/apperror"
	"github.com/sakif/treatment-companion/internal/auth"
	"github.com/sakif/treatment-companion/internal/model"
	"github.com/sakif/treatment-companion/internal/repository"
)

// MaxAge is the upper bound accepted for a profile's age.
const MaxAge = 130

// AuthService owns the user account: the login upsert, the health profile
// and bearer token issuing.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Login creates the user on first sign-in and refreshes the provider-owned
// fields on later ones. The provider's subject is the user id. Claims the
// provider left empty do not erase stored values.
func (s *AuthService) Login(ctx context.Context, identity *auth.Identity) (*model.User, error) {
	if identity == nil || identity.Subject == "" {
		return nil, errors.New("service/auth: identity has no subject")
	}

	user := &model.User{
		ID:              identity.Subject,
		Email:           optional(identity.Email),
		FirstName:       optional(identity.FirstName),
		LastName:        optional(identity.LastName),
		ProfileImageURL: optional(identity.ProfileImageURL),
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user %s: %w", identity.Subject, err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return user, nil
}

// GetUser returns the caller's account.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// ProfileUpdate is the caller-editable part of a user. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Age        *int
	Gender     *string
	CancerType *string
	Phone      *string
}

// UpdateProfile applies the set fields of upd to the caller's account
// through the upsert path and returns the stored result.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	if upd.Age != nil && (*upd.Age < 0 || *upd.Age > MaxAge) {
		return nil, apperror.ValidationFailed("age", fmt.Sprintf("age must be between 0 and %d", MaxAge))
	}

	// The row must already exist; a profile edit never creates an account.
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}

	user := &model.User{
		ID:         userID,
		FirstName:  trimmed(upd.FirstName),
		LastName:   trimmed(upd.LastName),
		Age:        upd.Age,
		Gender:     trimmed(upd.Gender),
		CancerType: trimmed(upd.CancerType),
		Phone:      trimmed(upd.Phone),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating profile %s: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	return user, nil
}

// IssueToken signs a bearer token for an existing user.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (string, time.Time, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return "", time.Time{}, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}

	token, expiresAt, err := s.tokens.Generate(userID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service/auth: generating token for user %s: %w", userID, err)
	}

	s.logger.Info("bearer token issued",
		slog.String("userID", userID),
		slog.Time("expiresAt", expiresAt),
	)
	return token, expiresAt, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// trimmed treats a blank field like an absent one, as symptom notes do, so
// an empty string is never stored.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(strings.TrimSpace(*s))
}
