package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	iauth "github.com/homelearnhq/homelearn/internal/auth"
	"github.com/homelearnhq/homelearn/internal/models"
	"github.com/homelearnhq/homelearn/pkg/crypto"
	apperrors "github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/metrics"
)

// ErrEmailTaken indicates the address is already registered.
var ErrEmailTaken = apperrors.NewConflict("EMAIL_TAKEN", "An account with this email already exists")

// RegisterInput describes the fields accepted at registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      models.Role
}

// LoginResult bundles the issued token with the authenticated user.
type LoginResult struct {
	Token string
	User  *models.User
}

// AuthService handles registration, credential login and OAuth login.
type AuthService struct {
	db            *gorm.DB
	jwt           *iauth.JWTService
	verifications *EmailVerificationService
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, jwt *iauth.JWTService, verifications *EmailVerificationService) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("auth service: jwt service is required")
	}
	return &AuthService{db: db, jwt: jwt, verifications: verifications}, nil
}

// Register provisions a new unverified account and issues a verification token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewBadRequest("role must be STUDENT or TEACHER")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := &models.User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
		Password:  hashed,
		Role:      input.Role,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth service: create user: %w", err)
	}

	if s.verifications != nil {
		if _, _, err := s.verifications.CreateToken(ctx, user); err != nil {
			return nil, fmt.Errorf("auth service: issue verification: %w", err)
		}
	}

	return user, nil
}

// Login checks credentials and returns a signed access token. All failure
// modes collapse into the same error so the endpoint cannot be used to probe
// which addresses exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}

	if user.Password == "" || !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	// An unverified account fails the same way as a bad password so the
	// response never reveals whether the address is registered.
	if !user.VerifiedEmail {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(&user)
	if err != nil {
		return nil, fmt.Errorf("auth service: sign token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &LoginResult{Token: token, User: &user}, nil
}

// VerifyEmail consumes a verification token. Replaying a consumed token for a
// user that is already verified counts as success so email clients that
// prefetch links do not break the flow.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	ctx = ensureContext(ctx)
	if s.verifications == nil {
		return apperrors.ErrNotFound
	}

	_, err := s.verifications.VerifyToken(ctx, token)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVerificationUsed):
		return nil
	case errors.Is(err, ErrVerificationExpired):
		return apperrors.NewConflict("TOKEN_EXPIRED", "This verification link has expired")
	case errors.Is(err, ErrVerificationNotFound):
		return apperrors.ErrNotFound
	default:
		return fmt.Errorf("auth service: verify email: %w", err)
	}
}

// LoginWithGoogle finds or creates the account matching a verified Google
// identity and returns a signed access token. OAuth accounts are created as
// verified students with an empty password.
func (s *AuthService) LoginWithGoogle(ctx context.Context, identity *iauth.GoogleIdentity) (*LoginResult, error) {
	ctx = ensureContext(ctx)
	if identity == nil || identity.Email == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", identity.Email).First(&user).Error
	switch {
	case err == nil:
		if !user.VerifiedEmail {
			// The provider vouched for the address.
			if err := s.db.WithContext(ctx).Model(&user).Update("verified_email", true).Error; err != nil {
				return nil, fmt.Errorf("auth service: mark verified: %w", err)
			}
			user.VerifiedEmail = true
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			FirstName:     identity.GivenName,
			LastName:      identity.FamilyName,
			Email:         identity.Email,
			Role:          models.RoleStudent,
			VerifiedEmail: true,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			if isUniqueConstraintError(err) {
				// Lost a race with a concurrent login for the same address.
				if err := s.db.WithContext(ctx).Where("email = ?", identity.Email).First(&user).Error; err != nil {
					return nil, fmt.Errorf("auth service: reload user: %w", err)
				}
			} else {
				return nil, fmt.Errorf("auth service: create oauth user: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}

	token, err := s.jwt.GenerateAccessToken(&user)
	if err != nil {
		return nil, fmt.Errorf("auth service: sign token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &LoginResult{Token: token, User: &user}, nil
}
