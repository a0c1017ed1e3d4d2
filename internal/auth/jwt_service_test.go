package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homelearnhq/homelearn/internal/models"
)

func testUser() *models.User {
	user := &models.User{
		FirstName: "Nadia",
		LastName:  "Benali",
		Email:     "nadia@example.com",
		Role:      models.RoleTeacher,
	}
	user.ID = "3f1c8a52-6c2e-4a5f-9d43-8f2b6f0a1c77"
	return user
}

func TestJWTIssueAndValidate(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "homelearn"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "3f1c8a52-6c2e-4a5f-9d43-8f2b6f0a1c77", claims.UserID)
	require.Equal(t, models.RoleTeacher, claims.Role)
	require.Equal(t, "Nadia Benali", claims.Name)
	require.Equal(t, "nadia@example.com", claims.Subject)
	require.Equal(t, "homelearn", claims.Issuer)
}

func TestJWTExpiry(t *testing.T) {
	current := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "secret-a"})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "secret-b"})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "someone-else"})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "homelearn"})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
}
