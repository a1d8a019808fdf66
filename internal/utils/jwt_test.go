package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultrasound-portal-server/internal/config"
	"ultrasound-portal-server/internal/models"
)

func jwtTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	cfg := jwtTestConfig()
	user := &models.User{Email: "vida@example.com", Role: models.RoleClinic}
	user.ID = "user-1"

	access, refresh, err := GenerateTokens(user, models.RoleClinic, "clinic-1", cfg)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := ValidateToken(access, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleClinic, claims.Role)
	assert.Equal(t, "clinic-1", claims.ClinicID)

	refreshClaims, err := ValidateToken(refresh, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	cfg := jwtTestConfig()
	user := &models.User{Email: "vida@example.com", Role: models.RoleClinic}
	user.ID = "user-1"

	access, _, err := GenerateTokens(user, models.RoleClinic, "clinic-1", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(access, "some-other-secret")
	assert.Error(t, err)
}

func TestAccessTokenNotValidAsRefresh(t *testing.T) {
	cfg := jwtTestConfig()
	user := &models.User{Email: "admin@example.com", Role: models.RoleAdmin}
	user.ID = "user-2"

	access, refresh, err := GenerateTokens(user, models.RoleAdmin, "", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(access, cfg.JWTRefreshSecret)
	assert.Error(t, err)
	_, err = ValidateToken(refresh, cfg.JWTSecret)
	assert.Error(t, err)
}

func TestTokensMintedBackToBackAreDistinct(t *testing.T) {
	cfg := jwtTestConfig()
	user := &models.User{Email: "vida@example.com", Role: models.RoleClinic}
	user.ID = "user-4"

	// Both mints land within the same second; the jti must still keep the
	// token strings apart, or refresh rotation would reinsert the token it
	// just revoked.
	firstAccess, firstRefresh, err := GenerateTokens(user, models.RoleClinic, "clinic-1", cfg)
	require.NoError(t, err)
	secondAccess, secondRefresh, err := GenerateTokens(user, models.RoleClinic, "clinic-1", cfg)
	require.NoError(t, err)

	assert.NotEqual(t, firstAccess, secondAccess)
	assert.NotEqual(t, firstRefresh, secondRefresh)

	claims, err := ValidateToken(firstRefresh, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestClaimsCarryResolvedRoleNotStoredColumn(t *testing.T) {
	cfg := jwtTestConfig()
	// The stored column still says clinic; the session resolved to admin.
	user := &models.User{Email: "admin@example.com", Role: models.RoleClinic}
	user.ID = "user-5"

	access, _, err := GenerateTokens(user, models.RoleAdmin, "", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(access, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAdminClaimsOmitClinicScope(t *testing.T) {
	cfg := jwtTestConfig()
	user := &models.User{Email: "admin@example.com", Role: models.RoleAdmin}
	user.ID = "user-3"

	access, _, err := GenerateTokens(user, models.RoleAdmin, "", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(access, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Empty(t, claims.ClinicID)
}
