package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ultrasound-portal-server/internal/config"
	"ultrasound-portal-server/internal/middleware"
	"ultrasound-portal-server/internal/models"
	"ultrasound-portal-server/internal/utils"
)

// ErrSessionInvalid marks an authenticated account that is neither the
// platform admin nor linked to a clinic. Such sessions must not survive.
var ErrSessionInvalid = errors.New("account is neither admin nor a registered clinic")

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

// SessionScope is the resolved role of an authenticated account. Exactly one
// of admin or clinic holds; Clinic is nil for admin sessions.
type SessionScope struct {
	Role   models.Role
	Clinic *models.Clinic
}

// resolveScope turns an authenticated account into a scoped session. The
// admin role is defined by exact match against the reserved admin email; any
// other account must be the linked operator of exactly one clinic. Accounts
// matching neither yield ErrSessionInvalid.
func resolveScope(db *gorm.DB, cfg *config.Config, user *models.User) (*SessionScope, error) {
	if user.Email == cfg.AdminEmail {
		return &SessionScope{Role: models.RoleAdmin}, nil
	}

	var clinic models.Clinic
	if err := db.Where("user_id = ?", user.ID).First(&clinic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return &SessionScope{Role: models.RoleClinic, Clinic: &clinic}, nil
}

// revokeAllTokens force-signs-out an account by revoking every refresh token
// it still holds.
func revokeAllTokens(db *gorm.DB, userID string) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
}

// LoginRequest represents the request body for operator login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
	Role         models.Role          `json:"role"`
	Clinic       *models.Clinic       `json:"clinic,omitempty"`
}

// Login handles operator login. Credentials are checked first; the account
// is then resolved to an admin or clinic scope. An account resolving to
// neither is force-signed-out and rejected.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	scope, err := resolveScope(h.DB, h.Cfg, &user)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			// Forced sign-out: an authenticated but unscoped account may not
			// keep any live session.
			if revokeErr := revokeAllTokens(h.DB, user.ID); revokeErr != nil {
				utils.InternalServerError(c, "Failed to terminate session: "+revokeErr.Error())
				return
			}
			utils.Unauthorized(c, "Account is not linked to any clinic")
			return
		}
		utils.InternalServerError(c, "Failed to resolve account role: "+err.Error())
		return
	}

	clinicID := ""
	if scope.Clinic != nil {
		clinicID = scope.Clinic.ID
	}

	accessToken, refreshTokenString, err := utils.GenerateTokens(&user, scope.Role, clinicID, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate tokens: "+err.Error())
		return
	}

	// Store refresh token in DB
	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to store refresh token: "+err.Error())
		return
	}

	// Set refresh token as HTTP-only cookie
	c.SetCookie(
		"refresh_token",
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		User:         user.Sanitize(),
		Role:         scope.Role,
		Clinic:       scope.Clinic,
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token. The account scope is resolved again
// on every refresh, so a clinic deleted since sign-in invalidates the session
// here instead of lingering until token expiry.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// First try to get the refresh token from HTTP-only cookie
	refreshTokenString, err := c.Cookie("refresh_token")

	// If no cookie, fall back to request body
	if err != nil || refreshTokenString == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		refreshTokenString = req.RefreshToken
	}

	claims, err := utils.ValidateToken(refreshTokenString, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token structure or signature: "+err.Error())
		return
	}

	// Check if refresh token is revoked or still valid in DB
	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		refreshTokenString, claims.UserID, false, time.Now()).First(&storedToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.InternalServerError(c, "Database error checking refresh token: "+err.Error())
		}
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.InternalServerError(c, "Failed to find user associated with token: "+err.Error())
		return
	}

	scope, err := resolveScope(h.DB, h.Cfg, &user)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			if revokeErr := revokeAllTokens(h.DB, user.ID); revokeErr != nil {
				utils.InternalServerError(c, "Failed to terminate session: "+revokeErr.Error())
				return
			}
			utils.Unauthorized(c, "Account is not linked to any clinic")
			return
		}
		utils.InternalServerError(c, "Failed to resolve account role: "+err.Error())
		return
	}

	clinicID := ""
	if scope.Clinic != nil {
		clinicID = scope.Clinic.ID
	}

	// Refresh token rotation: revoke the old token before issuing new ones.
	storedToken.IsRevoked = true
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
		return
	}

	newAccessToken, newRefreshTokenString, err := utils.GenerateTokens(&user, scope.Role, clinicID, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate new tokens: "+err.Error())
		return
	}

	newRefreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     newRefreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&newRefreshToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to store new refresh token: "+err.Error())
		return
	}

	c.SetCookie(
		"refresh_token",
		newRefreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshTokenString,
	})
}

// LogoutRequest represents the request body for operator logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Logout invalidates the presented refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if req.RefreshToken == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND is_revoked = ?", req.RefreshToken, false).First(&storedToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token not found or already revoked, which is acceptable for logout.
			utils.Success(c, "Logout successful (token not found or already invalid).", nil)
		} else {
			utils.InternalServerError(c, "Database error during logout: "+err.Error())
		}
		return
	}

	storedToken.IsRevoked = true
	storedToken.ExpiresAt = time.Now()
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
		return
	}

	c.SetCookie(
		"refresh_token",
		"",
		-1,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// SessionResponse describes the current operator session.
type SessionResponse struct {
	User   models.UserSanitized `json:"user"`
	Role   models.Role          `json:"role"`
	Clinic *models.Clinic       `json:"clinic,omitempty"`
}

// GetSession returns the resolved scope of the authenticated operator. The
// scope is recomputed here so a stale token cannot report a clinic that no
// longer exists.
func (h *AuthHandler) GetSession(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Account not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	scope, err := resolveScope(h.DB, h.Cfg, &user)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			if revokeErr := revokeAllTokens(h.DB, user.ID); revokeErr != nil {
				utils.InternalServerError(c, "Failed to terminate session: "+revokeErr.Error())
				return
			}
			utils.Unauthorized(c, "Account is not linked to any clinic")
			return
		}
		utils.InternalServerError(c, "Failed to resolve account role: "+err.Error())
		return
	}

	utils.Success(c, "Session fetched successfully", SessionResponse{
		User:   user.Sanitize(),
		Role:   scope.Role,
		Clinic: scope.Clinic,
	})
}
