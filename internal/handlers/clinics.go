package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ultrasound-portal-server/internal/models"
	"ultrasound-portal-server/internal/utils"
)

// ClinicHandler handles clinic management requests (admin operations).
type ClinicHandler struct {
	DB *gorm.DB
}

// NewClinicHandler creates a new ClinicHandler.
func NewClinicHandler(db *gorm.DB) *ClinicHandler {
	return &ClinicHandler{DB: db}
}

// CreateClinicRequest represents the request body for registering a clinic.
// The password seeds the clinic's operator account.
type CreateClinicRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address" binding:"required"`
	City     string `json:"city" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

// CreateClinic registers a clinic together with its operator account in one
// transaction. Duplicate emails are rejected before anything is written.
func (h *ClinicHandler) CreateClinic(c *gin.Context) {
	var req CreateClinicRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existingClinic models.Clinic
	if err := h.DB.Where("email = ?", req.Email).First(&existingClinic).Error; err == nil {
		utils.BadRequest(c, "A clinic with this email already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "An account with this email already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		Email: req.Email,
		Role:  models.RoleClinic,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	clinic := models.Clinic{
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		Email:   req.Email,
	}
	if req.Phone != "" {
		clinic.Phone = &req.Phone
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		clinic.UserID = &user.ID
		return tx.Create(&clinic).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create clinic: "+err.Error())
		return
	}

	utils.Created(c, "Clinic registered successfully", clinic)
}

// GetClinics lists all clinics, most recently created first. An optional
// ?search= filters case-insensitively over name, city, and email.
func (h *ClinicHandler) GetClinics(c *gin.Context) {
	query := h.DB.Model(&models.Clinic{}).Order("created_at DESC")

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(city) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var clinics []models.Clinic
	if err := query.Find(&clinics).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch clinics: "+err.Error())
		return
	}

	utils.Success(c, "Clinics fetched successfully", clinics)
}

// GetClinicByID fetches a single clinic.
func (h *ClinicHandler) GetClinicByID(c *gin.Context) {
	clinicID := c.Param("id")

	var clinic models.Clinic
	if err := h.DB.First(&clinic, "id = ?", clinicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Clinic not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Clinic fetched successfully", clinic)
}

// UpdateClinicRequest represents the request body for updating a clinic.
// The login email is immutable; it identifies the operator account.
type UpdateClinicRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
}

// UpdateClinic updates a clinic's contact fields.
func (h *ClinicHandler) UpdateClinic(c *gin.Context) {
	clinicID := c.Param("id")

	var req UpdateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var clinic models.Clinic
	if err := h.DB.First(&clinic, "id = ?", clinicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Clinic not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Name != "" {
		clinic.Name = req.Name
	}
	if req.Address != "" {
		clinic.Address = req.Address
	}
	if req.City != "" {
		clinic.City = req.City
	}
	if req.Phone != "" {
		clinic.Phone = &req.Phone
	}

	if err := h.DB.Save(&clinic).Error; err != nil {
		utils.InternalServerError(c, "Failed to update clinic: "+err.Error())
		return
	}

	utils.Success(c, "Clinic updated successfully", clinic)
}

// DeleteClinic removes a clinic, cascading over its patients, their videos,
// the operator account, and any live sessions, all in one transaction.
func (h *ClinicHandler) DeleteClinic(c *gin.Context) {
	clinicID := c.Param("id")

	var clinic models.Clinic
	if err := h.DB.First(&clinic, "id = ?", clinicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Clinic not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		patientIDs := tx.Model(&models.Patient{}).Select("id").Where("clinic_id = ?", clinic.ID)
		if err := tx.Where("patient_id IN (?)", patientIDs).Delete(&models.Video{}).Error; err != nil {
			return err
		}
		if err := tx.Where("clinic_id = ?", clinic.ID).Delete(&models.Patient{}).Error; err != nil {
			return err
		}
		if clinic.UserID != nil {
			if err := tx.Where("user_id = ?", *clinic.UserID).Delete(&models.RefreshToken{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id = ?", *clinic.UserID).Delete(&models.User{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&clinic).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete clinic: "+err.Error())
		return
	}

	utils.Success(c, "Clinic deleted successfully", nil)
}

// ClinicStats is one row of the admin dashboard clinic overview.
type ClinicStats struct {
	Clinic       models.Clinic `json:"clinic"`
	PatientCount int64         `json:"patientCount"`
}

// GetClinicStats returns every clinic with its patient count.
func (h *ClinicHandler) GetClinicStats(c *gin.Context) {
	var clinics []models.Clinic
	if err := h.DB.Order("created_at DESC").Find(&clinics).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch clinics: "+err.Error())
		return
	}

	stats := make([]ClinicStats, 0, len(clinics))
	for _, clinic := range clinics {
		var count int64
		if err := h.DB.Model(&models.Patient{}).Where("clinic_id = ?", clinic.ID).Count(&count).Error; err != nil {
			utils.InternalServerError(c, "Failed to count patients: "+err.Error())
			return
		}
		stats = append(stats, ClinicStats{Clinic: clinic, PatientCount: count})
	}

	utils.Success(c, "Clinic stats fetched successfully", stats)
}
