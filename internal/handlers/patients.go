package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ultrasound-portal-server/internal/config"
	"ultrasound-portal-server/internal/middleware"
	"ultrasound-portal-server/internal/models"
	"ultrasound-portal-server/internal/qr"
	"ultrasound-portal-server/internal/storage"
	"ultrasound-portal-server/internal/token"
	"ultrasound-portal-server/internal/utils"
)

const birthDateLayout = "2006-01-02"

// PatientHandler handles patient management requests.
type PatientHandler struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Store storage.BlobStore // nil when no blob store is configured
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB, cfg *config.Config, store storage.BlobStore) *PatientHandler {
	return &PatientHandler{DB: db, Cfg: cfg, Store: store}
}

// sessionClinicID returns the clinic scope the caller may operate in. For
// admin sessions the requested id (possibly empty, meaning "all") is allowed;
// clinic sessions are pinned to their own clinic.
func sessionClinicID(c *gin.Context, requested string) (string, bool) {
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		return "", false
	}
	if role == models.RoleAdmin {
		return requested, true
	}

	own, ok := middleware.GetClinicIDFromContext(c)
	if !ok || own == "" {
		return "", false
	}
	if requested != "" && requested != own {
		return "", false
	}
	return own, true
}

// loadScopedPatient fetches a patient and enforces that the caller's clinic
// scope covers it. Admin sessions cover every patient.
func loadScopedPatient(c *gin.Context, db *gorm.DB, patientID string) (*models.Patient, bool) {
	var patient models.Patient
	if err := db.First(&patient, "id = ?", patientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}

	scope, ok := sessionClinicID(c, patient.ClinicID)
	if !ok || (scope != "" && scope != patient.ClinicID) {
		utils.Forbidden(c, "You do not have access to this patient.")
		return nil, false
	}
	return &patient, true
}

// CreatePatientRequest represents the request body for registering a patient.
type CreatePatientRequest struct {
	Name           string `json:"name" binding:"required"`
	MotherName     string `json:"motherName" binding:"required"`
	BirthDate      string `json:"birthDate" binding:"required"`
	GestationalAge string `json:"gestationalAge" binding:"required"`
	Phone          string `json:"phone"`
	ClinicID       string `json:"clinicId"`
}

// CreatePatient registers a patient under the session's clinic. Admin callers
// must name the target clinic explicitly.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	clinicID, ok := sessionClinicID(c, req.ClinicID)
	if !ok {
		utils.Forbidden(c, "You do not have access to this clinic.")
		return
	}
	if clinicID == "" {
		utils.BadRequest(c, "clinicId is required")
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

	birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		utils.BadRequest(c, "birthDate must be formatted as YYYY-MM-DD")
		return
	}

	patient := models.Patient{
		Name:           req.Name,
		MotherName:     req.MotherName,
		BirthDate:      birthDate,
		GestationalAge: req.GestationalAge,
		ClinicID:       clinic.ID,
	}
	if req.Phone != "" {
		patient.Phone = &req.Phone
	}

	if err := h.DB.Create(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	utils.Created(c, "Patient registered successfully", patient)
}

// PatientSummary is one row of the patient list, carrying the video count
// shown on the dashboard.
type PatientSummary struct {
	models.Patient
	VideosCount int64 `json:"videosCount"`
}

// GetPatients lists patients of a clinic, most recently created first. An
// optional ?search= filters case-insensitively over the patient's name and
// mother's name. Clinic sessions see only their own patients; admin sessions
// may pass ?clinic_id= to scope, or omit it to list everything.
func (h *PatientHandler) GetPatients(c *gin.Context) {
	clinicID, ok := sessionClinicID(c, c.Query("clinic_id"))
	if !ok {
		utils.Forbidden(c, "You do not have access to this clinic.")
		return
	}

	query := h.DB.Model(&models.Patient{}).Order("created_at DESC")
	if clinicID != "" {
		query = query.Where("clinic_id = ?", clinicID)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(mother_name) LIKE ?", pattern, pattern)
	}

	var patients []models.Patient
	if err := query.Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	summaries := make([]PatientSummary, 0, len(patients))
	for _, patient := range patients {
		var count int64
		if err := h.DB.Model(&models.Video{}).Where("patient_id = ?", patient.ID).Count(&count).Error; err != nil {
			utils.InternalServerError(c, "Failed to count videos: "+err.Error())
			return
		}
		summaries = append(summaries, PatientSummary{Patient: patient, VideosCount: count})
	}

	utils.Success(c, "Patients fetched successfully", summaries)
}

// PatientProfileResponse is the clinic-facing patient profile payload.
type PatientProfileResponse struct {
	Patient  models.Patient `json:"patient"`
	Videos   []models.Video `json:"videos"`
	ShareURL string         `json:"shareUrl"`
}

// GetPatientByID returns a patient profile with its videos, newest upload
// first, and the shareable portal URL.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	patient, ok := loadScopedPatient(c, h.DB, c.Param("id"))
	if !ok {
		return
	}

	var videos []models.Video
	if err := h.DB.Where("patient_id = ?", patient.ID).Order("created_at DESC").Find(&videos).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch videos: "+err.Error())
		return
	}
	presignVideoURLs(c.Request.Context(), h.Store, videos)

	utils.Success(c, "Patient fetched successfully", PatientProfileResponse{
		Patient:  *patient,
		Videos:   videos,
		ShareURL: qr.PatientURL(h.Cfg.AppURL, token.Encode(patient.ID)),
	})
}

// UpdatePatientRequest represents the request body for updating a patient.
type UpdatePatientRequest struct {
	Name           string `json:"name"`
	MotherName     string `json:"motherName"`
	BirthDate      string `json:"birthDate"`
	GestationalAge string `json:"gestationalAge"`
	Phone          string `json:"phone"`
}

// UpdatePatient updates a patient's details.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	patient, ok := loadScopedPatient(c, h.DB, c.Param("id"))
	if !ok {
		return
	}

	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if req.Name != "" {
		patient.Name = req.Name
	}
	if req.MotherName != "" {
		patient.MotherName = req.MotherName
	}
	if req.BirthDate != "" {
		birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
		if err != nil {
			utils.BadRequest(c, "birthDate must be formatted as YYYY-MM-DD")
			return
		}
		patient.BirthDate = birthDate
	}
	if req.GestationalAge != "" {
		patient.GestationalAge = req.GestationalAge
	}
	if req.Phone != "" {
		patient.Phone = &req.Phone
	}

	if err := h.DB.Save(patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient updated successfully", patient)
}

// DeletePatient removes a patient and every video attached to them.
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	patient, ok := loadScopedPatient(c, h.DB, c.Param("id"))
	if !ok {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("patient_id = ?", patient.ID).Delete(&models.Video{}).Error; err != nil {
			return err
		}
		return tx.Delete(patient).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete patient: "+err.Error())
		return
	}

	utils.Success(c, "Patient deleted successfully", nil)
}

// GetPatientQRCode renders the patient's access QR code as a PNG, suitable
// for the printed card.
func (h *PatientHandler) GetPatientQRCode(c *gin.Context) {
	patient, ok := loadScopedPatient(c, h.DB, c.Param("id"))
	if !ok {
		return
	}

	url := qr.PatientURL(h.Cfg.AppURL, token.Encode(patient.ID))
	png, err := qr.Image(url, qr.DefaultSize)
	if err != nil {
		utils.InternalServerError(c, "Failed to render QR code: "+err.Error())
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
