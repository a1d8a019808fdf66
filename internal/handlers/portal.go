package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ultrasound-portal-server/internal/config"
	"ultrasound-portal-server/internal/models"
	"ultrasound-portal-server/internal/qr"
	"ultrasound-portal-server/internal/storage"
	"ultrasound-portal-server/internal/token"
	"ultrasound-portal-server/internal/utils"
)

// PortalHandler serves the unauthenticated patient-facing view. Everything
// here is keyed solely by the access token from the QR card and is strictly
// read-only.
type PortalHandler struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Store storage.BlobStore // nil when no blob store is configured
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(db *gorm.DB, cfg *config.Config, store storage.BlobStore) *PortalHandler {
	return &PortalHandler{DB: db, Cfg: cfg, Store: store}
}

// PortalClinic is the subset of clinic data exposed to patients.
type PortalClinic struct {
	Name string `json:"name"`
	City string `json:"city"`
}

// PatientViewResponse is the patient portal payload. Clinic is null when the
// patient's clinic reference no longer resolves; consumers render "N/A".
type PatientViewResponse struct {
	Patient  models.Patient `json:"patient"`
	Clinic   *PortalClinic  `json:"clinic"`
	Videos   []models.Video `json:"videos"`
	ShareURL string         `json:"shareUrl"`
}

// ResolvePatientView resolves a scanned access token to the patient, their
// clinic, and their videos, newest upload first. A malformed or unknown
// token yields a plain not-found outcome.
func (h *PortalHandler) ResolvePatientView(c *gin.Context) {
	patientID, err := token.Decode(c.Param("token"))
	if err != nil {
		utils.NotFound(c, "No patient matches this code")
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "No patient matches this code")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	// A dangling clinic reference must not break the patient view.
	var portalClinic *PortalClinic
	var clinic models.Clinic
	if err := h.DB.First(&clinic, "id = ?", patient.ClinicID).Error; err == nil {
		portalClinic = &PortalClinic{Name: clinic.Name, City: clinic.City}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	var videos []models.Video
	if err := h.DB.Where("patient_id = ?", patient.ID).Order("created_at DESC").Find(&videos).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch videos: "+err.Error())
		return
	}
	presignVideoURLs(c.Request.Context(), h.Store, videos)

	utils.Success(c, "Patient view resolved successfully", PatientViewResponse{
		Patient:  patient,
		Clinic:   portalClinic,
		Videos:   videos,
		ShareURL: qr.PatientURL(h.Cfg.AppURL, token.Encode(patient.ID)),
	})
}
