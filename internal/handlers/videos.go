package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ultrasound-portal-server/internal/models"
	"ultrasound-portal-server/internal/storage"
	"ultrasound-portal-server/internal/utils"
)

// presignVideoURLs fills in playable URLs for videos that live in the blob
// store. Presigned URLs expire, so they are never persisted; every read path
// issues fresh ones from the stored object key. A presign failure leaves the
// URL nil rather than failing the whole listing.
func presignVideoURLs(ctx context.Context, store storage.BlobStore, videos []models.Video) {
	if store == nil {
		return
	}
	for i := range videos {
		if videos[i].FileURL != nil || videos[i].StorageKey == nil {
			continue
		}
		url, err := store.PresignGet(ctx, *videos[i].StorageKey)
		if err != nil {
			log.Printf("Failed to presign video URL for key %s: %v", *videos[i].StorageKey, err)
			continue
		}
		videos[i].FileURL = &url
	}
}

// VideoHandler handles video registry requests.
type VideoHandler struct {
	DB    *gorm.DB
	Store storage.BlobStore // nil when no blob store is configured
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(db *gorm.DB, store storage.BlobStore) *VideoHandler {
	return &VideoHandler{DB: db, Store: store}
}

// UploadURLResponse carries a presigned PUT target for a direct upload.
type UploadURLResponse struct {
	UploadURL  string `json:"uploadUrl"`
	StorageKey string `json:"storageKey"`
}

// CreateUploadURL issues a presigned upload URL for a new video file of the
// given patient. The caller uploads directly to blob storage and then
// registers the video with AttachVideo.
func (h *VideoHandler) CreateUploadURL(c *gin.Context) {
	patient, ok := loadScopedPatient(c, h.DB, c.Param("id"))
	if !ok {
		return
	}

	if h.Store == nil {
		utils.BadRequest(c, "No blob storage is configured")
		return
	}

	key := storage.VideoKey(patient.ID)
	url, err := h.Store.PresignPut(c.Request.Context(), key)
	if err != nil {
		utils.InternalServerError(c, "Failed to create upload URL: "+err.Error())
		return
	}

	utils.Success(c, "Upload URL created successfully", UploadURLResponse{
		UploadURL:  url,
		StorageKey: key,
	})
}

// AttachVideoRequest represents the request body for registering an uploaded
// video. Either StorageKey (after a presigned upload) or FileURL (externally
// hosted, assumed durable) may be given; with neither, the record is created
// without a playable URL and stays in the "upload incomplete" state.
type AttachVideoRequest struct {
	FileName   string `json:"fileName" binding:"required"`
	FileSize   int64  `json:"fileSize" binding:"required,min=1"`
	StorageKey string `json:"storageKey"`
	FileURL    string `json:"fileUrl"`
}

// AttachVideo creates the video record for a patient.
func (h *VideoHandler) AttachVideo(c *gin.Context) {
	patient, ok := loadScopedPatient(c, h.DB, c.Param("id"))
	if !ok {
		return
	}

	var req AttachVideoRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	video := models.Video{
		PatientID: patient.ID,
		FileName:  req.FileName,
		FileSize:  req.FileSize,
	}
	if req.StorageKey != "" {
		video.StorageKey = &req.StorageKey
	}
	if req.FileURL != "" {
		video.FileURL = &req.FileURL
	}

	if err := h.DB.Create(&video).Error; err != nil {
		utils.InternalServerError(c, "Failed to create video: "+err.Error())
		return
	}

	// The response carries a freshly presigned URL for blob-stored files;
	// the row itself only persists the key.
	view := []models.Video{video}
	presignVideoURLs(c.Request.Context(), h.Store, view)
	utils.Created(c, "Video registered successfully", view[0])
}

// GetVideos lists a patient's videos, newest upload first.
func (h *VideoHandler) GetVideos(c *gin.Context) {
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
	utils.Success(c, "Videos fetched successfully", videos)
}

// DeleteVideo removes a video record. Deleting an id that no longer exists
// still reports success; repeated deletes are indistinguishable from one.
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	videoID := c.Param("id")

	var video models.Video
	if err := h.DB.First(&video, "id = ?", videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(c, "Video deleted successfully", nil)
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	// Scope check runs against the owning patient.
	if _, ok := loadScopedPatient(c, h.DB, video.PatientID); !ok {
		return
	}

	if err := h.DB.Delete(&video).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete video: "+err.Error())
		return
	}

	utils.Success(c, "Video deleted successfully", nil)
}

// OverviewVideo is one video row of the admin overview, with the size
// pre-formatted for display.
type OverviewVideo struct {
	models.Video
	FileSizeLabel string `json:"fileSizeLabel"`
}

// OverviewPatient groups a patient with their clinic name and videos.
type OverviewPatient struct {
	Patient    models.Patient  `json:"patient"`
	ClinicName string          `json:"clinicName"`
	Videos     []OverviewVideo `json:"videos"`
}

// VideosOverviewResponse is the admin video management payload.
type VideosOverviewResponse struct {
	Patients           []OverviewPatient `json:"patients"`
	TotalPatients      int               `json:"totalPatients"`
	TotalVideos        int               `json:"totalVideos"`
	PatientsWithVideos int               `json:"patientsWithVideos"`
}

// GetVideosOverview returns every patient on the platform with their videos
// and the aggregate counters shown on the admin dashboard.
func (h *VideoHandler) GetVideosOverview(c *gin.Context) {
	var patients []models.Patient
	if err := h.DB.Order("created_at DESC").Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	clinicNames := map[string]string{}
	var clinics []models.Clinic
	if err := h.DB.Find(&clinics).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch clinics: "+err.Error())
		return
	}
	for _, clinic := range clinics {
		clinicNames[clinic.ID] = clinic.Name
	}

	overview := make([]OverviewPatient, 0, len(patients))
	counts := make([]int, 0, len(patients))
	for _, patient := range patients {
		var videos []models.Video
		if err := h.DB.Where("patient_id = ?", patient.ID).Order("created_at DESC").Find(&videos).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch videos: "+err.Error())
			return
		}

		presignVideoURLs(c.Request.Context(), h.Store, videos)

		rows := make([]OverviewVideo, 0, len(videos))
		for _, video := range videos {
			rows = append(rows, OverviewVideo{
				Video:         video,
				FileSizeLabel: utils.FormatSize(video.FileSize),
			})
		}

		clinicName := clinicNames[patient.ClinicID]
		if clinicName == "" {
			clinicName = "N/A"
		}

		overview = append(overview, OverviewPatient{
			Patient:    patient,
			ClinicName: clinicName,
			Videos:     rows,
		})
		counts = append(counts, len(videos))
	}

	agg := utils.AggregateVideos(counts)
	utils.Success(c, "Video overview fetched successfully", VideosOverviewResponse{
		Patients:           overview,
		TotalPatients:      len(patients),
		TotalVideos:        agg.TotalVideos,
		PatientsWithVideos: agg.PatientsWithVideos,
	})
}
