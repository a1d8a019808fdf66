package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultrasound-portal-server/internal/models"
)

func TestResolvePatientView(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, _ := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	patient := seedPatient(t, db, clinic.ID, "Ana Souza", "Maria Souza")

	older := seedVideo(t, db, patient.ID, "scan-1.mp4", 1048576, "https://cdn.example.com/scan-1.mp4")
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)
	newer := seedVideo(t, db, patient.ID, "scan-2.mp4", 2097152, "https://cdn.example.com/scan-2.mp4")

	router := setupRouter(t, db, cfg, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/portal/"+patient.ID, "", nil)
	requireStatus(t, rec, http.StatusOK)

	var view struct {
		Patient models.Patient `json:"patient"`
		Clinic  *struct {
			Name string `json:"name"`
		} `json:"clinic"`
		Videos   []models.Video `json:"videos"`
		ShareURL string         `json:"shareUrl"`
	}
	decodeData(t, rec, &view)

	assert.Equal(t, patient.ID, view.Patient.ID)
	require.NotNil(t, view.Clinic)
	assert.Equal(t, "Vida Clinic", view.Clinic.Name)
	require.Len(t, view.Videos, 2)
	assert.Equal(t, newer.ID, view.Videos[0].ID, "newest upload first")
	assert.Equal(t, older.ID, view.Videos[1].ID)
	assert.Equal(t, "https://portal.example.com/patient/"+patient.ID, view.ShareURL)
}

func TestResolvePatientViewIsDeterministic(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, _ := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	patient := seedPatient(t, db, clinic.ID, "Ana Souza", "Maria Souza")
	router := setupRouter(t, db, cfg, nil)

	first := doRequest(t, router, http.MethodGet, "/api/v1/portal/"+patient.ID, "", nil)
	second := doRequest(t, router, http.MethodGet, "/api/v1/portal/"+patient.ID, "", nil)
	requireStatus(t, first, http.StatusOK)
	requireStatus(t, second, http.StatusOK)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestResolvePatientViewUnknownToken(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	router := setupRouter(t, db, cfg, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/portal/00000000-0000-0000-0000-000000000000", "", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestResolvePatientViewMalformedToken(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	router := setupRouter(t, db, cfg, nil)

	// Path-safe but not a plausible identifier.
	rec := doRequest(t, router, http.MethodGet, "/api/v1/portal/not_a_token!", "", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestResolvePatientViewDanglingClinic(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, _ := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	patient := seedPatient(t, db, clinic.ID, "Ana Souza", "Maria Souza")

	// Orphan the patient; the portal view must still resolve.
	require.NoError(t, db.Delete(clinic).Error)

	router := setupRouter(t, db, cfg, nil)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/portal/"+patient.ID, "", nil)
	requireStatus(t, rec, http.StatusOK)

	var view struct {
		Patient models.Patient `json:"patient"`
		Clinic  *struct {
			Name string `json:"name"`
		} `json:"clinic"`
	}
	decodeData(t, rec, &view)
	assert.Equal(t, patient.ID, view.Patient.ID)
	assert.Nil(t, view.Clinic, "dangling clinic reference renders as null")
}
