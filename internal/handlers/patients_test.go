package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultrasound-portal-server/internal/models"
)

func TestCreatePatient(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, user := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	router := setupRouter(t, db, cfg, nil)

	tok := accessToken(t, cfg, user, clinic.ID)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/patients", tok, map[string]string{
		"name":           "Ana Souza",
		"motherName":     "Maria Souza",
		"birthDate":      "1995-03-14",
		"gestationalAge": "22 weeks",
		"phone":          "(11) 99999-9999",
	})
	requireStatus(t, rec, http.StatusCreated)

	var patient models.Patient
	decodeData(t, rec, &patient)
	assert.Equal(t, clinic.ID, patient.ClinicID, "patient is pinned to the session clinic")
	assert.NotEmpty(t, patient.ID)
}

func TestCreatePatientMissingFields(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, user := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	router := setupRouter(t, db, cfg, nil)

	tok := accessToken(t, cfg, user, clinic.ID)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/patients", tok, map[string]string{
		"name": "Ana Souza",
	})
	requireStatus(t, rec, http.StatusBadRequest)

	var count int64
	require.NoError(t, db.Model(&models.Patient{}).Count(&count).Error)
	assert.Zero(t, count, "validation failures must not write anything")
}

func TestGetPatientsSearchFilter(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, user := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	other, _ := seedClinic(t, db, "Bella Clinic", "bella@example.com")

	seedPatient(t, db, clinic.ID, "Ana Souza", "Marta Souza")
	seedPatient(t, db, clinic.ID, "Beatriz Lima", "Joana Lima")
	seedPatient(t, db, clinic.ID, "Carla MARQUES", "Paula Marques")
	// Same names in another clinic must never leak into the result.
	seedPatient(t, db, other.ID, "Marcela Dias", "Rita Dias")

	router := setupRouter(t, db, cfg, nil)
	tok := accessToken(t, cfg, user, clinic.ID)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/patients?search=mar", tok, nil)
	requireStatus(t, rec, http.StatusOK)

	var patients []models.Patient
	decodeData(t, rec, &patients)
	require.Len(t, patients, 2)
	for _, p := range patients {
		assert.Equal(t, clinic.ID, p.ClinicID)
	}
}

func TestGetPatientsScopedToOwnClinic(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, user := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	other, _ := seedClinic(t, db, "Bella Clinic", "bella@example.com")
	seedPatient(t, db, clinic.ID, "Ana Souza", "Maria Souza")
	seedPatient(t, db, other.ID, "Marcela Dias", "Rita Dias")

	router := setupRouter(t, db, cfg, nil)
	tok := accessToken(t, cfg, user, clinic.ID)

	// Asking for another clinic's list is forbidden.
	rec := doRequest(t, router, http.MethodGet, "/api/v1/patients?clinic_id="+other.ID, tok, nil)
	requireStatus(t, rec, http.StatusForbidden)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/patients", tok, nil)
	requireStatus(t, rec, http.StatusOK)

	var patients []models.Patient
	decodeData(t, rec, &patients)
	require.Len(t, patients, 1)
	assert.Equal(t, clinic.ID, patients[0].ClinicID)
}

func TestGetPatientsAdminSeesAll(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	admin := seedAdmin(t, db, cfg)
	clinic, _ := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	other, _ := seedClinic(t, db, "Bella Clinic", "bella@example.com")
	seedPatient(t, db, clinic.ID, "Ana Souza", "Maria Souza")
	seedPatient(t, db, other.ID, "Marcela Dias", "Rita Dias")

	router := setupRouter(t, db, cfg, nil)
	tok := accessToken(t, cfg, admin, "")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/patients", tok, nil)
	requireStatus(t, rec, http.StatusOK)

	var patients []models.Patient
	decodeData(t, rec, &patients)
	assert.Len(t, patients, 2)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/patients?clinic_id="+other.ID, tok, nil)
	requireStatus(t, rec, http.StatusOK)
	decodeData(t, rec, &patients)
	require.Len(t, patients, 1)
	assert.Equal(t, other.ID, patients[0].ClinicID)
}

func TestGetPatientByIDOtherClinicForbidden(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, user := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	other, _ := seedClinic(t, db, "Bella Clinic", "bella@example.com")
	foreign := seedPatient(t, db, other.ID, "Marcela Dias", "Rita Dias")

	router := setupRouter(t, db, cfg, nil)
	tok := accessToken(t, cfg, user, clinic.ID)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/patients/"+foreign.ID, tok, nil)
	requireStatus(t, rec, http.StatusForbidden)
}

func TestDeletePatientCascadesVideos(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, user := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	patient := seedPatient(t, db, clinic.ID, "Ana Souza", "Maria Souza")
	seedVideo(t, db, patient.ID, "scan-1.mp4", 1024, "")
	seedVideo(t, db, patient.ID, "scan-2.mp4", 2048, "")

	router := setupRouter(t, db, cfg, nil)
	tok := accessToken(t, cfg, user, clinic.ID)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/patients/"+patient.ID, tok, nil)
	requireStatus(t, rec, http.StatusOK)

	var videos int64
	require.NoError(t, db.Model(&models.Video{}).Where("patient_id = ?", patient.ID).Count(&videos).Error)
	assert.Zero(t, videos)
}

func TestGetPatientQRCode(t *testing.T) {
	cfg := testConfig()
	db := setupTestDB(t)
	clinic, user := seedClinic(t, db, "Vida Clinic", "vida@example.com")
	patient := seedPatient(t, db, clinic.ID, "Ana Souza", "Maria Souza")

	router := setupRouter(t, db, cfg, nil)
	tok := accessToken(t, cfg, user, clinic.ID)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/patients/"+patient.ID+"/qrcode", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	// PNG magic bytes
	require.True(t, rec.Body.Len() > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes()[:4])
}
