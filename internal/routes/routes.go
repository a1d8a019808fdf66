package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ultrasound-portal-server/internal/config"
	"ultrasound-portal-server/internal/handlers"
	"ultrasound-portal-server/internal/middleware"
	"ultrasound-portal-server/internal/models"
	"ultrasound-portal-server/internal/storage"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, store storage.BlobStore) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	clinicHandler := handlers.NewClinicHandler(db)
	patientHandler := handlers.NewPatientHandler(db, cfg, store)
	videoHandler := handlers.NewVideoHandler(db, store)
	portalHandler := handlers.NewPortalHandler(db, cfg, store)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// The patient portal is keyed solely by the QR access token.
		public.GET("/portal/:token", portalHandler.ResolvePatientView)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/session", authHandler.GetSession)
		}

		// Clinic management (platform admin only)
		clinicRoutes := private.Group("/clinics")
		clinicRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			clinicRoutes.POST("", clinicHandler.CreateClinic)
			clinicRoutes.GET("", clinicHandler.GetClinics)
			clinicRoutes.GET("/stats", clinicHandler.GetClinicStats)
			clinicRoutes.GET("/:id", clinicHandler.GetClinicByID)
			clinicRoutes.PUT("/:id", clinicHandler.UpdateClinic)
			clinicRoutes.DELETE("/:id", clinicHandler.DeleteClinic)
		}

		// Patient management (clinic staff for their own clinic, admin for all)
		patientRoutes := private.Group("/patients")
		patientRoutes.Use(middleware.RoleAuthMiddleware(models.RoleClinic, models.RoleAdmin))
		{
			patientRoutes.POST("", patientHandler.CreatePatient)
			patientRoutes.GET("", patientHandler.GetPatients)
			patientRoutes.GET("/:id", patientHandler.GetPatientByID)
			patientRoutes.PUT("/:id", patientHandler.UpdatePatient)
			patientRoutes.DELETE("/:id", patientHandler.DeletePatient)
			patientRoutes.GET("/:id/qrcode", patientHandler.GetPatientQRCode)

			// Video registry, scoped to a patient
			patientRoutes.GET("/:id/videos", videoHandler.GetVideos)
			patientRoutes.POST("/:id/videos", videoHandler.AttachVideo)
			patientRoutes.POST("/:id/videos/upload-url", videoHandler.CreateUploadURL)
		}

		// Video deletion addresses the video directly (ownership is checked
		// in the handler); the overview is admin only.
		videoRoutes := private.Group("/videos")
		{
			videoRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleClinic, models.RoleAdmin), videoHandler.DeleteVideo)
			videoRoutes.GET("/overview", middleware.RoleAuthMiddleware(models.RoleAdmin), videoHandler.GetVideosOverview)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
