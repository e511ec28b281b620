package api

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter sets up the API router
func NewRouter(handler *Handler, allowOrigins []string, logger *log.Logger) *gin.Engine {
	// Create gin router
	router := gin.New()

	// Set up middleware
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	// Set up CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Artifact-Id", "X-Download-Ticket", "X-File-Name", "X-Excluded-Files"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes
	router.GET("/", handler.HealthCheck)
	router.GET("/auth/login", handler.GoogleLoginURL)
	router.GET("/auth/callback", handler.GoogleCallback)
	router.POST("/auth/logout", handler.Logout)

	// Document routes that work on uploaded content
	router.POST("/api/extract-text", handler.ExtractText)
	router.POST("/api/combine-files", handler.CombineFiles)
	router.GET("/api/download-file", handler.DownloadArtifact)

	// Auth required routes
	authorized := router.Group("/api")
	authorized.Use(AuthMiddleware(handler.googleAuth, handler.sessionManager, logger))
	{
		authorized.GET("/me", handler.Me)
		authorized.GET("/file-types", handler.FileTypes)

		// Folder browsing
		authorized.GET("/folders/:id", handler.GetFolder)
		authorized.GET("/folders/:id/parent", handler.GetParent)
		authorized.GET("/folders/:id/folders", handler.ListFolders)
		authorized.GET("/folders/:id/files", handler.ListFiles)
		authorized.GET("/folders/:id/stats", handler.FolderStats)
		authorized.GET("/files/:id/download", handler.DownloadFile)

		// Search and export
		authorized.POST("/search", handler.Search)
		authorized.POST("/extract", handler.Extract)
		authorized.POST("/export", handler.Export)
	}

	return router
}
