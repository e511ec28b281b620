package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sanjeevkumarraob/drive-search-service/internal/artifact"
	"github.com/sanjeevkumarraob/drive-search-service/internal/auth"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document"
	"github.com/sanjeevkumarraob/drive-search-service/internal/drive"
	"github.com/sanjeevkumarraob/drive-search-service/internal/pipeline"
	"github.com/sanjeevkumarraob/drive-search-service/internal/search"
	"github.com/sanjeevkumarraob/drive-search-service/internal/session"
)

// Context keys set by AuthMiddleware
const (
	credentialsKey = "credentials"
	userKey        = "user"
)

// Dependencies are the services the handlers call
type Dependencies struct {
	GoogleAuth     *auth.GoogleAuth
	SessionManager *session.SessionManager
	Tickets        *auth.TicketManager
	Drive          *drive.Client
	Search         *search.Orchestrator
	Exporter       *pipeline.Exporter
	Processor      *document.Processor
	Artifacts      *artifact.Store
	// MaxUploadSize caps request bodies of the extraction endpoints
	MaxUploadSize int64
}

// Handler handles API requests
type Handler struct {
	googleAuth     *auth.GoogleAuth
	sessionManager *session.SessionManager
	tickets        *auth.TicketManager
	drive          *drive.Client
	search         *search.Orchestrator
	exporter       *pipeline.Exporter
	processor      *document.Processor
	artifacts      *artifact.Store
	maxUploadSize  int64
	logger         *log.Logger
	now            func() time.Time
}

// NewHandler creates a new handler
func NewHandler(deps Dependencies, logger *log.Logger) *Handler {
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = document.DefaultMaxFileSize
	}
	return &Handler{
		googleAuth:     deps.GoogleAuth,
		sessionManager: deps.SessionManager,
		tickets:        deps.Tickets,
		drive:          deps.Drive,
		search:         deps.Search,
		exporter:       deps.Exporter,
		processor:      deps.Processor,
		artifacts:      deps.Artifacts,
		maxUploadSize:  deps.MaxUploadSize,
		logger:         logger,
		now:            time.Now,
	}
}

// HealthCheck provides a simple health check endpoint
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().Format(time.RFC3339),
	})
}

// GoogleLoginURL generates the login URL for Google OAuth
func (h *Handler) GoogleLoginURL(c *gin.Context) {
	state, err := h.sessionManager.GenerateState(c)
	if err != nil {
		h.logger.Printf("Failed to generate state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.googleAuth.AuthURL(state)})
}

// GoogleCallback handles the callback from Google OAuth
func (h *Handler) GoogleCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization denied: " + reason})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code is required"})
		return
	}

	state := c.Query("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "State parameter is required"})
		return
	}

	if err := h.sessionManager.ValidateState(c, state); err != nil {
		h.logger.Printf("State validation failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.googleAuth.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Printf("Token exchange failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange token"})
		return
	}

	userInfo, err := h.googleAuth.UserInfo(c.Request.Context(), token.AccessToken)
	if err != nil {
		h.logger.Printf("Failed to get user info: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user info"})
		return
	}

	user := session.User{Email: userInfo.Email, Name: userInfo.Name}
	tokens := session.Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := h.sessionManager.StoreTokens(c, tokens, user); err != nil {
		h.logger.Printf("Failed to store token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store token"})
		return
	}

	h.logger.Printf("User %s signed in", user.Email)
	c.JSON(http.StatusOK, gin.H{
		"message": "Authentication successful",
		"user":    user,
	})
}

// Logout clears the session
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessionManager.Clear(c); err != nil {
		h.logger.Printf("Failed to clear session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign out"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Me returns the signed-in user
func (h *Handler) Me(c *gin.Context) {
	user, exists := c.Get(userKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "reauthenticate": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// credentials returns the Drive credentials set by AuthMiddleware
func credentials(c *gin.Context) (*drive.Credentials, bool) {
	value, exists := c.Get(credentialsKey)
	if !exists {
		return nil, false
	}
	creds, ok := value.(*drive.Credentials)
	return creds, ok
}

// requireCredentials aborts with 401 when the request carries no credentials
func requireCredentials(c *gin.Context) (*drive.Credentials, bool) {
	creds, ok := credentials(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token not found", "reauthenticate": true})
	}
	return creds, ok
}

// respondError maps a service error to a JSON error response
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	_ = c.Error(err)

	switch {
	case search.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, drive.ErrReauthenticate), errors.Is(err, drive.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":          "Your session has expired. Please sign in again.",
			"reauthenticate": true,
		})
	case drive.IsNotFound(err), errors.Is(err, artifact.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		h.logger.Printf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
