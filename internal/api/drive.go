package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sanjeevkumarraob/drive-search-service/internal/drive"
	"github.com/sanjeevkumarraob/drive-search-service/internal/pipeline"
	"github.com/sanjeevkumarraob/drive-search-service/internal/search"
)

// MimeDocx is the content type of generated documents
const MimeDocx = drive.MimeDocx

// fileBatchRequest selects Drive files for extraction or export
type fileBatchRequest struct {
	FileIDs []string `json:"fileIds"`
	Query   string   `json:"query"`
}

// Validate implements validation.Validatable
func (r fileBatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileIDs,
			validation.Required.Error("Please select at least one file"),
			validation.Each(validation.Required),
		),
	)
}

// GetFolder returns folder metadata
func (h *Handler) GetFolder(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	folder, err := h.drive.GetFile(c.Request.Context(), creds, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get folder")
		return
	}
	c.JSON(http.StatusOK, folder)
}

// GetParent returns the parent folder id
func (h *Handler) GetParent(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	parentID, err := h.drive.Parent(c.Request.Context(), creds, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get parent folder")
		return
	}
	c.JSON(http.StatusOK, gin.H{"parentId": parentID})
}

// ListFolders lists the folders directly under a folder
func (h *Handler) ListFolders(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	folders, err := h.drive.ChildFolders(c.Request.Context(), creds, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to list folders")
		return
	}
	if folders == nil {
		folders = []drive.File{}
	}
	c.JSON(http.StatusOK, gin.H{
		"folders": folders,
		"count":   len(folders),
	})
}

// ListFiles lists the files directly under a folder
func (h *Handler) ListFiles(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	files, err := h.drive.ChildFiles(c.Request.Context(), creds, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to list files")
		return
	}
	if files == nil {
		files = []drive.File{}
	}
	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

// FolderStats summarises the children of a folder
func (h *Handler) FolderStats(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	stats, err := h.drive.Stats(c.Request.Context(), creds, c.Param("id"), h.now())
	if err != nil {
		h.respondError(c, err, "Failed to get folder stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DownloadFile proxies the bytes of a Drive file. Google Docs are served
// as .docx exports.
func (h *Handler) DownloadFile(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	file, err := h.drive.GetFile(ctx, creds, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get file")
		return
	}

	data, mimeType, err := h.drive.Content(ctx, creds, file)
	if err != nil {
		h.respondError(c, err, "Failed to download file")
		return
	}
	if data == nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "This file type cannot be downloaded"})
		return
	}

	name := file.Name
	if file.MimeType == drive.MimeGoogleDoc {
		name += ".docx"
	}
	attachment(c, name)
	c.Data(http.StatusOK, mimeType, data)
}

// FileTypes lists the file type filters
func (h *Handler) FileTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": search.TypeOptions})
}

// Search handles content search requests
func (h *Handler) Search(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	var filter search.Filter
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := h.search.Search(c.Request.Context(), creds, filter)
	if err != nil {
		h.respondError(c, err, "Search failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Extract extracts the text of selected Drive files
func (h *Handler) Extract(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	req, ok := bindFileBatch(c)
	if !ok {
		return
	}

	batch, err := h.exporter.ExtractBatch(c.Request.Context(), creds, req.FileIDs)
	if err != nil {
		h.respondError(c, err, "Failed to extract files")
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Export combines selected Drive files into one .docx download
func (h *Handler) Export(c *gin.Context) {
	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	req, ok := bindFileBatch(c)
	if !ok {
		return
	}

	art, err := h.exporter.Export(c.Request.Context(), creds, req.FileIDs, req.Query)
	if err != nil {
		h.respondError(c, err, "Error combining files: "+err.Error())
		return
	}

	h.sendDocument(c, art)
}

func bindFileBatch(c *gin.Context) (*fileBatchRequest, bool) {
	var req fileBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return nil, false
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &req, true
}

// sendDocument writes a generated .docx. A stored copy also gets its id
// and a download ticket in the headers.
func (h *Handler) sendDocument(c *gin.Context, art *pipeline.Artifact) {
	if h.tickets != nil && art.ID != "" {
		ticket, err := h.tickets.Issue(art.ID, art.Name)
		if err != nil {
			h.logger.Printf("Failed to issue download ticket for %s: %v", art.ID, err)
		} else {
			c.Header("X-Artifact-Id", art.ID)
			c.Header("X-Download-Ticket", ticket)
		}
	}
	c.Header("X-File-Name", art.Name)
	c.Header("X-Excluded-Files", strconv.Itoa(art.Excluded))
	attachment(c, art.Name)
	c.Data(http.StatusOK, MimeDocx, art.Data)
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
