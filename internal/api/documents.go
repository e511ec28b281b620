package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sanjeevkumarraob/drive-search-service/internal/artifact"
	"github.com/sanjeevkumarraob/drive-search-service/internal/auth"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document/heuristics"
	"github.com/sanjeevkumarraob/drive-search-service/pkg/stream"
)

// allowedUploadTypes are the types accepted by the text extraction endpoint
var allowedUploadTypes = map[string]bool{
	heuristics.MimeMSWord:    true,
	heuristics.MimeDocx:      true,
	heuristics.MimePDF:       true,
	heuristics.MimeODT:       true,
	heuristics.MimePlainText: true,
}

// extractTextRequest is the JSON form of an upload
type extractTextRequest struct {
	FileData string `json:"fileData"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
}

// Validate implements validation.Validatable
func (r extractTextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileData, validation.Required.Error("File data is required")),
	)
}

// combineRequest carries already extracted texts to combine
type combineRequest struct {
	Files []document.Result `json:"files"`
	Query string            `json:"query"`
}

// Validate implements validation.Validatable
func (r combineRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Files, validation.Required.Error("No files to combine")),
	)
}

// ExtractText extracts the text of an uploaded document. It accepts a
// multipart "file" field or a JSON body with base64 file data.
func (h *Handler) ExtractText(c *gin.Context) {
	data, mimeType, name, ok := h.readUpload(c)
	if !ok {
		return
	}

	mimeType = normalizeMIME(mimeType)
	if mimeType == "" || mimeType == heuristics.MimeOctetStream {
		mimeType = normalizeMIME(mimetype.Detect(data).String())
	}

	if !allowedUploadTypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type: " + mimeType})
		return
	}

	text, err := h.processor.ExtractText(c.Request.Context(), data, mimeType)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, document.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, document.ErrUnsupportedFileType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type: " + mimeType})
		default:
			h.logger.Printf("Text extraction failed for %q: %v", name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error extracting text: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fileName":      name,
		"extractedText": text,
	})
}

// readUpload reads the upload bytes, declared type and name from either request form
func (h *Handler) readUpload(c *gin.Context) ([]byte, string, string, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
			return nil, "", "", false
		}
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return nil, "", "", false
		}
		defer f.Close()

		data, err := stream.ReadLimited(f, h.maxUploadSize)
		if err != nil {
			h.uploadError(c, err)
			return nil, "", "", false
		}
		return data, header.Header.Get("Content-Type"), header.Filename, true
	}

	// base64 inflates by a third
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize/3*4+4096)

	var req extractTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadError(c, stream.ErrTooLarge)
			return nil, "", "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return nil, "", "", false
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", "", false
	}

	data, err := decodeFileData(req.FileData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File data is not valid base64"})
		return nil, "", "", false
	}
	if int64(len(data)) > h.maxUploadSize {
		h.uploadError(c, stream.ErrTooLarge)
		return nil, "", "", false
	}
	return data, req.MimeType, req.FileName, true
}

func (h *Handler) uploadError(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, stream.ErrTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": document.ErrFileTooLarge.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
}

// CombineFiles renders already extracted texts into one .docx
func (h *Handler) CombineFiles(c *gin.Context) {
	var req combineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	art, err := h.exporter.Combine(req.Files, req.Query)
	if err != nil {
		_ = c.Error(err)
		h.logger.Printf("Combining files failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error combining files: " + err.Error()})
		return
	}

	h.sendDocument(c, art)
}

// DownloadArtifact serves a generated document to the holder of its
// ticket. fileName is the artifact id from X-Artifact-Id.
func (h *Handler) DownloadArtifact(c *gin.Context) {
	name := c.Query("fileName")
	ticket := c.Query("ticket")
	if name == "" || ticket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileName and ticket are required"})
		return
	}

	claims, err := h.tickets.Validate(ticket, name)
	if err != nil {
		_ = c.Error(err)
		message := "Invalid download ticket"
		if errors.Is(err, auth.ErrExpiredTicket) {
			message = "Download ticket has expired"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": message})
		return
	}

	data, err := h.artifacts.Open(name)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, artifact.ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		case errors.Is(err, artifact.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		default:
			h.logger.Printf("Failed to open artifact %s: %v", name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		}
		return
	}

	download := claims.FileName
	if download == "" {
		download = name
	}
	attachment(c, download)
	c.Data(http.StatusOK, MimeDocx, data)
}

// decodeFileData accepts raw base64 or a data URL
func decodeFileData(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}
