package drive

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Drive MIME types
const (
	MimeFolder    = "application/vnd.google-apps.folder"
	MimeGoogleDoc = "application/vnd.google-apps.document"
	MimeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// googleAppsPrefix marks native files that have no byte size
	googleAppsPrefix = "application/vnd.google-apps."
)

// Field selections
const (
	FileFields      = "id,name,mimeType,size,modifiedTime,createdTime,parents"
	listFileFields  = "nextPageToken,files(" + FileFields + ")"
	maxPageSize     = 1000
	defaultPageSize = 100
)

// File is a snapshot of one remote file's metadata
type File struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size,string,omitempty"`
	ModifiedTime time.Time `json:"modifiedTime"`
	CreatedTime  time.Time `json:"createdTime"`
	Parents      []string  `json:"parents,omitempty"`
}

// IsFolder reports whether the file is a folder
func (f *File) IsFolder() bool {
	return f.MimeType == MimeFolder
}

// IsGoogleNative reports whether the file is a Google Docs editors file
func (f *File) IsGoogleNative() bool {
	return strings.HasPrefix(f.MimeType, googleAppsPrefix)
}

// FileList is one page of a listing
type FileList struct {
	NextPageToken string `json:"nextPageToken,omitempty"`
	Files         []File `json:"files"`
}

// ListParams selects files to list
type ListParams struct {
	Query     string
	OrderBy   string
	PageSize  int
	PageToken string
}

// ListFiles returns one page of files matching the query
func (c *Client) ListFiles(ctx context.Context, creds *Credentials, params ListParams) (*FileList, error) {
	query := c.listQuery()
	query.Set("q", params.Query)
	query.Set("fields", listFileFields)

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	query.Set("pageSize", strconv.Itoa(pageSize))

	if params.OrderBy != "" {
		query.Set("orderBy", params.OrderBy)
	}
	if params.PageToken != "" {
		query.Set("pageToken", params.PageToken)
	}

	var list FileList
	if err := c.getJSON(ctx, creds, "/files", query, &list); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return &list, nil
}

// ListAll follows page tokens until every match has been returned
func (c *Client) ListAll(ctx context.Context, creds *Credentials, q, orderBy string) ([]File, error) {
	var files []File
	params := ListParams{Query: q, OrderBy: orderBy, PageSize: maxPageSize}
	for {
		page, err := c.ListFiles(ctx, creds, params)
		if err != nil {
			return files, err
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		params.PageToken = page.NextPageToken
	}
}

// GetFile returns the metadata of one file
func (c *Client) GetFile(ctx context.Context, creds *Credentials, fileID string) (*File, error) {
	query := url.Values{}
	query.Set("fields", FileFields)
	query.Set("supportsAllDrives", "true")

	var file File
	if err := c.getJSON(ctx, creds, "/files/"+url.PathEscape(fileID), query, &file); err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}
	return &file, nil
}

// Download returns the raw bytes of a stored file
func (c *Client) Download(ctx context.Context, creds *Credentials, fileID string) ([]byte, error) {
	query := url.Values{}
	query.Set("alt", "media")
	query.Set("supportsAllDrives", "true")

	data, err := c.getBytes(ctx, creds, "/files/"+url.PathEscape(fileID), query)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	return data, nil
}

// Export converts a Google-native file to mimeType and returns the bytes
func (c *Client) Export(ctx context.Context, creds *Credentials, fileID, mimeType string) ([]byte, error) {
	query := url.Values{}
	query.Set("mimeType", mimeType)

	data, err := c.getBytes(ctx, creds, "/files/"+url.PathEscape(fileID)+"/export", query)
	if err != nil {
		return nil, fmt.Errorf("failed to export file %s: %w", fileID, err)
	}
	return data, nil
}

// Content returns the bytes of a file ready for text extraction together
// with their MIME type. Google Docs are exported as .docx; other native
// files have no byte content and yield nil data.
func (c *Client) Content(ctx context.Context, creds *Credentials, file *File) ([]byte, string, error) {
	switch {
	case file.MimeType == MimeGoogleDoc:
		data, err := c.Export(ctx, creds, file.ID, MimeDocx)
		return data, MimeDocx, err
	case file.IsGoogleNative():
		return nil, file.MimeType, nil
	}
	data, err := c.Download(ctx, creds, file.ID)
	return data, file.MimeType, err
}
