package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sanjeevkumarraob/drive-search-service/internal/drive"
)

// Type filter values besides plain MIME types
const (
	TypeOther = "other"

	mimeMSWord = "application/msword"
	mimePDF    = "application/pdf"
	mimeXlsx   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXls    = "application/vnd.ms-excel"
)

// searchPageSize is the single page requested per search
const searchPageSize = 1000

// TypeOption is one entry of the file type filter
type TypeOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// TypeOptions lists the file type filters offered to the user
var TypeOptions = []TypeOption{
	{Label: "All Files", Value: ""},
	{Label: "Word Document (.docx)", Value: drive.MimeDocx},
	{Label: "MS Word (.doc)", Value: mimeMSWord},
	{Label: "Google Docs", Value: drive.MimeGoogleDoc},
	{Label: "Excel (.xlsx)", Value: mimeXlsx},
	{Label: "MS Excel (.xls)", Value: mimeXls},
	{Label: "PDF (.pdf)", Value: mimePDF},
	{Label: "Other", Value: TypeOther},
}

// Filter is one search request
type Filter struct {
	Query string `json:"query"`
	// FolderID limits the search to exactly this folder when set
	FolderID string `json:"folderId,omitempty"`
	// CurrentFolderID is the folder whose whole subtree is searched otherwise
	CurrentFolderID string `json:"currentFolderId,omitempty"`
	// MimeType is an exact MIME type, "other", or empty for all
	MimeType string `json:"mimeType,omitempty"`
}

// Response is the outcome of a search
type Response struct {
	Files       []drive.File `json:"files"`
	Count       int          `json:"count"`
	FolderCount int          `json:"folderCount"`
	// Message explains an empty result
	Message string `json:"message,omitempty"`
	// Partial is set when folder traversal failed part way
	Partial        bool   `json:"partial"`
	TraversalError string `json:"traversalError,omitempty"`
}

// Store is the part of the remote file store a search needs
type Store interface {
	drive.FolderLister
	ListFiles(ctx context.Context, creds *drive.Credentials, params drive.ListParams) (*drive.FileList, error)
	GetFile(ctx context.Context, creds *drive.Credentials, fileID string) (*drive.File, error)
}

// Orchestrator runs content searches across a folder subtree
type Orchestrator struct {
	store     Store
	traverser *drive.Traverser
	logger    *log.Logger
}

// NewOrchestrator creates a new search orchestrator
func NewOrchestrator(store Store, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		traverser: drive.NewTraverser(store, logger),
		logger:    logger,
	}
}

// Search validates the filter, resolves the folder set and lists matching
// files with one remote call. Validation failures make no remote call.
func (o *Orchestrator) Search(ctx context.Context, creds *drive.Credentials, filter Filter) (*Response, error) {
	query, err := ValidateQuery(filter.Query)
	if err != nil {
		return nil, err
	}

	resp := &Response{}

	var folderIDs []string
	if filter.FolderID != "" {
		folderIDs = []string{filter.FolderID}
	} else {
		current := filter.CurrentFolderID
		if current == "" {
			current = drive.RootFolderID
		}
		folderIDs, err = o.traverser.Expand(ctx, creds, []string{current})
		if err != nil {
			if ctx.Err() != nil || isAuthError(err) {
				return nil, err
			}
			// search what was reached
			resp.Partial = true
			resp.TraversalError = err.Error()
		}
	}
	resp.FolderCount = len(folderIDs)

	list, err := o.store.ListFiles(ctx, creds, drive.ListParams{
		Query:    BuildQuery(query, folderIDs, filter.MimeType),
		PageSize: searchPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	resp.Files = list.Files
	if resp.Files == nil {
		resp.Files = []drive.File{}
	}
	resp.Count = len(resp.Files)

	if resp.Count == 0 {
		resp.Message = o.emptyMessage(ctx, creds, query, filter)
	}

	o.logger.Printf("Search %q over %d folders returned %d files", query, len(folderIDs), resp.Count)
	return resp, nil
}

// BuildQuery builds the remote query expression for a validated search
func BuildQuery(query string, folderIDs []string, mimeType string) string {
	escaped := drive.EscapeQuery(query)

	var sb strings.Builder
	sb.WriteString("mimeType != '" + drive.MimeFolder + "' and trashed = false")
	sb.WriteString(" and " + drive.InParents(folderIDs))
	sb.WriteString(" and (name contains '" + escaped + "' or fullText contains '" + escaped + "')")
	sb.WriteString(typeClause(mimeType))
	return sb.String()
}

// typeClause narrows the query by file type. "other" excludes the document
// types that have their own filter.
func typeClause(mimeType string) string {
	switch mimeType {
	case "":
		return ""
	case TypeOther:
		return " and (mimeType != '" + drive.MimeGoogleDoc + "' and mimeType != '" + drive.MimeDocx + "' and mimeType != '" + mimeMSWord + "')"
	}
	return " and mimeType = '" + drive.EscapeQuery(mimeType) + "'"
}

// emptyMessage explains a search without results in terms of its filters
func (o *Orchestrator) emptyMessage(ctx context.Context, creds *drive.Credentials, query string, filter Filter) string {
	message := `No results found for "` + query + `"`

	if filter.FolderID != "" {
		name := "selected folder"
		if folder, err := o.store.GetFile(ctx, creds, filter.FolderID); err == nil && folder.Name != "" {
			name = folder.Name
		}
		message += " in " + name
	}

	if filter.MimeType != "" {
		message += " with " + TypeLabel(filter.MimeType)
	}

	return message + ". Please try different filters."
}

// TypeLabel returns the display label of a type filter value
func TypeLabel(value string) string {
	for _, opt := range TypeOptions {
		if opt.Value == value {
			return opt.Label
		}
	}
	return "selected file type"
}

func isAuthError(err error) bool {
	return errors.Is(err, drive.ErrReauthenticate) || errors.Is(err, drive.ErrUnauthorized)
}
