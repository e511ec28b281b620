package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sanjeevkumarraob/drive-search-service/internal/artifact"
	"github.com/sanjeevkumarraob/drive-search-service/internal/combine"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document"
	"github.com/sanjeevkumarraob/drive-search-service/internal/drive"
)

// Source is the part of the remote file store the pipeline reads from
type Source interface {
	GetFile(ctx context.Context, creds *drive.Credentials, fileID string) (*drive.File, error)
	Content(ctx context.Context, creds *drive.Credentials, file *drive.File) ([]byte, string, error)
}

// Batch is the ordered extraction results of one request
type Batch struct {
	Results []document.Result `json:"results"`
	// Excluded counts requested files beyond the batch cap
	Excluded int `json:"excluded"`
}

// Artifact is a rendered combined document
type Artifact struct {
	// ID names the stored copy; empty when the exporter has no store
	ID       string
	Name     string
	Data     []byte
	Files    int
	Excluded int
}

// Exporter fetches files, extracts their text and combines them
type Exporter struct {
	source    Source
	processor *document.Processor
	store     *artifact.Store
	logger    *log.Logger
	now       func() time.Time
}

// NewExporter creates a new export pipeline. A nil store skips persisting
// rendered documents.
func NewExporter(source Source, processor *document.Processor, store *artifact.Store, logger *log.Logger) *Exporter {
	return &Exporter{
		source:    source,
		processor: processor,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// ExtractBatch extracts up to combine.MaxFiles files in order. Every file
// yields a result; only an authorization failure ends the batch early.
func (e *Exporter) ExtractBatch(ctx context.Context, creds *drive.Credentials, fileIDs []string) (*Batch, error) {
	batch := &Batch{}
	if len(fileIDs) > combine.MaxFiles {
		batch.Excluded = len(fileIDs) - combine.MaxFiles
		fileIDs = fileIDs[:combine.MaxFiles]
		e.logger.Printf("Batch capped at %d files, %d excluded", combine.MaxFiles, batch.Excluded)
	}

	batch.Results = make([]document.Result, 0, len(fileIDs))
	for _, id := range fileIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := e.extractOne(ctx, creds, id)
		if err != nil {
			return nil, err
		}
		batch.Results = append(batch.Results, result)
	}
	return batch, nil
}

func (e *Exporter) extractOne(ctx context.Context, creds *drive.Credentials, fileID string) (document.Result, error) {
	file, err := e.source.GetFile(ctx, creds, fileID)
	if err != nil {
		if isAuthError(err) {
			return document.Result{}, err
		}
		e.logger.Printf("Failed to get metadata for %s: %v", fileID, err)
		return document.FailedResult(document.FileInfo{Name: fileID}, err), nil
	}

	info := document.FileInfo{
		Name:         file.Name,
		MimeType:     file.MimeType,
		Size:         file.Size,
		ModifiedTime: file.ModifiedTime,
	}

	data, dataMIME, err := e.source.Content(ctx, creds, file)
	if err != nil {
		if isAuthError(err) {
			return document.Result{}, err
		}
		e.logger.Printf("Failed to fetch content of %q: %v", file.Name, err)
		return document.FailedResult(info, err), nil
	}

	return e.processor.ExtractFile(ctx, document.Input{Info: info, Data: data, DataMIME: dataMIME}), nil
}

// Export extracts the files and renders them into one stored document
func (e *Exporter) Export(ctx context.Context, creds *drive.Credentials, fileIDs []string, query string) (*Artifact, error) {
	batch, err := e.ExtractBatch(ctx, creds, fileIDs)
	if err != nil {
		return nil, err
	}

	art, err := e.Combine(batch.Results, query)
	if err != nil {
		return nil, err
	}
	art.Excluded += batch.Excluded
	return art, nil
}

// Combine renders already extracted results into one stored document.
// Nothing is stored when rendering fails.
func (e *Exporter) Combine(results []document.Result, query string) (*Artifact, error) {
	now := e.now()
	doc := combine.Combine(results, query, now)

	data, err := combine.RenderBytes(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render combined document: %w", err)
	}

	art := &Artifact{
		Name:     combine.FileName(query, now),
		Data:     data,
		Files:    len(doc.Sections),
		Excluded: doc.Excluded,
	}

	if e.store != nil {
		id, err := e.store.Create(".docx", data)
		if err != nil {
			return nil, fmt.Errorf("failed to store combined document: %w", err)
		}
		art.ID = id
	}

	e.logger.Printf("Combined %d files into %s [%s] (%d bytes)", art.Files, art.Name, art.ID, len(data))
	return art, nil
}

func isAuthError(err error) bool {
	return errors.Is(err, drive.ErrReauthenticate) || errors.Is(err, drive.ErrUnauthorized)
}
