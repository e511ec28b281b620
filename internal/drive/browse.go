package drive

import (
	"context"
	"fmt"
	"time"
)

// newItemWindow is how far back an item counts as new in folder stats
const newItemWindow = 7 * 24 * time.Hour

// FolderStats summarises the direct children of a folder
type FolderStats struct {
	Folders    int   `json:"folders"`
	Files      int   `json:"files"`
	TotalSize  int64 `json:"totalSize"`
	NewFolders int   `json:"newFolders"`
	NewFiles   int   `json:"newFiles"`
}

// ChildFolders lists the folders directly under folderID, by name
func (c *Client) ChildFolders(ctx context.Context, creds *Credentials, folderID string) ([]File, error) {
	return c.ListAll(ctx, creds, ChildFoldersQuery([]string{folderID}), "name")
}

// ChildFiles lists the non-folder files directly under folderID, by name
func (c *Client) ChildFiles(ctx context.Context, creds *Credentials, folderID string) ([]File, error) {
	return c.ListAll(ctx, creds, ChildFilesQuery(folderID), "name")
}

// Parent returns the first parent id of a file, or "" at the top
func (c *Client) Parent(ctx context.Context, creds *Credentials, fileID string) (string, error) {
	file, err := c.GetFile(ctx, creds, fileID)
	if err != nil {
		return "", err
	}
	if len(file.Parents) == 0 {
		return "", nil
	}
	return file.Parents[0], nil
}

// Stats counts the children of folderID as of now
func (c *Client) Stats(ctx context.Context, creds *Credentials, folderID string, now time.Time) (*FolderStats, error) {
	children, err := c.ListAll(ctx, creds, ChildrenQuery(folderID), "")
	if err != nil {
		return nil, fmt.Errorf("failed to collect folder stats: %w", err)
	}
	return ComputeStats(children, now), nil
}

// ComputeStats summarises a listing. Native Google files have no size and
// do not count towards TotalSize.
func ComputeStats(children []File, now time.Time) *FolderStats {
	stats := &FolderStats{}
	cutoff := now.Add(-newItemWindow)

	for i := range children {
		f := &children[i]
		isNew := !f.CreatedTime.IsZero() && f.CreatedTime.After(cutoff)

		if f.IsFolder() {
			stats.Folders++
			if isNew {
				stats.NewFolders++
			}
			continue
		}

		stats.Files++
		if isNew {
			stats.NewFiles++
		}
		if !f.IsGoogleNative() {
			stats.TotalSize += f.Size
		}
	}
	return stats
}
