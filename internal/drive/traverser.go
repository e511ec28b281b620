package drive

import (
	"context"
	"fmt"
	"log"
)

// defaultParentsPerQuery bounds how many parent ids one listing query names
const defaultParentsPerQuery = 40

// FolderLister lists the folders directly under a set of parents
type FolderLister interface {
	ListChildFolders(ctx context.Context, creds *Credentials, parentIDs []string) ([]File, error)
}

// ListChildFolders returns every non-trashed folder under any of parentIDs
func (c *Client) ListChildFolders(ctx context.Context, creds *Credentials, parentIDs []string) ([]File, error) {
	return c.ListAll(ctx, creds, ChildFoldersQuery(parentIDs), "")
}

// Traverser expands folder ids into their descendant closure
type Traverser struct {
	lister          FolderLister
	logger          *log.Logger
	parentsPerQuery int
}

// NewTraverser creates a new traverser
func NewTraverser(lister FolderLister, logger *log.Logger) *Traverser {
	return &Traverser{
		lister:          lister,
		logger:          logger,
		parentsPerQuery: defaultParentsPerQuery,
	}
}

// Expand walks the folder tree breadth first from seeds and returns the
// seeds plus every descendant folder id, without duplicates, in discovery
// order. When a level fails, the ids gathered through the previous level are
// returned together with the error; callers may use them as a partial result.
func (t *Traverser) Expand(ctx context.Context, creds *Credentials, seeds []string) ([]string, error) {
	seen := make(map[string]bool, len(seeds))
	var ids []string
	for _, id := range seeds {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	frontier := ids
	for level := 1; len(frontier) > 0; level++ {
		children, err := t.listLevel(ctx, creds, frontier)
		if err != nil {
			t.logger.Printf("Folder traversal stopped at level %d with %d folders: %v", level, len(ids), err)
			return ids, fmt.Errorf("folder traversal level %d: %w", level, err)
		}

		var next []string
		for _, f := range children {
			if !seen[f.ID] {
				seen[f.ID] = true
				ids = append(ids, f.ID)
				next = append(next, f.ID)
			}
		}
		frontier = next
	}

	return ids, nil
}

// listLevel lists the children of a whole frontier, a chunk at a time.
// A level is all or nothing so that a partial result ends on a full level.
func (t *Traverser) listLevel(ctx context.Context, creds *Credentials, frontier []string) ([]File, error) {
	var children []File
	for start := 0; start < len(frontier); start += t.parentsPerQuery {
		end := start + t.parentsPerQuery
		if end > len(frontier) {
			end = len(frontier)
		}

		files, err := t.lister.ListChildFolders(ctx, creds, frontier[start:end])
		if err != nil {
			return nil, err
		}
		children = append(children, files...)
	}
	return children, nil
}
