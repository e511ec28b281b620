package drive

import (
	"strings"
)

// RootFolderID is the sentinel for the top-level container
const RootFolderID = "root"

// EscapeQuery escapes a value for use inside a single-quoted query literal
func EscapeQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

// InParents builds "('a' in parents or 'b' in parents)"
func InParents(ids []string) string {
	clauses := make([]string, 0, len(ids))
	for _, id := range ids {
		clauses = append(clauses, "'"+EscapeQuery(id)+"' in parents")
	}
	return "(" + strings.Join(clauses, " or ") + ")"
}

// ChildFoldersQuery selects non-trashed folders directly under any of ids
func ChildFoldersQuery(ids []string) string {
	return "mimeType = '" + MimeFolder + "' and trashed = false and " + InParents(ids)
}

// ChildFilesQuery selects non-trashed, non-folder files directly under id
func ChildFilesQuery(id string) string {
	return "mimeType != '" + MimeFolder + "' and trashed = false and " + InParents([]string{id})
}

// ChildrenQuery selects every non-trashed item directly under id
func ChildrenQuery(id string) string {
	return "trashed = false and " + InParents([]string{id})
}
