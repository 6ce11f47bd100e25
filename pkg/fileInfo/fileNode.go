package fileInfo

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when detection fails
const DefaultContentType = "application/octet-stream"

type FileNode struct {
	Name     string     `json:"name"`
	IsDir    bool       `json:"is_dir"`
	Size     int64      `json:"size"`
	MimeType string     `json:"mime_type,omitempty"`
	Children []FileNode `json:"children,omitempty"`
	Path     string     `json:"-"`
}

// CreateNode stats path and, for directories, walks it recursively.
// Unreadable children are skipped and logged.
func CreateNode(path string) (FileNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileNode{}, err
	}
	node := FileNode{
		Name:  info.Name(),
		IsDir: info.IsDir(),
		Size:  info.Size(),
		Path:  path,
	}
	if !node.IsDir {
		node.MimeType = DetectContentType(path)
		return node, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return FileNode{}, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	node.Size = 0
	node.Children = make([]FileNode, 0, len(entries))
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		child, err := CreateNode(childPath)
		if err != nil {
			slog.Warn("Skipping unreadable entry", "path", childPath, "error", err)
			continue
		}
		node.Children = append(node.Children, child)
		node.Size += child.Size
	}
	return node, nil
}

// DetectContentType sniffs the MIME type of the file at path
func DetectContentType(path string) string {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return DefaultContentType
	}
	return mime.String()
}

// Files returns every regular file under n, depth first. A file node
// returns itself.
func (n FileNode) Files() []FileNode {
	if !n.IsDir {
		return []FileNode{n}
	}
	var files []FileNode
	for _, child := range n.Children {
		files = append(files, child.Files()...)
	}
	return files
}

// Rel returns the slash separated path of child relative to n
func (n FileNode) Rel(child FileNode) string {
	rel, err := filepath.Rel(n.Path, child.Path)
	if err != nil {
		return child.Name
	}
	return filepath.ToSlash(rel)
}
