package model

import (
	"path"
	"strings"

	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/fileInfo"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// LocalSelectedItem is a local file or directory picked for upload.
// DestinationPath is either a key prefix (ending in "/", "/" alone being
// the bucket root) or the full destination key.
type LocalSelectedItem struct {
	Name              string                     `json:"name"`
	Path              string                     `json:"path"`
	IsDirectory       bool                       `json:"is_directory"`
	DestinationBucket string                     `json:"destination_bucket"`
	DestinationPath   string                     `json:"destination_path"`
	Creds             credentials.FileCredential `json:"s3_creds"`
	Children          []LocalSelectedItem        `json:"children,omitempty"`
	State             transfer.TransferState     `json:"transfer_state"`
	JobID             transfer.JobID             `json:"job_id,omitempty"`
}

// NewLocalSelection builds the selection for localPath. Directories are
// walked once and every file becomes a child keyed under
// destinationPrefix/<dir name>/.
func NewLocalSelection(localPath, bucket, destinationPrefix string, creds credentials.FileCredential) (LocalSelectedItem, error) {
	node, err := fileInfo.CreateNode(localPath)
	if err != nil {
		return LocalSelectedItem{}, err
	}
	if destinationPrefix == "" {
		destinationPrefix = "/"
	}
	item := LocalSelectedItem{
		Name:              node.Name,
		Path:              node.Path,
		IsDirectory:       node.IsDir,
		DestinationBucket: bucket,
		DestinationPath:   destinationPrefix,
		Creds:             creds,
	}
	if !node.IsDir {
		return item, nil
	}

	base := path.Join(strings.TrimPrefix(destinationPrefix, "/"), node.Name)
	files := node.Files()
	item.Children = make([]LocalSelectedItem, 0, len(files))
	for _, f := range files {
		item.Children = append(item.Children, LocalSelectedItem{
			Name:              f.Name,
			Path:              f.Path,
			DestinationBucket: bucket,
			DestinationPath:   path.Join(base, node.Rel(f)),
			Creds:             creds,
		})
	}
	return item, nil
}

// DestinationKey is the object key the file is uploaded to
func (l LocalSelectedItem) DestinationKey() string {
	if l.DestinationPath == "" || strings.HasSuffix(l.DestinationPath, "/") {
		return path.Join(strings.TrimPrefix(l.DestinationPath, "/"), l.Name)
	}
	return strings.TrimPrefix(l.DestinationPath, "/")
}

// Equal compares identity fields only
func (l LocalSelectedItem) Equal(other LocalSelectedItem) bool {
	return l.Name == other.Name &&
		l.Path == other.Path &&
		l.IsDirectory == other.IsDirectory
}

func (l LocalSelectedItem) IsTransferred() bool { return l.State.IsCompleted() }

func (l LocalSelectedItem) ChildItems() []LocalSelectedItem { return l.Children }

func (l LocalSelectedItem) IsLeaf() bool { return len(l.Children) == 0 }

func (l LocalSelectedItem) WithChildren(children []LocalSelectedItem) LocalSelectedItem {
	l.Children = children
	return l
}

func localChildren(l *LocalSelectedItem) []LocalSelectedItem { return l.Children }

// WalkLocal visits every item and child through pointers
func WalkLocal(items []LocalSelectedItem, fn func(*LocalSelectedItem) bool) bool {
	return walk(items, localChildren, fn)
}

// SetLocalState records state on the item queued as id
func SetLocalState(items []LocalSelectedItem, id transfer.JobID, state transfer.TransferState) bool {
	if id == 0 {
		return false
	}
	return WalkLocal(items, func(item *LocalSelectedItem) bool {
		if item.JobID != id {
			return false
		}
		item.State = state
		return true
	})
}

// FindLocal returns the item queued as id
func FindLocal(items []LocalSelectedItem, id transfer.JobID) (LocalSelectedItem, bool) {
	var found LocalSelectedItem
	ok := id != 0 && WalkLocal(items, func(item *LocalSelectedItem) bool {
		if item.JobID == id {
			found = *item
			return true
		}
		return false
	})
	return found, ok
}

// ContainsLocal reports whether a top level item equal to item is present
func ContainsLocal(items []LocalSelectedItem, item LocalSelectedItem) bool {
	for _, existing := range items {
		if existing.Equal(item) {
			return true
		}
	}
	return false
}
