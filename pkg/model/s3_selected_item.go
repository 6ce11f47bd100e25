package model

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// S3SelectedItem is an object, prefix or bucket picked for download.
// JobID is zero until the item is queued.
type S3SelectedItem struct {
	Bucket         string                     `json:"bucket"`
	Name           string                     `json:"name"`
	Path           string                     `json:"path,omitempty"`
	IsDirectory    bool                       `json:"is_directory"`
	IsBucket       bool                       `json:"is_bucket"`
	DestinationDir string                     `json:"destination_dir"`
	Creds          credentials.FileCredential `json:"s3_creds"`
	Children       []S3SelectedItem           `json:"children,omitempty"`
	State          transfer.TransferState     `json:"transfer_state"`
	JobID          transfer.JobID             `json:"job_id,omitempty"`
}

// NewS3Object selects a single object for download into destinationDir
func NewS3Object(bucket, key, destinationDir string, creds credentials.FileCredential) S3SelectedItem {
	return S3SelectedItem{
		Bucket:         bucket,
		Name:           path.Base(key),
		Path:           key,
		DestinationDir: destinationDir,
		Creds:          creds,
	}
}

// NewS3Prefix selects everything under prefix. An empty prefix selects the
// whole bucket. Children are filled in by WithObjects once listed.
func NewS3Prefix(bucket, prefix, destinationDir string, creds credentials.FileCredential) S3SelectedItem {
	item := S3SelectedItem{
		Bucket:         bucket,
		Name:           path.Base(strings.TrimSuffix(prefix, "/")),
		Path:           prefix,
		IsDirectory:    prefix != "",
		IsBucket:       prefix == "",
		DestinationDir: destinationDir,
		Creds:          creds,
	}
	if item.IsBucket {
		item.Name = bucket
	}
	return item
}

// Key is the object key, which falls back to the name for items that
// were selected at the bucket root.
func (s S3SelectedItem) Key() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Name
}

// LocalPath is where the object lands on disk
func (s S3SelectedItem) LocalPath() string {
	return filepath.Join(s.DestinationDir, filepath.FromSlash(s.Key()))
}

// NeedsListing reports whether the item is a prefix or bucket whose
// objects are not known yet.
func (s S3SelectedItem) NeedsListing() bool {
	return (s.IsDirectory || s.IsBucket) && len(s.Children) == 0
}

// WithObjects returns a copy of s with one child per listed key. Keys that
// name a prefix marker (ending in "/") are skipped.
func (s S3SelectedItem) WithObjects(keys []string) S3SelectedItem {
	s.Children = make([]S3SelectedItem, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}
		s.Children = append(s.Children, NewS3Object(s.Bucket, key, s.DestinationDir, s.Creds))
	}
	return s
}

// Equal compares identity fields only
func (s S3SelectedItem) Equal(other S3SelectedItem) bool {
	return s.Name == other.Name &&
		s.Bucket == other.Bucket &&
		s.Path == other.Path &&
		s.IsDirectory == other.IsDirectory &&
		s.IsBucket == other.IsBucket
}

func (s S3SelectedItem) IsTransferred() bool { return s.State.IsCompleted() }

func (s S3SelectedItem) ChildItems() []S3SelectedItem { return s.Children }

func (s S3SelectedItem) IsLeaf() bool { return len(s.Children) == 0 }

func (s S3SelectedItem) WithChildren(children []S3SelectedItem) S3SelectedItem {
	s.Children = children
	return s
}

func s3Children(s *S3SelectedItem) []S3SelectedItem { return s.Children }

// WalkS3 visits every item and child through pointers
func WalkS3(items []S3SelectedItem, fn func(*S3SelectedItem) bool) bool {
	return walk(items, s3Children, fn)
}

// SetS3State records state on the item queued as id
func SetS3State(items []S3SelectedItem, id transfer.JobID, state transfer.TransferState) bool {
	if id == 0 {
		return false
	}
	return WalkS3(items, func(item *S3SelectedItem) bool {
		if item.JobID != id {
			return false
		}
		item.State = state
		return true
	})
}

// FindS3 returns the item queued as id
func FindS3(items []S3SelectedItem, id transfer.JobID) (S3SelectedItem, bool) {
	var found S3SelectedItem
	ok := id != 0 && WalkS3(items, func(item *S3SelectedItem) bool {
		if item.JobID == id {
			found = *item
			return true
		}
		return false
	})
	return found, ok
}

// ContainsS3 reports whether a top level item equal to item is present
func ContainsS3(items []S3SelectedItem, item S3SelectedItem) bool {
	for _, existing := range items {
		if existing.Equal(item) {
			return true
		}
	}
	return false
}
