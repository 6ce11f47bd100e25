// Package resumable records part and byte level progress of large
// transfers so an interrupted upload or download can continue where it
// stopped instead of starting over.
//
// Every mutation is written to disk before it returns.
package resumable

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// FileName is the table file inside the data directory
const FileName = "transfer_state.json"

var (
	ErrStoreLocked      = errors.New("transfer state is in use by another process")
	ErrTransferNotFound = errors.New("transfer not found")
	ErrPartOutOfRange   = errors.New("part number out of range")
	ErrBytesOutOfRange  = errors.New("downloaded bytes exceed object size")
)

type Store struct {
	mu    sync.RWMutex
	path  string
	lock  *flock.Flock
	state table

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithClock replaces time.Now for started/updated timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid based transfer id generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func newTransferID() string {
	return "transfer_" + uuid.NewString()
}

// Open loads the table from dataDir and takes the single writer lock. An
// undecodable table is logged and replaced by an empty one.
func Open(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, FileName)

	s := &Store{
		path:  path,
		lock:  flock.New(path + ".lock"),
		state: newTable(),
		now:   time.Now,
		newID: newTransferID,
	}
	for _, opt := range opts {
		opt(s)
	}

	locked, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, s.lock.Path())
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		slog.Warn("Failed to read transfer state, starting fresh", "path", path, "error", err)
	default:
		loaded := newTable()
		if err := json.Unmarshal(data, &loaded); err != nil {
			slog.Warn("Failed to decode transfer state, starting fresh", "path", path, "error", err)
			break
		}
		if loaded.Uploads == nil {
			loaded.Uploads = make(map[string]ResumableUpload)
		}
		if loaded.Downloads == nil {
			loaded.Downloads = make(map[string]ResumableDownload)
		}
		s.state = loaded
		slog.Info("Loaded transfer state", "uploads", len(loaded.Uploads), "downloads", len(loaded.Downloads))
	}
	return s, nil
}

// Path is the table file location
func (s *Store) Path() string {
	return s.path
}

// Close releases the process lock
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// mutate applies fn to a copy of the table and swaps it in only once the
// copy is on disk. A failed write leaves memory and disk as they were.
func (s *Store) mutate(fn func(t *table) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	changed, err := fn(&next)
	if err != nil || !changed {
		return err
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transfer state: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write transfer state: %w", err)
	}
	s.state = next
	return nil
}

func (s *Store) timestamp() int64 {
	return s.now().Unix()
}

// AddUpload registers a multipart upload with no completed parts
func (s *Store) AddUpload(p UploadParams) (string, error) {
	id := s.newID()
	now := s.timestamp()
	err := s.mutate(func(t *table) (bool, error) {
		t.Uploads[id] = ResumableUpload{
			ID:             id,
			UploadID:       p.UploadID,
			SourcePath:     p.SourcePath,
			Bucket:         p.Bucket,
			Key:            p.Key,
			FileSize:       p.FileSize,
			PartSize:       p.PartSize,
			CompletedParts: make(map[int32]string),
			Credentials:    p.Credentials,
			StartedAt:      now,
			LastUpdated:    now,
		}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	slog.Debug("Tracking multipart upload", "id", id, "bucket", p.Bucket, "key", p.Key)
	return id, nil
}

// UpdateUploadPart records a confirmed part. Part numbers outside
// [1, TotalParts] are rejected.
func (s *Store) UpdateUploadPart(id string, part int32, etag string) error {
	return s.mutate(func(t *table) (bool, error) {
		upload, ok := t.Uploads[id]
		if !ok {
			return false, fmt.Errorf("%w: upload %s", ErrTransferNotFound, id)
		}
		if total := upload.TotalParts(); part < 1 || part > total {
			return false, fmt.Errorf("%w: part %d of %d for upload %s", ErrPartOutOfRange, part, total, id)
		}
		upload.CompletedParts[part] = etag
		upload.LastUpdated = s.timestamp()
		t.Uploads[id] = upload
		return true, nil
	})
}

// CompleteUpload erases a finished upload
func (s *Store) CompleteUpload(id string) error {
	if err := s.RemoveUpload(id); err != nil {
		return err
	}
	slog.Debug("Upload completed and removed from state", "id", id)
	return nil
}

// RemoveUpload erases a failed or abandoned upload. Unknown ids are ignored.
func (s *Store) RemoveUpload(id string) error {
	return s.mutate(func(t *table) (bool, error) {
		if _, ok := t.Uploads[id]; !ok {
			return false, nil
		}
		delete(t.Uploads, id)
		return true, nil
	})
}

// Upload returns the record for id
func (s *Store) Upload(id string) (ResumableUpload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.Uploads[id]
	if !ok {
		return ResumableUpload{}, false
	}
	return u.clone(), true
}

// FindUpload returns the most recently updated upload of sourcePath to
// bucket/key whose file size still matches.
func (s *Store) FindUpload(sourcePath, bucket, key string, fileSize int64) (ResumableUpload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best ResumableUpload
	found := false
	for _, u := range s.state.Uploads {
		if u.SourcePath != sourcePath || u.Bucket != bucket || u.Key != key || u.FileSize != fileSize {
			continue
		}
		if !found || u.LastUpdated > best.LastUpdated {
			best, found = u, true
		}
	}
	if !found {
		return ResumableUpload{}, false
	}
	return best.clone(), true
}

// AddDownload registers a download with zero bytes written
func (s *Store) AddDownload(p DownloadParams) (string, error) {
	id := s.newID()
	now := s.timestamp()
	err := s.mutate(func(t *table) (bool, error) {
		t.Downloads[id] = ResumableDownload{
			ID:              id,
			Bucket:          p.Bucket,
			Key:             p.Key,
			DestinationPath: p.DestinationPath,
			TotalSize:       p.TotalSize,
			Credentials:     p.Credentials,
			StartedAt:       now,
			LastUpdated:     now,
		}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	slog.Debug("Tracking download", "id", id, "bucket", p.Bucket, "key", p.Key)
	return id, nil
}

// UpdateDownloadProgress records bytes written so far. Values past the
// object size are rejected and values below the recorded count are
// ignored, so the count never goes backwards.
func (s *Store) UpdateDownloadProgress(id string, bytes int64) error {
	return s.mutate(func(t *table) (bool, error) {
		download, ok := t.Downloads[id]
		if !ok {
			return false, fmt.Errorf("%w: download %s", ErrTransferNotFound, id)
		}
		if bytes < 0 || (download.TotalSize > 0 && bytes > download.TotalSize) {
			return false, fmt.Errorf("%w: %d of %d for download %s", ErrBytesOutOfRange, bytes, download.TotalSize, id)
		}
		if bytes <= download.BytesDownloaded {
			return false, nil
		}
		download.BytesDownloaded = bytes
		download.LastUpdated = s.timestamp()
		t.Downloads[id] = download
		return true, nil
	})
}

// CompleteDownload erases a finished download
func (s *Store) CompleteDownload(id string) error {
	if err := s.RemoveDownload(id); err != nil {
		return err
	}
	slog.Debug("Download completed and removed from state", "id", id)
	return nil
}

// RemoveDownload erases a failed or abandoned download. Unknown ids are ignored.
func (s *Store) RemoveDownload(id string) error {
	return s.mutate(func(t *table) (bool, error) {
		if _, ok := t.Downloads[id]; !ok {
			return false, nil
		}
		delete(t.Downloads, id)
		return true, nil
	})
}

// Download returns the record for id
func (s *Store) Download(id string) (ResumableDownload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.Downloads[id]
	return d, ok
}

// FindDownload returns the most recently updated download of bucket/key
// into destination.
func (s *Store) FindDownload(bucket, key, destination string) (ResumableDownload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best ResumableDownload
	found := false
	for _, d := range s.state.Downloads {
		if d.Bucket != bucket || d.Key != key || d.DestinationPath != destination {
			continue
		}
		if !found || d.LastUpdated > best.LastUpdated {
			best, found = d, true
		}
	}
	return best, found
}

// PendingCounts returns how many uploads and downloads are tracked
func (s *Store) PendingCounts() (uploads, downloads int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Uploads), len(s.state.Downloads)
}

// Uploads returns a copy of every tracked upload
func (s *Store) Uploads() []ResumableUpload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ResumableUpload, 0, len(s.state.Uploads))
	for _, u := range s.state.Uploads {
		out = append(out, u.clone())
	}
	return out
}

// Downloads returns a copy of every tracked download
func (s *Store) Downloads() []ResumableDownload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ResumableDownload, 0, len(s.state.Downloads))
	for _, d := range s.state.Downloads {
		out = append(out, d)
	}
	return out
}

// Peek reads the table in dataDir without taking the lock, for reporting
// while another process owns the store.
func Peek(dataDir string) ([]ResumableUpload, []ResumableDownload, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var t table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, nil, fmt.Errorf("decode transfer state: %w", err)
	}
	uploads := make([]ResumableUpload, 0, len(t.Uploads))
	for _, u := range t.Uploads {
		uploads = append(uploads, u)
	}
	downloads := make([]ResumableDownload, 0, len(t.Downloads))
	for _, d := range t.Downloads {
		downloads = append(downloads, d)
	}
	return uploads, downloads, nil
}
