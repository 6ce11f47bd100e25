package resumable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/transfer"
)

var info = credentials.Info{Name: "personal", Region: "eu-north-1"}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("transfer_%d", n)
	}
}

func openTestStore(t *testing.T, dir string, opts ...Option) *Store {
	t.Helper()
	s, err := Open(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func uploadParams() UploadParams {
	return UploadParams{
		UploadID:    "mpu-1",
		SourcePath:  "/data/video.mkv",
		Bucket:      "media",
		Key:         "videos/video.mkv",
		FileSize:    20 * transfer.MiB,
		PartSize:    8 * transfer.MiB,
		Credentials: info,
	}
}

func TestStore_UploadLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := openTestStore(t, t.TempDir(), WithClock(clock.now), WithIDGenerator(sequentialIDs()))

	id, err := s.AddUpload(uploadParams())
	require.NoError(t, err)
	assert.Equal(t, "transfer_1", id)

	u, ok := s.Upload(id)
	require.True(t, ok)
	assert.Empty(t, u.CompletedParts)
	assert.Equal(t, int32(3), u.TotalParts())
	assert.Equal(t, int64(1700000000), u.StartedAt)

	clock.advance(time.Minute)
	require.NoError(t, s.UpdateUploadPart(id, 2, "etag-2"))
	require.NoError(t, s.UpdateUploadPart(id, 1, "etag-1"))

	u, _ = s.Upload(id)
	assert.Equal(t, []int32{1, 2}, u.PartNumbers())
	assert.Equal(t, int64(1700000060), u.LastUpdated)
	assert.Equal(t, int64(16*transfer.MiB), u.ConfirmedBytes())

	require.NoError(t, s.UpdateUploadPart(id, 3, "etag-3"))
	u, _ = s.Upload(id)
	assert.Equal(t, u.FileSize, u.ConfirmedBytes(), "last part is the remainder")

	require.NoError(t, s.CompleteUpload(id))
	_, ok = s.Upload(id)
	assert.False(t, ok)
}

func TestStore_UploadPartBounds(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	id, err := s.AddUpload(uploadParams())
	require.NoError(t, err)

	for _, part := range []int32{0, -1, 4, 10000} {
		err := s.UpdateUploadPart(id, part, "x")
		assert.ErrorIs(t, err, ErrPartOutOfRange, "part %d", part)
	}
	u, _ := s.Upload(id)
	assert.Empty(t, u.CompletedParts, "rejected parts leave no trace")
}

func TestStore_UpdateUnknownIDs(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	err := s.UpdateUploadPart("transfer_missing", 1, "x")
	assert.ErrorIs(t, err, ErrTransferNotFound)
	assert.Contains(t, err.Error(), "transfer_missing")

	assert.ErrorIs(t, s.UpdateDownloadProgress("transfer_missing", 1), ErrTransferNotFound)

	uploads, downloads := s.PendingCounts()
	assert.Zero(t, uploads)
	assert.Zero(t, downloads)

	assert.NoError(t, s.RemoveUpload("transfer_missing"))
	assert.NoError(t, s.RemoveDownload("transfer_missing"))
}

func TestStore_DownloadProgressIsMonotonic(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	id, err := s.AddDownload(DownloadParams{Bucket: "b", Key: "k", DestinationPath: "/tmp/k", TotalSize: 100, Credentials: info})
	require.NoError(t, err)

	require.NoError(t, s.UpdateDownloadProgress(id, 40))
	require.NoError(t, s.UpdateDownloadProgress(id, 20))
	d, _ := s.Download(id)
	assert.Equal(t, int64(40), d.BytesDownloaded, "regressions are ignored")
	assert.Equal(t, 40.0, d.Percent())

	assert.ErrorIs(t, s.UpdateDownloadProgress(id, 101), ErrBytesOutOfRange)
	require.NoError(t, s.UpdateDownloadProgress(id, 100))

	require.NoError(t, s.CompleteDownload(id))
	_, ok := s.Download(id)
	assert.False(t, ok)
}

func TestStore_WriteThrough(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	id, err := s.AddUpload(uploadParams())
	require.NoError(t, err)
	require.NoError(t, s.UpdateUploadPart(id, 1, "etag-1"))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	var onDisk struct {
		Uploads map[string]struct {
			CompletedParts map[string]string `json:"completed_parts"`
		} `json:"uploads"`
		Downloads map[string]json.RawMessage `json:"downloads"`
	}
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, map[string]string{"1": "etag-1"}, onDisk.Uploads[id].CompletedParts)
	assert.NotNil(t, onDisk.Downloads)
	require.NoError(t, s.Close())

	reopened := openTestStore(t, dir)
	u, ok := reopened.Upload(id)
	require.True(t, ok)
	assert.Equal(t, "etag-1", u.CompletedParts[1])
	assert.Equal(t, info, u.Credentials)
}

func TestStore_FailedWriteKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	id, err := s.AddUpload(uploadParams())
	require.NoError(t, err)

	// A non-empty directory at the table path makes the atomic rename fail
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o700))

	assert.Error(t, s.UpdateUploadPart(id, 1, "etag-1"))
	u, ok := s.Upload(id)
	require.True(t, ok)
	assert.Empty(t, u.CompletedParts, "memory must match the last good write")

	_, err = s.AddDownload(DownloadParams{Bucket: "b", Key: "k", TotalSize: 1})
	assert.Error(t, err)
	_, downloads := s.PendingCounts()
	assert.Zero(t, downloads)
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("]]"), 0o600))

	s := openTestStore(t, dir)
	uploads, downloads := s.PendingCounts()
	assert.Zero(t, uploads)
	assert.Zero(t, downloads)
}

func TestStore_SingleWriter(t *testing.T) {
	dir := t.TempDir()
	first := openTestStore(t, dir)

	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrStoreLocked)

	require.NoError(t, first.Close())
	second, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestStore_Find(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := openTestStore(t, t.TempDir(), WithClock(clock.now), WithIDGenerator(sequentialIDs()))

	old, err := s.AddUpload(uploadParams())
	require.NoError(t, err)
	clock.advance(time.Second)
	newer, err := s.AddUpload(uploadParams())
	require.NoError(t, err)

	p := uploadParams()
	u, ok := s.FindUpload(p.SourcePath, p.Bucket, p.Key, p.FileSize)
	require.True(t, ok)
	assert.Equal(t, newer, u.ID)
	assert.NotEqual(t, old, u.ID)

	_, ok = s.FindUpload(p.SourcePath, p.Bucket, p.Key, p.FileSize+1)
	assert.False(t, ok, "a changed file size invalidates the record")

	id, err := s.AddDownload(DownloadParams{Bucket: "b", Key: "k", DestinationPath: "/tmp/k", TotalSize: 10})
	require.NoError(t, err)
	d, ok := s.FindDownload("b", "k", "/tmp/k")
	require.True(t, ok)
	assert.Equal(t, id, d.ID)
	_, ok = s.FindDownload("b", "k", "/elsewhere")
	assert.False(t, ok)

	assert.Len(t, s.Uploads(), 2)
	assert.Len(t, s.Downloads(), 1)
}

func TestStore_DefaultIDs(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	a, err := s.AddDownload(DownloadParams{Bucket: "b", Key: "a", TotalSize: 1})
	require.NoError(t, err)
	b, err := s.AddDownload(DownloadParams{Bucket: "b", Key: "b", TotalSize: 1})
	require.NoError(t, err)

	assert.Regexp(t, `^transfer_[0-9a-f-]{36}$`, a)
	assert.NotEqual(t, a, b)
}

func TestPeek(t *testing.T) {
	dir := t.TempDir()
	uploads, downloads, err := Peek(dir)
	require.NoError(t, err)
	assert.Empty(t, uploads)
	assert.Empty(t, downloads)

	s := openTestStore(t, dir)
	_, err = s.AddUpload(uploadParams())
	require.NoError(t, err)

	uploads, _, err = Peek(dir)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "media", uploads[0].Bucket)
}
