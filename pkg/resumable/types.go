package resumable

import (
	"sort"

	"github.com/samber/lo"

	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/transfer"
)

// ResumableUpload tracks an in-flight multipart upload. CompletedParts maps
// part number to the ETag returned for it.
type ResumableUpload struct {
	ID             string           `json:"id"`
	UploadID       string           `json:"upload_id"`
	SourcePath     string           `json:"source_path"`
	Bucket         string           `json:"bucket"`
	Key            string           `json:"key"`
	FileSize       int64            `json:"file_size"`
	PartSize       int64            `json:"part_size"`
	CompletedParts map[int32]string `json:"completed_parts"`
	Credentials    credentials.Info `json:"credentials"`
	StartedAt      int64            `json:"started_at"`
	LastUpdated    int64            `json:"last_updated"`
}

// TotalParts is the number of parts the file splits into
func (u ResumableUpload) TotalParts() int32 {
	return int32(transfer.TotalParts(u.FileSize, u.PartSize))
}

// PartNumbers returns the completed part numbers in ascending order
func (u ResumableUpload) PartNumbers() []int32 {
	parts := lo.Keys(u.CompletedParts)
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
	return parts
}

// ConfirmedBytes is the amount of data covered by completed parts
func (u ResumableUpload) ConfirmedBytes() int64 {
	var n int64
	total := u.TotalParts()
	for part := range u.CompletedParts {
		if part == total {
			n += u.FileSize - int64(total-1)*u.PartSize
		} else {
			n += u.PartSize
		}
	}
	return n
}

func (u ResumableUpload) clone() ResumableUpload {
	parts := make(map[int32]string, len(u.CompletedParts))
	for k, v := range u.CompletedParts {
		parts[k] = v
	}
	u.CompletedParts = parts
	return u
}

// ResumableDownload tracks a partially written download
type ResumableDownload struct {
	ID              string           `json:"id"`
	Bucket          string           `json:"bucket"`
	Key             string           `json:"key"`
	DestinationPath string           `json:"destination_path"`
	TotalSize       int64            `json:"total_size"`
	BytesDownloaded int64            `json:"bytes_downloaded"`
	Credentials     credentials.Info `json:"credentials"`
	StartedAt       int64            `json:"started_at"`
	LastUpdated     int64            `json:"last_updated"`
}

// Percent is the downloaded share of TotalSize
func (d ResumableDownload) Percent() float64 {
	if d.TotalSize <= 0 {
		return 0
	}
	return float64(d.BytesDownloaded) / float64(d.TotalSize) * 100
}

// UploadParams describes a newly created multipart upload
type UploadParams struct {
	UploadID    string
	SourcePath  string
	Bucket      string
	Key         string
	FileSize    int64
	PartSize    int64
	Credentials credentials.Info
}

// DownloadParams describes a newly started download
type DownloadParams struct {
	Bucket          string
	Key             string
	DestinationPath string
	TotalSize       int64
	Credentials     credentials.Info
}

// table is the file format: {"uploads": {...}, "downloads": {...}}
type table struct {
	Uploads   map[string]ResumableUpload   `json:"uploads"`
	Downloads map[string]ResumableDownload `json:"downloads"`
}

func newTable() table {
	return table{
		Uploads:   make(map[string]ResumableUpload),
		Downloads: make(map[string]ResumableDownload),
	}
}

func (t table) clone() table {
	out := table{
		Uploads:   make(map[string]ResumableUpload, len(t.Uploads)),
		Downloads: make(map[string]ResumableDownload, len(t.Downloads)),
	}
	for id, u := range t.Uploads {
		out.Uploads[id] = u.clone()
	}
	for id, d := range t.Downloads {
		out.Downloads[id] = d
	}
	return out
}
