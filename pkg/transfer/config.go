package transfer

import (
	"errors"
	"time"
)

// TransferConfig holds all configuration for the transfer system
type TransferConfig struct {
	// Concurrency is the number of permits, i.e. jobs allowed to be active at once
	Concurrency int `json:"concurrency"`

	// Worker settings
	PollInterval time.Duration `json:"poll_interval"` // sleep between empty TryGetNext polls
	SaveInterval time.Duration `json:"save_interval"` // debounce for selection snapshot saves

	// Multipart settings
	MultipartThreshold int64         `json:"multipart_threshold"`
	PartSize           int64         `json:"part_size"`
	MinPartSize        int64         `json:"min_part_size"`
	MaxParts           int64         `json:"max_parts"`
	MaxPartAttempts    int           `json:"max_part_attempts"`
	PartRetryDelay     time.Duration `json:"part_retry_delay"`

	// DownloadPersistInterval is how many bytes a download moves between checkpoints
	DownloadPersistInterval int64 `json:"download_persist_interval"`

	// Event settings
	EventBufferSize    int `json:"event_buffer_size"`
	ProgressBufferSize int `json:"progress_buffer_size"`
}

// Size constants for the S3 multipart protocol
const (
	MiB                       = 1024 * 1024
	DefaultMultipartThreshold = 100 * MiB
	DefaultPartSize           = 8 * MiB
	MinPartSize               = 5 * MiB // S3 rejects smaller non-final parts
	MaxParts                  = 10000
	DefaultPersistInterval    = 10 * MiB
	DefaultConcurrency        = 8
)

// DefaultTransferConfig returns a configuration with sensible defaults
func DefaultTransferConfig() *TransferConfig {
	return &TransferConfig{
		Concurrency:  DefaultConcurrency,
		PollInterval: 100 * time.Millisecond,
		SaveInterval: 2 * time.Second,

		MultipartThreshold: DefaultMultipartThreshold,
		PartSize:           DefaultPartSize,
		MinPartSize:        MinPartSize,
		MaxParts:           MaxParts,
		MaxPartAttempts:    3,
		PartRetryDelay:     time.Second,

		DownloadPersistInterval: DefaultPersistInterval,

		EventBufferSize:    256,
		ProgressBufferSize: 256,
	}
}

// Validate checks if the configuration values are valid
func (tc *TransferConfig) Validate() error {
	if tc.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if tc.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if tc.SaveInterval < 0 {
		return errors.New("save_interval cannot be negative")
	}

	if tc.MinPartSize <= 0 {
		return errors.New("min_part_size must be positive")
	}
	if tc.PartSize < tc.MinPartSize {
		return errors.New("part_size cannot be less than min_part_size")
	}
	if tc.MultipartThreshold < tc.PartSize {
		return errors.New("multipart_threshold cannot be less than part_size")
	}
	if tc.MaxParts <= 0 || tc.MaxParts > MaxParts {
		return errors.New("max_parts must be between 1 and 10000")
	}
	if tc.MaxPartAttempts <= 0 {
		return errors.New("max_part_attempts must be positive")
	}
	if tc.PartRetryDelay < 0 {
		return errors.New("part_retry_delay cannot be negative")
	}

	if tc.DownloadPersistInterval <= 0 {
		return errors.New("download_persist_interval must be positive")
	}

	if tc.EventBufferSize <= 0 {
		return errors.New("event_buffer_size must be positive")
	}
	if tc.ProgressBufferSize <= 0 {
		return errors.New("progress_buffer_size must be positive")
	}

	return nil
}

// ShouldUseMultipart reports whether a file of the given size goes through multipart upload
func (tc *TransferConfig) ShouldUseMultipart(fileSize int64) bool {
	return fileSize >= tc.MultipartThreshold
}

// PartSizeFor returns the part size for a multipart upload of fileSize bytes.
// It starts from PartSize and, if that needs more than MaxParts parts, grows
// to the smallest whole MiB that fits.
func (tc *TransferConfig) PartSizeFor(fileSize int64) int64 {
	partSize := tc.PartSize
	if ceilDiv(fileSize, partSize) > tc.MaxParts {
		partSize = ceilDiv(fileSize, tc.MaxParts)
		partSize = ceilDiv(partSize, MiB) * MiB
	}
	if partSize < tc.MinPartSize {
		return tc.MinPartSize
	}
	return partSize
}

// TotalParts returns how many parts fileSize splits into
func TotalParts(fileSize, partSize int64) int64 {
	if partSize <= 0 {
		return 0
	}
	return ceilDiv(fileSize, partSize)
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
