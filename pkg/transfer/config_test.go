package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransferConfig(t *testing.T) {
	config := DefaultTransferConfig()
	require.NotNil(t, config)
	require.NoError(t, config.Validate(), "default config should be valid")

	assert.Equal(t, DefaultConcurrency, config.Concurrency)
	assert.Equal(t, int64(DefaultPartSize), config.PartSize)
	assert.Equal(t, int64(DefaultMultipartThreshold), config.MultipartThreshold)
}

func TestTransferConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*TransferConfig)
		errorMsg string
	}{
		{"zero concurrency", func(c *TransferConfig) { c.Concurrency = 0 }, "concurrency must be positive"},
		{"zero poll interval", func(c *TransferConfig) { c.PollInterval = 0 }, "poll_interval must be positive"},
		{"part below minimum", func(c *TransferConfig) { c.PartSize = MinPartSize - 1 }, "part_size cannot be less than min_part_size"},
		{"too many parts", func(c *TransferConfig) { c.MaxParts = MaxParts + 1 }, "max_parts must be between 1 and 10000"},
		{"no part attempts", func(c *TransferConfig) { c.MaxPartAttempts = 0 }, "max_part_attempts must be positive"},
		{"zero event buffer", func(c *TransferConfig) { c.EventBufferSize = 0 }, "event_buffer_size must be positive"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := DefaultTransferConfig()
			test.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errorMsg)
		})
	}
}

func TestTransferConfig_ShouldUseMultipart(t *testing.T) {
	config := DefaultTransferConfig()
	assert.False(t, config.ShouldUseMultipart(DefaultMultipartThreshold-1))
	assert.True(t, config.ShouldUseMultipart(DefaultMultipartThreshold))
	assert.True(t, config.ShouldUseMultipart(DefaultMultipartThreshold+1))
}

func TestTransferConfig_PartSizeFor(t *testing.T) {
	config := DefaultTransferConfig()

	t.Run("default part size", func(t *testing.T) {
		assert.Equal(t, int64(DefaultPartSize), config.PartSizeFor(200*MiB))
	})

	t.Run("grows to stay under max parts", func(t *testing.T) {
		fileSize := int64(100 * 1024 * MiB) // 100 GiB
		partSize := config.PartSizeFor(fileSize)
		assert.Equal(t, int64(11*MiB), partSize)
		assert.Zero(t, partSize%MiB, "part size rounds to whole MiB")
		assert.LessOrEqual(t, TotalParts(fileSize, partSize), int64(MaxParts))
	})

	t.Run("never below minimum", func(t *testing.T) {
		small := DefaultTransferConfig()
		small.PartSize = MinPartSize
		assert.Equal(t, int64(MinPartSize), small.PartSizeFor(1))
	})

	t.Run("exact fit", func(t *testing.T) {
		fileSize := int64(MaxParts) * DefaultPartSize
		assert.Equal(t, int64(DefaultPartSize), config.PartSizeFor(fileSize))
	})
}

func TestTotalParts(t *testing.T) {
	assert.Equal(t, int64(0), TotalParts(0, DefaultPartSize))
	assert.Equal(t, int64(1), TotalParts(1, DefaultPartSize))
	assert.Equal(t, int64(2), TotalParts(DefaultPartSize+1, DefaultPartSize))
	assert.Equal(t, int64(13), TotalParts(100*MiB, DefaultPartSize))
}
