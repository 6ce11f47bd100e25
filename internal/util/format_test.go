package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{8 * 1024 * 1024, "8.0 MiB"},
		{-5, "0 B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatSize(tt.size), "FormatSize(%d)", tt.size)
	}
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "-", FormatSpeed(0))
	assert.Equal(t, "2.0 MiB/s", FormatSpeed(2*1024*1024))
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		percent  float64
		expected string
	}{
		{"empty", 0, "░░░░░░░░"},
		{"half", 50, "████░░░░"},
		{"full", 100, "████████"},
		{"rounds", 56.25, "█████░░░"},
		{"clamped high", 250, "████████"},
		{"clamped low", -1, "░░░░░░░░"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProgressBar(tt.percent, 8))
		})
	}
	assert.Empty(t, ProgressBar(50, 0))
}

func TestTransferSpeedAndETA(t *testing.T) {
	assert.Zero(t, TransferSpeed(100, 0))
	speed := TransferSpeed(1000, 2*time.Second)
	assert.Equal(t, 500.0, speed)

	eta, ok := ETA(1500, speed)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, eta)

	_, ok = ETA(1500, 0)
	assert.False(t, ok)
}
