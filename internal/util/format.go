package util

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatSize renders a byte count with binary units, e.g. "1.5 MiB"
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

// FormatSpeed renders a transfer rate, e.g. "12 MiB/s"
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 || math.IsNaN(bytesPerSecond) || math.IsInf(bytesPerSecond, 0) {
		return "-"
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}

// ProgressBar draws a fixed width text bar for percent in [0, 100]
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(percent) {
		percent = 0
	}
	percent = math.Max(0, math.Min(100, percent))
	filled := int(math.Round(percent / 100 * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// TransferSpeed returns bytes per second, or 0 when elapsed is not positive
func TransferSpeed(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) / elapsed.Seconds()
}

// ETA estimates the time left for remaining bytes at speed. ok is false
// when the speed is unknown.
func ETA(remaining int64, speed float64) (eta time.Duration, ok bool) {
	if speed <= 0 || remaining <= 0 {
		return 0, false
	}
	return time.Duration(float64(remaining) / speed * float64(time.Second)).Round(time.Second), true
}
