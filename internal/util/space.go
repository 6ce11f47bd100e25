package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// PadRight pads or truncates a string to a fixed display width.
func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w > width {
		return runewidth.Truncate(str, width, "...")
	}
	return str + strings.Repeat(" ", width-w)
}

// TruncateLeft keeps the end of str, which is the useful part of a long
// path or key.
func TruncateLeft(str string, width int) string {
	if runewidth.StringWidth(str) <= width {
		return str
	}
	return runewidth.TruncateLeft(str, runewidth.StringWidth(str)-width+3, "...")
}
