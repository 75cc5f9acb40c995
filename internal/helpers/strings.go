package helpers

import (
	"fmt"
	"strings"
)

// SplitAndTrim splits s by sep and trims empty parts.
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count as a human-readable string, e.g. "1.50 KB".
func FormatBytes(size int64) string {
	value := float64(size)
	neg := value < 0
	if neg {
		value = -value
	}

	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	if neg {
		value = -value
	}
	return fmt.Sprintf("%.2f %s", value, byteUnits[unit])
}
