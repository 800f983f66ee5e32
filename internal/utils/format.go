package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ygrab/ygrab/internal/models"
)

// FormatDuration renders a duration in seconds as m:ss or h:mm:ss.
// Non-positive values render as 0:00.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatBytes renders a byte count with a binary unit suffix
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename strips characters that are unsafe in filenames
func SanitizeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, " .")
	if cleaned == "" {
		return "download"
	}
	return cleaned
}

// FallbackFilename derives an artifact name from the item title and the
// requested format, used when the server declares no filename
func FallbackFilename(title string, format models.Format) string {
	return SanitizeFilename(title) + "." + string(format)
}
