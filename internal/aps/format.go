package aps

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatFileSize renders a byte count in a human-readable unit with two
// decimal places.
func FormatFileSize(sizeInBytes int64) string {
	if sizeInBytes == 0 {
		return "0 B"
	}
	size := float64(sizeInBytes)
	i := 0
	for size >= 1024 && i < len(sizeUnits)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[i])
}
