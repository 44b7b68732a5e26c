package handler

import "strconv"

// formatUploadLimit renders a byte limit for error messages, rounding down
// to whole MB or KB.
func formatUploadLimit(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case bytes <= 0:
		return "0KB"
	case bytes >= mb:
		return strconv.FormatInt(bytes/mb, 10) + "MB"
	case bytes >= kb:
		return strconv.FormatInt(bytes/kb, 10) + "KB"
	default:
		return strconv.FormatInt(bytes, 10) + "B"
	}
}
