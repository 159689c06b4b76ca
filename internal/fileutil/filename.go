package fileutil

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultStem is used when a file name has nothing usable left after
// sanitizing.
const DefaultStem = "audio_extract"

var (
	illegalChars = regexp.MustCompile(`[\/\\:*?"<>|]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// SanitizeStem turns the base name of path (without extension) into a
// string that is safe to embed in a scratch file name.
func SanitizeStem(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return DefaultStem
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	sanitized := illegalChars.ReplaceAllString(stem, "_")
	sanitized = whitespace.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-_.")

	// Keep names short enough that stem + token + extension stays well
	// under common filesystem limits.
	if len(sanitized) > 50 {
		sanitized = strings.TrimRight(sanitized[:50], "-_.")
	}

	if sanitized == "" {
		return DefaultStem
	}
	return sanitized
}

// ReplaceExt returns path with its extension replaced by ext (which should
// include the leading dot). A path without extension gets ext appended.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
