// Package media validates input files and extracts normalized mono WAV audio
// from them through an external transcoder.
package media

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/tiroq/scribe/internal/logging"
)

// supportedExtensions is the fixed whitelist of container and audio
// extensions, lowercase and without the leading dot.
var supportedExtensions = map[string]struct{}{
	"mp4": {}, "avi": {}, "mov": {}, "mkv": {}, "wmv": {}, "flv": {},
	"webm": {}, "ogv": {}, "3gp": {}, "m4v": {}, "vob": {}, "ts": {},
	"mpg": {}, "mpeg": {}, "mp3": {}, "wav": {}, "flac": {}, "aac": {},
	"ogg": {}, "m4a": {},
}

// ProbeResult is the outcome of Probe.
type ProbeResult struct {
	Path      string
	Ext       string // lowercase, without dot; empty if the path has none
	Supported bool
}

// IsSupported reports whether ext is in the whitelist. The comparison is
// case-insensitive and a leading dot is ignored.
func IsSupported(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	_, ok := supportedExtensions[ext]
	return ok
}

// SupportedExtensions returns the whitelist sorted alphabetically.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Probe classifies path by its extension. An unsupported or missing
// extension is only a warning: processing continues and the transcoder
// decides whether it can read the file.
func Probe(path string, log *logging.Logger) ProbeResult {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	res := ProbeResult{Path: path, Ext: ext, Supported: IsSupported(ext)}

	if !res.Supported {
		if log == nil {
			log = logging.Nop()
		}
		if ext == "" {
			log.Warnw("input has no file extension, attempting extraction anyway", "path", path)
		} else {
			log.Warnw("unrecognized media extension, attempting extraction anyway", "path", path, "ext", ext)
		}
	}
	return res
}
