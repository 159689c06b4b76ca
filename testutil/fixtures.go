package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tiroq/scribe/internal/pcm"
)

// WriteSilenceWAV writes seconds of 16-bit mono silence at 16 kHz to
// dir/name and returns the path.
func WriteSilenceWAV(t *testing.T, dir, name string, seconds float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	spec := pcm.Spec{SampleRate: 16000, Channels: 1, BitDepth: 16, Format: pcm.FormatInt}
	if err := pcm.WriteFile(path, spec, make([]float32, int(seconds*16000))); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
	return path
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// FakeBinary writes an executable shell script standing in for an external
// tool and returns its path.
func FakeBinary(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake %s: %v", name, err)
	}
	return path
}

// FakeFFmpeg returns a fake transcoder that copies wavPath to its last
// argument, the way ffmpeg writes its output file.
func FakeFFmpeg(t *testing.T, wavPath string) string {
	t.Helper()
	return FakeBinary(t, "ffmpeg", fmt.Sprintf(`for last; do :; done
cp %q "$last"`, wavPath))
}

// FailingFFmpeg returns a fake transcoder that prints stderr and exits
// with code.
func FailingFFmpeg(t *testing.T, stderr string, code int) string {
	t.Helper()
	return FakeBinary(t, "ffmpeg", fmt.Sprintf("printf '%%s' %q >&2\nexit %d", stderr, code))
}
