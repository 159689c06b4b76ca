package media

import (
	"testing"

	"github.com/tiroq/scribe/testutil"
)

func TestIsSupported(t *testing.T) {
	for _, ext := range []string{"mp4", "MP4", ".mkv", "Mp3", "wav", "3gp", "m4a", "ts"} {
		if !IsSupported(ext) {
			t.Errorf("expected %q to be supported", ext)
		}
	}
	for _, ext := range []string{"", "txt", "pdf", "mp", ".docx"} {
		if IsSupported(ext) {
			t.Errorf("expected %q to be unsupported", ext)
		}
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != 20 {
		t.Errorf("expected 20 extensions, got %d", len(exts))
	}
	if exts[0] != "3gp" {
		t.Errorf("expected sorted list starting with 3gp, got %q", exts[0])
	}
}

func TestProbeSupported(t *testing.T) {
	lc := testutil.NewLogCapture()
	res := Probe("/videos/Lecture.MOV", lc.Logger())

	if !res.Supported || res.Ext != "mov" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(lc.Lines()) != 0 {
		t.Errorf("expected no log output, got %v", lc.Lines())
	}
}

func TestProbeUnsupportedWarns(t *testing.T) {
	lc := testutil.NewLogCapture()
	res := Probe("/docs/notes.txt", lc.Logger())

	if res.Supported {
		t.Error("expected txt to be unsupported")
	}
	if !lc.ContainsAll("WARN", "unrecognized media extension", "ext=txt") {
		t.Errorf("expected warning, got %q", lc.String())
	}
}

func TestProbeNoExtensionWarns(t *testing.T) {
	lc := testutil.NewLogCapture()
	res := Probe("/videos/recording", lc.Logger())

	if res.Supported || res.Ext != "" {
		t.Errorf("unexpected result %+v", res)
	}
	if !lc.Contains("no file extension") {
		t.Errorf("expected warning, got %q", lc.String())
	}
}

func TestProbeNilLogger(t *testing.T) {
	if Probe("clip.xyz", nil).Supported {
		t.Error("expected xyz to be unsupported")
	}
}
