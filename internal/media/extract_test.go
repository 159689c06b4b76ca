package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tiroq/scribe/testutil"
)

// fakeRunner records invocations and optionally writes the output file
// (the last argument) before returning a canned result.
type fakeRunner struct {
	calls  [][]string
	names  []string
	write  []byte
	result CommandResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string) (CommandResult, error) {
	f.names = append(f.names, name)
	f.calls = append(f.calls, args)
	if f.write != nil {
		_ = os.WriteFile(args[len(args)-1], f.write, 0644)
	}
	return f.result, f.err
}

func newTestExtractor(t *testing.T, r CommandRunner) (*Extractor, string) {
	t.Helper()
	scratch := t.TempDir()
	e := NewExtractor(WithRunner(r), WithScratchDir(Dir(scratch)))
	e.newToken = func() string { return "tok" }
	return e, scratch
}

func TestExtractMissingInputDoesNotInvokeTranscoder(t *testing.T) {
	r := &fakeRunner{}
	e, _ := newTestExtractor(t, r)

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("expected transcoder not to run, got %d calls", len(r.calls))
	}
}

func TestExtractDirectoryInput(t *testing.T) {
	r := &fakeRunner{}
	e, _ := newTestExtractor(t, r)

	if _, err := e.Extract(context.Background(), t.TempDir()); !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound for a directory, got %v", err)
	}
}

func TestExtractArgsAndOutputPath(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "lecture.mp4", "video")
	r := &fakeRunner{write: []byte("RIFF")}
	e, scratch := newTestExtractor(t, r)

	out, err := e.Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := filepath.Join(scratch, "lecture_tok.wav"); out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if r.names[0] != DefaultBinary {
		t.Errorf("binary = %q, want %q", r.names[0], DefaultBinary)
	}

	want := []string{
		"-i", input, "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		"-y", "-hide_banner", "-loglevel", "error", out,
	}
	if !reflect.DeepEqual(r.calls[0], want) {
		t.Errorf("args = %v, want %v", r.calls[0], want)
	}
}

func TestExtractNonZeroExit(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "broken.mkv", "junk")
	stderr := "broken.mkv: Invalid data found when processing input\n"
	r := &fakeRunner{write: []byte("partial"), result: CommandResult{ExitCode: 1, Stderr: []byte(stderr)}}
	e, scratch := newTestExtractor(t, r)

	_, err := e.Extract(context.Background(), input)

	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if te.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", te.ExitCode)
	}
	if te.Stderr != stderr {
		t.Errorf("stderr = %q, want %q", te.Stderr, stderr)
	}
	if !errors.Is(err, ErrTranscodeFailed) {
		t.Error("expected errors.Is(err, ErrTranscodeFailed)")
	}
	if _, err := os.Stat(filepath.Join(scratch, "broken_tok.wav")); !os.IsNotExist(err) {
		t.Error("expected partial output to be removed")
	}
}

func TestExtractOutputMissing(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "clip.mp4", "video")
	e, _ := newTestExtractor(t, &fakeRunner{})

	if _, err := e.Extract(context.Background(), input); !errors.Is(err, ErrOutputMissing) {
		t.Fatalf("expected ErrOutputMissing, got %v", err)
	}
}

func TestExtractOutputEmpty(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "clip.mp4", "video")
	e, scratch := newTestExtractor(t, &fakeRunner{write: []byte{}})

	if _, err := e.Extract(context.Background(), input); !errors.Is(err, ErrOutputEmpty) {
		t.Fatalf("expected ErrOutputEmpty, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(scratch, "clip_tok.wav")); !os.IsNotExist(err) {
		t.Error("expected empty output to be removed")
	}
}

func TestExtractRunnerError(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "clip.mp4", "video")
	e, _ := newTestExtractor(t, &fakeRunner{err: context.Canceled})

	if _, err := e.Extract(context.Background(), input); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractTokensAreUnique(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "clip.mp4", "video")
	e := NewExtractor(WithRunner(&fakeRunner{write: []byte("x")}), WithScratchDir(Dir(t.TempDir())))

	a, err := e.Extract(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Extract(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("expected distinct output paths, both %q", a)
	}
}

func TestExtractCreatesScratchDir(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "clip.mp4", "video")
	scratch := filepath.Join(t.TempDir(), "nested", "scratch")
	e := NewExtractor(WithRunner(&fakeRunner{write: []byte("x")}), WithScratchDir(Dir(scratch)))

	out, err := e.Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if filepath.Dir(out) != scratch {
		t.Errorf("output dir = %q, want %q", filepath.Dir(out), scratch)
	}
}

func TestExtractWithFakeFFmpeg(t *testing.T) {
	dir := t.TempDir()
	wav := testutil.WriteSilenceWAV(t, dir, "source.wav", 1)
	input := testutil.WriteFile(t, dir, "talk.mp4", "video")

	e := NewExtractor(
		WithBinary(testutil.FakeFFmpeg(t, wav)),
		WithRunner(OSRunner{Timeout: 10 * time.Second}),
		WithScratchDir(Dir(t.TempDir())),
	)
	out, err := e.Extract(context.Background(), input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := os.ReadFile(wav)
	if len(got) != len(want) {
		t.Errorf("output size = %d, want %d", len(got), len(want))
	}
}

func TestExtractWithFailingFFmpeg(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "talk.mp4", "video")
	e := NewExtractor(
		WithBinary(testutil.FailingFFmpeg(t, "Unknown encoder", 3)),
		WithScratchDir(Dir(t.TempDir())),
	)

	_, err := e.Extract(context.Background(), input)
	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if te.ExitCode != 3 || te.Stderr != "Unknown encoder" {
		t.Errorf("got exit %d stderr %q", te.ExitCode, te.Stderr)
	}
}

func TestHealthCheck(t *testing.T) {
	e, _ := newTestExtractor(t, &fakeRunner{})
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}

	r := &fakeRunner{err: errors.New("exec: not found")}
	e, _ = newTestExtractor(t, r)
	if err := e.HealthCheck(context.Background()); err == nil {
		t.Error("expected HealthCheck error for missing binary")
	}
	if !reflect.DeepEqual(r.calls[0], []string{"-version"}) {
		t.Errorf("args = %v", r.calls[0])
	}
}
