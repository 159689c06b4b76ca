package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tiroq/scribe/internal/fileutil"
	"github.com/tiroq/scribe/internal/logging"
)

// DefaultBinary is the transcoder looked up on PATH when none is configured.
const DefaultBinary = "ffmpeg"

// Output format produced by every extraction.
const (
	OutputSampleRate = 16000
	OutputChannels   = 1
	outputCodec      = "pcm_s16le"
)

var (
	// ErrInputNotFound is returned before the transcoder runs when the input
	// path does not name an existing regular file.
	ErrInputNotFound = errors.New("media: input file not found")
	// ErrTranscodeFailed matches every *TranscodeError.
	ErrTranscodeFailed = errors.New("media: transcoder failed")
	// ErrOutputMissing is returned when the transcoder exits 0 without
	// creating the output file.
	ErrOutputMissing = errors.New("media: transcoder did not create output file")
	// ErrOutputEmpty is returned when the output file exists but is empty.
	ErrOutputEmpty = errors.New("media: transcoder created an empty output file")
)

// TranscodeError reports a non-zero transcoder exit. Stderr is kept verbatim.
type TranscodeError struct {
	ExitCode int
	Stderr   string
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("media: transcoder exited with code %d: %s", e.ExitCode, e.Stderr)
}

// Is makes errors.Is(err, ErrTranscodeFailed) hold for any TranscodeError.
func (e *TranscodeError) Is(target error) bool {
	return target == ErrTranscodeFailed
}

// ScratchDir names the directory extracted audio is written to.
type ScratchDir interface {
	Path() string
}

// Dir is a fixed scratch directory.
type Dir string

// Path implements ScratchDir.
func (d Dir) Path() string { return string(d) }

// TempDir resolves to os.TempDir at call time.
type TempDir struct{}

// Path implements ScratchDir.
func (TempDir) Path() string { return os.TempDir() }

// Extractor turns a media file into a 16 kHz mono 16-bit PCM WAV in the
// scratch directory.
type Extractor struct {
	binary   string
	runner   CommandRunner
	scratch  ScratchDir
	log      *logging.Logger
	newToken func() string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBinary sets the transcoder executable.
func WithBinary(path string) Option {
	return func(e *Extractor) {
		if path != "" {
			e.binary = path
		}
	}
}

// WithRunner replaces the OS command runner.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithScratchDir sets where extracted audio is written.
func WithScratchDir(d ScratchDir) Option {
	return func(e *Extractor) {
		if d != nil {
			e.scratch = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// NewExtractor creates an Extractor. Without options it runs "ffmpeg" from
// PATH and writes to os.TempDir.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		binary:   DefaultBinary,
		runner:   OSRunner{},
		scratch:  TempDir{},
		log:      logging.Nop(),
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Binary returns the configured transcoder executable.
func (e *Extractor) Binary() string { return e.binary }

// Extract runs the transcoder on input and returns the path of the new WAV
// file. The caller owns the returned file. On any error no output file is
// left behind.
func (e *Extractor) Extract(ctx context.Context, input string) (string, error) {
	info, err := os.Stat(input)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInputNotFound, input)
	}

	dir := e.scratch.Path()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("media: creating scratch dir %s: %w", dir, err)
	}
	output := filepath.Join(dir, fmt.Sprintf("%s_%s.wav", fileutil.SanitizeStem(input), e.newToken()))

	args := buildArgs(input, output)
	e.log.Debugw("running transcoder", "binary", e.binary, "args", args)

	res, err := e.runner.Run(ctx, e.binary, args)
	if err != nil {
		e.discard(output)
		return "", err
	}
	if res.ExitCode != 0 {
		e.discard(output)
		return "", &TranscodeError{ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
	}

	out, err := os.Stat(output)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutputMissing, output)
	}
	if out.Size() == 0 {
		e.discard(output)
		return "", fmt.Errorf("%w: %s", ErrOutputEmpty, output)
	}

	e.log.Debugw("extracted audio", "input", input, "output", output, "bytes", out.Size())
	return output, nil
}

// HealthCheck verifies that the transcoder can be executed.
func (e *Extractor) HealthCheck(ctx context.Context) error {
	res, err := e.runner.Run(ctx, e.binary, []string{"-version"})
	if err != nil {
		return fmt.Errorf("media: transcoder %q not usable: %w", e.binary, err)
	}
	if res.ExitCode != 0 {
		return &TranscodeError{ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
	}
	return nil
}

// buildArgs returns the transcoder arguments: drop video, 16-bit little
// endian PCM, 16 kHz, mono, overwrite, errors only.
func buildArgs(input, output string) []string {
	return []string{
		"-i", input,
		"-vn",
		"-acodec", outputCodec,
		"-ar", fmt.Sprint(OutputSampleRate),
		"-ac", fmt.Sprint(OutputChannels),
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		output,
	}
}

// discard removes a partial or rejected output file.
func (e *Extractor) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.log.Warnw("could not remove partial audio file", "path", path, "error", err)
	}
}
