package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrInputNotFound  = errors.New("input video not found")
	ErrOutputMissing  = errors.New("encoder produced no output")
	ErrEncoderTimeout = errors.New("encoder timed out")
)

// EncoderError reports a non-zero encoder exit along with the captured
// diagnostic stream.
type EncoderError struct {
	Err    error
	Output string
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("encoder failed: %v\n%s", e.Err, e.Output)
}

func (e *EncoderError) Unwrap() error { return e.Err }

// Runner executes an external command and returns its combined output.
// Injected so argument construction and filter escaping stay testable
// without spawning ffmpeg.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

const defaultBurnTimeout = 300 * time.Second

type Adapter struct {
	ffmpeg      string
	ffprobe     string
	burnTimeout time.Duration
	runner      Runner
	log         zerolog.Logger
}

type Option func(*Adapter)

func WithRunner(r Runner) Option {
	return func(a *Adapter) { a.runner = r }
}

func WithBurnTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.burnTimeout = d
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

func New(ffmpegPath, ffprobePath string, opts ...Option) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	a := &Adapter{
		ffmpeg:      ffmpegPath,
		ffprobe:     ffprobePath,
		burnTimeout: defaultBurnTimeout,
		runner:      execRunner{},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) ExtractAudio(ctx context.Context, inPath, outWav string) error {
	b, err := a.runner.Run(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inPath string) (float64, error) {
	b, err := a.runner.Run(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

// BurnSubtitles renders the ASS document at assPath into inPath's video
// stream and writes the result to outPath. The run is bounded by the burn
// timeout; the transient ASS artifact is removed whether or not the encode
// succeeds, and a failed cleanup is logged, never propagated.
func (a *Adapter) BurnSubtitles(ctx context.Context, inPath, assPath, outPath string) error {
	inPath, err := filepath.Abs(inPath)
	if err != nil {
		return err
	}
	assPath, err = filepath.Abs(assPath)
	if err != nil {
		return err
	}
	outPath, err = filepath.Abs(outPath)
	if err != nil {
		return err
	}

	if st, err := os.Stat(inPath); err != nil || st.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrInputNotFound, inPath)
	}
	if _, err := os.Stat(assPath); err != nil {
		return fmt.Errorf("markup artifact missing: %w", err)
	}
	defer func() {
		if err := os.Remove(assPath); err != nil {
			a.log.Warn().Err(err).Str("path", assPath).Msg("markup cleanup failed")
		}
	}()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	args := []string{
		"-y",
		"-i", filepath.ToSlash(inPath),
		"-vf", "ass='" + escapeFilterPath(filepath.ToSlash(assPath)) + "'",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-crf", "23",
		"-preset", "fast",
		"-movflags", "+faststart",
		filepath.ToSlash(outPath),
	}

	runCtx, cancel := context.WithTimeout(ctx, a.burnTimeout)
	defer cancel()

	b, err := a.runner.Run(runCtx, a.ffmpeg, args...)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrEncoderTimeout, a.burnTimeout)
		}
		return &EncoderError{Err: err, Output: string(b)}
	}

	if st, err := os.Stat(outPath); err != nil || st.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrOutputMissing, outPath)
	}
	return nil
}

// escapeFilterPath prepares a path for use inside an ffmpeg filter
// expression. Unescaped colons act as filter-argument separators, so they
// are escaped on every platform, not only Windows.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
