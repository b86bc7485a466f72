package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/scrideo/scrideo/internal/types"
)

// Adapter shells out to a whisper.cpp binary and parses its JSON output.
type Adapter struct {
	bin    string
	model  string
	runner Runner
}

// Runner mirrors the ffmpeg adapter's process abstraction so transcription
// argument handling is testable without the binary installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func New(binPath, modelPath string, opts ...Option) *Adapter {
	a := &Adapter{bin: binPath, model: modelPath, runner: execRunner{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type Option func(*Adapter)

func WithRunner(r Runner) Option {
	return func(a *Adapter) { a.runner = r }
}

// Available reports whether the transcriber binary and model exist; the
// health endpoint surfaces this.
func (a *Adapter) Available() bool {
	if _, err := os.Stat(a.bin); err != nil {
		return false
	}
	if _, err := os.Stat(a.model); err != nil {
		return false
	}
	return true
}

// Transcribe runs speech recognition over the audio at mediaPath, writing
// intermediate output under workDir, and returns the timestamped segments.
func (a *Adapter) Transcribe(ctx context.Context, mediaPath, workDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(workDir, "transcript")
	args := []string{
		"-m", a.model,
		"-f", mediaPath,
		"-oj",
		"-of", outPrefix,
	}
	b, err := a.runner.Run(ctx, a.bin, args...)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}

	var tr types.Transcript
	if err := json.Unmarshal(jb, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcript: %w", err)
	}
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
	}
	return tr, nil
}
