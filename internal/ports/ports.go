package ports

import (
	"context"

	"github.com/scrideo/scrideo/internal/types"
)

// VideoTool covers the external media engine: audio extraction for the
// transcriber, duration probing, and the subtitle burn-in mux.
type VideoTool interface {
	ExtractAudio(ctx context.Context, inPath, outWav string) error
	ProbeDuration(ctx context.Context, inPath string) (float64, error)
	BurnSubtitles(ctx context.Context, inPath, assPath, outPath string) error
}

// ASR is the speech-to-text boundary, consumed as a black box returning
// timestamped text segments.
type ASR interface {
	Transcribe(ctx context.Context, mediaPath, workDir string) (types.Transcript, error)
	Available() bool
}

// Downloader fetches a submitted link into a local media file and reports
// the source title.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) (title string, err error)
}
