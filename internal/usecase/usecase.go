package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scrideo/scrideo/internal/domain/subtitles"
	"github.com/scrideo/scrideo/internal/ports"
	"github.com/scrideo/scrideo/internal/types"
)

// ErrNoSpeech signals that transcription produced no usable segments.
var ErrNoSpeech = errors.New("no speech detected")

// Stage names reported through the progress callback, in pipeline order.
const (
	StageTranscribing       = "transcribing"
	StageGeneratingCaptions = "generating_captions"
	StageEmbeddingSubtitles = "embedding_subtitles"
)

type Deps struct {
	Video ports.VideoTool
	ASR   ports.ASR
	Log   zerolog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	JobID      string
	InputPath  string
	WorkDir    string
	SRTPath    string
	OutputPath string
	Style      types.StyleConfig

	// Progress, when set, is called as each pipeline stage begins.
	Progress func(stage string)
}

type Result struct {
	Transcription string
	DurationSec   float64
	CueCount      int
}

// Run executes one captioning job: extract audio, transcribe, segment into
// cues, write the SRT artifact, compile the styled ASS document, burn it
// into the output video. Stages run strictly sequentially; any failure
// aborts the remaining stages and is returned to the job boundary.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	progress := in.Progress
	if progress == nil {
		progress = func(string) {}
	}
	log := u.d.Log.With().Str("job_id", in.JobID).Logger()

	if err := os.MkdirAll(in.WorkDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("prepare workspace: %w", err)
	}

	progress(StageTranscribing)
	wav := filepath.Join(in.WorkDir, "audio.wav")
	if err := u.d.Video.ExtractAudio(ctx, in.InputPath, wav); err != nil {
		return Result{}, err
	}
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.WorkDir)
	if err != nil {
		return Result{}, err
	}

	progress(StageGeneratingCaptions)
	cues := subtitles.BuildCues(tr.Segments)
	if len(cues) == 0 {
		return Result{}, ErrNoSpeech
	}
	if err := subtitles.WriteSRT(cues, in.SRTPath); err != nil {
		return Result{}, err
	}
	log.Debug().Int("cues", len(cues)).Str("srt", in.SRTPath).Msg("captions written")

	progress(StageEmbeddingSubtitles)
	style := subtitles.Resolve(in.Style)
	assPath, err := subtitles.CompileASS(in.SRTPath, style)
	if err != nil {
		return Result{}, err
	}
	if err := u.d.Video.BurnSubtitles(ctx, in.InputPath, assPath, in.OutputPath); err != nil {
		return Result{}, err
	}

	duration := cues[len(cues)-1].End
	if probed, err := u.d.Video.ProbeDuration(ctx, in.InputPath); err == nil {
		duration = probed
	}

	var parts []string
	for _, seg := range tr.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}

	log.Info().Int("cues", len(cues)).Str("output", in.OutputPath).Msg("job rendered")
	return Result{
		Transcription: strings.Join(parts, " "),
		DurationSec:   duration,
		CueCount:      len(cues),
	}, nil
}
