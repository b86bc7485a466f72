package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/scrideo/scrideo/internal/api"
	"github.com/scrideo/scrideo/internal/auth"
	"github.com/scrideo/scrideo/internal/config"
	"github.com/scrideo/scrideo/internal/ports"
	"github.com/scrideo/scrideo/internal/ports/adapters/ffmpeg"
	"github.com/scrideo/scrideo/internal/ports/adapters/whisper"
	"github.com/scrideo/scrideo/internal/ports/adapters/ytdlp"
	"github.com/scrideo/scrideo/internal/store"
	"github.com/scrideo/scrideo/internal/types"
	"github.com/scrideo/scrideo/internal/usecase"
)

const (
	cleanupInterval = 30 * time.Minute
	staleFileAge    = 2 * time.Hour

	// Terminal jobs kept when storage crosses the pressure threshold.
	keepTerminalJobs = 5
	// Pressure kicks in at this fraction of the storage limit.
	storagePressure = 0.8
)

// App wires the processing side of the service: it owns the store, the
// external tool adapters and the worker goroutines, and implements the job
// interface the HTTP layer submits to.
type App struct {
	cfg   config.Config
	log   zerolog.Logger
	store *store.Store
	lock  *flock.Flock

	video ports.VideoTool
	asr   ports.ASR
	dl    ports.Downloader
	uc    usecase.Usecase

	srv *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// storageMu serializes the pressure check so concurrent submissions
	// do not purge the same jobs twice.
	storageMu sync.Mutex
}

func New(cfg config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance holds %s", cfg.LockPath())
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	authSvc, err := auth.New(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, err
	}

	video := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath,
		ffmpeg.WithBurnTimeout(cfg.EncodeTimeout),
		ffmpeg.WithLogger(log),
	)
	asr := whisper.New(cfg.WhisperBin, cfg.WhisperModel)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:    cfg,
		log:    log,
		store:  st,
		lock:   lock,
		video:  video,
		asr:    asr,
		dl:     ytdlp.New(cfg.YtDlpPath),
		ctx:    ctx,
		cancel: cancel,
	}
	a.uc = usecase.New(usecase.Deps{Video: video, ASR: asr, Log: log})

	router := api.NewServer(cfg, log, st, authSvc, a).Router()
	a.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight jobs.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go a.cleanupLoop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.srv.Addr).Msg("listening")
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		a.cancel()
		a.wg.Wait()
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)

	a.cancel()
	a.wg.Wait()
	return err
}

func (a *App) Close() error {
	a.cancel()
	a.wg.Wait()
	err := a.store.Close()
	if lockErr := a.lock.Unlock(); err == nil {
		err = lockErr
	}
	return err
}

// SubmitUpload runs the captioning pipeline for an already-saved upload in
// a background goroutine.
func (a *App) SubmitUpload(jobID, inputPath, filename, username string, style types.StyleConfig) {
	a.spawn(jobID, func(ctx context.Context) error {
		return a.process(ctx, jobID, inputPath, style)
	})
}

// SubmitLink downloads the submitted URL first, then runs the same
// pipeline over the downloaded file.
func (a *App) SubmitLink(jobID, url, username string, style types.StyleConfig) {
	a.spawn(jobID, func(ctx context.Context) error {
		inputPath := filepath.Join(a.cfg.UploadsDir(), jobID+"_link.mp4")
		title, err := a.dl.Download(ctx, url, inputPath)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		if err := a.store.UpdateFilename(ctx, jobID, title); err != nil {
			a.log.Warn().Err(err).Str("job_id", jobID).Msg("title update failed")
		}
		return a.process(ctx, jobID, inputPath, style)
	})
}

// spawn runs fn on a worker goroutine; a panic or error marks the job
// failed rather than taking the process down.
func (a *App) spawn(jobID string, fn func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.Error().Str("job_id", jobID).Interface("panic", r).Msg("job panicked")
				a.failJob(jobID, fmt.Sprintf("internal error: %v", r))
			}
		}()

		if err := fn(a.ctx); err != nil {
			a.log.Error().Err(err).Str("job_id", jobID).Msg("job failed")
			a.failJob(jobID, userMessage(err))
		}
	}()
}

func (a *App) process(ctx context.Context, jobID, inputPath string, style types.StyleConfig) error {
	srtPath := filepath.Join(a.cfg.ProcessedDir(), jobID+"_captions.srt")
	outName := jobID + "_with_subtitles.mp4"

	res, err := a.uc.Run(ctx, usecase.Input{
		JobID:      jobID,
		InputPath:  inputPath,
		WorkDir:    filepath.Join(a.cfg.WorkDir(), jobID),
		SRTPath:    srtPath,
		OutputPath: filepath.Join(a.cfg.ProcessedDir(), outName),
		Style:      style,
		Progress: func(stage string) {
			if err := a.store.UpdateStatus(ctx, jobID, store.JobStatus(stage)); err != nil {
				a.log.Warn().Err(err).Str("job_id", jobID).Str("stage", stage).Msg("status update failed")
			}
		},
	})
	if err != nil {
		return err
	}

	if err := a.store.MarkCompleted(ctx, jobID,
		"/download/"+outName,
		res.Transcription,
		formatDuration(res.DurationSec),
	); err != nil {
		return err
	}

	// Only the subtitled output stays; the source upload, the workspace and
	// the intermediate SRT have served their purpose.
	for _, p := range []string{inputPath, srtPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			a.log.Warn().Err(err).Str("path", p).Msg("cleanup failed")
		}
	}
	if err := os.RemoveAll(filepath.Join(a.cfg.WorkDir(), jobID)); err != nil {
		a.log.Warn().Err(err).Str("job_id", jobID).Msg("workspace cleanup failed")
	}

	a.log.Info().Str("job_id", jobID).Int("cues", res.CueCount).Msg("job completed")
	return nil
}

func (a *App) failJob(jobID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.MarkFailed(ctx, jobID, message); err != nil {
		a.log.Error().Err(err).Str("job_id", jobID).Msg("failure record failed")
	}
}

// userMessage maps pipeline errors to the message surfaced on the status
// endpoint.
func userMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrNoSpeech):
		return "No speech detected in the video"
	case errors.Is(err, ffmpeg.ErrEncoderTimeout):
		return "Processing timed out; try a shorter video"
	case errors.Is(err, ffmpeg.ErrInputNotFound):
		return "Video file went missing before processing"
	default:
		return err.Error()
	}
}

// RemoveJobFiles deletes every artifact belonging to a job across the
// uploads, processed and work trees.
func (a *App) RemoveJobFiles(jobID string) {
	for _, dir := range []string{a.cfg.UploadsDir(), a.cfg.ProcessedDir()} {
		matches, err := filepath.Glob(filepath.Join(dir, jobID+"_*"))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				a.log.Warn().Err(err).Str("path", m).Msg("artifact removal failed")
			}
		}
	}
	if err := os.RemoveAll(filepath.Join(a.cfg.WorkDir(), jobID)); err != nil {
		a.log.Warn().Err(err).Str("job_id", jobID).Msg("workspace removal failed")
	}
}

// StorageUsedBytes sums the uploads and processed trees.
func (a *App) StorageUsedBytes() int64 {
	var total int64
	for _, dir := range []string{a.cfg.UploadsDir(), a.cfg.ProcessedDir()} {
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
			return nil
		})
	}
	return total
}

// EnforceStorageLimit purges the oldest finished jobs once usage crosses
// the pressure threshold, always keeping the newest few.
func (a *App) EnforceStorageLimit() {
	a.storageMu.Lock()
	defer a.storageMu.Unlock()

	limit := int64(float64(a.cfg.StorageLimitBytes) * storagePressure)
	used := a.StorageUsedBytes()
	if used <= limit {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	jobs, err := a.store.ListTerminalJobs(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("storage sweep failed")
		return
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].UpdatedAt.After(jobs[j].UpdatedAt) })

	removed := 0
	for i, job := range jobs {
		if i < keepTerminalJobs {
			continue
		}
		a.RemoveJobFiles(job.ID)
		if err := a.store.DeleteJob(ctx, job.ID); err != nil {
			a.log.Warn().Err(err).Str("job_id", job.ID).Msg("record purge failed")
		}
		removed++
		if a.StorageUsedBytes() <= limit {
			break
		}
	}
	if removed > 0 {
		a.log.Info().Int("purged", removed).Int64("used_bytes", used).Msg("storage pressure sweep")
	}
}

func (a *App) TranscriberAvailable() bool { return a.asr.Available() }

// cleanupLoop periodically drops stale intermediate files and re-checks
// the storage quota.
func (a *App) cleanupLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.removeStaleFiles()
			a.EnforceStorageLimit()
		}
	}
}

// removeStaleFiles deletes uploads and workspaces untouched for longer
// than the stale cutoff; these are leftovers from crashed or abandoned
// jobs.
func (a *App) removeStaleFiles() {
	cutoff := time.Now().Add(-staleFileAge)

	entries, err := os.ReadDir(a.cfg.UploadsDir())
	if err == nil {
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(a.cfg.UploadsDir(), e.Name())
			if err := os.Remove(path); err != nil {
				a.log.Warn().Err(err).Str("path", path).Msg("stale upload removal failed")
			}
		}
	}

	workDirs, err := os.ReadDir(a.cfg.WorkDir())
	if err != nil {
		return
	}
	for _, e := range workDirs {
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(a.cfg.WorkDir(), e.Name())
		if err := os.RemoveAll(path); err != nil {
			a.log.Warn().Err(err).Str("path", path).Msg("stale workspace removal failed")
		}
	}
}

// formatDuration renders seconds as M:SS for job history.
func formatDuration(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
