package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Adapter downloads submitted links with yt-dlp.
type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

// Download fetches url into destPath, capped at 720p to bound transcode
// time, and returns the source title for the job record.
func (a *Adapter) Download(ctx context.Context, url, destPath string) (string, error) {
	title, err := a.probeTitle(ctx, url)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, a.bin,
		"-f", "best[height<=720]",
		"-o", destPath,
		"--no-playlist",
		"--quiet",
		url,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp download failed: %w\n%s", err, string(out))
	}
	return title, nil
}

// probeTitle runs `yt-dlp -j` and pulls the title out of the metadata dump.
// Warning lines mixed into the output are skipped; only the JSON line
// counts.
func (a *Adapter) probeTitle(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, a.bin, "-j", "--no-playlist", url)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp metadata failed: %w\n%s", err, string(out))
	}

	var jsonLine string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "{") {
			jsonLine = line
		}
	}
	if jsonLine == "" {
		return "", fmt.Errorf("no metadata in yt-dlp output: %s", string(out))
	}

	var meta struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(jsonLine), &meta); err != nil {
		return "", fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	if meta.Title == "" {
		meta.Title = "downloaded video"
	}
	return meta.Title, nil
}
