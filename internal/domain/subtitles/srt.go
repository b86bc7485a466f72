package subtitles

import (
	"fmt"
	"os"
	"strings"

	"github.com/scrideo/scrideo/internal/types"
)

// RenderSRT serializes cues in index order as an SRT document.
func RenderSRT(cues []types.Cue) string {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%d\n", c.Index)
		fmt.Fprintf(&b, "%s --> %s\n", ToSRTTime(c.Start), ToSRTTime(c.End))
		fmt.Fprintf(&b, "%s\n\n", c.Text)
	}
	return b.String()
}

// WriteSRT writes the cue list to path as UTF-8 text.
func WriteSRT(cues []types.Cue, path string) error {
	if err := os.WriteFile(path, []byte(RenderSRT(cues)), 0o644); err != nil {
		return fmt.Errorf("write captions: %w", err)
	}
	return nil
}

// srtEvent is one cue as read back from an SRT file. Times keep their SRT
// textual form; multi-line text is already joined with the ASS line-break
// marker.
type srtEvent struct {
	Start string
	End   string
	Text  string
}

// parseSRT extracts timed events from SRT text. Consecutive non-blank lines
// after a timestamp line belong to one cue and are joined with \N, the ASS
// line-break marker. Index lines and anything outside a cue block are
// ignored, which keeps the parser tolerant of externally supplied files.
func parseSRT(data string) []srtEvent {
	lines := strings.Split(data, "\n")
	var events []srtEvent
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.SplitN(line, "-->", 2)
		if len(parts) != 2 {
			continue
		}
		start := strings.TrimSpace(parts[0])
		end := strings.TrimSpace(parts[1])

		var text []string
		for i++; i < len(lines); i++ {
			t := strings.TrimSpace(lines[i])
			if t == "" {
				break
			}
			text = append(text, t)
		}
		events = append(events, srtEvent{
			Start: start,
			End:   end,
			Text:  strings.Join(text, `\N`),
		})
	}
	return events
}
