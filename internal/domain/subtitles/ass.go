package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CompileASS re-reads the SRT artifact at srtPath and writes a styled ASS
// document next to it (same stem, .ass extension). The returned path points
// at a transient artifact: the muxer removes it once the burn-in finishes.
func CompileASS(srtPath string, style ResolvedStyle) (string, error) {
	data, err := os.ReadFile(srtPath)
	if err != nil {
		return "", fmt.Errorf("read captions: %w", err)
	}
	doc, err := RenderASS(string(data), style)
	if err != nil {
		return "", err
	}
	assPath := strings.TrimSuffix(srtPath, filepath.Ext(srtPath)) + ".ass"
	if err := os.WriteFile(assPath, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("write markup: %w", err)
	}
	return assPath, nil
}

// RenderASS compiles SRT text plus a resolved style into a complete ASS
// document: fixed header, one style record, one Dialogue row per cue.
func RenderASS(srt string, style ResolvedStyle) (string, error) {
	var b strings.Builder
	b.WriteString(assHeader(style))
	for _, ev := range parseSRT(srt) {
		start, err := SRTTimeToASSTime(ev.Start)
		if err != nil {
			return "", fmt.Errorf("compile markup: %w", err)
		}
		end, err := SRTTimeToASSTime(ev.End)
		if err != nil {
			return "", fmt.Errorf("compile markup: %w", err)
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", start, end, ev.Text)
	}
	return b.String(), nil
}

func assHeader(st ResolvedStyle) string {
	return fmt.Sprintf(`[Script Info]
Title: Scrideo Subtitles
ScriptType: v4.00+
PlayResX: 384
PlayResY: 288
[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,%s,%d,&H%s,&H%s,&H00000000,&H%s,%d,%d,0,0,100,100,0,0,%d,%d,%d,%d,%d,%d,%d,1
[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`,
		st.FontName, st.FontSize, st.PrimaryColour, st.PrimaryColour, st.BackColour,
		st.Bold, st.Italic, st.BorderStyle, st.Outline, st.Shadow,
		st.Alignment, st.MarginL, st.MarginR, st.MarginV)
}
