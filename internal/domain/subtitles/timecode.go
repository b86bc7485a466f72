package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToSRTTime formats seconds as an SRT timestamp (HH:MM:SS,mmm). Negative
// input is clamped to zero. Rounding the fractional part can yield a full
// second; the carry is folded into the seconds field so the output always
// matches the pattern.
func ToSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	millis := int(math.Round((seconds - float64(whole)) * 1000))
	if millis >= 1000 {
		whole++
		millis -= 1000
	}
	h := whole / 3600
	m := whole % 3600 / 60
	s := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}

// ToASSTime formats seconds as an ASS timestamp (H:MM:SS.ss): hours
// unpadded, centisecond precision.
func ToASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	rem := seconds - float64(h)*3600
	m := int(rem) / 60
	s := rem - float64(m)*60
	return fmt.Sprintf("%d:%02d:%05.2f", h, m, s)
}

// SRTTimeToASSTime reformats an SRT timestamp into the ASS format. The ASS
// document is re-derived from the already-written SRT artifact, so going
// through the textual form keeps previously emitted cues bit-identical.
func SRTTimeToASSTime(ts string) (string, error) {
	parts := strings.SplitN(strings.Replace(ts, ",", ".", 1), ":", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed timestamp %q: %w", ts, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed timestamp %q: %w", ts, err)
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return "", fmt.Errorf("malformed timestamp %q: %w", ts, err)
	}
	return fmt.Sprintf("%d:%02d:%05.2f", h, m, s), nil
}
