package subtitles

import (
	"strings"

	"github.com/scrideo/scrideo/internal/types"
)

// maxCueWords bounds how much text one cue may carry. Longer segments are
// split so captions stay readable on small players.
const maxCueWords = 7

// BuildCues turns ordered transcript segments into short subtitle cues.
// Segments with blank text are skipped. A segment that fits in one chunk
// keeps its original start/end; longer segments are split into chunks of at
// most seven words, with the segment's duration distributed by each chunk's
// word share so a short tail cue does not linger as long as a full one.
// Indices are assigned sequentially across the whole transcript, starting
// at 1.
func BuildCues(segments []types.Segment) []types.Cue {
	var cues []types.Cue
	idx := 1
	for _, seg := range segments {
		words := strings.Fields(seg.Text)
		if len(words) == 0 {
			continue
		}
		if len(words) <= maxCueWords {
			cues = append(cues, types.Cue{
				Index: idx,
				Start: seg.Start,
				End:   seg.End,
				Text:  strings.Join(words, " "),
			})
			idx++
			continue
		}

		var chunks [][]string
		for i := 0; i < len(words); i += maxCueWords {
			end := i + maxCueWords
			if end > len(words) {
				end = len(words)
			}
			chunks = append(chunks, words[i:end])
		}

		total := seg.End - seg.Start
		elapsed := 0.0
		for _, chunk := range chunks {
			start := seg.Start + elapsed
			elapsed += total * float64(len(chunk)) / float64(len(words))
			end := seg.Start + elapsed
			if end > seg.End {
				end = seg.End
			}
			cues = append(cues, types.Cue{
				Index: idx,
				Start: start,
				End:   end,
				Text:  strings.Join(chunk, " "),
			})
			idx++
		}
		// Float accumulation may leave the last chunk a hair short.
		cues[len(cues)-1].End = seg.End
	}
	return cues
}
