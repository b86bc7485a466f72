package types

// Transcript is the output of the speech-to-text boundary: ordered,
// timestamped segments of recognized speech.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Cue is one subtitle record derived from a transcript segment. Indices are
// 1-based and contiguous across the whole transcript.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// StyleConfig carries the caller-chosen caption styling. All fields are
// optional; unknown or missing values resolve to defaults, never an error.
type StyleConfig struct {
	Size             int    `json:"size"`
	Color            string `json:"color"`
	BgColor          string `json:"bgColor"`
	Font             string `json:"font"`
	FontStyle        string `json:"fontStyle"`
	Position         string `json:"position"`
	Alignment        string `json:"alignment"`
	OutlineThickness string `json:"outlineThickness"`
	ShadowDistance   string `json:"shadowDistance"`
}
