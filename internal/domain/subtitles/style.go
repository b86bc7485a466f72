package subtitles

import (
	"strings"

	"github.com/scrideo/scrideo/internal/types"
)

// ASS colors are AABBGGRR hex: alpha first (00 opaque, FF fully
// transparent), then the color channels in reverse RGB order.
var colorTable = map[string]string{
	"white":       "00FFFFFF",
	"yellow":      "0000FFFF",
	"cyan":        "00FFFF00",
	"lime":        "0000FF00",
	"orange":      "0000A5FF",
	"red":         "000000FF",
	"pink":        "00CBC0FF",
	"purple":      "00F020A0",
	"light-blue":  "00E6D8AD",
	"light-green": "0090EE90",
}

// dark-blue and navy are documented aliases for the same value.
var bgColorTable = map[string]string{
	"none":             "FF000000",
	"black":            "00000000",
	"dark-gray":        "00333333",
	"semi-transparent": "80000000",
	"dark-blue":        "00800000",
	"dark-red":         "00000080",
	"dark-green":       "00008000",
	"dark-purple":      "00800080",
	"navy":             "00800000",
	"charcoal":         "00363636",
}

var fontTable = map[string]string{
	"arial":           "Arial",
	"helvetica":       "Helvetica",
	"times-new-roman": "Times New Roman",
	"courier-new":     "Courier New",
	"verdana":         "Verdana",
	"georgia":         "Georgia",
	"impact":          "Impact",
	"comic-sans":      "Comic Sans MS",
	"trebuchet":       "Trebuchet MS",
	"arial-black":     "Arial Black",
	"palatino":        "Palatino Linotype",
}

var outlineTable = map[string]int{
	"none":        0,
	"thin":        1,
	"medium":      2,
	"thick":       3,
	"extra-thick": 4,
}

var shadowTable = map[string]int{
	"none":        0,
	"subtle":      1,
	"medium":      2,
	"large":       3,
	"extra-large": 4,
}

// placement maps a named screen zone onto the ASS numpad alignment grid:
//
//	7 8 9
//	4 5 6
//	1 2 3
type placement struct {
	Alignment int
	MarginL   int
	MarginR   int
	MarginV   int
}

var positionTable = map[string]placement{
	"top-left":     {7, 40, 10, 20},
	"top":          {8, 10, 10, 20},
	"top-right":    {9, 10, 40, 20},
	"middle-left":  {4, 40, 10, 0},
	"middle":       {5, 10, 10, 0},
	"middle-right": {6, 10, 40, 0},
	"bottom-left":  {1, 40, 10, 20},
	"bottom":       {2, 10, 10, 20},
	"bottom-right": {3, 10, 40, 20},
}

// ResolvedStyle holds the concrete render parameters for one job's ASS
// style record.
type ResolvedStyle struct {
	FontName      string
	FontSize      int
	PrimaryColour string
	BackColour    string
	Bold          int
	Italic        int
	BorderStyle   int
	Outline       int
	Shadow        int
	Alignment     int
	MarginL       int
	MarginR       int
	MarginV       int
}

const (
	defaultFontSize = 20

	// BorderStyle 1 draws an outline with a drop shadow; 4 draws an opaque
	// box behind the text, in which case Outline acts as box padding.
	borderOutline = 1
	borderBox     = 4
	boxPadding    = 2
)

// Resolve maps a symbolic style configuration onto concrete ASS style
// parameters. It is total: unknown symbolic values fall back to the
// documented default for that field.
func Resolve(cfg types.StyleConfig) ResolvedStyle {
	size := cfg.Size
	if size <= 0 {
		size = defaultFontSize
	}
	primary, ok := colorTable[cfg.Color]
	if !ok {
		primary = colorTable["white"]
	}
	back, bgKnown := bgColorTable[cfg.BgColor]
	if !bgKnown {
		back = bgColorTable["none"]
	}
	font, ok := fontTable[cfg.Font]
	if !ok {
		font = fontTable["arial"]
	}

	// -1/0 is the tri-state boolean encoding the ASS style table expects.
	bold, italic := 0, 0
	if strings.Contains(cfg.FontStyle, "bold") {
		bold = -1
	}
	if strings.Contains(cfg.FontStyle, "italic") {
		italic = -1
	}

	hasBackground := bgKnown && cfg.BgColor != "none"
	borderStyle, outline, shadow := borderOutline, 0, 0
	if hasBackground {
		// The box supplies its own emphasis; outline/shadow settings are
		// intentionally ignored in box mode.
		borderStyle = borderBox
		outline = boxPadding
	} else {
		outline, ok = outlineTable[cfg.OutlineThickness]
		if !ok {
			outline = outlineTable["medium"]
		}
		shadow, ok = shadowTable[cfg.ShadowDistance]
		if !ok {
			shadow = shadowTable["medium"]
		}
	}

	position := cfg.Position
	if position == "" {
		position = "bottom"
	}
	pos, ok := positionTable[position]
	if !ok {
		pos = positionTable["bottom"]
	}
	// Row anchors shift to their corner variant when an explicit left/right
	// alignment is given; corner positions ignore the alignment field.
	switch position {
	case "top", "middle", "bottom":
		switch cfg.Alignment {
		case "left":
			pos.Alignment--
			pos.MarginL, pos.MarginR = 40, 10
		case "right":
			pos.Alignment++
			pos.MarginL, pos.MarginR = 10, 40
		}
	}

	return ResolvedStyle{
		FontName:      font,
		FontSize:      size,
		PrimaryColour: primary,
		BackColour:    back,
		Bold:          bold,
		Italic:        italic,
		BorderStyle:   borderStyle,
		Outline:       outline,
		Shadow:        shadow,
		Alignment:     pos.Alignment,
		MarginL:       pos.MarginL,
		MarginR:       pos.MarginR,
		MarginV:       pos.MarginV,
	}
}
