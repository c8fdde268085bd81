// Package glass maps backend class names to glass categories, their target
// containers and the colors used to present them.
package glass

import (
	"image/color"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a glass color category
type Category string

const (
	Green   Category = "green"
	Brown   Category = "brown"
	White   Category = "white"
	Other   Category = "other"
	Unknown Category = "unknown"
)

// Backend class names
const (
	ClassGreen = "Glasflasche_Gruen"
	ClassBrown = "Glasflasche_Braun"
	ClassWhite = "Glasflasche_Weiss"
	ClassOther = "Glasflasche_Andere"
)

// Info describes how a category is presented
type Info struct {
	Category  Category    `json:"category"`
	Name      string      `json:"name"`
	Container string      `json:"container"`
	Icon      string      `json:"icon"`
	Stripe1   color.NRGBA `json:"-"`
	Stripe2   color.NRGBA `json:"-"`
	HasBorder bool        `json:"has_border,omitempty"`
}

var catalog = map[Category]Info{
	Green: {
		Category:  Green,
		Name:      "Grünglas",
		Container: "Grünglas-Container",
		Icon:      "leaf",
		Stripe1:   Palette.GreenGlass,
		Stripe2:   Palette.GreenGlassDark,
	},
	Brown: {
		Category:  Brown,
		Name:      "Braunglas",
		Container: "Braunglas-Container",
		Icon:      "cafe",
		Stripe1:   Palette.BrownGlass,
		Stripe2:   Palette.BrownGlassDark,
	},
	White: {
		Category:  White,
		Name:      "Weißglas",
		Container: "Weißglas-Container",
		Icon:      "water",
		Stripe1:   Palette.WhiteGlass,
		Stripe2:   Palette.WhiteGlassDark,
		HasBorder: true,
	},
	// Other colors go into the green container
	Other: {
		Category:  Other,
		Name:      "Andere Farben",
		Container: "Grünglas-Container",
		Icon:      "color-palette",
		Stripe1:   Palette.OtherGlass,
		Stripe2:   Palette.OtherGlassDark,
	},
}

var unknownInfo = Info{
	Category:  Unknown,
	Name:      "Unbekannt",
	Container: "Bitte erneut versuchen",
	Icon:      "help-circle",
	Stripe1:   Palette.Gray,
	Stripe2:   Palette.GrayLight,
}

var classes = map[string]Category{
	"glasflasche_gruen":  Green,
	"glasflasche_grün":   Green,
	"glasflasche_braun":  Brown,
	"glasflasche_weiss":  White,
	"glasflasche_weiß":   White,
	"glasflasche_andere": Other,
}

// CategoryOf returns the category for a backend class name. Matching ignores
// case and surrounding whitespace.
func CategoryOf(className string) Category {
	key := cases.Lower(language.German).String(strings.TrimSpace(className))
	if c, ok := classes[key]; ok {
		return c
	}
	return Unknown
}

// ClassName returns the canonical backend class name for a category, or ""
// for Unknown.
func ClassName(c Category) string {
	switch c {
	case Green:
		return ClassGreen
	case Brown:
		return ClassBrown
	case White:
		return ClassWhite
	case Other:
		return ClassOther
	}
	return ""
}

// Lookup returns the presentation info for a backend class name
func Lookup(className string) Info {
	if info, ok := catalog[CategoryOf(className)]; ok {
		return info
	}
	return unknownInfo
}

// Overview lists the known categories in display order
func Overview() []Info {
	return []Info{catalog[Green], catalog[Brown], catalog[White], catalog[Other]}
}

// DisplayName turns an unknown class name like "glasflasche_blau" into
// "Glasflasche Blau".
func DisplayName(className string) string {
	if info := Lookup(className); info.Category != Unknown {
		return info.Name
	}
	words := strings.Fields(strings.ReplaceAll(className, "_", " "))
	if len(words) == 0 {
		return unknownInfo.Name
	}
	return cases.Title(language.German).String(strings.Join(words, " "))
}

// Level grades a confidence value
type Level string

const (
	High   Level = "high"
	Medium Level = "medium"
	Low    Level = "low"
)

// Confidence thresholds
const (
	HighConfidence   = 0.8
	MediumConfidence = 0.6
)

// LevelOf grades a confidence in [0,1]
func LevelOf(confidence float64) Level {
	switch {
	case confidence >= HighConfidence:
		return High
	case confidence >= MediumConfidence:
		return Medium
	default:
		return Low
	}
}

// LevelColor returns the color used to render a confidence level
func LevelColor(l Level) color.NRGBA {
	switch l {
	case High:
		return Palette.Primary
	case Medium:
		return Palette.Warning
	default:
		return Palette.Danger
	}
}

// NeedsReview reports whether a result should carry a low-confidence warning
func NeedsReview(confidence float64) bool {
	return confidence < MediumConfidence
}

// Percent rounds a confidence to a whole percentage
func Percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}
