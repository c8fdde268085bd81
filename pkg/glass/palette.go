package glass

import "image/color"

// Palette is the app color scheme
var Palette = struct {
	Primary      color.NRGBA
	PrimaryDark  color.NRGBA
	PrimaryLight color.NRGBA
	Text         color.NRGBA
	White        color.NRGBA
	Gray         color.NRGBA
	GrayLight    color.NRGBA
	Warning      color.NRGBA
	Danger       color.NRGBA

	GreenGlass     color.NRGBA
	GreenGlassDark color.NRGBA
	BrownGlass     color.NRGBA
	BrownGlassDark color.NRGBA
	WhiteGlass     color.NRGBA
	WhiteGlassDark color.NRGBA
	OtherGlass     color.NRGBA
	OtherGlassDark color.NRGBA
}{
	Primary:      hex(0x16A34A),
	PrimaryDark:  hex(0x15803D),
	PrimaryLight: hex(0x22C55E),
	Text:         hex(0x1F2937),
	White:        hex(0xFFFFFF),
	Gray:         hex(0x6B7280),
	GrayLight:    hex(0xF3F4F6),
	Warning:      hex(0xFBC02D),
	Danger:       hex(0xDC2626),

	GreenGlass:     hex(0x16A34A),
	GreenGlassDark: hex(0x15803D),
	BrownGlass:     hex(0x92400E),
	BrownGlassDark: hex(0x78350F),
	WhiteGlass:     hex(0xE5E5E5),
	WhiteGlassDark: hex(0xD4D4D4),
	OtherGlass:     hex(0xFBBF24),
	OtherGlassDark: hex(0xF59E0B),
}

func hex(rgb uint32) color.NRGBA {
	return color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xFF}
}
