package gameday

import "math"

// TeamColors are a club's primary and secondary colors as 0xRRGGBB.
type TeamColors struct {
	Primary   int
	Secondary int
}

// DefaultColor is used for teams missing from the table.
const DefaultColor = 0x2F3136

// MinColorContrast is the contrast ratio the away color must reach against the home
// color, otherwise the away secondary color is used.
const MinColorContrast = 1.5

var teamColors = map[int]TeamColors{
	108: {0xBA0021, 0x003263}, // LAA
	109: {0xA71930, 0xE3D4AD}, // ARI
	110: {0xDF4601, 0x000000}, // BAL
	111: {0xBD3039, 0x0C2340}, // BOS
	112: {0x0E3386, 0xCC3433}, // CHC
	113: {0xC6011F, 0x000000}, // CIN
	114: {0x00385D, 0xE50022}, // CLE
	115: {0x333366, 0xC4CED4}, // COL
	116: {0x0C2340, 0xFA4616}, // DET
	117: {0x002D62, 0xEB6E1F}, // HOU
	118: {0x004687, 0xBD9B60}, // KC
	119: {0x005A9C, 0xEF3E42}, // LAD
	120: {0xAB0003, 0x14225A}, // WSH
	121: {0x002D72, 0xFF5910}, // NYM
	133: {0x003831, 0xEFB21E}, // OAK
	134: {0x27251F, 0xFDB827}, // PIT
	135: {0x2F241D, 0xFFC425}, // SD
	136: {0x0C2C56, 0x005C5C}, // SEA
	137: {0xFD5A1E, 0x27251F}, // SF
	138: {0xC41E3A, 0x0C2340}, // STL
	139: {0x092C5C, 0x8FBCE6}, // TB
	140: {0x003278, 0xC0111F}, // TEX
	141: {0x134A8E, 0x1D2D5C}, // TOR
	142: {0x002B5C, 0xD31145}, // MIN
	143: {0xE81828, 0x002D72}, // PHI
	144: {0xCE1141, 0x13274F}, // ATL
	145: {0x27251F, 0xC4CED4}, // CWS
	146: {0x00A3E0, 0xEF3340}, // MIA
	147: {0x0C2340, 0xC4CED4}, // NYY
	158: {0x12284B, 0xFFC52F}, // MIL
}

// GameColors returns the embed colors for the home and away sides.
func GameColors(homeID, awayID int) (home, away int) {
	h, ok := teamColors[homeID]
	if !ok {
		h = TeamColors{DefaultColor, DefaultColor}
	}
	a, ok := teamColors[awayID]
	if !ok {
		a = TeamColors{DefaultColor, DefaultColor}
	}
	away = a.Primary
	if ContrastRatio(h.Primary, a.Primary) < MinColorContrast {
		away = a.Secondary
	}
	return h.Primary, away
}

// ContrastRatio is the WCAG 2 contrast ratio between two colors, from 1 to 21.
func ContrastRatio(c1, c2 int) float64 {
	l1, l2 := luminance(c1), luminance(c2)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

func luminance(c int) float64 {
	channel := func(v int) float64 {
		s := float64(v) / 255
		if s <= 0.03928 {
			return s / 12.92
		}
		return math.Pow((s+0.055)/1.055, 2.4)
	}
	r, g, b := channel(c>>16&0xFF), channel(c>>8&0xFF), channel(c&0xFF)
	return 0.2126*r + 0.7152*g + 0.0722*b
}
