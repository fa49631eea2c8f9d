package gameday

import "github.com/onnwee/gameday-bot/mlbapi"

// plateHalfWidth is half of home plate (17in) plus the radius of a baseball, in feet.
const plateHalfWidth = 0.7083 + 0.121

// Zone is a batter's rectangular strike zone in feet, as seen by the catcher.
type Zone struct {
	Top, Bottom float64
	Left, Right float64
}

// ZoneCheck is the result of locating a pitch against a Zone. Distances are the
// overflow beyond the nearest edge and are zero inside the zone.
type ZoneCheck struct {
	Outside    bool
	Horizontal float64
	Vertical   float64
}

// zoneFor builds the zone from the first pitch of the at-bat that carries bounds.
func zoneFor(ab *mlbapi.AtBat) *Zone {
	for i := range ab.PlayEvents {
		pd := ab.PlayEvents[i].PitchData
		if pd == nil || pd.StrikeZoneTop == nil || pd.StrikeZoneBottom == nil {
			continue
		}
		return &Zone{
			Top:    *pd.StrikeZoneTop,
			Bottom: *pd.StrikeZoneBottom,
			Left:   -plateHalfWidth,
			Right:  plateHalfWidth,
		}
	}
	return nil
}

// Check locates a pitch at (px, pz).
func (z Zone) Check(px, pz float64) ZoneCheck {
	var c ZoneCheck
	switch {
	case px < z.Left:
		c.Horizontal = z.Left - px
	case px > z.Right:
		c.Horizontal = px - z.Right
	}
	switch {
	case pz < z.Bottom:
		c.Vertical = z.Bottom - pz
	case pz > z.Top:
		c.Vertical = pz - z.Top
	}
	c.Outside = c.Horizontal > 0 || c.Vertical > 0
	return c
}

// CheckStrikeout locates the final pitch of a strikeout. ok is false when the play is
// not a strikeout or the feed has no zone or location for it yet.
func CheckStrikeout(p Play) (ZoneCheck, bool) {
	t := p.Terminal
	if !t.IsStrikeout() || p.Zone == nil || t.PX == nil || t.PZ == nil {
		return ZoneCheck{}, false
	}
	return p.Zone.Check(*t.PX, *t.PZ), true
}
