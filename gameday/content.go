package gameday

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldState is the lifecycle of an advanced metric inside a sent message.
type FieldState int

const (
	// FieldOmitted fields are not rendered at all.
	FieldOmitted FieldState = iota
	FieldPending
	FieldValue
	// FieldUnavailable is used when the batted ball carried no tracking data.
	FieldUnavailable
	// FieldNotAvailable is used when backfill gave up.
	FieldNotAvailable
)

// Field is one backfilled metric.
type Field struct {
	State FieldState
	Value string
}

func (f Field) render(label string) (string, bool) {
	switch f.State {
	case FieldPending:
		return label + ": Pending...", true
	case FieldValue:
		return label + ": " + f.Value, true
	case FieldUnavailable:
		return label + ": Unavailable", true
	case FieldNotAvailable:
		return label + ": Not Available.", true
	default:
		return "", false
	}
}

// Statcast holds the batted-ball block of a message. The first three lines are fixed
// at extraction time; XBA and HRPark are filled in by backfill.
type Statcast struct {
	ExitVelo    string
	LaunchAngle string
	Distance    string
	XBA         Field
	HRPark      Field
}

// Content is the structured body of a play message. It is rendered to text only when
// a message is sent or edited, so backfill updates fields instead of splicing strings.
type Content struct {
	Start    string
	Body     string
	Outs     string
	Score    string
	Statcast *Statcast
	Zone     string
	// ZoneNote is appended by the strikeout backfill check.
	ZoneNote string
}

// Clone returns a deep copy; every sent message owns its own content.
func (c Content) Clone() Content {
	if c.Statcast != nil {
		s := *c.Statcast
		c.Statcast = &s
	}
	return c
}

// Empty reports whether there is nothing to send.
func (c Content) Empty() bool {
	return c.Start == "" && c.Body == ""
}

// Pending reports whether any backfilled metric is still pending.
func (c Content) Pending() bool {
	return c.Statcast != nil && (c.Statcast.XBA.State == FieldPending || c.Statcast.HRPark.State == FieldPending)
}

// GiveUp turns every pending metric into "Not Available." and reports whether
// anything changed.
func (c *Content) GiveUp() bool {
	if c.Statcast == nil {
		return false
	}
	changed := false
	for _, f := range []*Field{&c.Statcast.XBA, &c.Statcast.HRPark} {
		if f.State == FieldPending {
			f.State = FieldNotAvailable
			changed = true
		}
	}
	return changed
}

// Render produces the message description.
func (c Content) Render() string {
	if c.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString(c.Start)
	if c.Start != "" && c.Body != "" {
		b.WriteString("\n")
	}
	b.WriteString(c.Body)
	b.WriteString(c.Outs)
	if c.Score != "" {
		b.WriteString("\n")
		b.WriteString(c.Score)
	}
	if s := c.Statcast; s != nil {
		b.WriteString("\n\n**Statcast Metrics:**\n")
		lines := []string{s.ExitVelo, s.LaunchAngle, s.Distance}
		if l, ok := s.XBA.render("xBA"); ok {
			lines = append(lines, l)
		}
		if l, ok := s.HRPark.render("HR/Park"); ok {
			lines = append(lines, l)
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	if c.Zone != "" {
		b.WriteString("\n")
		b.WriteString(c.Zone)
	}
	if c.ZoneNote != "" {
		b.WriteString("\n")
		b.WriteString(c.ZoneNote)
	}
	return b.String()
}

// outsClause renders the outs count after an out-producing play.
func outsClause(outs int) string {
	if outs == 1 {
		return " **1 out.**"
	}
	return fmt.Sprintf(" **%d outs.**", outs)
}

// IntensityMarkers returns how many fire markers an exit velocity earns.
func IntensityMarkers(exitVelo float64) int {
	switch {
	case exitVelo >= 110:
		return 3
	case exitVelo >= 100:
		return 2
	case exitVelo >= 95:
		return 1
	default:
		return 0
	}
}

func fire(exitVelo float64) string {
	n := IntensityMarkers(exitVelo)
	if n == 0 {
		return ""
	}
	return " " + strings.Repeat("🔥", n)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// hrParkMinDistance is the shortest batted ball worth an HR/Park line.
const hrParkMinDistance = 300

// newStatcast builds the batted-ball block from tracking data. Without an exit
// velocity the whole block reads Unavailable.
func newStatcast(t *Terminal) *Statcast {
	if t == nil || t.Hit == nil || t.Hit.LaunchSpeed == nil {
		return &Statcast{
			ExitVelo:    "Exit Velo: Unavailable",
			LaunchAngle: "Launch Angle: Unavailable",
			Distance:    "Distance: Unavailable",
			XBA:         Field{State: FieldUnavailable},
			HRPark:      Field{State: FieldUnavailable},
		}
	}
	h := t.Hit
	s := &Statcast{
		ExitVelo:    "Exit Velo: " + formatNumber(*h.LaunchSpeed) + " mph" + fire(*h.LaunchSpeed),
		LaunchAngle: "Launch Angle: Unavailable",
		Distance:    "Distance: Unavailable",
		XBA:         Field{State: FieldPending},
	}
	if h.LaunchAngle != nil {
		s.LaunchAngle = "Launch Angle: " + formatNumber(*h.LaunchAngle) + "°"
	}
	if h.TotalDistance != nil {
		s.Distance = "Distance: " + formatNumber(*h.TotalDistance) + " ft."
		if *h.TotalDistance >= hrParkMinDistance {
			s.HRPark = Field{State: FieldPending}
		}
	}
	return s
}

func zoneLines(c ZoneCheck) string {
	if !c.Outside {
		return "The pitch was inside the strike zone."
	}
	return fmt.Sprintf("The pitch was outside the strike zone.\nDistance from zone - Horizontal: %.2f, Vertical: %.2f.", c.Horizontal, c.Vertical)
}

// zoneNote is the one-line clarification added by the strikeout backfill check.
const zoneNote = "The pitch was outside the strike zone."
