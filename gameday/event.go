// Package gameday turns the live feed of one game into chat messages. It owns the
// feed session loop, the play reporting state machine, fan-out to subscribed channels
// and the advanced metric backfill of messages already sent.
package gameday

import "github.com/onnwee/gameday-bot/mlbapi"

// StartMarker is the play event description that marks the first pitch of a game.
const StartMarker = "Status Change - In Progress"

// reportable lists sub-event types that are worth a message even though they do not
// end an at-bat.
var reportable = map[string]struct{}{
	"stolen_base_2b":                {},
	"stolen_base_3b":                {},
	"stolen_base_home":              {},
	"caught_stealing_2b":            {},
	"caught_stealing_3b":            {},
	"caught_stealing_home":          {},
	"pickoff_1b":                    {},
	"pickoff_2b":                    {},
	"pickoff_3b":                    {},
	"pickoff_caught_stealing_2b":    {},
	"pickoff_caught_stealing_3b":    {},
	"pickoff_caught_stealing_home":  {},
	"wild_pitch":                    {},
	"passed_ball":                   {},
	"balk":                          {},
	"other_advance":                 {},
	"error":                         {},
	"defensive_indiff":              {},
	"pitching_substitution_advance": {},
}

// IsReportable reports whether eventType is on the allow-list.
func IsReportable(eventType string) bool {
	_, ok := reportable[eventType]
	return ok
}

// Play is the normalized view of an at-bat or one of its sub-events. It is built once
// by FromAtBat or FromSubEvent so the rest of the package never falls back between
// result and details fields.
type Play struct {
	AtBatIndex int
	Inning     int
	HalfInning string

	Description string
	Event       string
	EventType   string

	IsComplete       bool
	IsScoringPlay    bool
	IsOut            bool
	Outs             int
	HasReview        bool
	ReviewInProgress bool
	AwayScore        *int
	HomeScore        *int

	HasStartMarker bool

	// Terminal is the last sub-event of an at-bat, or the sub-event itself.
	Terminal *Terminal
	// Zone is built from the at-bat's first pitch with zone bounds.
	Zone *Zone
}

// Terminal carries the batted-ball and pitch-location data of the event that ended
// the play.
type Terminal struct {
	IsInPlay  bool
	EventType string
	PlayID    string
	Strikes   int
	Hit       *mlbapi.HitData
	PX, PZ    *float64
}

// IsStrikeout reports whether the terminal event was a strikeout.
func (t *Terminal) IsStrikeout() bool {
	return t != nil && t.EventType == "strikeout"
}

// IsTopHalf reports whether the away side is batting.
func (p Play) IsTopHalf() bool {
	return p.HalfInning == "top"
}

// IsInPlay reports whether the play put a ball in play.
func (p Play) IsInPlay() bool {
	return p.Terminal != nil && p.Terminal.IsInPlay
}

// PlayID returns the unique id of the batted ball, if any.
func (p Play) PlayID() string {
	if p.Terminal == nil {
		return ""
	}
	return p.Terminal.PlayID
}

// HitDistance returns the projected distance of the batted ball, if known.
func (p Play) HitDistance() *float64 {
	if p.Terminal == nil || p.Terminal.Hit == nil {
		return nil
	}
	return p.Terminal.Hit.TotalDistance
}

// FromAtBat normalizes a whole at-bat.
func FromAtBat(ab *mlbapi.AtBat) Play {
	p := Play{
		AtBatIndex:    ab.About.AtBatIndex,
		Inning:        ab.About.Inning,
		HalfInning:    ab.About.HalfInning,
		IsComplete:    ab.About.IsComplete,
		IsScoringPlay: ab.About.IsScoringPlay,
		Outs:          ab.Count.Outs,
		HasReview:     ab.About.HasReview,
		Zone:          zoneFor(ab),
	}
	if ab.ReviewDetails != nil {
		p.ReviewInProgress = ab.ReviewDetails.InProgress
	}
	if r := ab.Result; r != nil {
		p.Description = r.Description
		p.Event = r.Event
		p.EventType = r.EventType
		p.IsOut = r.IsOut
		p.AwayScore = r.AwayScore
		p.HomeScore = r.HomeScore
	}
	for i := range ab.PlayEvents {
		if ab.PlayEvents[i].Details.Description == StartMarker {
			p.HasStartMarker = true
			break
		}
	}
	if n := len(ab.PlayEvents); n > 0 {
		p.Terminal = terminalOf(&ab.PlayEvents[n-1])
	}
	return p
}

// FromSubEvent normalizes one entry of an at-bat's playEvents. Inning and zone come
// from the enclosing at-bat.
func FromSubEvent(ab *mlbapi.AtBat, ev *mlbapi.PlayEvent) Play {
	d := ev.Details
	return Play{
		AtBatIndex:     ab.About.AtBatIndex,
		Inning:         ab.About.Inning,
		HalfInning:     ab.About.HalfInning,
		Description:    d.Description,
		Event:          d.Event,
		EventType:      d.EventType,
		IsScoringPlay:  d.IsScoringPlay,
		IsOut:          d.IsOut,
		Outs:           ev.Count.Outs,
		AwayScore:      d.AwayScore,
		HomeScore:      d.HomeScore,
		HasStartMarker: d.Description == StartMarker,
		Terminal:       terminalOf(ev),
		Zone:           zoneFor(ab),
	}
}

func terminalOf(ev *mlbapi.PlayEvent) *Terminal {
	t := &Terminal{
		IsInPlay:  ev.Details.IsInPlay,
		EventType: ev.Details.EventType,
		PlayID:    ev.PlayID,
		Strikes:   ev.Count.Strikes,
		Hit:       ev.HitData,
	}
	if pd := ev.PitchData; pd != nil && pd.Coordinates != nil {
		t.PX = pd.Coordinates.PX
		t.PZ = pd.Coordinates.PZ
	}
	return t
}
