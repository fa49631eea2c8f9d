package mlbapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LiveFeed is the subset of the /feed/live document the bot reads.
type LiveFeed struct {
	GamePk   int      `json:"gamePk"`
	MetaData MetaData `json:"metaData"`
	GameData GameData `json:"gameData"`
	LiveData LiveData `json:"liveData"`
}

type MetaData struct {
	TimeStamp  string   `json:"timeStamp"`
	GameEvents []string `json:"gameEvents"`
}

type GameData struct {
	Teams  GameTeams `json:"teams"`
	Venue  Venue     `json:"venue"`
	Status Status    `json:"status"`
}

type GameTeams struct {
	Away Team `json:"away"`
	Home Team `json:"home"`
}

type Team struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	TeamName     string `json:"teamName"`
	Abbreviation string `json:"abbreviation"`
}

type Venue struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Status struct {
	AbstractGameState string `json:"abstractGameState"`
	StatusCode        string `json:"statusCode"`
	DetailedState     string `json:"detailedState"`
}

type LiveData struct {
	Plays     Plays     `json:"plays"`
	Linescore Linescore `json:"linescore"`
}

type Plays struct {
	AllPlays    []AtBat `json:"allPlays"`
	CurrentPlay *AtBat  `json:"currentPlay"`
}

type Linescore struct {
	CurrentInning int            `json:"currentInning"`
	InningHalf    string         `json:"inningHalf"`
	Teams         LinescoreTeams `json:"teams"`
}

type LinescoreTeams struct {
	Home LinescoreTeam `json:"home"`
	Away LinescoreTeam `json:"away"`
}

type LinescoreTeam struct {
	Runs int `json:"runs"`
}

// AtBat is one entry of liveData.plays.allPlays (or currentPlay).
type AtBat struct {
	Result        *Result        `json:"result"`
	About         About          `json:"about"`
	Count         Count          `json:"count"`
	PlayEvents    []PlayEvent    `json:"playEvents"`
	ReviewDetails *ReviewDetails `json:"reviewDetails"`
	AtBatIndex    int            `json:"atBatIndex"`
}

type Result struct {
	Type        string `json:"type"`
	Event       string `json:"event"`
	EventType   string `json:"eventType"`
	Description string `json:"description"`
	AwayScore   *int   `json:"awayScore"`
	HomeScore   *int   `json:"homeScore"`
	IsOut       bool   `json:"isOut"`
}

type About struct {
	AtBatIndex    int    `json:"atBatIndex"`
	HalfInning    string `json:"halfInning"`
	IsTopInning   bool   `json:"isTopInning"`
	Inning        int    `json:"inning"`
	IsComplete    bool   `json:"isComplete"`
	IsScoringPlay bool   `json:"isScoringPlay"`
	HasReview     bool   `json:"hasReview"`
	HasOut        bool   `json:"hasOut"`
}

type Count struct {
	Balls   int `json:"balls"`
	Strikes int `json:"strikes"`
	Outs    int `json:"outs"`
}

type ReviewDetails struct {
	IsOverturned bool   `json:"isOverturned"`
	InProgress   bool   `json:"inProgress"`
	ReviewType   string `json:"reviewType"`
}

// PlayEvent is one entry of an at-bat's playEvents (pitch, pickoff, substitution...).
type PlayEvent struct {
	Details   EventDetails `json:"details"`
	Count     Count        `json:"count"`
	PitchData *PitchData   `json:"pitchData"`
	HitData   *HitData     `json:"hitData"`
	IsPitch   bool         `json:"isPitch"`
	PlayID    string       `json:"playId"`
	Type      string       `json:"type"`
}

type EventDetails struct {
	Description   string `json:"description"`
	Event         string `json:"event"`
	EventType     string `json:"eventType"`
	IsInPlay      bool   `json:"isInPlay"`
	IsStrike      bool   `json:"isStrike"`
	IsScoringPlay bool   `json:"isScoringPlay"`
	IsOut         bool   `json:"isOut"`
	HasReview     bool   `json:"hasReview"`
	AwayScore     *int   `json:"awayScore"`
	HomeScore     *int   `json:"homeScore"`
}

type PitchData struct {
	StrikeZoneTop    *float64     `json:"strikeZoneTop"`
	StrikeZoneBottom *float64     `json:"strikeZoneBottom"`
	Coordinates      *Coordinates `json:"coordinates"`
}

type Coordinates struct {
	PX *float64 `json:"pX"`
	PZ *float64 `json:"pZ"`
}

type HitData struct {
	LaunchSpeed   *float64 `json:"launchSpeed"`
	LaunchAngle   *float64 `json:"launchAngle"`
	TotalDistance *float64 `json:"totalDistance"`
}

// Notification is one message from the gameday push socket. Length is the raw payload
// size, used with TimeStamp to recognise re-delivered duplicates.
type Notification struct {
	GameEvents    []string     `json:"gameEvents"`
	LogicalEvents []string     `json:"logicalEvents"`
	ChangeEvent   *ChangeEvent `json:"changeEvent"`
	UpdateID      string       `json:"updateId"`
	GamePk        int          `json:"gamePk"`
	TimeStamp     string       `json:"timeStamp"`
	Length        int          `json:"-"`
}

type ChangeEvent struct {
	Type string `json:"type"`
}

// ChangeFullRefresh asks the client to drop incremental state and reload the snapshot.
const ChangeFullRefresh = "full_refresh"

// IsFullRefresh reports whether the provider asked for a full snapshot reload.
func (n Notification) IsFullRefresh() bool {
	return n.ChangeEvent != nil && n.ChangeEvent.Type == ChangeFullRefresh
}

// HasGameEvent reports whether ev is among the notification's game events.
func (n Notification) HasGameEvent(ev string) bool {
	for _, e := range n.GameEvents {
		if e == ev {
			return true
		}
	}
	return false
}

// Operation is a single JSON Patch operation as sent by the diffPatch endpoint.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Patch is one element of a diffPatch response.
type Patch struct {
	Diff []Operation `json:"diff"`
}

// Diff is the diffPatch response: either an ordered list of patches or, when the
// provider decides the client is too far behind, a complete live feed document.
type Diff struct {
	Patches []Patch
	Full    json.RawMessage
}

// IsFull reports whether the response carried a full snapshot instead of patches.
func (d Diff) IsFull() bool { return len(d.Full) > 0 }

func (d *Diff) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty diff payload")
	}
	switch trimmed[0] {
	case '[':
		return json.Unmarshal(trimmed, &d.Patches)
	case '{':
		d.Full = append(json.RawMessage(nil), trimmed...)
		return nil
	default:
		return fmt.Errorf("unexpected diff payload starting with %q", trimmed[0])
	}
}

// ScheduleGame is a game entry from /api/v1/schedule.
type ScheduleGame struct {
	GamePk       int    `json:"gamePk"`
	GameDate     string `json:"gameDate"`
	OfficialDate string `json:"officialDate"`
	Status       Status `json:"status"`
}

// InProgress reports whether the game is live (in progress or warming up).
func (g ScheduleGame) InProgress() bool {
	return g.Status.StatusCode == "I" || g.Status.StatusCode == "PW"
}

// SavantFeed is the baseball savant game feed: per-team lists of tracked plays.
type SavantFeed struct {
	TeamHome []SavantPlay `json:"team_home"`
	TeamAway []SavantPlay `json:"team_away"`
}

// FindPlay returns the play with the given id from either team list.
func (f *SavantFeed) FindPlay(playID string) *SavantPlay {
	if f == nil || playID == "" {
		return nil
	}
	for i := range f.TeamAway {
		if f.TeamAway[i].PlayID == playID {
			return &f.TeamAway[i]
		}
	}
	for i := range f.TeamHome {
		if f.TeamHome[i].PlayID == playID {
			return &f.TeamHome[i]
		}
	}
	return nil
}

type SavantPlay struct {
	PlayID         string          `json:"play_id"`
	XBA            FlexString      `json:"xba"`
	ContextMetrics *ContextMetrics `json:"contextMetrics"`
}

type ContextMetrics struct {
	HomeRunBallparks *int `json:"homeRunBallparks"`
}

// HomeRunBallparks returns the ballpark count and whether the feed carried one.
func (p *SavantPlay) HomeRunBallparks() (int, bool) {
	if p == nil || p.ContextMetrics == nil || p.ContextMetrics.HomeRunBallparks == nil {
		return 0, false
	}
	return *p.ContextMetrics.HomeRunBallparks, true
}

// XParks lists the ballparks where a batted ball would (hr) or would not (not) have
// been a home run.
type XParks struct {
	HR  []Park `json:"hr"`
	Not []Park `json:"not"`
}

type Park struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FlexString decodes a JSON string or number into its textual form. Savant is not
// consistent about quoting numeric metrics.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(b)
	return nil
}

// Float parses the value; ok is false when empty or not numeric.
func (s FlexString) Float() (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
