package gameday

import (
	"fmt"
	"strconv"

	"github.com/onnwee/gameday-bot/mlbapi"
)

// Game is the snapshot context an extraction reads besides the play itself.
type Game struct {
	GamePk        int
	Away          mlbapi.Team
	Home          mlbapi.Team
	Venue         mlbapi.Venue
	AwayRuns      int
	HomeRuns      int
	StartReported bool
}

// GameFromFeed builds the extraction context from a snapshot.
func GameFromFeed(feed *mlbapi.LiveFeed, startReported bool) Game {
	return Game{
		GamePk:        feed.GamePk,
		Away:          feed.GameData.Teams.Away,
		Home:          feed.GameData.Teams.Home,
		Venue:         feed.GameData.Venue,
		AwayRuns:      feed.LiveData.Linescore.Teams.Away.Runs,
		HomeRuns:      feed.LiveData.Linescore.Teams.Home.Runs,
		StartReported: startReported,
	}
}

// Extraction is the narrative and flags derived from one Play.
type Extraction struct {
	Play    Play
	Content Content

	// IsStartEvent is true whenever the play carries the start marker, reported or not.
	IsStartEvent bool
	// StartAnnounced is true when Content includes the start announcement.
	StartAnnounced bool
	// Zone is set for strikeouts with pitch location data.
	Zone *ZoneCheck
}

// Description returns the play's result text.
func (e Extraction) Description() string { return e.Play.Description }

// Event returns the display name of the play's result, e.g. "Home Run".
func (e Extraction) Event() string { return e.Play.Event }

// EventType returns the play's result code, e.g. "home_run".
func (e Extraction) EventType() string { return e.Play.EventType }

// IsComplete reports whether the at-bat has finished.
func (e Extraction) IsComplete() bool { return e.Play.IsComplete }

// IsScoringPlay reports whether a run scored on the play.
func (e Extraction) IsScoringPlay() bool { return e.Play.IsScoringPlay }

// IsInPlay reports whether the last pitch was put in play.
func (e Extraction) IsInPlay() bool { return e.Play.IsInPlay() }

// PlayID returns the savant play id of the last pitch, or "".
func (e Extraction) PlayID() string { return e.Play.PlayID() }

// HitDistance returns the batted ball distance, if known.
func (e Extraction) HitDistance() *float64 { return e.Play.HitDistance() }

// Narrative is the rendered message text; empty means nothing to report.
func (e Extraction) Narrative() string { return e.Content.Render() }

// Extractor derives message content from plays. FavoriteTeamID enables the
// team-specific start announcements and home-run calls; zero disables them.
type Extractor struct {
	FavoriteTeamID int
	Calls          CallPicker
}

// Extract builds the content of p.
func (x *Extractor) Extract(p Play, g Game) Extraction {
	ex := Extraction{Play: p, IsStartEvent: p.HasStartMarker}
	if p.HasStartMarker && !g.StartReported {
		ex.Content.Start = x.startAnnouncement(g)
		ex.StartAnnounced = true
	}

	if (!p.IsComplete && !IsReportable(p.EventType)) || p.Description == "" {
		return ex
	}

	c := &ex.Content
	c.Body = x.describe(p, g)
	if p.IsOut {
		c.Outs = outsClause(p.Outs)
	}
	if p.IsScoringPlay && !p.ReviewInProgress {
		c.Score = scoreLine(p, g)
	}
	if p.HasReview {
		return ex
	}
	if p.IsInPlay() {
		c.Statcast = newStatcast(p.Terminal)
	}
	if p.Terminal.IsStrikeout() && p.Terminal.Strikes == 3 {
		if zc, ok := CheckStrikeout(p); ok {
			ex.Zone = &zc
			c.Zone = zoneLines(zc)
		}
	}
	return ex
}

func (x *Extractor) startAnnouncement(g Game) string {
	switch {
	case x.FavoriteTeamID == 0:
		return "A game is starting!"
	case g.Home.ID == x.FavoriteTeamID:
		return "And we're underway at " + g.Venue.Name + "."
	case g.Away.ID == x.FavoriteTeamID:
		return "A game is starting! Go " + teamName(g.Away) + "!"
	default:
		return "A game is starting!"
	}
}

func (x *Extractor) describe(p Play, g Game) string {
	if x.FavoriteTeamID != 0 && p.Event == "Home Run" && x.favoriteBatting(p, g) {
		if call, ok := HomeRunCall(p.Description, x.Calls); ok {
			return call
		}
	}
	return p.Description
}

func (x *Extractor) favoriteBatting(p Play, g Game) bool {
	if p.IsTopHalf() {
		return g.Away.ID == x.FavoriteTeamID
	}
	return g.Home.ID == x.FavoriteTeamID
}

func teamName(t mlbapi.Team) string {
	if t.TeamName != "" {
		return t.TeamName
	}
	return t.Name
}

// scoreLine renders the score after a scoring play with the batting side emphasized.
func scoreLine(p Play, g Game) string {
	away, home := g.AwayRuns, g.HomeRuns
	if p.AwayScore != nil {
		away = *p.AwayScore
	}
	if p.HomeScore != nil {
		home = *p.HomeScore
	}
	a := g.Away.Abbreviation + " " + strconv.Itoa(away)
	h := g.Home.Abbreviation + " " + strconv.Itoa(home)
	if p.IsTopHalf() {
		return "# _" + a + "_, " + h
	}
	return "# " + a + ", _" + h + "_"
}

// Title renders the embed title: half inning, inning and the current score.
func Title(p Play, g Game) string {
	half := "BOT"
	if p.IsTopHalf() {
		half = "TOP"
	}
	title := fmt.Sprintf("%s %d, %s %d - %d %s", half, p.Inning, g.Away.Abbreviation, g.AwayRuns, g.HomeRuns, g.Home.Abbreviation)
	if p.IsScoringPlay {
		title += " - Scoring Play ❗"
	}
	return title
}
