package gameday

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

// CallPicker chooses one of n home-run call templates.
type CallPicker interface {
	Pick(n int) int
}

// RandomPicker picks uniformly.
type RandomPicker struct{}

// Pick returns a random index in [0, n).
func (RandomPicker) Pick(n int) int { return rand.IntN(n) }

// FixedPicker always picks the same template, clamped to range.
type FixedPicker int

// Pick returns f clamped to [0, n).
func (f FixedPicker) Pick(n int) int {
	if int(f) >= n {
		return n - 1
	}
	if f < 0 {
		return 0
	}
	return int(f)
}

var (
	hrBatterRe  = regexp.MustCompile(`^(.+?) (?:homers|hits a grand slam)`)
	hrFieldRe   = regexp.MustCompile(`to ([a-zA-Z ]+) field\.`)
	hrScorersRe = regexp.MustCompile(`field\.\s+(.+)`)
	hrNumberRe  = regexp.MustCompile(`(\(\d+\))`)
)

type homeRun struct {
	batter    string
	field     string
	scorers   string
	number    string
	grandSlam bool
}

func parseHomeRun(description string) (homeRun, bool) {
	m := hrBatterRe.FindStringSubmatch(description)
	f := hrFieldRe.FindStringSubmatch(description)
	if m == nil || f == nil {
		return homeRun{}, false
	}
	hr := homeRun{
		batter:    m[1],
		field:     strings.ToUpper(f[1]),
		grandSlam: strings.Contains(description, "hits a grand slam"),
	}
	if s := hrScorersRe.FindStringSubmatch(description); s != nil {
		hr.scorers = s[1]
	}
	if n := hrNumberRe.FindStringSubmatch(description); n != nil {
		hr.number = n[1]
	}
	return hr, true
}

// HomeRunCall rewrites a home run description as a radio call. ok is false when the
// description cannot be parsed, in which case the plain description should be used.
func HomeRunCall(description string, picker CallPicker) (string, bool) {
	hr, ok := parseHomeRun(description)
	if !ok {
		return "", false
	}
	upper := strings.ToUpper(hr.batter)
	calls := []string{
		upper + " WITH A SWING AND A DRIVE! TO DEEP " + hr.field + "! A-WAAAAY BACK! GONE!!! " + hr.number,
		hr.batter + " is ready...the pitch...SWUNG ON AND BELTED. FLY AWAY! FLY AWAY! " + hr.field + " FIELD! THIS BALL: GONE!! " + hr.number,
		"The next pitch to " + hr.batter + "...SWUNG ON! HIT HIGH! HIT DEEP TO " + hr.field + "! IT WILL FLY AWAY! GOODBYE, HOME RUN!! " + hr.number,
		upper + " SWINGS AND DRIVES ONE! DEEP " + hr.field + " FIELD! GOING, GOING, GONE! FLY, FLY AWAY! " + hr.number,
		hr.batter + " steps in...the pitch...SWUNG ON AND CRUSHED! OH MY, GOODBYE BASEBALL! " + hr.field + " FIELD! SEE YA LATER! " + hr.number,
	}
	if hr.grandSlam {
		calls = append(calls, "AND HERE IT COMES... "+upper+" SWINGS AND IT'S A LONG FLY BALL TO "+hr.field+
			" FIELD... IT'S OUTTA HERE! GET OUT THE RYE BREAD AND THE MUSTARD, GRANDMA, IT'S A GRAND SALAMI!!! "+hr.number)
	}
	if picker == nil {
		picker = RandomPicker{}
	}
	call := strings.TrimRight(calls[picker.Pick(len(calls))], " ")
	if hr.scorers == "" {
		return call, true
	}
	return call + "\n" + hr.scorers, true
}
