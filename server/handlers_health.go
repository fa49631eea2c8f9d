package server

import (
	"errors"
	"net/http"
	"time"
)

// HandleHealthz responds to liveness checks. The process is alive while it can serve.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness requests with dependency checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.deps.DB == nil {
				return errors.New("no database configured")
			}
			return h.deps.DB.PingContext(r.Context())
		}},
		{"poller", func() error {
			if h.deps.Tracker != nil && h.deps.Tracker.LastPoll().IsZero() {
				return errors.New("schedule not polled yet")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	GamePk         int        `json:"game_pk,omitempty"`
	Tracking       bool       `json:"tracking"`
	Finished       bool       `json:"finished"`
	AtBatIndex     *int       `json:"at_bat_index,omitempty"`
	SnapshotTime   string     `json:"snapshot_timestamp,omitempty"`
	ReportedPlays  int        `json:"reported_plays"`
	LastComplete   *int       `json:"last_complete_at_bat,omitempty"`
	Subscribers    int        `json:"subscribers"`
	LastPoll       *time.Time `json:"last_poll,omitempty"`
	StartAnnounced bool       `json:"start_announced"`
}

// HandleStatus returns a lightweight summary of the tracked game and subscriptions.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var out statusResponse
	if h.deps.Subscriptions != nil {
		out.Subscribers = len(h.deps.Subscriptions.Channels())
	}
	if t := h.deps.Tracker; t != nil {
		if lp := t.LastPoll(); !lp.IsZero() {
			out.LastPoll = &lp
		}
		if st := t.Store(); st != nil {
			out.GamePk = st.GamePk()
			out.Finished = st.Finished()
			out.Tracking = !out.Finished
			out.StartAnnounced = st.StartReported()
			out.SnapshotTime = st.TimeStamp()
			out.ReportedPlays = st.Ledger().Len()
			if last, ok := st.Ledger().LastComplete(); ok {
				out.LastComplete = &last
			}
			if feed := st.Feed(); feed != nil && feed.LiveData.Plays.CurrentPlay != nil {
				idx := feed.LiveData.Plays.CurrentPlay.About.AtBatIndex
				out.AtBatIndex = &idx
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}
