package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/gameday-bot/db"
	"github.com/onnwee/gameday-bot/subscription"
	"github.com/onnwee/gameday-bot/testutil"
)

func TestSubscriptionEndpointsWithDatabase(t *testing.T) {
	database := testutil.SetupTestDB(t)
	const guild = "800000000000000001"
	const channel = "900000000000000001"
	if _, err := database.Exec(`DELETE FROM subscribed_channels WHERE guild_id = $1`, guild); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	t.Cleanup(func() {
		_, _ = database.Exec(`DELETE FROM subscribed_channels WHERE guild_id = $1`, guild)
	})

	svc := subscription.NewService(&db.SubscriptionRepo{DB: database})
	if err := svc.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	srv := httptest.NewServer(newMux(t, Deps{DB: database, Subscriptions: svc}))
	defer srv.Close()

	do := func(method, path, body string) (int, string) {
		t.Helper()
		req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, strings.NewReader(body))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	body := `{"guild_id":"` + guild + `","channel_id":"` + channel + `","delay_seconds":15}`
	if code, msg := do(http.MethodPost, "/admin/subscriptions", body); code != http.StatusCreated {
		t.Fatalf("subscribe = %d %s", code, msg)
	}
	if code, _ := do(http.MethodPost, "/admin/subscriptions", body); code != http.StatusConflict {
		t.Errorf("duplicate subscribe = %d, want 409", code)
	}

	code, raw := do(http.MethodGet, "/admin/subscriptions", "")
	if code != http.StatusOK {
		t.Fatalf("list = %d", code)
	}
	var list struct {
		Channels []db.Channel `json:"channels"`
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var found *db.Channel
	for i := range list.Channels {
		if list.Channels[i].ChannelID == channel {
			found = &list.Channels[i]
		}
	}
	if found == nil || found.DelaySeconds != 15 || found.ScoringPlaysOnly {
		t.Fatalf("subscription not listed as stored: %+v", found)
	}

	update := `{"guild_id":"` + guild + `","channel_id":"` + channel + `","scoring_plays_only":true,"delay_seconds":0}`
	if code, msg := do(http.MethodPatch, "/admin/subscriptions", update); code != http.StatusOK {
		t.Fatalf("update = %d %s", code, msg)
	}
	for _, c := range svc.Channels() {
		if c.ChannelID == channel && (!c.ScoringPlaysOnly || c.DelaySeconds != 0) {
			t.Errorf("cache not refreshed after update: %+v", c)
		}
	}

	query := "/admin/subscriptions?guild_id=" + guild + "&channel_id=" + channel
	if code, _ := do(http.MethodDelete, query, ""); code != http.StatusOK {
		t.Errorf("unsubscribe = %d", code)
	}
	if code, _ := do(http.MethodDelete, query, ""); code != http.StatusNotFound {
		t.Errorf("second unsubscribe = %d, want 404", code)
	}

	if code, _ := do(http.MethodGet, "/readyz", ""); code != http.StatusOK {
		t.Errorf("readyz with live database = %d, want 200", code)
	}
}
