package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockMLBServer creates a test server that mocks the stats API and the savant feed.
// Both clients can point their BaseURL at it.
type MockMLBServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests map[string]int
}

// NewMockMLBServer creates a new mock MLB server.
func NewMockMLBServer(t *testing.T) *MockMLBServer {
	t.Helper()
	m := &MockMLBServer{
		Handlers: make(map[string]http.HandlerFunc),
		requests: make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		m.mu.Lock()
		m.requests[key]++
		handler, ok := m.Handlers[key]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Requests returns how many times path was requested.
func (m *MockMLBServer) Requests(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

func (m *MockMLBServer) handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	m.Handlers[path] = h
	m.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body) //nolint:errcheck // test mock response
}

// MockSchedule adds a handler for /api/v1/schedule returning games on one date.
func (m *MockMLBServer) MockSchedule(officialDate string, games ...map[string]any) {
	for _, g := range games {
		if _, ok := g["officialDate"]; !ok {
			g["officialDate"] = officialDate
		}
	}
	m.handle("/api/v1/schedule", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"dates": []map[string]any{{"date": officialDate, "games": games}},
		})
	})
}

// MockLiveFeed adds a handler for the live feed of gamePk. A request carrying
// pushUpdateId is answered with the document registered for that id, if any.
func (m *MockMLBServer) MockLiveFeed(gamePk int, body []byte, atUpdate map[string][]byte) {
	m.handle(fmt.Sprintf("/api/v1.1/game/%d/feed/live", gamePk), func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("pushUpdateId"); id != "" {
			if doc, ok := atUpdate[id]; ok {
				writeRaw(w, doc)
				return
			}
		}
		writeRaw(w, body)
	})
}

// MockDiffPatch adds a handler for the diffPatch endpoint of gamePk. Responses are
// keyed by pushUpdateId; unknown ids get an empty patch list.
func (m *MockMLBServer) MockDiffPatch(gamePk int, byUpdate map[string]string) {
	m.handle(fmt.Sprintf("/api/v1.1/game/%d/feed/live/diffPatch", gamePk), func(w http.ResponseWriter, r *http.Request) {
		body, ok := byUpdate[r.URL.Query().Get("pushUpdateId")]
		if !ok {
			body = "[]"
		}
		writeRaw(w, []byte(strings.TrimSpace(body)))
	})
}

// MockSavantFeed adds a handler for /gf returning the given play list for the away team.
func (m *MockMLBServer) MockSavantFeed(plays ...map[string]any) {
	m.handle("/gf", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"team_home": []any{}, "team_away": plays})
	})
}

// MockXParks adds a handler for the x-parks lookup of one play.
func (m *MockMLBServer) MockXParks(gamePk int, playID string, hr, not []map[string]any) {
	m.handle(fmt.Sprintf("/gamefeed/x-parks/%d/%s", gamePk, playID), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"hr": hr, "not": not})
	})
}
