// Package mlbapi contains minimal clients for the MLB Stats API (schedule, live feed,
// diff patches), the gameday push socket, and the baseball savant game feed.
package mlbapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// StatsClient talks to statsapi.mlb.com.
type StatsClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *StatsClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Schedule lists regular games between start and end (inclusive dates). teamID 0 lists every team.
func (c *StatsClient) Schedule(ctx context.Context, teamID int, start, end time.Time) ([]ScheduleGame, error) {
	q := url.Values{}
	q.Set("sportId", "1")
	q.Set("startDate", start.Format(time.DateOnly))
	q.Set("endDate", end.Format(time.DateOnly))
	if teamID > 0 {
		q.Set("teamId", strconv.Itoa(teamID))
	}
	var body struct {
		Dates []struct {
			Games []ScheduleGame `json:"games"`
		} `json:"dates"`
	}
	raw, err := c.get(ctx, "/api/v1/schedule", q)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	var out []ScheduleGame
	for _, d := range body.Dates {
		out = append(out, d.Games...)
	}
	return out, nil
}

// CurrentGames lists games in a window around now.
func (c *StatsClient) CurrentGames(ctx context.Context, teamID int, now time.Time) ([]ScheduleGame, error) {
	return c.Schedule(ctx, teamID, now.AddDate(0, 0, -2), now.AddDate(0, 0, 7))
}

// LiveFeed returns the raw live feed document for a game.
func (c *StatsClient) LiveFeed(ctx context.Context, gamePk int) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("/api/v1.1/game/%d/feed/live", gamePk), nil)
}

// LiveFeedAt returns the live feed as of a push update id (used for full refreshes).
func (c *StatsClient) LiveFeedAt(ctx context.Context, gamePk int, updateID string) ([]byte, error) {
	q := url.Values{}
	q.Set("pushUpdateId", updateID)
	return c.get(ctx, fmt.Sprintf("/api/v1.1/game/%d/feed/live", gamePk), q)
}

// DiffPatch returns the changes between startTimecode and the given push update.
func (c *StatsClient) DiffPatch(ctx context.Context, gamePk int, updateID, startTimecode string) (Diff, error) {
	q := url.Values{}
	q.Set("language", "en")
	q.Set("startTimecode", startTimecode)
	q.Set("pushUpdateId", updateID)
	raw, err := c.get(ctx, fmt.Sprintf("/api/v1.1/game/%d/feed/live/diffPatch", gamePk), q)
	if err != nil {
		return Diff{}, err
	}
	var d Diff
	if err := json.Unmarshal(raw, &d); err != nil {
		return Diff{}, fmt.Errorf("decode diff patch: %w", err)
	}
	return d, nil
}

func (c *StatsClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	return getRaw(ctx, c.http(), c.BaseURL+path, q)
}

func getRaw(ctx context.Context, hc *http.Client, rawURL string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
