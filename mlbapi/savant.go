package mlbapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// SavantClient reads advanced metrics from baseball savant. Concurrent requests for the
// same resource share one HTTP round trip, since every sent message polls independently.
type SavantClient struct {
	BaseURL    string
	HTTPClient *http.Client

	group singleflight.Group
}

func (c *SavantClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// GameFeed returns the savant game feed for a game.
func (c *SavantClient) GameFeed(ctx context.Context, gamePk int) (*SavantFeed, error) {
	key := "gf:" + strconv.Itoa(gamePk)
	v, err, _ := c.group.Do(key, func() (any, error) {
		q := url.Values{}
		q.Set("game_pk", strconv.Itoa(gamePk))
		raw, err := getRaw(ctx, c.http(), c.BaseURL+"/gf", q)
		if err != nil {
			return nil, err
		}
		var feed SavantFeed
		if err := json.Unmarshal(raw, &feed); err != nil {
			return nil, fmt.Errorf("decode savant feed: %w", err)
		}
		return &feed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SavantFeed), nil
}

// XParks returns the ballparks in which the given batted ball would have left the yard.
func (c *SavantClient) XParks(ctx context.Context, gamePk int, playID string) (*XParks, error) {
	path := fmt.Sprintf("/gamefeed/x-parks/%d/%s", gamePk, url.PathEscape(playID))
	v, err, _ := c.group.Do("xp:"+path, func() (any, error) {
		raw, err := getRaw(ctx, c.http(), c.BaseURL+path, nil)
		if err != nil {
			return nil, err
		}
		var parks XParks
		if err := json.Unmarshal(raw, &parks); err != nil {
			return nil, fmt.Errorf("decode x-parks: %w", err)
		}
		return &parks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*XParks), nil
}
