package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/gameday-bot/db"
	"github.com/onnwee/gameday-bot/subscription"
	"github.com/onnwee/gameday-bot/telemetry"
)

type subscriptionRequest struct {
	GuildID          string `json:"guild_id"`
	ChannelID        string `json:"channel_id"`
	ScoringPlaysOnly bool   `json:"scoring_plays_only"`
	DelaySeconds     int    `json:"delay_seconds"`
}

// HandleAdminSubscriptions lists (GET), adds (POST), updates (PATCH) and removes
// (DELETE) channel subscriptions.
func (h *Handlers) HandleAdminSubscriptions(w http.ResponseWriter, r *http.Request) {
	svc := h.deps.Subscriptions
	if svc == nil {
		http.Error(w, "subscriptions unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodGet {
		channels := svc.Channels()
		if channels == nil {
			channels = []db.Channel{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"channels": channels, "count": len(channels)})
		return
	}

	var req subscriptionRequest
	switch r.Method {
	case http.MethodPost, http.MethodPatch:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	case http.MethodDelete:
		q := r.URL.Query()
		req.GuildID, req.ChannelID = q.Get("guild_id"), q.Get("channel_id")
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		err    error
		status = http.StatusOK
	)
	switch r.Method {
	case http.MethodPost:
		err = svc.Subscribe(r.Context(), req.GuildID, req.ChannelID, req.ScoringPlaysOnly, req.DelaySeconds)
		status = http.StatusCreated
	case http.MethodPatch:
		err = svc.UpdatePreference(r.Context(), req.GuildID, req.ChannelID, req.ScoringPlaysOnly, req.DelaySeconds)
	case http.MethodDelete:
		err = svc.Unsubscribe(r.Context(), req.GuildID, req.ChannelID)
	}
	if err != nil {
		code := subscriptionErrorStatus(err)
		if code == http.StatusInternalServerError {
			telemetry.LoggerWithCorr(r.Context()).Error("subscription change failed",
				slog.String("component", "http"),
				slog.String("method", r.Method),
				slog.Any("err", err))
			http.Error(w, "internal error", code)
			return
		}
		http.Error(w, err.Error(), code)
		return
	}
	writeJSON(w, status, map[string]any{"status": "ok", "guild_id": req.GuildID, "channel_id": req.ChannelID})
}

func subscriptionErrorStatus(err error) int {
	switch {
	case errors.Is(err, subscription.ErrInvalidID), errors.Is(err, subscription.ErrInvalidDelay):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrAlreadySubscribed):
		return http.StatusConflict
	case errors.Is(err, db.ErrNotSubscribed):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
