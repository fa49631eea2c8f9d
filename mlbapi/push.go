package mlbapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// PingInterval is the interval for sending ping frames on the push socket.
	PingInterval = 30 * time.Second

	// notificationBuffer bounds how far the reader may run ahead of the consumer.
	notificationBuffer = 64
)

// PushClient subscribes to the gameday push socket.
type PushClient struct {
	URL    string
	Dialer *websocket.Dialer
}

func (c *PushClient) dialer() *websocket.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return websocket.DefaultDialer
}

// Subscribe connects to the socket for gamePk and returns a channel of notifications in
// arrival order. The channel is closed when the socket closes or ctx is canceled.
func (c *PushClient) Subscribe(ctx context.Context, gamePk int) (<-chan Notification, error) {
	target := strings.TrimRight(c.URL, "/") + "/" + strconv.Itoa(gamePk)
	conn, _, err := c.dialer().DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gameday socket: %w", err)
	}
	out := make(chan Notification, notificationBuffer)
	var writeMu sync.Mutex
	stop := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		writeMu.Unlock()
		_ = conn.Close()
	}()

	go func() {
		ticker := time.NewTicker(PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				writeMu.Unlock()
				if err != nil {
					slog.Debug("gameday socket ping failed", slog.Any("err", err), slog.Int("game_pk", gamePk))
				}
			}
		}
	}()

	go func() {
		defer close(out)
		defer close(stop)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Warn("gameday socket closed", slog.Any("err", err), slog.Int("game_pk", gamePk))
				}
				return
			}
			n, err := DecodeNotification(data)
			if err != nil {
				slog.Warn("gameday socket: undecodable message", slog.Any("err", err), slog.Int("game_pk", gamePk))
				continue
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// DecodeNotification parses a raw socket payload and records its length.
func DecodeNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, err
	}
	n.Length = len(data)
	return n, nil
}
