// Package discord is the outbound message transport: it sends play embeds to
// subscribed channels and edits them in place when metrics are backfilled.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// Embed is the rendered content of one play message.
type Embed struct {
	Title       string
	Description string
	Color       int
}

// Message is the handle of a delivered message, used for later edits.
type Message struct {
	ChannelID string
	ID        string
}

func (e Embed) toDiscord() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: e.Title, Description: e.Description, Color: e.Color}
}

// Client sends and edits embeds through a discordgo session.
type Client struct {
	session *discordgo.Session
}

// New creates a bot session for token. Open must be called before sending.
func New(token string) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	// a failed send is logged and dropped, never queued behind a rate limit
	s.ShouldRetryOnRateLimit = false
	return &Client{session: s}, nil
}

// Open connects the gateway.
func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	slog.Info("discord gateway connected", slog.String("component", "discord"))
	return nil
}

// Close disconnects the gateway.
func (c *Client) Close() error {
	return c.session.Close()
}

// Send posts embed to channelID.
func (c *Client) Send(ctx context.Context, channelID string, embed Embed) (Message, error) {
	m, err := c.session.ChannelMessageSendEmbed(channelID, embed.toDiscord(), discordgo.WithContext(ctx))
	if err != nil {
		return Message{}, fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	return Message{ChannelID: m.ChannelID, ID: m.ID}, nil
}

// Edit replaces the embed of a previously sent message.
func (c *Client) Edit(ctx context.Context, msg Message, embed Embed) error {
	if _, err := c.session.ChannelMessageEditEmbed(msg.ChannelID, msg.ID, embed.toDiscord(), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s in channel %s: %w", msg.ID, msg.ChannelID, err)
	}
	return nil
}

// DryRun logs sends and edits instead of delivering them. It is used when no bot
// token is configured.
type DryRun struct {
	next atomic.Int64
	mu   sync.Mutex
	last map[Message]Embed
}

// NewDryRun returns a logging transport.
func NewDryRun() *DryRun {
	return &DryRun{last: make(map[Message]Embed)}
}

// Send logs the embed and records it under a new message handle.
func (d *DryRun) Send(_ context.Context, channelID string, embed Embed) (Message, error) {
	msg := Message{ChannelID: channelID, ID: strconv.FormatInt(d.next.Add(1), 10)}
	d.mu.Lock()
	d.last[msg] = embed
	d.mu.Unlock()
	slog.Info("dry-run send",
		slog.String("component", "discord"),
		slog.String("channel_id", channelID),
		slog.String("message_id", msg.ID),
		slog.String("title", embed.Title),
		slog.String("description", embed.Description))
	return msg, nil
}

// Edit replaces the recorded embed for msg. Unknown messages are an error.
func (d *DryRun) Edit(_ context.Context, msg Message, embed Embed) error {
	d.mu.Lock()
	_, ok := d.last[msg]
	if ok {
		d.last[msg] = embed
	}
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("edit message %s in channel %s: unknown message", msg.ID, msg.ChannelID)
	}
	slog.Info("dry-run edit",
		slog.String("component", "discord"),
		slog.String("channel_id", msg.ChannelID),
		slog.String("message_id", msg.ID),
		slog.String("description", embed.Description))
	return nil
}

// Embed returns the latest content of a dry-run message.
func (d *DryRun) Embed(msg Message) (Embed, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.last[msg]
	return e, ok
}
