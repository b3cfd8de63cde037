// Package matrix is the Matrix front end: it syncs with a homeserver,
// filters room messages down to commands the bot should hear, and hands them
// to a message handler.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms lists the room IDs the bot listens in. Empty means every room
	// the account is joined to.
	Rooms []string
	// DB is an optional SQLite connection used to persist the sync token
	// (next_batch) across restarts. When nil, an in-memory store is used and
	// room history replays on every restart.
	DB *sql.DB
}

// Message is an inbound command candidate, already filtered to plain text
// from a listened room.
type Message struct {
	RoomID  string
	EventID string
	Sender  string
	Body    string
}

// MessageHandler processes inbound messages.
type MessageHandler func(ctx context.Context, msg Message)

// Client wraps the mautrix client.
type Client struct {
	client  *mautrix.Client
	config  *Config
	rooms   map[string]struct{}
	stopCh  chan struct{}
	handler MessageHandler
}

// New creates a Matrix client.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create Matrix client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		rooms:  make(map[string]struct{}, len(config.Rooms)),
		stopCh: make(chan struct{}),
	}
	for _, roomID := range config.Rooms {
		c.rooms[roomID] = struct{}{}
	}

	// A persistent sync store lets the bot resume from the last known
	// position after a restart instead of replaying the full room history.
	if config.DB != nil {
		client.Store = newSQLSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start joins the configured rooms and begins syncing in the background.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.handler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleEvent)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(id.RoomID(roomID)); err != nil {
			return fmt.Errorf("join room %s: %w", roomID, err)
		}
	}

	// Sync with exponential back-off reconnection. Without retries a
	// transient homeserver error would silently kill the sync goroutine and
	// leave the bot deaf to all new messages.
	go func() {
		const (
			backoffMin = 2 * time.Second
			backoffMax = 5 * time.Minute
		)
		backoff := backoffMin
		for {
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > backoffMax {
					backoff = backoffMax
				}
				continue
			}
			// Sync returned nil — only happens on a clean StopSync() call.
			return
		}
	}()

	return nil
}

// Stop stops the sync loop.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendMessage sends a text message to a room.
func (c *Client) SendMessage(ctx context.Context, roomID, message string) error {
	if _, err := c.client.SendText(ctx, id.RoomID(roomID), message); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendNotice sends a notice, the conventional message type for bot output.
func (c *Client) SendNotice(ctx context.Context, roomID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    message,
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

// ReplyToMessage sends a threaded reply to a specific event.
func (c *Client) ReplyToMessage(ctx context.Context, roomID, eventID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    message,
		RelatesTo: &event.RelatesTo{
			InReplyTo: &event.InReplyTo{
				EventID: id.EventID(eventID),
			},
		},
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// SetTyping toggles the typing indicator while a command is being handled.
func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error {
	if _, err := c.client.UserTyping(ctx, id.RoomID(roomID), typing, timeout); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

// Listening reports whether the bot handles commands from the given room.
func (c *Client) Listening(roomID string) bool {
	if len(c.rooms) == 0 {
		return true
	}
	_, ok := c.rooms[roomID]
	return ok
}

// UserID returns the bot's own Matrix user ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

func (c *Client) handleEvent(ctx context.Context, evt *event.Event) {
	// Never react to our own output.
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}
	content := evt.Content.AsMessage()
	if content == nil || content.MsgType != event.MsgText {
		return
	}
	if !c.Listening(evt.RoomID.String()) {
		return
	}
	if c.handler != nil {
		c.handler(ctx, Message{
			RoomID:  evt.RoomID.String(),
			EventID: evt.ID.String(),
			Sender:  evt.Sender.String(),
			Body:    content.Body,
		})
	}
}

func (c *Client) joinRoom(roomID id.RoomID) error {
	if _, err := c.client.JoinRoomByID(context.Background(), roomID); err != nil {
		// M_FORBIDDEN is what homeservers return when the bot is already a
		// member of the room.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
