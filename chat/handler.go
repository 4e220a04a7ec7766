package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/kasuganosora/guildsync/cache"
	"github.com/kasuganosora/guildsync/guild"
	"go.uber.org/zap"
)

const (
	maxMsgLen = 200

	// Channel carries every chat message across processes. Scope and
	// addressing live in the payload.
	Channel = "chat-message"
)

// ErrTooLong is returned for messages over the length limit.
var ErrTooLong = errors.New("chat: message too long")

// Message is the bus payload for one chat line.
type Message struct {
	Scope   string `json:"scope"` // "public"|"guild"
	GuildID string `json:"guild_id,omitempty"`
	FromID  string `json:"from_id"`
	Content string `json:"content"`
	TS      int64  `json:"ts"`
}

// Deliverer pushes a chat message to locally connected players. Each process
// implements it over its own session layer.
type Deliverer interface {
	Deliver(playerID string, msg Message)
	Broadcast(msg Message)
}

// Handler routes outgoing chat by the sender's per-player chat mode: a guild
// member who toggled guild mode speaks to their guild, everyone else speaks
// publicly. Messages travel the shared bus so members connected to other
// processes hear them too.
type Handler struct {
	ps     cache.PubSub
	reg    *guild.Registry
	logger *zap.Logger
}

// NewHandler creates a chat Handler over the given bus and guild registry.
func NewHandler(ps cache.PubSub, reg *guild.Registry, logger *zap.Logger) *Handler {
	return &Handler{ps: ps, reg: reg, logger: logger}
}

// Send routes one outgoing message from playerID. Empty messages are
// silently dropped.
func (h *Handler) Send(ctx context.Context, playerID, content string) error {
	content = strings.TrimSpace(content)
	if len(content) == 0 {
		return nil
	}
	if len([]rune(content)) > maxMsgLen {
		return ErrTooLong
	}

	msg := Message{
		Scope:   "public",
		FromID:  playerID,
		Content: content,
		TS:      time.Now().UnixMilli(),
	}
	if m, ok := h.reg.MemberOf(playerID); ok && m.ChatMode == guild.ChatGuild {
		msg.Scope = "guild"
		msg.GuildID = m.GuildID
	}
	return h.publish(ctx, msg)
}

// SendGuild sends to the player's guild regardless of their chat mode.
func (h *Handler) SendGuild(ctx context.Context, playerID, content string) error {
	content = strings.TrimSpace(content)
	if len(content) == 0 {
		return nil
	}
	if len([]rune(content)) > maxMsgLen {
		return ErrTooLong
	}
	m, ok := h.reg.MemberOf(playerID)
	if !ok {
		return guild.ErrNotAMember
	}
	return h.publish(ctx, Message{
		Scope:   "guild",
		GuildID: m.GuildID,
		FromID:  playerID,
		Content: content,
		TS:      time.Now().UnixMilli(),
	})
}

func (h *Handler) publish(ctx context.Context, msg Message) error {
	payload, _ := json.Marshal(msg)
	return h.ps.Publish(ctx, Channel, string(payload))
}

// Run consumes the chat channel and fans messages out to local players
// until ctx is cancelled. Guild-scoped messages go to the guild's current
// members; public messages go to everyone.
func (h *Handler) Run(ctx context.Context, deliver Deliverer) error {
	ch, cancel, err := h.ps.Subscribe(ctx, Channel)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()

	for raw := range ch {
		var msg Message
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			h.logger.Warn("malformed chat payload", zap.Error(err))
			continue
		}
		switch msg.Scope {
		case "guild":
			for _, m := range h.reg.MembersOf(msg.GuildID) {
				deliver.Deliver(m.PlayerID, msg)
			}
		default:
			deliver.Broadcast(msg)
		}
	}
	return nil
}
