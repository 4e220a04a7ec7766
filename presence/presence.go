package presence

import (
	"context"
	"encoding/json"

	"github.com/kasuganosora/guildsync/cache"
	"go.uber.org/zap"
)

// Channel carries player-directed text across processes. Whichever process
// currently holds the player's connection delivers it; everyone else
// ignores the message.
const Channel = "player-message"

// Notifier is the presence collaborator: deliver text to a player if they
// are online anywhere, silently drop it otherwise.
type Notifier interface {
	SendIfOnline(playerID, text string)
}

// Message is the bus payload for one player notification.
type Message struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

// BusNotifier publishes notifications on the shared bus so the process
// holding the player's session can deliver them.
type BusNotifier struct {
	ps     cache.PubSub
	logger *zap.Logger
}

// NewBusNotifier creates a BusNotifier over the given bus.
func NewBusNotifier(ps cache.PubSub, logger *zap.Logger) *BusNotifier {
	return &BusNotifier{ps: ps, logger: logger}
}

func (n *BusNotifier) SendIfOnline(playerID, text string) {
	payload, _ := json.Marshal(Message{PlayerID: playerID, Text: text})
	if err := n.ps.Publish(context.Background(), Channel, string(payload)); err != nil {
		n.logger.Warn("player notification dropped",
			zap.String("player_id", playerID), zap.Error(err))
	}
}

// Nop is a Notifier that discards everything.
type Nop struct{}

func (Nop) SendIfOnline(string, string) {}
