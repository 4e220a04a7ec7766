package guild

import (
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/guildsync/model"
)

// ChatMode is a member's per-player chat routing preference.
type ChatMode int

const (
	ChatPublic ChatMode = ChatMode(model.ChatModePublic)
	ChatGuild  ChatMode = ChatMode(model.ChatModeGuild)
)

func (c ChatMode) String() string {
	if c == ChatGuild {
		return "guild"
	}
	return "public"
}

// Location is a world coordinate for the guild home.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Member is one player's membership record.
type Member struct {
	PlayerID string
	GuildID  string
	Rank     Rank
	ChatMode ChatMode
	JoinedAt time.Time
}

// Guild is the in-memory representation of one guild. The registry owns the
// canonical copy for its process; fields are only touched under the registry
// lock. Invite and alliance-invite sets are ephemeral (never persisted) and
// survive reconciliation; members and alliances are rebuilt from the store.
type Guild struct {
	ID        string
	Name      string
	Balance   int64
	Exp       int64
	Home      *Location
	CreatedAt time.Time

	Members         map[string]*Member
	Invites         map[string]struct{}
	AllianceInvites map[string]struct{}
	Alliances       map[string]struct{}
}

// New creates a fresh guild with a generated identity and no members.
func New(name string) *Guild {
	return &Guild{
		ID:              uuid.New().String(),
		Name:            name,
		CreatedAt:       time.Now(),
		Members:         make(map[string]*Member),
		Invites:         make(map[string]struct{}),
		AllianceInvites: make(map[string]struct{}),
		Alliances:       make(map[string]struct{}),
	}
}

// Owner returns the member holding RankOwner, or nil. A guild with at least
// one member always has exactly one owner.
func (g *Guild) Owner() *Member {
	for _, m := range g.Members {
		if m.Rank == RankOwner {
			return m
		}
	}
	return nil
}

// Member returns the membership record for playerID, or nil.
func (g *Guild) Member(playerID string) *Member {
	return g.Members[playerID]
}

// Invited reports whether playerID has a pending invite.
func (g *Guild) Invited(playerID string) bool {
	_, ok := g.Invites[playerID]
	return ok
}

// Row converts the guild to its durable representation.
func (g *Guild) Row() *model.Guild {
	row := &model.Guild{
		ID:        g.ID,
		Name:      g.Name,
		Balance:   g.Balance,
		Exp:       g.Exp,
		CreatedAt: g.CreatedAt,
	}
	if g.Home != nil {
		row.HomeSet = true
		row.HomeWorld = g.Home.World
		row.HomeX = g.Home.X
		row.HomeY = g.Home.Y
		row.HomeZ = g.Home.Z
	}
	return row
}

// Row converts the member to its durable representation.
func (m *Member) Row() *model.GuildMember {
	return &model.GuildMember{
		PlayerID: m.PlayerID,
		GuildID:  m.GuildID,
		Rank:     int(m.Rank),
		ChatMode: int(m.ChatMode),
		JoinedAt: m.JoinedAt,
	}
}

// fromGuildRow rebuilds an in-memory guild from its durable row, with empty
// member and ephemeral sets.
func fromGuildRow(row *model.Guild) *Guild {
	g := &Guild{
		ID:              row.ID,
		Name:            row.Name,
		Balance:         row.Balance,
		Exp:             row.Exp,
		CreatedAt:       row.CreatedAt,
		Members:         make(map[string]*Member),
		Invites:         make(map[string]struct{}),
		AllianceInvites: make(map[string]struct{}),
		Alliances:       make(map[string]struct{}),
	}
	if row.HomeSet {
		g.Home = &Location{World: row.HomeWorld, X: row.HomeX, Y: row.HomeY, Z: row.HomeZ}
	}
	return g
}

func fromMemberRow(row *model.GuildMember) *Member {
	return &Member{
		PlayerID: row.PlayerID,
		GuildID:  row.GuildID,
		Rank:     Rank(row.Rank),
		ChatMode: ChatMode(row.ChatMode),
		JoinedAt: row.JoinedAt,
	}
}
