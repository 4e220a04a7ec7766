package guild

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kasuganosora/guildsync/model"
	"github.com/kasuganosora/guildsync/store"
	"go.uber.org/zap"
)

// Registry is the process-local authoritative cache of guild state: a map
// from guild id to Guild plus a player→guild reverse index maintained
// atomically with every membership mutation. The durable store is the
// cross-process source of truth; the registry converges on it through
// reconciliation.
//
// All access goes through methods holding the registry lock. Read methods
// copy values out so callers never hold live graph references.
type Registry struct {
	mu       sync.RWMutex
	st       store.Store
	guilds   map[string]*Guild
	byPlayer map[string]string
	logger   *zap.Logger
}

// Info is a copied-out summary of one guild, safe to use without the
// registry lock.
type Info struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Balance         int64     `json:"balance"`
	Exp             int64     `json:"exp"`
	Home            *Location `json:"home,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Members         []Member  `json:"members"`
	Invites         []string  `json:"invites"`
	AllianceInvites []string  `json:"alliance_invites"`
	Alliances       []string  `json:"alliances"`
}

// NewRegistry creates an empty registry over the given store.
func NewRegistry(st store.Store, logger *zap.Logger) *Registry {
	return &Registry{
		st:       st,
		guilds:   make(map[string]*Guild),
		byPlayer: make(map[string]string),
		logger:   logger,
	}
}

// LoadAll bulk-loads every guild, membership and alliance row, replacing the
// cache. It must complete before the process accepts any mutation; an
// unreachable store here is fatal to the process.
func (r *Registry) LoadAll() error {
	start := time.Now()

	guildRows, err := r.st.GetGuilds()
	if err != nil {
		return err
	}
	memberRows, err := r.st.GetMembers()
	if err != nil {
		return err
	}
	allianceRows, err := r.st.GetAlliances()
	if err != nil {
		return err
	}

	guilds := make(map[string]*Guild, len(guildRows))
	byPlayer := make(map[string]string, len(memberRows))
	for i := range guildRows {
		g := fromGuildRow(&guildRows[i])
		guilds[g.ID] = g
	}
	for i := range memberRows {
		m := fromMemberRow(&memberRows[i])
		g, ok := guilds[m.GuildID]
		if !ok {
			r.logger.Warn("membership row references unknown guild",
				zap.String("player_id", m.PlayerID),
				zap.String("guild_id", m.GuildID))
			continue
		}
		g.Members[m.PlayerID] = m
		byPlayer[m.PlayerID] = m.GuildID
	}
	for _, a := range allianceRows {
		if ga, ok := guilds[a.GuildA]; ok {
			ga.Alliances[a.GuildB] = struct{}{}
		}
		if gb, ok := guilds[a.GuildB]; ok {
			gb.Alliances[a.GuildA] = struct{}{}
		}
	}

	r.mu.Lock()
	r.guilds = guilds
	r.byPlayer = byPlayer
	r.mu.Unlock()

	r.logger.Info("guild registry loaded",
		zap.Int("guilds", len(guilds)),
		zap.Int("members", len(byPlayer)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// ---- reads ----

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.guilds)
}

// Names returns every guild name, for command completion surfaces.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.guilds))
	for _, g := range r.guilds {
		names = append(names, g.Name)
	}
	return names
}

func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.guilds[id]
	return ok
}

// Snapshot returns a full copy of one guild's state.
func (r *Registry) Snapshot(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[id]
	if !ok {
		return Info{}, false
	}
	return snapshotLocked(g), true
}

func snapshotLocked(g *Guild) Info {
	info := Info{
		ID:              g.ID,
		Name:            g.Name,
		Balance:         g.Balance,
		Exp:             g.Exp,
		CreatedAt:       g.CreatedAt,
		Members:         make([]Member, 0, len(g.Members)),
		Invites:         make([]string, 0, len(g.Invites)),
		AllianceInvites: make([]string, 0, len(g.AllianceInvites)),
		Alliances:       make([]string, 0, len(g.Alliances)),
	}
	if g.Home != nil {
		home := *g.Home
		info.Home = &home
	}
	for _, m := range g.Members {
		info.Members = append(info.Members, *m)
	}
	for pid := range g.Invites {
		info.Invites = append(info.Invites, pid)
	}
	for gid := range g.AllianceInvites {
		info.AllianceInvites = append(info.AllianceInvites, gid)
	}
	for gid := range g.Alliances {
		info.Alliances = append(info.Alliances, gid)
	}
	return info
}

// FindByName returns the id of the guild whose name matches
// case-insensitively.
func (r *Registry) FindByName(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, g := range r.guilds {
		if strings.EqualFold(g.Name, name) {
			return id, true
		}
	}
	return "", false
}

// FindByPlayer returns the id of the guild the player belongs to. The
// reverse index makes this O(1) instead of a scan over all guilds.
func (r *Registry) FindByPlayer(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	return id, ok
}

// MemberOf returns a copy of the player's membership record.
func (r *Registry) MemberOf(playerID string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	if !ok {
		return Member{}, false
	}
	g, ok := r.guilds[id]
	if !ok {
		return Member{}, false
	}
	m, ok := g.Members[playerID]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// MembersOf returns copies of every membership record of the guild.
func (r *Registry) MembersOf(guildID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return nil
	}
	ms := make([]Member, 0, len(g.Members))
	for _, m := range g.Members {
		ms = append(ms, *m)
	}
	return ms
}

// OwnerOf returns a copy of the guild's owner record.
func (r *Registry) OwnerOf(guildID string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return Member{}, false
	}
	o := g.Owner()
	if o == nil {
		return Member{}, false
	}
	return *o, true
}

func (r *Registry) Invited(guildID, playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[guildID]
	return ok && g.Invited(playerID)
}

func (r *Registry) Allied(a, b string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[a]
	if !ok {
		return false
	}
	_, ok = g.Alliances[b]
	return ok
}

// AllianceRequested reports whether guildID holds a pending alliance
// request from fromID.
func (r *Registry) AllianceRequested(guildID, fromID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return false
	}
	_, ok = g.AllianceInvites[fromID]
	return ok
}

// GuildRow builds the durable row for one guild under the lock.
func (r *Registry) GuildRow(id string) (*model.Guild, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[id]
	if !ok {
		return nil, false
	}
	return g.Row(), true
}

// ---- mutations ----

// PutGuild inserts or replaces a guild and indexes its members.
func (r *Registry) PutGuild(g *Guild) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guilds[g.ID] = g
	for pid := range g.Members {
		r.byPlayer[pid] = g.ID
	}
}

// RemoveGuild drops a guild and every index entry pointing at it.
func (r *Registry) RemoveGuild(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeGuildLocked(id)
}

func (r *Registry) removeGuildLocked(id string) {
	g, ok := r.guilds[id]
	if !ok {
		return
	}
	for pid := range g.Members {
		if r.byPlayer[pid] == id {
			delete(r.byPlayer, pid)
		}
	}
	delete(r.guilds, id)
}

// PutMember inserts or updates a membership record under its guild, keeping
// the reverse index in step. Returns false if the guild is not cached.
func (r *Registry) PutMember(m *Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guilds[m.GuildID]
	if !ok {
		return false
	}
	cp := *m
	g.Members[m.PlayerID] = &cp
	r.byPlayer[m.PlayerID] = m.GuildID
	return true
}

// DropMember removes the player's membership record from its cached guild.
// The guild itself stays cached.
func (r *Registry) DropMember(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropMemberLocked(playerID)
}

func (r *Registry) dropMemberLocked(playerID string) {
	id, ok := r.byPlayer[playerID]
	if !ok {
		return
	}
	if g, ok := r.guilds[id]; ok {
		delete(g.Members, playerID)
	}
	delete(r.byPlayer, playerID)
}

// UpdateGuild applies fn to the cached guild under the lock.
func (r *Registry) UpdateGuild(id string, fn func(*Guild)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guilds[id]
	if !ok {
		return false
	}
	fn(g)
	return true
}

// UpdateMember applies fn to the cached membership record under the lock.
func (r *Registry) UpdateMember(playerID string, fn func(*Member)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPlayer[playerID]
	if !ok {
		return false
	}
	g, ok := r.guilds[id]
	if !ok {
		return false
	}
	m, ok := g.Members[playerID]
	if !ok {
		return false
	}
	fn(m)
	return true
}

// AddInvite records a pending invite. Returns false if the guild is not
// cached or the invite already exists (a guild's invite set holds no
// duplicates).
func (r *Registry) AddInvite(guildID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return false
	}
	if _, dup := g.Invites[playerID]; dup {
		return false
	}
	g.Invites[playerID] = struct{}{}
	return true
}

// RemoveInvite drops a pending invite, reporting whether it was present.
func (r *Registry) RemoveInvite(guildID, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return false
	}
	if _, present := g.Invites[playerID]; !present {
		return false
	}
	delete(g.Invites, playerID)
	return true
}

func (r *Registry) AddAllianceInvite(guildID, fromID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return false
	}
	if _, dup := g.AllianceInvites[fromID]; dup {
		return false
	}
	g.AllianceInvites[fromID] = struct{}{}
	return true
}

func (r *Registry) RemoveAllianceInvite(guildID, fromID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return false
	}
	if _, present := g.AllianceInvites[fromID]; !present {
		return false
	}
	delete(g.AllianceInvites, fromID)
	return true
}

// AddAlliance records the symmetric alliance on both cached guilds.
func (r *Registry) AddAlliance(a, b string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ga, ok := r.guilds[a]; ok {
		ga.Alliances[b] = struct{}{}
	}
	if gb, ok := r.guilds[b]; ok {
		gb.Alliances[a] = struct{}{}
	}
}

func (r *Registry) RemoveAlliance(a, b string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ga, ok := r.guilds[a]; ok {
		delete(ga.Alliances, b)
	}
	if gb, ok := r.guilds[b]; ok {
		delete(gb.Alliances, a)
	}
}

// ---- reconciliation ----

// ReconcileGuild re-reads one guild and its membership and alliance rows
// from the store and replaces (or removes, if absent) the cached entry.
// Idempotent and safe to invoke redundantly. Ephemeral invite sets carry
// over from the previous cached entry; they are not durable and would
// otherwise vanish on every reconciliation.
func (r *Registry) ReconcileGuild(id string) error {
	row, err := r.st.GetGuild(id)
	if errors.Is(err, store.ErrNotFound) {
		r.mu.Lock()
		r.removeGuildLocked(id)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}
	memberRows, err := r.st.GetMembersOfGuild(id)
	if err != nil {
		return err
	}
	allianceRows, err := r.st.GetAlliancesOfGuild(id)
	if err != nil {
		return err
	}

	g := fromGuildRow(row)
	for i := range memberRows {
		m := fromMemberRow(&memberRows[i])
		g.Members[m.PlayerID] = m
	}
	for _, a := range allianceRows {
		other := a.GuildA
		if other == id {
			other = a.GuildB
		}
		g.Alliances[other] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.guilds[id]; ok {
		g.Invites = old.Invites
		g.AllianceInvites = old.AllianceInvites
		for pid := range old.Members {
			if _, still := g.Members[pid]; !still && r.byPlayer[pid] == id {
				delete(r.byPlayer, pid)
			}
		}
	}
	for pid := range g.Members {
		r.byPlayer[pid] = id
	}
	r.guilds[id] = g
	return nil
}

// ReconcileMember re-reads one membership row. A deleted row removes the
// member from its still-cached guild; a present row upserts it under the
// guild named by the row. If that guild is not cached yet (a member sync
// outran its guild's creation sync) the whole guild is reconciled instead.
func (r *Registry) ReconcileMember(playerID string) error {
	row, err := r.st.GetMember(playerID)
	if errors.Is(err, store.ErrNotFound) {
		r.mu.Lock()
		r.dropMemberLocked(playerID)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	m := fromMemberRow(row)
	r.mu.Lock()
	if prev, ok := r.byPlayer[playerID]; ok && prev != m.GuildID {
		r.dropMemberLocked(playerID)
	}
	g, cached := r.guilds[m.GuildID]
	if cached {
		g.Members[playerID] = m
		r.byPlayer[playerID] = m.GuildID
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	return r.ReconcileGuild(m.GuildID)
}
