package guild

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kasuganosora/guildsync/audit"
	"github.com/kasuganosora/guildsync/cache"
	"github.com/kasuganosora/guildsync/economy"
	"github.com/kasuganosora/guildsync/hook"
	"github.com/kasuganosora/guildsync/model"
	"github.com/kasuganosora/guildsync/presence"
	"github.com/kasuganosora/guildsync/scheduler"
	"github.com/kasuganosora/guildsync/store"
	"go.uber.org/zap"
)

// Options bundles the tunables of the mutation engine.
type Options struct {
	InviteTTL          time.Duration
	AllianceRequestTTL time.Duration
	NameReserveTTL     time.Duration
}

func (o *Options) fillDefaults() {
	if o.InviteTTL <= 0 {
		o.InviteTTL = 20 * time.Minute
	}
	if o.AllianceRequestTTL <= 0 {
		o.AllianceRequestTTL = 20 * time.Minute
	}
	if o.NameReserveTTL <= 0 {
		o.NameReserveTTL = 10 * time.Second
	}
}

// Service is the mutation engine: every guild operation is a guarded state
// transition that validates against registry state, mutates the cache
// synchronously, then schedules durable persistence whose completion
// broadcasts the change.
//
// Operations are serialized by a single mutex, mirroring the one logical
// mutation thread of each game-server process. Convergence across processes
// is last-write-wins at the store level with no version column: a slow
// process can clobber the visible effect of a fast one. That is an accepted
// trade-off for a low-contention social feature, not financial-grade
// consistency.
type Service struct {
	mu    sync.Mutex
	reg   *Registry
	st    store.Store
	queue *Queue
	ps    cache.PubSub
	kv    cache.Cache
	econ  economy.Economy
	pres  presence.Notifier
	sched *scheduler.Scheduler
	hooks *hook.Center
	log   *audit.Service
	opts  Options

	logger *zap.Logger
}

// NewService wires the mutation engine over its collaborators.
func NewService(reg *Registry, st store.Store, queue *Queue, ps cache.PubSub, kv cache.Cache,
	econ economy.Economy, pres presence.Notifier, sched *scheduler.Scheduler,
	hooks *hook.Center, log *audit.Service, opts Options, logger *zap.Logger) *Service {
	opts.fillDefaults()
	return &Service{
		reg:    reg,
		st:     st,
		queue:  queue,
		ps:     ps,
		kv:     kv,
		econ:   econ,
		pres:   pres,
		sched:  sched,
		hooks:  hooks,
		log:    log,
		opts:   opts,
		logger: logger,
	}
}

// Registry exposes the read side for API handlers and chat routing.
func (s *Service) Registry() *Registry {
	return s.reg
}

// ---- operations ----

// Create makes a new guild with the acting player as its owner. The name
// uniqueness check and the durable insert are not atomic across processes;
// a short-lived reservation in the shared cache narrows the race window and
// the unique index on the name column closes it at the store.
func (s *Service) Create(ctx context.Context, playerID, name string) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.reg.FindByName(name); taken {
		return Info{}, ErrDuplicateName
	}
	if _, member := s.reg.FindByPlayer(playerID); member {
		return Info{}, ErrAlreadyAMember
	}

	reserveKey := "guild:name:" + strings.ToLower(name)
	ok, err := s.kv.SetNX(ctx, reserveKey, playerID, s.opts.NameReserveTTL)
	if err != nil {
		s.logger.Warn("name reservation unavailable, relying on store constraint",
			zap.String("name", name), zap.Error(err))
	} else if !ok {
		return Info{}, ErrDuplicateName
	}

	g := New(name)
	owner := &Member{
		PlayerID: playerID,
		GuildID:  g.ID,
		Rank:     RankOwner,
		ChatMode: ChatPublic,
		JoinedAt: time.Now(),
	}
	g.Members[playerID] = owner
	s.reg.PutGuild(g)

	s.saveGuildAsync(g.ID)
	s.saveMemberAsync(*owner)
	s.log.Log(g.ID, playerID, "create", map[string]string{"name": name})
	if _, err := s.hooks.Trigger(ctx, hook.AfterGuildCreate, g.ID); err != nil {
		s.logger.Warn("after-create hook failed", zap.String("guild_id", g.ID), zap.Error(err))
	}
	s.logger.Info("guild created",
		zap.String("guild_id", g.ID),
		zap.String("name", name),
		zap.String("owner", playerID))

	info, _ := s.reg.Snapshot(g.ID)
	return info, nil
}

// Disband removes the guild, every membership, and every alliance. A
// registered pre-disband hook may cancel it by returning hook.ErrInterrupt.
func (s *Service) Disband(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return ErrNotAMember
	}
	if !m.Rank.Granted(RankOwner) {
		return ErrNotAuthorized
	}
	guildID := m.GuildID

	if _, err := s.hooks.Trigger(ctx, hook.BeforeGuildDisband, guildID); err != nil {
		s.logger.Info("disband cancelled by hook", zap.String("guild_id", guildID))
		return err
	}

	snap, _ := s.reg.Snapshot(guildID)
	for _, pid := range snap.Invites {
		s.sched.Remove(inviteTimer(guildID, pid))
	}
	for _, fromID := range snap.AllianceInvites {
		s.sched.Remove(allianceTimer(guildID, fromID))
	}
	for _, member := range snap.Members {
		s.pres.SendIfOnline(member.PlayerID, "Your guild has been disbanded.")
		s.deleteMemberAsync(member.PlayerID)
	}
	for _, ally := range snap.Alliances {
		s.reg.RemoveAlliance(guildID, ally)
		s.deleteAllianceAsync(guildID, ally)
	}
	s.reg.RemoveGuild(guildID)
	s.deleteGuildAsync(guildID)

	s.log.Log(guildID, playerID, "disband", nil)
	if _, err := s.hooks.Trigger(ctx, hook.AfterGuildDisband, guildID); err != nil {
		s.logger.Warn("after-disband hook failed", zap.String("guild_id", guildID), zap.Error(err))
	}
	s.logger.Info("guild disbanded", zap.String("guild_id", guildID), zap.String("by", playerID))
	return nil
}

// Join adds the player to the guild as a plain member. An invite is
// required unless bypass is set (an explicit override capability). Joining
// consumes the invite and broadcasts its removal so every process drops it.
func (s *Service) Join(_ context.Context, playerID, guildID string, bypass bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, member := s.reg.FindByPlayer(playerID); member {
		return ErrAlreadyAMember
	}
	if !s.reg.Exists(guildID) {
		return ErrNoSuchGuild
	}
	if !s.reg.Invited(guildID, playerID) && !bypass {
		return ErrNoPendingInvite
	}

	if s.reg.RemoveInvite(guildID, playerID) {
		s.sched.Remove(inviteTimer(guildID, playerID))
		s.publish(ChannelInviteRevoke, RequestMessage{SenderGuildID: guildID, TargetID: playerID}.encode())
	}

	m := &Member{
		PlayerID: playerID,
		GuildID:  guildID,
		Rank:     RankMember,
		ChatMode: ChatPublic,
		JoinedAt: time.Now(),
	}
	s.notifyGuild(guildID, fmt.Sprintf("%s joined the guild.", playerID))
	s.reg.PutMember(m)
	s.saveMemberAsync(*m)
	s.log.Log(guildID, playerID, "join", nil)
	return nil
}

// Quit removes the acting player from their guild. The owner cannot quit;
// they must transfer ownership or disband.
func (s *Service) Quit(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return ErrNotAMember
	}
	if m.Rank == RankOwner {
		return ErrNotAuthorized
	}

	s.reg.DropMember(playerID)
	s.deleteMemberAsync(playerID)
	s.log.Log(m.GuildID, playerID, "quit", nil)
	s.notifyGuild(m.GuildID, fmt.Sprintf("%s left the guild.", playerID))
	return nil
}

// Invite records a pending invite for the target, replicates it to every
// process, and schedules its local expiry. Each receiving process schedules
// its own window from its own receipt time.
func (s *Service) Invite(_ context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return ErrNotAMember
	}
	if !actor.Rank.Granted(RankModerator) {
		return ErrNotAuthorized
	}
	guildID := actor.GuildID
	if s.reg.Invited(guildID, targetID) {
		return ErrAlreadyInvited
	}
	if target, member := s.reg.FindByPlayer(targetID); member && target == guildID {
		return ErrAlreadyAMember
	}

	s.reg.AddInvite(guildID, targetID)
	s.sched.AddDelay(inviteTimer(guildID, targetID), s.opts.InviteTTL, func() {
		s.reg.RemoveInvite(guildID, targetID)
	})
	s.publish(ChannelInviteAdd, RequestMessage{SenderGuildID: guildID, TargetID: targetID}.encode())

	snap, _ := s.reg.Snapshot(guildID)
	s.pres.SendIfOnline(targetID,
		fmt.Sprintf("You have been invited to join the guild %s.", snap.Name))
	s.log.Log(guildID, actorID, "invite", map[string]string{"target": targetID})
	return nil
}

// RevokeInvite withdraws a pending invite immediately, cancelling the local
// expiry timer and broadcasting the revocation.
func (s *Service) RevokeInvite(_ context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return ErrNotAMember
	}
	if !actor.Rank.Granted(RankModerator) {
		return ErrNotAuthorized
	}
	guildID := actor.GuildID
	if !s.reg.RemoveInvite(guildID, targetID) {
		return ErrNoPendingInvite
	}
	s.sched.Remove(inviteTimer(guildID, targetID))
	s.publish(ChannelInviteRevoke, RequestMessage{SenderGuildID: guildID, TargetID: targetID}.encode())

	snap, _ := s.reg.Snapshot(guildID)
	s.pres.SendIfOnline(targetID,
		fmt.Sprintf("Your invitation from %s has been revoked.", snap.Name))
	s.log.Log(guildID, actorID, "invite_revoke", map[string]string{"target": targetID})
	return nil
}

// Deposit moves amount from the player's own balance into the guild
// treasury. The ledger debit and the treasury credit are one unit: if the
// debit fails or is refused, no treasury change happens and nothing is
// persisted.
func (s *Service) Deposit(_ context.Context, playerID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return ErrNotAMember
	}
	if amount <= 0 {
		return ErrInsufficientFunds
	}

	balance, err := s.econ.GetBalance(playerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if balance < amount {
		return ErrInsufficientFunds
	}
	ok, err = s.econ.Withdraw(playerID, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return ErrInsufficientFunds
	}

	s.reg.UpdateGuild(m.GuildID, func(g *Guild) {
		g.Balance += amount
	})
	s.saveGuildAsync(m.GuildID)
	s.log.Log(m.GuildID, playerID, "deposit", map[string]int64{"amount": amount})
	return nil
}

// Withdraw moves amount from the guild treasury to the player's own
// balance. Reverse atomicity of Deposit: the treasury is only debited once
// the ledger credit has succeeded.
func (s *Service) Withdraw(_ context.Context, playerID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return ErrNotAMember
	}
	if !m.Rank.Granted(RankAdmin) {
		return ErrNotAuthorized
	}
	if amount <= 0 {
		return ErrInsufficientFunds
	}
	snap, _ := s.reg.Snapshot(m.GuildID)
	if snap.Balance < amount {
		return ErrInsufficientFunds
	}

	ok, err := s.econ.Deposit(playerID, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return ErrInsufficientFunds
	}

	s.reg.UpdateGuild(m.GuildID, func(g *Guild) {
		g.Balance -= amount
	})
	s.saveGuildAsync(m.GuildID)
	s.log.Log(m.GuildID, playerID, "withdraw", map[string]int64{"amount": amount})
	return nil
}

// SetHome sets the guild home to the caller's current location.
func (s *Service) SetHome(_ context.Context, playerID string, loc Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return ErrNotAMember
	}
	s.reg.UpdateGuild(m.GuildID, func(g *Guild) {
		home := loc
		g.Home = &home
	})
	s.saveGuildAsync(m.GuildID)
	s.log.Log(m.GuildID, playerID, "set_home", loc)
	return nil
}

// Home returns the caller's guild home. ErrNoHome when none is set.
func (s *Service) Home(_ context.Context, playerID string) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return Location{}, ErrNotAMember
	}
	snap, ok := s.reg.Snapshot(m.GuildID)
	if !ok || snap.Home == nil {
		return Location{}, ErrNoHome
	}
	return *snap.Home, nil
}

// DelHome clears the guild home.
func (s *Service) DelHome(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return ErrNotAMember
	}
	s.reg.UpdateGuild(m.GuildID, func(g *Guild) {
		g.Home = nil
	})
	s.saveGuildAsync(m.GuildID)
	s.log.Log(m.GuildID, playerID, "del_home", nil)
	return nil
}

// Kick removes another member from the actor's guild.
func (s *Service) Kick(_ context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID == targetID {
		return ErrSelfTarget
	}
	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return ErrNotAMember
	}
	if !actor.Rank.Granted(RankAdmin) {
		return ErrNotAuthorized
	}
	target, ok := s.reg.MemberOf(targetID)
	if !ok || target.GuildID != actor.GuildID {
		return ErrTargetNotAMember
	}

	s.reg.DropMember(targetID)
	s.deleteMemberAsync(targetID)
	s.notifyGuild(actor.GuildID, fmt.Sprintf("%s has been kicked from the guild.", targetID))
	s.pres.SendIfOnline(targetID, "You have been kicked from your guild.")
	s.log.Log(actor.GuildID, actorID, "kick", map[string]string{"target": targetID})
	return nil
}

// Promote raises the target's rank by exactly one step. Promoting to
// moderator requires an admin; promoting to admin requires the owner; an
// admin can only become owner through Transfer.
func (s *Service) Promote(_ context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, target, err := s.resolvePair(actorID, targetID)
	if err != nil {
		return err
	}

	var next Rank
	switch target.Rank {
	case RankMember:
		if !actor.Rank.Granted(RankAdmin) {
			return ErrNotAuthorized
		}
		next = RankModerator
	case RankModerator:
		if !actor.Rank.Granted(RankOwner) {
			return ErrNotAuthorized
		}
		next = RankAdmin
	default:
		// Admins go through ownership transfer; the owner has no higher rank.
		return ErrRankCeilingReached
	}

	s.reg.UpdateMember(targetID, func(m *Member) { m.Rank = next })
	target.Rank = next
	s.saveMemberAsync(target)
	s.notifyGuild(actor.GuildID, fmt.Sprintf("%s has been promoted to %s.", targetID, next))
	s.log.Log(actor.GuildID, actorID, "promote",
		map[string]string{"target": targetID, "rank": next.String()})
	return nil
}

// Demote lowers the target's rank by exactly one step. Demoting a moderator
// requires an admin; demoting an admin requires the owner; the owner cannot
// be demoted.
func (s *Service) Demote(_ context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, target, err := s.resolvePair(actorID, targetID)
	if err != nil {
		return err
	}

	var next Rank
	switch target.Rank {
	case RankMember:
		return ErrRankFloorReached
	case RankModerator:
		if !actor.Rank.Granted(RankAdmin) {
			return ErrNotAuthorized
		}
		next = RankMember
	case RankAdmin:
		if !actor.Rank.Granted(RankOwner) {
			return ErrNotAuthorized
		}
		next = RankModerator
	default:
		return ErrNotAuthorized
	}

	s.reg.UpdateMember(targetID, func(m *Member) { m.Rank = next })
	target.Rank = next
	s.saveMemberAsync(target)
	s.notifyGuild(actor.GuildID, fmt.Sprintf("%s has been demoted to %s.", targetID, next))
	s.log.Log(actor.GuildID, actorID, "demote",
		map[string]string{"target": targetID, "rank": next.String()})
	return nil
}

// Transfer hands ownership to the target: the target becomes owner and the
// former owner becomes admin, persisted in one transaction.
func (s *Service) Transfer(_ context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID == targetID {
		return ErrSelfTarget
	}
	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return ErrNotAMember
	}
	if actor.Rank != RankOwner {
		return ErrNotAuthorized
	}
	target, ok := s.reg.MemberOf(targetID)
	if !ok || target.GuildID != actor.GuildID {
		return ErrTargetNotAMember
	}

	s.reg.UpdateMember(targetID, func(m *Member) { m.Rank = RankOwner })
	s.reg.UpdateMember(actorID, func(m *Member) { m.Rank = RankAdmin })
	target.Rank = RankOwner
	actor.Rank = RankAdmin
	s.saveMembersAsync(target, actor)
	s.notifyGuild(actor.GuildID,
		fmt.Sprintf("Guild ownership has been transferred to %s.", targetID))
	s.log.Log(actor.GuildID, actorID, "transfer", map[string]string{"target": targetID})
	return nil
}

// ToggleChatMode flips the member's chat routing preference and returns the
// new mode.
func (s *Service) ToggleChatMode(_ context.Context, playerID string) (ChatMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.reg.MemberOf(playerID)
	if !ok {
		return ChatPublic, ErrNotAMember
	}
	next := ChatPublic
	if m.ChatMode == ChatPublic {
		next = ChatGuild
	}
	s.reg.UpdateMember(playerID, func(m *Member) { m.ChatMode = next })
	m.ChatMode = next
	s.saveMemberAsync(m)
	return next, nil
}

// RequestAlliance asks another guild for an alliance. The request lands in
// the target guild's pending set on every process and expires like an
// invite.
func (s *Service) RequestAlliance(_ context.Context, actorID, targetGuildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return ErrNotAMember
	}
	if !actor.Rank.Granted(RankAdmin) {
		return ErrNotAuthorized
	}
	own := actor.GuildID
	if own == targetGuildID {
		return ErrSelfTarget
	}
	if !s.reg.Exists(targetGuildID) {
		return ErrNoSuchGuild
	}
	if s.reg.Allied(own, targetGuildID) {
		return ErrAlreadyAllied
	}
	if s.reg.AllianceRequested(targetGuildID, own) {
		return ErrAlreadyInvited
	}

	s.reg.AddAllianceInvite(targetGuildID, own)
	s.sched.AddDelay(allianceTimer(targetGuildID, own), s.opts.AllianceRequestTTL, func() {
		s.reg.RemoveAllianceInvite(targetGuildID, own)
	})
	s.publish(ChannelAllianceRequest, RequestMessage{SenderGuildID: own, TargetID: targetGuildID}.encode())
	s.log.Log(own, actorID, "alliance_request", map[string]string{"target": targetGuildID})
	return nil
}

// AcceptAlliance accepts a pending alliance request from the other guild.
// The alliance becomes durable and symmetric.
func (s *Service) AcceptAlliance(_ context.Context, actorID, fromGuildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return ErrNotAMember
	}
	if !actor.Rank.Granted(RankAdmin) {
		return ErrNotAuthorized
	}
	own := actor.GuildID
	if !s.reg.AllianceRequested(own, fromGuildID) {
		return ErrNoAllianceRequest
	}

	s.reg.RemoveAllianceInvite(own, fromGuildID)
	s.sched.Remove(allianceTimer(own, fromGuildID))
	s.reg.AddAlliance(own, fromGuildID)
	s.saveAllianceAsync(own, fromGuildID)
	s.log.Log(own, actorID, "alliance_accept", map[string]string{"with": fromGuildID})
	return nil
}

// RevokeAlliance dissolves an existing alliance from either side.
func (s *Service) RevokeAlliance(_ context.Context, actorID, otherGuildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return ErrNotAMember
	}
	if !actor.Rank.Granted(RankAdmin) {
		return ErrNotAuthorized
	}
	own := actor.GuildID
	if !s.reg.Allied(own, otherGuildID) {
		return ErrNotAllied
	}

	s.reg.RemoveAlliance(own, otherGuildID)
	s.deleteAllianceAsync(own, otherGuildID)
	s.log.Log(own, actorID, "alliance_revoke", map[string]string{"with": otherGuildID})
	return nil
}

// ---- persistence scheduling ----
//
// Each helper snapshots the durable row synchronously, then queues the
// store write; the sync publication happens only after the write completed,
// so receivers always re-read state at least as new as the notification.

func (s *Service) saveGuildAsync(id string) {
	row, ok := s.reg.GuildRow(id)
	if !ok {
		return
	}
	s.queue.Submit(func() {
		if err := s.st.SaveGuild(row); err != nil {
			s.logger.Error("guild save failed", zap.String("guild_id", id), zap.Error(err))
			return
		}
		s.publish(ChannelGuildSync, id)
	})
}

func (s *Service) deleteGuildAsync(id string) {
	s.queue.Submit(func() {
		if err := s.st.DeleteGuild(id); err != nil {
			s.logger.Error("guild delete failed", zap.String("guild_id", id), zap.Error(err))
			return
		}
		s.publish(ChannelGuildSync, id)
	})
}

func (s *Service) saveMemberAsync(m Member) {
	row := m.Row()
	s.queue.Submit(func() {
		if err := s.st.SaveMember(row); err != nil {
			s.logger.Error("member save failed", zap.String("player_id", m.PlayerID), zap.Error(err))
			return
		}
		s.publish(ChannelMemberSync, m.PlayerID)
	})
}

func (s *Service) saveMembersAsync(ms ...Member) {
	rows := make([]*model.GuildMember, len(ms))
	ids := make([]string, len(ms))
	for i := range ms {
		rows[i] = ms[i].Row()
		ids[i] = ms[i].PlayerID
	}
	s.queue.Submit(func() {
		if err := s.st.SaveMembers(rows...); err != nil {
			s.logger.Error("member batch save failed", zap.Strings("player_ids", ids), zap.Error(err))
			return
		}
		for _, id := range ids {
			s.publish(ChannelMemberSync, id)
		}
	})
}

func (s *Service) deleteMemberAsync(playerID string) {
	s.queue.Submit(func() {
		if err := s.st.DeleteMember(playerID); err != nil {
			s.logger.Error("member delete failed", zap.String("player_id", playerID), zap.Error(err))
			return
		}
		s.publish(ChannelMemberSync, playerID)
	})
}

func (s *Service) saveAllianceAsync(a, b string) {
	s.queue.Submit(func() {
		if err := s.st.SaveAlliance(a, b); err != nil {
			s.logger.Error("alliance save failed",
				zap.String("guild_a", a), zap.String("guild_b", b), zap.Error(err))
			return
		}
		s.publish(ChannelAllianceAccept, RequestMessage{SenderGuildID: a, TargetID: b}.encode())
	})
}

func (s *Service) deleteAllianceAsync(a, b string) {
	s.queue.Submit(func() {
		if err := s.st.DeleteAlliance(a, b); err != nil {
			s.logger.Error("alliance delete failed",
				zap.String("guild_a", a), zap.String("guild_b", b), zap.Error(err))
			return
		}
		s.publish(ChannelAllianceRevoke, RequestMessage{SenderGuildID: a, TargetID: b}.encode())
	})
}

func (s *Service) publish(channel, payload string) {
	if err := s.ps.Publish(context.Background(), channel, payload); err != nil {
		s.logger.Error("bus publish failed", zap.String("channel", channel), zap.Error(err))
	}
}

// notifyGuild sends text to every current member of the guild.
func (s *Service) notifyGuild(guildID, text string) {
	for _, m := range s.reg.MembersOf(guildID) {
		s.pres.SendIfOnline(m.PlayerID, text)
	}
}

// resolvePair resolves actor and target memberships for rank operations,
// enforcing that both belong to the same guild and differ.
func (s *Service) resolvePair(actorID, targetID string) (Member, Member, error) {
	if actorID == targetID {
		return Member{}, Member{}, ErrSelfTarget
	}
	actor, ok := s.reg.MemberOf(actorID)
	if !ok {
		return Member{}, Member{}, ErrNotAMember
	}
	target, ok := s.reg.MemberOf(targetID)
	if !ok || target.GuildID != actor.GuildID {
		return Member{}, Member{}, ErrTargetNotAMember
	}
	return actor, target, nil
}
