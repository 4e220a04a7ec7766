package guild

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/guildsync/cache"
	"github.com/kasuganosora/guildsync/scheduler"
	"go.uber.org/zap"
)

// Bus channels. Sync channels carry a bare entity identity and trigger
// reconciliation from the store. Invite and alliance channels carry their
// content directly: invites are not durable rows, so there is nothing to
// reconcile them from.
const (
	ChannelGuildSync       = "guild-sync"
	ChannelMemberSync      = "member-sync"
	ChannelInviteAdd       = "invite-add"
	ChannelInviteRevoke    = "invite-revoke"
	ChannelAllianceRequest = "alliance-request"
	ChannelAllianceAccept  = "alliance-accept"
	ChannelAllianceRevoke  = "alliance-revoke"
)

// RequestMessage is the payload of the invite and alliance channels.
// TargetID is a player id on invite channels and a guild id on alliance
// channels.
type RequestMessage struct {
	SenderGuildID string `json:"sender_guild_id"`
	TargetID      string `json:"target_id"`
}

func (m RequestMessage) encode() string {
	b, _ := json.Marshal(m)
	return string(b)
}

func decodeRequest(payload string) (RequestMessage, error) {
	var m RequestMessage
	err := json.Unmarshal([]byte(payload), &m)
	return m, err
}

// Timer names for the scheduler. One cancellable timer per pending invite
// or alliance request, per process.
func inviteTimer(guildID, playerID string) string {
	return "guild:invite:" + guildID + ":" + playerID
}

func allianceTimer(guildID, fromID string) string {
	return "guild:alliance:" + guildID + ":" + fromID
}

// Listener consumes bus messages and reconciles the local registry. Every
// process runs one, including the process that originated a change: the
// writer converges from the durable store like everyone else instead of
// trusting its in-memory mutation as final.
type Listener struct {
	reg         *Registry
	sched       *scheduler.Scheduler
	inviteTTL   time.Duration
	allianceTTL time.Duration
	logger      *zap.Logger
}

// NewListener creates a Listener over the given registry. Received invites
// and alliance requests schedule their own expiry on sched, measured from
// receipt time: there is no cross-process timer coordination, and the
// resulting skew between processes is an accepted trade-off.
func NewListener(reg *Registry, sched *scheduler.Scheduler, inviteTTL, allianceTTL time.Duration, logger *zap.Logger) *Listener {
	if inviteTTL <= 0 {
		inviteTTL = 20 * time.Minute
	}
	if allianceTTL <= 0 {
		allianceTTL = 20 * time.Minute
	}
	return &Listener{
		reg:         reg,
		sched:       sched,
		inviteTTL:   inviteTTL,
		allianceTTL: allianceTTL,
		logger:      logger,
	}
}

// Run subscribes to every guild channel and dispatches messages until ctx
// is cancelled. Delivery is best-effort: a missed message leaves the cache
// stale until the entity is mutated again or the process reloads.
func (l *Listener) Run(ctx context.Context, ps cache.PubSub) error {
	ch, cancel, err := ps.Subscribe(ctx,
		ChannelGuildSync,
		ChannelMemberSync,
		ChannelInviteAdd,
		ChannelInviteRevoke,
		ChannelAllianceRequest,
		ChannelAllianceAccept,
		ChannelAllianceRevoke,
	)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()

	for msg := range ch {
		l.dispatch(msg)
	}
	return nil
}

func (l *Listener) dispatch(msg *cache.Message) {
	switch msg.Channel {
	case ChannelGuildSync:
		if err := l.reg.ReconcileGuild(msg.Payload); err != nil {
			l.logger.Error("guild reconciliation failed",
				zap.String("guild_id", msg.Payload), zap.Error(err))
		}
	case ChannelMemberSync:
		if err := l.reg.ReconcileMember(msg.Payload); err != nil {
			l.logger.Error("member reconciliation failed",
				zap.String("player_id", msg.Payload), zap.Error(err))
		}
	case ChannelInviteAdd:
		l.onRequest(msg, l.applyInviteAdd)
	case ChannelInviteRevoke:
		l.onRequest(msg, l.applyInviteRevoke)
	case ChannelAllianceRequest:
		l.onRequest(msg, l.applyAllianceRequest)
	case ChannelAllianceAccept:
		l.onRequest(msg, l.applyAllianceAccept)
	case ChannelAllianceRevoke:
		l.onRequest(msg, l.applyAllianceRevoke)
	}
}

func (l *Listener) onRequest(msg *cache.Message, apply func(RequestMessage)) {
	req, err := decodeRequest(msg.Payload)
	if err != nil {
		l.logger.Warn("malformed bus payload",
			zap.String("channel", msg.Channel), zap.Error(err))
		return
	}
	apply(req)
}

// applyInviteAdd records a replicated invite and schedules a fresh local
// expiry window. The originating process already holds the invite; AddInvite
// returning false there keeps the timer from being rescheduled.
func (l *Listener) applyInviteAdd(req RequestMessage) {
	if !l.reg.AddInvite(req.SenderGuildID, req.TargetID) {
		return
	}
	l.sched.AddDelay(inviteTimer(req.SenderGuildID, req.TargetID), l.inviteTTL, func() {
		l.reg.RemoveInvite(req.SenderGuildID, req.TargetID)
	})
}

func (l *Listener) applyInviteRevoke(req RequestMessage) {
	l.reg.RemoveInvite(req.SenderGuildID, req.TargetID)
	l.sched.Remove(inviteTimer(req.SenderGuildID, req.TargetID))
}

// applyAllianceRequest records a pending alliance request on the target
// guild, expiring like an invite.
func (l *Listener) applyAllianceRequest(req RequestMessage) {
	if !l.reg.AddAllianceInvite(req.TargetID, req.SenderGuildID) {
		return
	}
	l.sched.AddDelay(allianceTimer(req.TargetID, req.SenderGuildID), l.allianceTTL, func() {
		l.reg.RemoveAllianceInvite(req.TargetID, req.SenderGuildID)
	})
}

func (l *Listener) applyAllianceAccept(req RequestMessage) {
	l.reg.RemoveAllianceInvite(req.SenderGuildID, req.TargetID)
	l.reg.RemoveAllianceInvite(req.TargetID, req.SenderGuildID)
	l.sched.Remove(allianceTimer(req.SenderGuildID, req.TargetID))
	l.sched.Remove(allianceTimer(req.TargetID, req.SenderGuildID))
	l.reg.AddAlliance(req.SenderGuildID, req.TargetID)
}

func (l *Listener) applyAllianceRevoke(req RequestMessage) {
	l.reg.RemoveAlliance(req.SenderGuildID, req.TargetID)
}
