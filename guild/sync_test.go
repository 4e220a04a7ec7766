package guild

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/guildsync/audit"
	"github.com/kasuganosora/guildsync/cache"
	"github.com/kasuganosora/guildsync/economy"
	"github.com/kasuganosora/guildsync/hook"
	"github.com/kasuganosora/guildsync/presence"
	"github.com/kasuganosora/guildsync/scheduler"
	"github.com/kasuganosora/guildsync/store"
	"github.com/kasuganosora/guildsync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// proc models one game-server process: its own registry, scheduler and sync
// listener, sharing the durable store and the bus with every other proc.
type proc struct {
	svc   *Service
	reg   *Registry
	sched *scheduler.Scheduler
	q     *Queue
}

func newProc(t *testing.T, db *gorm.DB, ps cache.PubSub) *proc {
	t.Helper()
	logger := zap.NewNop()
	st := store.New(db)
	reg := NewRegistry(st, logger)
	require.NoError(t, reg.LoadAll())

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	q := NewQueue(64, logger)
	t.Cleanup(q.Stop)
	auditSvc := audit.New(db, logger)
	t.Cleanup(auditSvc.Stop)
	kv, err := cache.NewCache(cache.Config{})
	require.NoError(t, err)

	svc := NewService(reg, st, q, ps, kv, economy.NewWalletEconomy(db), presence.Nop{},
		sched, hook.NewCenter(), auditSvc, Options{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	listener := NewListener(reg, sched, time.Minute, time.Minute, logger)
	go func() { _ = listener.Run(ctx, ps) }()
	// Give the subscription a moment to land before anything publishes.
	time.Sleep(20 * time.Millisecond)

	return &proc{svc: svc, reg: reg, sched: sched, q: q}
}

func (p *proc) flush() {
	done := make(chan struct{})
	p.q.Submit(func() { close(done) })
	<-done
}

func twoProcs(t *testing.T) (*proc, *proc) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	bus := testutil.SharedBus(t)
	return newProc(t, db, bus), newProc(t, db, bus)
}

const waitFor = 3 * time.Second
const tick = 20 * time.Millisecond

func TestSync_GuildCreationPropagates(t *testing.T) {
	a, b := twoProcs(t)

	info, err := a.svc.Create(context.Background(), "alice", "Knights")
	require.NoError(t, err)
	a.flush()

	assert.Eventually(t, func() bool {
		snap, ok := b.reg.Snapshot(info.ID)
		return ok && snap.Name == "Knights" && len(snap.Members) == 1
	}, waitFor, tick)
}

func TestSync_MemberChangesPropagate(t *testing.T) {
	a, b := twoProcs(t)

	info, err := a.svc.Create(context.Background(), "alice", "Knights")
	require.NoError(t, err)
	require.NoError(t, a.svc.Join(context.Background(), "bob", info.ID, true))
	a.flush()

	assert.Eventually(t, func() bool {
		m, ok := b.reg.MemberOf("bob")
		return ok && m.GuildID == info.ID
	}, waitFor, tick)

	require.NoError(t, a.svc.Quit(context.Background(), "bob"))
	a.flush()

	assert.Eventually(t, func() bool {
		_, ok := b.reg.MemberOf("bob")
		return !ok
	}, waitFor, tick)
	// The guild itself stays cached on both sides.
	assert.True(t, b.reg.Exists(info.ID))
}

func TestSync_BalancePropagates(t *testing.T) {
	a, b := twoProcs(t)

	info, err := a.svc.Create(context.Background(), "alice", "Knights")
	require.NoError(t, err)
	ok, err := economyDeposit(a, "alice", 500)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, a.svc.Deposit(context.Background(), "alice", 200))
	a.flush()

	assert.Eventually(t, func() bool {
		snap, ok := b.reg.Snapshot(info.ID)
		return ok && snap.Balance == 200
	}, waitFor, tick)
}

func TestSync_InviteReplicatedByContent(t *testing.T) {
	a, b := twoProcs(t)

	info, err := a.svc.Create(context.Background(), "alice", "Knights")
	require.NoError(t, err)
	a.flush()
	require.Eventually(t, func() bool { return b.reg.Exists(info.ID) }, waitFor, tick)
	require.NoError(t, a.svc.Invite(context.Background(), "alice", "bob"))

	// The invite is ephemeral: it travels the bus directly, not via the store.
	assert.Eventually(t, func() bool {
		return b.reg.Invited(info.ID, "bob")
	}, waitFor, tick)
	assert.True(t, b.sched.Pending(inviteTimer(info.ID, "bob")))

	require.NoError(t, a.svc.RevokeInvite(context.Background(), "alice", "bob"))
	assert.Eventually(t, func() bool {
		return !b.reg.Invited(info.ID, "bob")
	}, waitFor, tick)
}

func TestSync_JoinOnOtherProcessConsumesInvite(t *testing.T) {
	a, b := twoProcs(t)

	info, err := a.svc.Create(context.Background(), "alice", "Knights")
	require.NoError(t, err)
	a.flush()
	require.Eventually(t, func() bool { return b.reg.Exists(info.ID) }, waitFor, tick)

	require.NoError(t, a.svc.Invite(context.Background(), "alice", "bob"))
	require.Eventually(t, func() bool {
		return b.reg.Invited(info.ID, "bob")
	}, waitFor, tick)

	// bob's connection lives on process B; the invite recorded there is valid.
	require.NoError(t, b.svc.Join(context.Background(), "bob", info.ID, false))
	b.flush()

	assert.Eventually(t, func() bool {
		m, ok := a.reg.MemberOf("bob")
		return ok && m.GuildID == info.ID && !a.reg.Invited(info.ID, "bob")
	}, waitFor, tick)
}

func TestSync_AlliancePropagates(t *testing.T) {
	a, b := twoProcs(t)

	ga, err := a.svc.Create(context.Background(), "alice", "Knights")
	require.NoError(t, err)
	gb, err := a.svc.Create(context.Background(), "bob", "Mages")
	require.NoError(t, err)
	a.flush()

	require.Eventually(t, func() bool {
		return b.reg.Exists(ga.ID) && b.reg.Exists(gb.ID)
	}, waitFor, tick)

	require.NoError(t, a.svc.RequestAlliance(context.Background(), "alice", gb.ID))
	assert.Eventually(t, func() bool {
		return b.reg.AllianceRequested(gb.ID, ga.ID)
	}, waitFor, tick)

	// bob accepts on process B.
	require.NoError(t, b.svc.AcceptAlliance(context.Background(), "bob", ga.ID))
	b.flush()
	assert.Eventually(t, func() bool {
		return a.reg.Allied(ga.ID, gb.ID)
	}, waitFor, tick)

	require.NoError(t, a.svc.RevokeAlliance(context.Background(), "alice", gb.ID))
	a.flush()
	assert.Eventually(t, func() bool {
		return !b.reg.Allied(ga.ID, gb.ID)
	}, waitFor, tick)
}

func TestSync_DisbandPropagates(t *testing.T) {
	a, b := twoProcs(t)

	info, err := a.svc.Create(context.Background(), "alice", "Knights")
	require.NoError(t, err)
	a.flush()
	require.Eventually(t, func() bool { return b.reg.Exists(info.ID) }, waitFor, tick)

	require.NoError(t, a.svc.Disband(context.Background(), "alice"))
	a.flush()

	assert.Eventually(t, func() bool {
		return !b.reg.Exists(info.ID)
	}, waitFor, tick)
}

// economyDeposit seeds a wallet through the proc's own ledger.
func economyDeposit(p *proc, playerID string, amount int64) (bool, error) {
	return p.svc.econ.Deposit(playerID, amount)
}
