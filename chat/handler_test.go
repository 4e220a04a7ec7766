package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kasuganosora/guildsync/guild"
	"github.com/kasuganosora/guildsync/store"
	"github.com/kasuganosora/guildsync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingDeliverer struct {
	mu        sync.Mutex
	direct    map[string][]Message
	broadcast []Message
}

func newRecorder() *recordingDeliverer {
	return &recordingDeliverer{direct: make(map[string][]Message)}
}

func (r *recordingDeliverer) Deliver(playerID string, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct[playerID] = append(r.direct[playerID], msg)
}

func (r *recordingDeliverer) Broadcast(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = append(r.broadcast, msg)
}

func (r *recordingDeliverer) directCount(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.direct[playerID])
}

func (r *recordingDeliverer) broadcastCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.broadcast)
}

func setupChat(t *testing.T) (*Handler, *guild.Registry, *recordingDeliverer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	reg := guild.NewRegistry(store.New(db), zap.NewNop())
	require.NoError(t, reg.LoadAll())

	h := NewHandler(ps, reg, zap.NewNop())
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = h.Run(ctx, rec) }()
	time.Sleep(20 * time.Millisecond)

	return h, reg, rec
}

func seedGuild(t *testing.T, reg *guild.Registry, owner string, members ...string) string {
	t.Helper()
	g := guild.New("Knights")
	g.Members[owner] = &guild.Member{PlayerID: owner, GuildID: g.ID, Rank: guild.RankOwner, JoinedAt: time.Now()}
	for _, pid := range members {
		g.Members[pid] = &guild.Member{PlayerID: pid, GuildID: g.ID, Rank: guild.RankMember, JoinedAt: time.Now()}
	}
	reg.PutGuild(g)
	return g.ID
}

func TestSend_PublicByDefault(t *testing.T) {
	h, _, rec := setupChat(t)

	require.NoError(t, h.Send(context.Background(), "alice", "hello"))
	assert.Eventually(t, func() bool { return rec.broadcastCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSend_GuildModeRoutesToMembers(t *testing.T) {
	h, reg, rec := setupChat(t)
	gid := seedGuild(t, reg, "alice", "bob")
	reg.UpdateMember("alice", func(m *guild.Member) { m.ChatMode = guild.ChatGuild })

	require.NoError(t, h.Send(context.Background(), "alice", "to the guild"))

	assert.Eventually(t, func() bool {
		return rec.directCount("alice") == 1 && rec.directCount("bob") == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, rec.broadcastCount())

	rec.mu.Lock()
	msg := rec.direct["bob"][0]
	rec.mu.Unlock()
	assert.Equal(t, "guild", msg.Scope)
	assert.Equal(t, gid, msg.GuildID)
	assert.Equal(t, "alice", msg.FromID)
}

func TestSendGuild_RequiresMembership(t *testing.T) {
	h, _, _ := setupChat(t)
	err := h.SendGuild(context.Background(), "stranger", "hi")
	assert.ErrorIs(t, err, guild.ErrNotAMember)
}

func TestSendGuild_IgnoresChatMode(t *testing.T) {
	h, reg, rec := setupChat(t)
	seedGuild(t, reg, "alice", "bob")

	// alice is in public mode but addresses the guild explicitly.
	require.NoError(t, h.SendGuild(context.Background(), "alice", "raid at 9"))
	assert.Eventually(t, func() bool { return rec.directCount("bob") == 1 }, time.Second, 10*time.Millisecond)
}

func TestSend_EmptyDropped(t *testing.T) {
	h, _, rec := setupChat(t)
	require.NoError(t, h.Send(context.Background(), "alice", "   "))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.broadcastCount())
}

func TestSend_TooLong(t *testing.T) {
	h, _, _ := setupChat(t)
	err := h.Send(context.Background(), "alice", strings.Repeat("x", maxMsgLen+1))
	assert.ErrorIs(t, err, ErrTooLong)
}
