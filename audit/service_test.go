package audit

import (
	"testing"
	"time"

	"github.com/kasuganosora/guildsync/model"
	"github.com/kasuganosora/guildsync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLog_WrittenOnStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	svc.Log("g1", "alice", "create", map[string]string{"name": "Knights"})
	svc.Log("g1", "alice", "invite", map[string]string{"target": "bob"})
	svc.Log("g1", "bob", "join", nil)
	svc.Stop()

	var rows []model.GuildLog
	require.NoError(t, db.Where("guild_id = ?", "g1").Find(&rows).Error)
	require.Len(t, rows, 3)
	assert.Equal(t, "create", rows[0].Action)
	assert.NotEmpty(t, rows[0].Detail)
	assert.Empty(t, rows[2].Detail) // nil detail stays empty
}

func TestLog_PeriodicFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	defer svc.Stop()

	svc.Log("g1", "alice", "deposit", map[string]int64{"amount": 100})

	assert.Eventually(t, func() bool {
		var n int64
		db.Model(&model.GuildLog{}).Count(&n)
		return n == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestStop_Idempotent(t *testing.T) {
	svc := New(testutil.SetupTestDB(t), zap.NewNop())
	svc.Stop()
	svc.Stop()
}
