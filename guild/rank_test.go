package guild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_Granted(t *testing.T) {
	assert.True(t, RankOwner.Granted(RankMember))
	assert.True(t, RankOwner.Granted(RankOwner))
	assert.True(t, RankAdmin.Granted(RankModerator))
	assert.True(t, RankModerator.Granted(RankModerator))

	assert.False(t, RankMember.Granted(RankModerator))
	assert.False(t, RankModerator.Granted(RankAdmin))
	assert.False(t, RankAdmin.Granted(RankOwner))
}

func TestRank_String(t *testing.T) {
	assert.Equal(t, "member", RankMember.String())
	assert.Equal(t, "moderator", RankModerator.String())
	assert.Equal(t, "admin", RankAdmin.String())
	assert.Equal(t, "owner", RankOwner.String())
	assert.Equal(t, "unknown", Rank(42).String())
}
