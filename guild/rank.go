package guild

// Rank is a member's ordered authority level within a guild.
type Rank int

const (
	RankMember Rank = iota
	RankModerator
	RankAdmin
	RankOwner
)

// Granted reports whether a member holding r may perform an action that
// requires at least required. This is the sole authorization primitive;
// no operation bypasses it.
func (r Rank) Granted(required Rank) bool {
	return r >= required
}

func (r Rank) String() string {
	switch r {
	case RankMember:
		return "member"
	case RankModerator:
		return "moderator"
	case RankAdmin:
		return "admin"
	case RankOwner:
		return "owner"
	default:
		return "unknown"
	}
}
