package guild

import "errors"

// Precondition failures. Every rejected operation returns one of these so
// the caller can surface the specific reason, never a generic failure.
var (
	ErrNotAuthorized      = errors.New("guild: not authorized")
	ErrNotAMember         = errors.New("guild: player is not a guild member")
	ErrTargetNotAMember   = errors.New("guild: target is not a guild member")
	ErrAlreadyAMember     = errors.New("guild: player already belongs to a guild")
	ErrNoSuchGuild        = errors.New("guild: no such guild")
	ErrDuplicateName      = errors.New("guild: name already taken")
	ErrNoPendingInvite    = errors.New("guild: no pending invite")
	ErrAlreadyInvited     = errors.New("guild: already invited")
	ErrInsufficientFunds  = errors.New("guild: insufficient funds")
	ErrSelfTarget         = errors.New("guild: cannot target yourself")
	ErrRankFloorReached   = errors.New("guild: rank floor reached")
	ErrRankCeilingReached = errors.New("guild: rank ceiling reached")
	ErrNoHome             = errors.New("guild: no home set")
	ErrAlreadyAllied      = errors.New("guild: already allied")
	ErrNotAllied          = errors.New("guild: not allied")
	ErrNoAllianceRequest  = errors.New("guild: no pending alliance request")
)

// Infrastructure failures.
var (
	ErrStoreUnavailable     = errors.New("guild: store unavailable")
	ErrTransportUnavailable = errors.New("guild: transport unavailable")
)
