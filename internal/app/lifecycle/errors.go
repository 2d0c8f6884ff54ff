package lifecycle

import "errors"

// Transition rejections. Callers match with errors.Is; every rejection is
// returned before anything is written.
var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrExpiryInPast      = errors.New("expiry date is in the past")
	ErrInvalidValuation  = errors.New("valuation is not a number")
	ErrNotAdmin          = errors.New("an administrator of the project's group is required")
	ErrNotOwner          = errors.New("only the project's issuer may do this")
	ErrInvalidTransition = errors.New("transition not allowed from the project's current state")
)

// ErrEffectsIncomplete is returned alongside a persisted project when one or
// more follow-up steps (activity row, notifications, emails) failed. The
// project write stands; the failed steps are safe to replay.
var ErrEffectsIncomplete = errors.New("project saved but follow-up steps failed")
