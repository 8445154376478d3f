package rating

import "errors"

var (
	ErrInvalidItems   = errors.New("items must be non-empty, unique and non-blank")
	ErrInvalidParams  = errors.New("invalid trial parameters")
	ErrUnknownItem    = errors.New("unknown item")
	ErrNoneNotAllowed = errors.New("none ratings are not allowed in this trial")
	ErrNotLaidOut     = errors.New("trial surfaces are not laid out yet")
	ErrAlreadyLaidOut = errors.New("trial surfaces are already laid out")
	ErrBadGeometry    = errors.New("track width must be positive")
	ErrFinalized      = errors.New("trial already finalized")
	ErrUnknownEvent   = errors.New("unknown pointer event")
)
