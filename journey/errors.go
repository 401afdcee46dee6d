package journey

import "errors"

var (
	// ErrInvariant marks a state that correct validation makes impossible,
	// such as an unrecognised answer reaching a classifier. It is an internal
	// failure and must never be defaulted away.
	ErrInvariant = errors.New("journey invariant violated")

	// ErrUnknownStep is returned when a step name or path is not registered.
	ErrUnknownStep = errors.New("unknown step")

	// ErrDuplicateStep is returned when two steps share a name or path.
	ErrDuplicateStep = errors.New("duplicate step")
)
