package scoring

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnparsable   = errors.New("unparsable nutrient value")
	ErrInvalidTable = errors.New("invalid reference table")
)
