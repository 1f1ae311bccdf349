package pricing

import "errors"

var (
	// ErrInvalidDuration is returned for a duration the tier's rule cannot price.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidTier marks a catalog entry that cannot be used for pricing.
	ErrInvalidTier = errors.New("invalid service tier")
	// ErrUnknownService is returned when a service id is not in the catalog.
	ErrUnknownService = errors.New("unknown service")
)
