package affiliate

import "context"

// SwapFunc receives the previously stored set and returns the set to store in its place.
type SwapFunc func(ctx context.Context, previous Set) (Set, error)
