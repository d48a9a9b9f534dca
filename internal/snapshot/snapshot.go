// Package snapshot stores the affiliate set between runs.
package snapshot

import (
	"context"
	"errors"

	"github.com/robalyx/affiliates/internal/affiliate"
)

// ErrConflict is returned when another run replaced the snapshot first.
var ErrConflict = errors.New("affiliate snapshot changed by another run")

// Ephemeral keeps no state: every run starts from an empty previous set,
// so the role is only ever granted, never revoked.
type Ephemeral struct{}

// NewEphemeral creates a store that remembers nothing.
func NewEphemeral() *Ephemeral {
	return &Ephemeral{}
}

// Swap calls fn with an empty set and discards its result.
func (Ephemeral) Swap(ctx context.Context, fn affiliate.SwapFunc) error {
	_, err := fn(ctx, affiliate.NewSet())
	return err
}
