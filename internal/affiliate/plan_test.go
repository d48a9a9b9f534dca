package affiliate_test

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/affiliates/internal/affiliate"
	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		previous   affiliate.Set
		current    affiliate.Set
		wantAdd    []snowflake.ID
		wantRemove []snowflake.ID
	}{
		{
			name:       "overlapping sets",
			previous:   affiliate.NewSet(1, 2, 3),
			current:    affiliate.NewSet(2, 3, 4),
			wantAdd:    []snowflake.ID{4},
			wantRemove: []snowflake.ID{1},
		},
		{
			name:       "equal sets",
			previous:   affiliate.NewSet(1, 2, 3),
			current:    affiliate.NewSet(3, 2, 1),
			wantAdd:    []snowflake.ID{},
			wantRemove: []snowflake.ID{},
		},
		{
			name:       "empty previous",
			previous:   affiliate.NewSet(),
			current:    affiliate.NewSet(5, 6),
			wantAdd:    []snowflake.ID{5, 6},
			wantRemove: []snowflake.ID{},
		},
		{
			name:       "empty current",
			previous:   affiliate.NewSet(7),
			current:    affiliate.NewSet(),
			wantAdd:    []snowflake.ID{},
			wantRemove: []snowflake.ID{7},
		},
		{
			name:       "nil sets",
			previous:   nil,
			current:    nil,
			wantAdd:    []snowflake.ID{},
			wantRemove: []snowflake.ID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan := affiliate.Reconcile(tt.previous, tt.current)
			assert.Equal(t, tt.wantAdd, plan.ToAdd.Sorted())
			assert.Equal(t, tt.wantRemove, plan.ToRemove.Sorted())
			assert.Equal(t, len(tt.wantAdd) == 0 && len(tt.wantRemove) == 0, plan.IsEmpty())
		})
	}
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	previous := affiliate.NewSet(1, 2)
	current := affiliate.NewSet(2, 3)

	affiliate.Reconcile(previous, current)

	assert.Equal(t, []snowflake.ID{1, 2}, previous.Sorted())
	assert.Equal(t, []snowflake.ID{2, 3}, current.Sorted())
}

func TestSet(t *testing.T) {
	t.Parallel()

	s := affiliate.NewSet(3, 1)
	s.Add(2, 3, 1)

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(4))
	assert.Equal(t, []uint64{1, 2, 3}, s.Uint64s())
}
