package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/course-settlement/internal/settlement/domain"
)

func TestHoldTransition_RejectsInvalidMove(t *testing.T) {
	repo := NewGormHoldRepository(nil)

	cases := []struct {
		name     string
		from, to string
	}{
		{"released back to held", domain.HoldStatusReleased, domain.HoldStatusHeld},
		{"cancelled to released", domain.HoldStatusCancelled, domain.HoldStatusReleased},
		{"held to held", domain.HoldStatusHeld, domain.HoldStatusHeld},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := repo.Transition(context.Background(), 1, tc.from, tc.to)
			require.ErrorIs(t, err, domain.ErrInvalidHoldTransition)
			assert.False(t, changed)
		})
	}
}
