package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/surveystack/internal/domain"
	"github.com/V4T54L/surveystack/internal/domain/mocks"
)

func TestAdminPipelineUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("status joins groups with pending summaries", func(t *testing.T) {
		admin := &mocks.MockStreamAdmin{
			Groups:  []domain.ConsumerGroupInfo{{Name: "analytics-processors", Consumers: 2, Pending: 5}},
			Pending: map[string]*domain.PendingSummary{"analytics-processors": {Total: 5, ConsumerTotals: map[string]int64{"w1": 5}}},
		}
		status, err := NewAdminPipelineUseCase(admin).Status(ctx)
		require.NoError(t, err)
		require.Len(t, status.Groups, 1)
		assert.Equal(t, int64(5), status.Pending["analytics-processors"].Total)
	})

	t.Run("status error", func(t *testing.T) {
		_, err := NewAdminPipelineUseCase(&mocks.MockStreamAdmin{Err: errors.New("no such key")}).Status(ctx)
		assert.Error(t, err)
	})

	t.Run("claim validates and defaults count", func(t *testing.T) {
		admin := &mocks.MockStreamAdmin{IdleEvents: make([]domain.AnalyticsEvent, 150)}
		uc := NewAdminPipelineUseCase(admin)

		_, err := uc.Claim(ctx, "", "w2", time.Minute, 0)
		assert.Error(t, err)

		events, err := uc.Claim(ctx, "analytics-processors", "w2", time.Minute, 0)
		require.NoError(t, err)
		assert.Len(t, events, defaultClaimCount)
		assert.Equal(t, "w2", admin.ClaimedBy)
	})

	t.Run("trim", func(t *testing.T) {
		admin := &mocks.MockStreamAdmin{TrimRemoved: 42}
		uc := NewAdminPipelineUseCase(admin)

		_, err := uc.Trim(ctx, 0)
		assert.Error(t, err)

		removed, err := uc.Trim(ctx, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(42), removed)
		assert.Equal(t, int64(1000), admin.TrimmedTo)
	})
}
