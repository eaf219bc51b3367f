package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/V4T54L/surveystack/internal/domain"
)

const defaultClaimCount = 100

// PipelineStatus is a snapshot of the analytics stream for operators.
type PipelineStatus struct {
	Groups  []domain.ConsumerGroupInfo        `json:"groups"`
	Pending map[string]*domain.PendingSummary `json:"pending"`
}

// AdminPipelineUseCase exposes analytics stream inspection and repair.
type AdminPipelineUseCase struct {
	admin domain.StreamAdmin
}

// NewAdminPipelineUseCase creates a new AdminPipelineUseCase.
func NewAdminPipelineUseCase(admin domain.StreamAdmin) *AdminPipelineUseCase {
	return &AdminPipelineUseCase{admin: admin}
}

// Status returns every consumer group with its pending summary.
func (uc *AdminPipelineUseCase) Status(ctx context.Context) (*PipelineStatus, error) {
	groups, err := uc.admin.GroupInfo(ctx)
	if err != nil {
		return nil, err
	}
	status := &PipelineStatus{Groups: groups, Pending: make(map[string]*domain.PendingSummary, len(groups))}
	for _, g := range groups {
		summary, err := uc.admin.PendingSummary(ctx, g.Name)
		if err != nil {
			return nil, err
		}
		status.Pending[g.Name] = summary
	}
	return status, nil
}

// Claim moves idle pending events of group to consumer.
func (uc *AdminPipelineUseCase) Claim(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.AnalyticsEvent, error) {
	if group == "" || consumer == "" {
		return nil, errors.New("group and consumer are required")
	}
	if count <= 0 {
		count = defaultClaimCount
	}
	return uc.admin.ClaimIdle(ctx, group, consumer, minIdle, count)
}

// Trim caps the stream length.
func (uc *AdminPipelineUseCase) Trim(ctx context.Context, maxLen int64) (int64, error) {
	if maxLen <= 0 {
		return 0, fmt.Errorf("maxlen must be positive, got %d", maxLen)
	}
	return uc.admin.Trim(ctx, maxLen)
}
