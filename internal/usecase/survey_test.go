package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/surveystack/internal/domain"
	"github.com/V4T54L/surveystack/internal/domain/mocks"
)

const generatedSurvey = "```json\n" + `{"questions": [
  {"text": "Where did you last travel?", "type": "multiple_choice", "options": ["Asia", "Europe", "Americas", "Africa"]},
  {"text": "Rate your last trip", "type": "rating", "options": ["1","2","3","4","5"]},
  {"text": "Anything else?", "type": "text", "options": null}
]}` + "\n```"

func surveyTenant() *domain.TenantRecord {
	return &domain.TenantRecord{
		ID:       uuid.New(),
		Hostname: "balitrip.com",
		Topic:    "Balitrip",
		Title:    "Balitrip Travel Survey",
		Vertical: "travel",
		Features: domain.FeatureFlags{Survey: true, Newsletter: true},
	}
}

func TestSurveyUseCase_Questions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := domain.TenantConfig{AIContext: "travel and tourism"}

	t.Run("generated questions are stored", func(t *testing.T) {
		repo := &mocks.MockQuestionRepository{}
		gen := &mocks.MockTextGenerator{Response: generatedSurvey}
		uc := NewSurveyUseCase(repo, &mocks.MockResponseRepository{}, mocks.NewMockTenantStore(), gen, nil, logger)
		tenant := surveyTenant()

		qs, err := uc.Questions(context.Background(), tenant, cfg)
		require.NoError(t, err)
		require.Len(t, qs, 3)
		assert.Equal(t, "Where did you last travel?", qs[0].Text)
		assert.Equal(t, domain.QuestionText, qs[2].Type)
		assert.Equal(t, 3, qs[2].Order)
		assert.NotZero(t, qs[0].ID)
		assert.Equal(t, 1, gen.Calls)
	})

	t.Run("stored questions are reused", func(t *testing.T) {
		repo := &mocks.MockQuestionRepository{}
		gen := &mocks.MockTextGenerator{Response: generatedSurvey}
		uc := NewSurveyUseCase(repo, &mocks.MockResponseRepository{}, mocks.NewMockTenantStore(), gen, nil, logger)
		tenant := surveyTenant()

		first, err := uc.Questions(context.Background(), tenant, cfg)
		require.NoError(t, err)
		second, err := uc.Questions(context.Background(), tenant, cfg)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, gen.Calls)
	})

	t.Run("generator failure falls back", func(t *testing.T) {
		repo := &mocks.MockQuestionRepository{}
		gen := &mocks.MockTextGenerator{Err: errors.New("rate limited")}
		uc := NewSurveyUseCase(repo, &mocks.MockResponseRepository{}, mocks.NewMockTenantStore(), gen, nil, logger)

		qs, err := uc.Questions(context.Background(), surveyTenant(), cfg)
		require.NoError(t, err)
		require.Len(t, qs, 8)
		assert.Equal(t, "How familiar are you with Balitrip?", qs[0].Text)
		assert.Equal(t, domain.QuestionRanking, qs[6].Type)
	})

	t.Run("malformed output falls back", func(t *testing.T) {
		repo := &mocks.MockQuestionRepository{}
		gen := &mocks.MockTextGenerator{Response: `{"questions": [{"text": "Q", "type": "essay"}]}`}
		uc := NewSurveyUseCase(repo, &mocks.MockResponseRepository{}, mocks.NewMockTenantStore(), gen, nil, logger)

		qs, err := uc.Questions(context.Background(), surveyTenant(), cfg)
		require.NoError(t, err)
		assert.Len(t, qs, 8)
	})

	t.Run("no generator falls back", func(t *testing.T) {
		uc := NewSurveyUseCase(&mocks.MockQuestionRepository{}, &mocks.MockResponseRepository{}, mocks.NewMockTenantStore(), nil, nil, logger)
		qs, err := uc.Questions(context.Background(), surveyTenant(), cfg)
		require.NoError(t, err)
		assert.Len(t, qs, 8)
	})

	t.Run("feature disabled", func(t *testing.T) {
		uc := NewSurveyUseCase(&mocks.MockQuestionRepository{}, &mocks.MockResponseRepository{}, mocks.NewMockTenantStore(), nil, nil, logger)
		tenant := surveyTenant()
		tenant.Features.Survey = false
		_, err := uc.Questions(context.Background(), tenant, cfg)
		assert.ErrorIs(t, err, domain.ErrFeatureDisabled)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := &mocks.MockQuestionRepository{ListErr: errors.New("db down")}
		uc := NewSurveyUseCase(repo, &mocks.MockResponseRepository{}, mocks.NewMockTenantStore(), nil, nil, logger)
		_, err := uc.Questions(context.Background(), surveyTenant(), cfg)
		assert.Error(t, err)
	})
}

func TestSurveyUseCase_Complete(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := mocks.NewMockTenantStore()
	require.NoError(t, store.InsertIfAbsent(context.Background(), "balitrip.com", domain.TenantConfig{
		Topic: "Balitrip", Features: domain.FeatureFlags{Survey: true},
	}))
	tenant, err := store.FindByHostname(context.Background(), "balitrip.com")
	require.NoError(t, err)

	buffer := &mocks.MockEventBuffer{}
	tracker := NewTrackEventUseCase(buffer, nil, logger, nil)
	uc := NewSurveyUseCase(&mocks.MockQuestionRepository{}, &mocks.MockResponseRepository{}, store, nil, tracker, logger)

	require.NoError(t, uc.Complete(context.Background(), tenant, "sess-1"))
	require.NoError(t, uc.Complete(context.Background(), tenant, "sess-2"))

	after, err := store.FindByHostname(context.Background(), "balitrip.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.Counters.Completions)
	assert.Zero(t, after.Counters.Subscribers)

	assert.Eventually(t, func() bool { return len(buffer.Buffered()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.EventSurveyComplete, buffer.Buffered()[0].Event)

	t.Run("unknown tenant", func(t *testing.T) {
		err := uc.Complete(context.Background(), &domain.TenantRecord{ID: uuid.New(), Features: domain.FeatureFlags{Survey: true}}, "")
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})

	t.Run("survey disabled", func(t *testing.T) {
		disabled := *after
		disabled.Features.Survey = false
		err := uc.Complete(context.Background(), &disabled, "sess-3")
		assert.ErrorIs(t, err, domain.ErrFeatureDisabled)

		again, err := store.FindByHostname(context.Background(), "balitrip.com")
		require.NoError(t, err)
		assert.Equal(t, int64(2), again.Counters.Completions)
		time.Sleep(20 * time.Millisecond)
		assert.Len(t, buffer.Buffered(), 2)
	})
}

func TestSurveyUseCase_Answer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenant := surveyTenant()
	questions := &mocks.MockQuestionRepository{}
	require.NoError(t, questions.InsertBatch(context.Background(), tenant.ID, FallbackQuestions(tenant.Topic)))
	active, err := questions.ListActive(context.Background(), tenant.ID)
	require.NoError(t, err)

	responses := &mocks.MockResponseRepository{}
	uc := NewSurveyUseCase(questions, responses, mocks.NewMockTenantStore(), nil, nil, logger)
	ctx := context.Background()

	first := domain.SurveyResponse{SessionID: "sess-1", QuestionID: active[0].ID, Answer: "Expert"}
	require.NoError(t, uc.Answer(ctx, tenant, first))
	first.Answer = "Intermediate"
	require.NoError(t, uc.Answer(ctx, tenant, first))

	require.Len(t, responses.Responses, 1, "same session and question keeps one answer")
	assert.Equal(t, "Intermediate", responses.Responses[0].Answer)
	assert.Equal(t, tenant.ID, responses.Responses[0].TenantID)

	tests := []struct {
		name    string
		resp    domain.SurveyResponse
		wantErr error
	}{
		{"missing session", domain.SurveyResponse{QuestionID: active[0].ID, Answer: "x"}, domain.ErrMissingFields},
		{"missing question", domain.SurveyResponse{SessionID: "s", Answer: "x"}, domain.ErrMissingFields},
		{"foreign question", domain.SurveyResponse{SessionID: "s", QuestionID: 9999, Answer: "x"}, domain.ErrQuestionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, uc.Answer(ctx, tenant, tt.resp), tt.wantErr)
		})
	}

	t.Run("survey disabled", func(t *testing.T) {
		disabled := *tenant
		disabled.Features.Survey = false
		assert.ErrorIs(t, uc.Answer(ctx, &disabled, first), domain.ErrFeatureDisabled)
	})

	t.Run("repository error", func(t *testing.T) {
		failing := NewSurveyUseCase(questions, &mocks.MockResponseRepository{UpsertErr: errors.New("db down")}, mocks.NewMockTenantStore(), nil, nil, logger)
		assert.ErrorContains(t, failing.Answer(ctx, tenant, first), "db down")
	})
}

func TestSurveyUseCase_Results(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenant := surveyTenant()
	questions := &mocks.MockQuestionRepository{}
	require.NoError(t, questions.InsertBatch(context.Background(), tenant.ID, FallbackQuestions(tenant.Topic)))
	active, err := questions.ListActive(context.Background(), tenant.ID)
	require.NoError(t, err)

	responses := &mocks.MockResponseRepository{}
	uc := NewSurveyUseCase(questions, responses, mocks.NewMockTenantStore(), nil, nil, logger)
	ctx := context.Background()

	for i, answer := range []string{"Daily", "Daily", "Weekly"} {
		require.NoError(t, uc.Answer(ctx, tenant, domain.SurveyResponse{SessionID: string(rune('a' + i)), QuestionID: active[1].ID, Answer: answer}))
	}
	require.NoError(t, uc.Answer(ctx, tenant, domain.SurveyResponse{SessionID: "a", QuestionID: active[7].ID, Answer: "More events"}))

	results, err := uc.Results(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, results, 7, "open text questions are not aggregated")

	assert.Zero(t, results[0].Total)
	assert.Empty(t, results[0].Breakdown)

	freq := results[1]
	assert.Equal(t, active[1].ID, freq.QuestionID)
	assert.Equal(t, int64(3), freq.Total)
	require.Len(t, freq.Breakdown, 2)
	assert.Equal(t, "Daily", freq.Breakdown[0].Answer)
	assert.Equal(t, 67, freq.Breakdown[0].Percent)
	assert.Equal(t, 33, freq.Breakdown[1].Percent)

	t.Run("survey disabled", func(t *testing.T) {
		disabled := *tenant
		disabled.Features.Survey = false
		_, err := uc.Results(ctx, &disabled)
		assert.ErrorIs(t, err, domain.ErrFeatureDisabled)
	})

	t.Run("count error", func(t *testing.T) {
		failing := NewSurveyUseCase(questions, &mocks.MockResponseRepository{CountErr: errors.New("db down")}, mocks.NewMockTenantStore(), nil, nil, logger)
		_, err := failing.Results(ctx, tenant)
		assert.ErrorContains(t, err, "db down")
	})
}

func TestFallbackQuestions(t *testing.T) {
	qs := FallbackQuestions("Coffee")
	require.Len(t, qs, 8)
	for i, q := range qs {
		assert.Equal(t, i+1, q.Order)
		assert.NotEmpty(t, q.Text)
	}
	assert.Equal(t, "What would improve your Coffee experience? Share freely.", qs[7].Text)
	assert.Nil(t, qs[7].Options)
}
