package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/V4T54L/surveystack/internal/domain"
)

const surveySystemPrompt = `You are a world-class survey designer creating engaging, research-grade questions.
Your surveys achieve 90%+ completion rates because they're fun, relevant, and concise.
Always output valid JSON only — no markdown fences, no extra text.`

const surveyUserPrompt = `Create a survey for %q in the %s vertical.
Topic context: %s

Generate exactly 8 survey questions with a strategic mix:
- 4 multiple choice (4 options each, mutually exclusive)
- 2 rating scale (1-5, measuring satisfaction/likelihood/frequency)
- 1 ranking/priority question (rank 4 items)
- 1 open text (last question, inviting genuine feedback)

Keep it under 2 minutes total.

Output JSON: {"questions": [{"text": "...", "type": "multiple_choice|rating|ranking|text", "options": [...] or null}]}`

// SurveyUseCase serves a tenant's survey and records answers and completions.
type SurveyUseCase struct {
	questions domain.QuestionRepository
	responses domain.ResponseRepository
	tenants   domain.TenantWriter
	generator domain.TextGenerator
	tracker   *TrackEventUseCase
	logger    *slog.Logger
}

// NewSurveyUseCase creates a new SurveyUseCase. generator and tracker may be nil.
func NewSurveyUseCase(questions domain.QuestionRepository, responses domain.ResponseRepository, tenants domain.TenantWriter, generator domain.TextGenerator, tracker *TrackEventUseCase, logger *slog.Logger) *SurveyUseCase {
	return &SurveyUseCase{
		questions: questions,
		responses: responses,
		tenants:   tenants,
		generator: generator,
		tracker:   tracker,
		logger:    logger.With("component", "survey"),
	}
}

// Questions returns the tenant's active questions, generating and persisting
// a set on first request.
func (uc *SurveyUseCase) Questions(ctx context.Context, tenant *domain.TenantRecord, cfg domain.TenantConfig) ([]domain.SurveyQuestion, error) {
	if !tenant.Features.Survey {
		return nil, domain.ErrFeatureDisabled
	}

	existing, err := uc.questions.ListActive(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	generated := uc.generate(ctx, tenant, cfg)
	// Concurrent first requests may both generate; the first batch written wins.
	if err := uc.questions.InsertBatch(ctx, tenant.ID, generated); err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}

	saved, err := uc.questions.ListActive(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return saved, nil
}

// Answer stores a session's answer to one of the tenant's active questions.
func (uc *SurveyUseCase) Answer(ctx context.Context, tenant *domain.TenantRecord, resp domain.SurveyResponse) error {
	if !tenant.Features.Survey {
		return domain.ErrFeatureDisabled
	}
	if resp.SessionID == "" || resp.QuestionID <= 0 {
		return fmt.Errorf("%w: session_id and question_id are required", domain.ErrMissingFields)
	}

	active, err := uc.questions.ListActive(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if !slices.ContainsFunc(active, func(q domain.SurveyQuestion) bool { return q.ID == resp.QuestionID }) {
		return domain.ErrQuestionNotFound
	}

	resp.TenantID = tenant.ID
	if err := uc.responses.Upsert(ctx, resp); err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return nil
}

// Results aggregates the answers to every active non-text question, in
// question order.
func (uc *SurveyUseCase) Results(ctx context.Context, tenant *domain.TenantRecord) ([]domain.QuestionResult, error) {
	if !tenant.Features.Survey {
		return nil, domain.ErrFeatureDisabled
	}

	active, err := uc.questions.ListActive(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	counts, err := uc.responses.CountAnswers(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	results := make([]domain.QuestionResult, 0, len(active))
	for _, q := range active {
		if q.Type == domain.QuestionText {
			continue
		}
		res := domain.QuestionResult{QuestionID: q.ID, Question: q.Text, Type: q.Type, Breakdown: []domain.AnswerShare{}}
		for _, c := range counts[q.ID] {
			res.Total += c.Count
		}
		for _, c := range counts[q.ID] {
			res.Breakdown = append(res.Breakdown, domain.AnswerShare{AnswerCount: c, Percent: percent(c.Count, res.Total)})
		}
		results = append(results, res)
	}
	return results, nil
}

func percent(n, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

// Complete records a finished survey for the tenant.
func (uc *SurveyUseCase) Complete(ctx context.Context, tenant *domain.TenantRecord, sessionID string) error {
	if !tenant.Features.Survey {
		return domain.ErrFeatureDisabled
	}
	if err := uc.tenants.IncrementCounter(ctx, tenant.ID, domain.CounterCompletions); err != nil {
		return fmt.Errorf("increment completions: %w", err)
	}
	if uc.tracker != nil {
		uc.tracker.TrackAsync(ctx, domain.AnalyticsEvent{
			TenantID:  tenant.ID,
			Hostname:  tenant.Hostname,
			Event:     domain.EventSurveyComplete,
			SessionID: sessionID,
		})
	}
	return nil
}

func (uc *SurveyUseCase) generate(ctx context.Context, tenant *domain.TenantRecord, cfg domain.TenantConfig) []domain.SurveyQuestion {
	if uc.generator == nil {
		return FallbackQuestions(tenant.Topic)
	}

	prompt := fmt.Sprintf(surveyUserPrompt, tenant.Title, tenant.Vertical, cfg.AIContext)
	text, err := uc.generator.Generate(ctx, surveySystemPrompt, prompt)
	if err != nil {
		if !errors.Is(err, domain.ErrGeneratorUnavailable) {
			uc.logger.Warn("survey generation failed, using fallback", "hostname", tenant.Hostname, "error", err)
		}
		return FallbackQuestions(tenant.Topic)
	}

	questions, err := parseQuestions(text)
	if err != nil {
		uc.logger.Warn("unusable survey generation output, using fallback", "hostname", tenant.Hostname, "error", err)
		return FallbackQuestions(tenant.Topic)
	}
	return questions
}

func parseQuestions(text string) ([]domain.SurveyQuestion, error) {
	clean := strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(text))

	var payload struct {
		Questions []struct {
			Text    string   `json:"text"`
			Type    string   `json:"type"`
			Options []string `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, err
	}
	if len(payload.Questions) == 0 {
		return nil, errors.New("no questions in output")
	}

	out := make([]domain.SurveyQuestion, 0, len(payload.Questions))
	for i, q := range payload.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("question %d has no text", i+1)
		}
		switch q.Type {
		case domain.QuestionMultipleChoice, domain.QuestionRating, domain.QuestionRanking, domain.QuestionText:
		default:
			return nil, fmt.Errorf("question %d has unknown type %q", i+1, q.Type)
		}
		out = append(out, domain.SurveyQuestion{
			Order:   i + 1,
			Text:    q.Text,
			Type:    q.Type,
			Options: q.Options,
		})
	}
	return out, nil
}

// FallbackQuestions is the survey used when no generated one is available.
func FallbackQuestions(topic string) []domain.SurveyQuestion {
	rating := []string{"1", "2", "3", "4", "5"}
	qs := []domain.SurveyQuestion{
		{Text: fmt.Sprintf("How familiar are you with %s?", topic), Type: domain.QuestionMultipleChoice, Options: []string{"Complete beginner", "Some experience", "Intermediate", "Expert"}},
		{Text: fmt.Sprintf("How often do you engage with %s-related activities?", topic), Type: domain.QuestionMultipleChoice, Options: []string{"Daily", "Weekly", "Monthly", "Rarely"}},
		{Text: fmt.Sprintf("What matters most to you about %s?", topic), Type: domain.QuestionMultipleChoice, Options: []string{"Quality", "Affordability", "Convenience", "Innovation"}},
		{Text: fmt.Sprintf("What is your biggest challenge with %s?", topic), Type: domain.QuestionMultipleChoice, Options: []string{"Lack of information", "Too many options", "Cost", "Time"}},
		{Text: fmt.Sprintf("Rate your overall satisfaction with %s (1=Poor, 5=Excellent)", topic), Type: domain.QuestionRating, Options: rating},
		{Text: fmt.Sprintf("How likely are you to recommend %s resources to others?", topic), Type: domain.QuestionRating, Options: rating},
		{Text: fmt.Sprintf("Rank these %s priorities", topic), Type: domain.QuestionRanking, Options: []string{"Quality", "Price", "Speed", "Trust"}},
		{Text: fmt.Sprintf("What would improve your %s experience? Share freely.", topic), Type: domain.QuestionText},
	}
	for i := range qs {
		qs[i].Order = i + 1
	}
	return qs
}
