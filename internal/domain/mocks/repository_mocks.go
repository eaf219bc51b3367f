package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/surveystack/internal/domain"
)

// MockTenantStore is an in-memory domain.TenantStore and domain.TenantWriter
// that enforces hostname uniqueness the way the database does.
type MockTenantStore struct {
	mu          sync.Mutex
	Rows        map[string]domain.TenantRecord
	FindCalls   int
	InsertCalls int
	Inserted    int
	FindErr     error
	InsertErr   error
	// HideAfterInsert makes the read-back after an insert miss.
	HideAfterInsert bool
	// InsertHook runs before each insert, outside the lock.
	InsertHook func()
}

// NewMockTenantStore returns an empty store.
func NewMockTenantStore() *MockTenantStore {
	return &MockTenantStore{Rows: make(map[string]domain.TenantRecord)}
}

func (m *MockTenantStore) FindByHostname(ctx context.Context, hostname string) (*domain.TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if m.HideAfterInsert && m.InsertCalls > 0 {
		return nil, nil
	}
	rec, ok := m.Rows[hostname]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MockTenantStore) InsertIfAbsent(ctx context.Context, hostname string, cfg domain.TenantConfig) error {
	if m.InsertHook != nil {
		m.InsertHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if _, exists := m.Rows[hostname]; exists {
		return nil
	}
	now := time.Now().UTC()
	m.Rows[hostname] = domain.TenantRecord{
		ID:             uuid.New(),
		Hostname:       hostname,
		Topic:          cfg.Topic,
		Title:          cfg.Title,
		Description:    cfg.Description,
		Vertical:       cfg.Vertical,
		PrimaryColor:   cfg.Theming.PrimaryColor,
		SecondaryColor: cfg.Theming.AccentColor,
		Features:       cfg.Features,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.Inserted++
	return nil
}

func (m *MockTenantStore) UpdateFeatures(ctx context.Context, hostname string, overrides map[string]bool) (*domain.TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Rows[hostname]
	if !ok {
		return nil, nil
	}
	flags, err := rec.Features.Apply(overrides)
	if err != nil {
		return nil, err
	}
	rec.Features = flags
	rec.UpdatedAt = time.Now().UTC()
	m.Rows[hostname] = rec
	return &rec, nil
}

func (m *MockTenantStore) IncrementCounter(ctx context.Context, tenantID uuid.UUID, counter domain.Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for host, rec := range m.Rows {
		if rec.ID != tenantID {
			continue
		}
		switch counter {
		case domain.CounterSubscribers:
			rec.Counters.Subscribers++
		case domain.CounterCompletions:
			rec.Counters.Completions++
		}
		m.Rows[host] = rec
		return nil
	}
	return domain.ErrTenantNotFound
}

// Count returns the number of rows stored.
func (m *MockTenantStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rows)
}

// MockTenantCache is an in-memory domain.TenantCache that ignores TTLs.
type MockTenantCache struct {
	mu      sync.Mutex
	Entries map[string]domain.TenantRecord
	TTLs    map[string]time.Duration
	GetErr  error
	PutErr  error
	Gets    int
	Puts    int
}

// NewMockTenantCache returns an empty cache.
func NewMockTenantCache() *MockTenantCache {
	return &MockTenantCache{
		Entries: make(map[string]domain.TenantRecord),
		TTLs:    make(map[string]time.Duration),
	}
}

func (m *MockTenantCache) Get(ctx context.Context, hostname string) (*domain.TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	rec, ok := m.Entries[hostname]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return &rec, nil
}

func (m *MockTenantCache) Put(ctx context.Context, hostname string, record *domain.TenantRecord, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Entries[hostname] = *record
	m.TTLs[hostname] = ttl
	return nil
}

func (m *MockTenantCache) Delete(ctx context.Context, hostname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Entries, hostname)
	delete(m.TTLs, hostname)
	return nil
}

// MockEventBuffer is a mock implementation of domain.EventBuffer.
type MockEventBuffer struct {
	mu              sync.Mutex
	BufferedEvents  []domain.AnalyticsEvent
	AckedMessageIDs []string
	ReadBatchResult []domain.AnalyticsEvent
	BufferErr       error
	ReadErr         error
	AckErr          error
}

func (m *MockEventBuffer) BufferEvent(ctx context.Context, event domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BufferErr != nil {
		return m.BufferErr
	}
	m.BufferedEvents = append(m.BufferedEvents, event)
	return nil
}

func (m *MockEventBuffer) ReadEventBatch(ctx context.Context, group, consumer string, count int) ([]domain.AnalyticsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockEventBuffer) AcknowledgeEvents(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

// Buffered returns a snapshot of buffered events.
func (m *MockEventBuffer) Buffered() []domain.AnalyticsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AnalyticsEvent, len(m.BufferedEvents))
	copy(out, m.BufferedEvents)
	return out
}

// MockEventSink is a mock implementation of domain.EventSink.
type MockEventSink struct {
	mu            sync.Mutex
	WrittenEvents []domain.AnalyticsEvent
	WriteErr      error
	// FailTimes makes the first n writes fail with WriteErr.
	FailTimes  int
	WriteCalls int
}

func (m *MockEventSink) WriteEventBatch(ctx context.Context, events []domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	if m.WriteErr != nil && (m.FailTimes == 0 || m.WriteCalls <= m.FailTimes) {
		return m.WriteErr
	}
	m.WrittenEvents = append(m.WrittenEvents, events...)
	return nil
}

// MockQuestionRepository is a mock implementation of domain.QuestionRepository.
type MockQuestionRepository struct {
	mu        sync.Mutex
	Questions map[uuid.UUID][]domain.SurveyQuestion
	ListErr   error
	InsertErr error
	nextID    int64
}

func (m *MockQuestionRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]domain.SurveyQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]domain.SurveyQuestion(nil), m.Questions[tenantID]...), nil
}

func (m *MockQuestionRepository) InsertBatch(ctx context.Context, tenantID uuid.UUID, questions []domain.SurveyQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if m.Questions == nil {
		m.Questions = make(map[uuid.UUID][]domain.SurveyQuestion)
	}
	if len(m.Questions[tenantID]) > 0 {
		return nil
	}
	for _, q := range questions {
		m.nextID++
		q.ID = m.nextID
		q.TenantID = tenantID
		m.Questions[tenantID] = append(m.Questions[tenantID], q)
	}
	return nil
}

// MockSubscriberRepository is a mock implementation of domain.SubscriberRepository.
type MockSubscriberRepository struct {
	mu          sync.Mutex
	Subscribers map[string]domain.Subscriber
	UpsertErr   error
}

func (m *MockSubscriberRepository) Upsert(ctx context.Context, s domain.Subscriber) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return false, m.UpsertErr
	}
	if m.Subscribers == nil {
		m.Subscribers = make(map[string]domain.Subscriber)
	}
	key := s.TenantID.String() + "/" + s.Email
	if existing, ok := m.Subscribers[key]; ok {
		if s.Name != "" {
			existing.Name = s.Name
		}
		m.Subscribers[key] = existing
		return false, nil
	}
	m.Subscribers[key] = s
	return true, nil
}

// MockTextGenerator is a mock implementation of domain.TextGenerator.
type MockTextGenerator struct {
	Response string
	Err      error
	Calls    int
	mu       sync.Mutex
}

func (m *MockTextGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// MockStreamAdmin is a mock implementation of domain.StreamAdmin.
type MockStreamAdmin struct {
	mu          sync.Mutex
	Groups      []domain.ConsumerGroupInfo
	Pending     map[string]*domain.PendingSummary
	IdleEvents  []domain.AnalyticsEvent
	ClaimedBy   string
	TrimmedTo   int64
	TrimRemoved int64
	Err         error
}

func (m *MockStreamAdmin) GroupInfo(ctx context.Context) ([]domain.ConsumerGroupInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Groups, nil
}

func (m *MockStreamAdmin) PendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if s, ok := m.Pending[group]; ok {
		return s, nil
	}
	return &domain.PendingSummary{}, nil
}

func (m *MockStreamAdmin) ClaimIdle(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.AnalyticsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.ClaimedBy = consumer
	n := min(count, len(m.IdleEvents))
	out := m.IdleEvents[:n]
	m.IdleEvents = m.IdleEvents[n:]
	return out, nil
}

func (m *MockStreamAdmin) Trim(ctx context.Context, maxLen int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	m.TrimmedTo = maxLen
	return m.TrimRemoved, nil
}

// MockResponseRepository is a mock implementation of domain.ResponseRepository.
type MockResponseRepository struct {
	mu        sync.Mutex
	Responses []domain.SurveyResponse
	UpsertErr error
	CountErr  error
}

func (m *MockResponseRepository) Upsert(ctx context.Context, r domain.SurveyResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	for i, existing := range m.Responses {
		if existing.TenantID == r.TenantID && existing.SessionID == r.SessionID && existing.QuestionID == r.QuestionID {
			m.Responses[i].Answer = r.Answer
			return nil
		}
	}
	m.Responses = append(m.Responses, r)
	return nil
}

func (m *MockResponseRepository) CountAnswers(ctx context.Context, tenantID uuid.UUID) (map[int64][]domain.AnswerCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountErr != nil {
		return nil, m.CountErr
	}
	counts := make(map[int64]map[string]int64)
	for _, r := range m.Responses {
		if r.TenantID != tenantID {
			continue
		}
		if counts[r.QuestionID] == nil {
			counts[r.QuestionID] = make(map[string]int64)
		}
		counts[r.QuestionID][r.Answer]++
	}
	out := make(map[int64][]domain.AnswerCount, len(counts))
	for qid, answers := range counts {
		for answer, n := range answers {
			out[qid] = append(out[qid], domain.AnswerCount{Answer: answer, Count: n})
		}
		sort.Slice(out[qid], func(i, j int) bool {
			a, b := out[qid][i], out[qid][j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.Answer < b.Answer
		})
	}
	return out, nil
}
