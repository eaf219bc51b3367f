package spool

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/surveystack/internal/domain"
)

func setupTestSpool(t *testing.T, maxSegmentSize, maxTotalSize int64) *Spool {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(t.TempDir(), maxSegmentSize, maxTotalSize, logger)
	if err != nil {
		t.Fatalf("failed to create spool: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func collect(t *testing.T, s *Spool) []domain.AnalyticsEvent {
	t.Helper()
	var out []domain.AnalyticsEvent
	if err := s.Drain(context.Background(), func(e domain.AnalyticsEvent) error {
		out = append(out, e)
		return nil
	}); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	return out
}

func TestSpool_AppendAndDrainAcrossRestart(t *testing.T) {
	s := setupTestSpool(t, 1024, 10*1024)

	events := []domain.AnalyticsEvent{
		{ID: uuid.NewString(), Event: domain.EventPageView, Hostname: "a.com"},
		{ID: uuid.NewString(), Event: domain.EventSignup, Hostname: "b.com"},
		{ID: uuid.NewString(), Event: domain.EventSurveyComplete, Hostname: "c.com"},
	}
	for _, e := range events {
		if err := s.Append(context.Background(), e); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}
	s.Close()

	reopened, err := New(s.dir, 1024, 10*1024, s.logger)
	if err != nil {
		t.Fatalf("failed to reopen spool: %v", err)
	}
	defer reopened.Close()
	if reopened.Size() == 0 {
		t.Fatal("expected reopened spool to account for existing segments")
	}

	got := collect(t, reopened)
	if len(got) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(got))
	}
	for i := range events {
		if got[i].ID != events[i].ID || got[i].Event != events[i].Event {
			t.Errorf("event %d mismatch: got %+v, want %+v", i, got[i], events[i])
		}
	}
	if reopened.Size() != 0 {
		t.Errorf("expected empty spool after drain, size is %d", reopened.Size())
	}
	if again := collect(t, reopened); len(again) != 0 {
		t.Errorf("expected nothing on second drain, got %d", len(again))
	}
}

func TestSpool_SegmentRotation(t *testing.T) {
	s := setupTestSpool(t, 100, 4096)

	event := domain.AnalyticsEvent{ID: uuid.NewString(), Event: domain.EventPageView, Hostname: "rotation.example.com"}
	line, _ := json.Marshal(event)
	writes := 100/len(line) + 3
	for i := 0; i < writes; i++ {
		if err := s.Append(context.Background(), event); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}

	segments, err := s.segments()
	if err != nil {
		t.Fatalf("failed to list segments: %v", err)
	}
	if len(segments) < 2 {
		t.Errorf("expected at least 2 segments, got %d", len(segments))
	}
	if got := collect(t, s); len(got) != writes {
		t.Errorf("expected %d events, got %d", writes, len(got))
	}
}

func TestSpool_Full(t *testing.T) {
	s := setupTestSpool(t, 100, 150)

	event := domain.AnalyticsEvent{ID: uuid.NewString(), Event: domain.EventPageView, Hostname: "fills-the-spool.example.com"}
	var err error
	for i := 0; i < 5; i++ {
		if err = s.Append(context.Background(), event); err != nil {
			break
		}
	}
	if !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestSpool_FailedDrainKeepsEvents(t *testing.T) {
	s := setupTestSpool(t, 1024, 10*1024)
	for i := 0; i < 2; i++ {
		if err := s.Append(context.Background(), domain.AnalyticsEvent{ID: uuid.NewString()}); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}

	err := s.Drain(context.Background(), func(domain.AnalyticsEvent) error {
		return errors.New("stream still down")
	})
	if err == nil {
		t.Fatal("expected drain error")
	}
	if got := collect(t, s); len(got) != 2 {
		t.Errorf("expected 2 events to survive a failed drain, got %d", len(got))
	}
}

func TestSpool_AppendDuringDrain(t *testing.T) {
	s := setupTestSpool(t, 1024, 10*1024)
	first := domain.AnalyticsEvent{ID: uuid.NewString(), Event: domain.EventPageView}
	if err := s.Append(context.Background(), first); err != nil {
		t.Fatalf("failed to append: %v", err)
	}

	late := domain.AnalyticsEvent{ID: uuid.NewString(), Event: domain.EventSignup}
	done := make(chan error, 1)
	go func() {
		done <- s.Drain(context.Background(), func(domain.AnalyticsEvent) error {
			return s.Append(context.Background(), late)
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("drain failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("append blocked while drain was replaying")
	}

	if s.Size() == 0 {
		t.Fatal("expected the event appended during drain to stay spooled")
	}
	got := collect(t, s)
	if len(got) != 1 || got[0].ID != late.ID {
		t.Errorf("expected only the late event on the next drain, got %+v", got)
	}
}
