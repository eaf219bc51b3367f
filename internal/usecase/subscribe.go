package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/V4T54L/surveystack/internal/domain"
)

const (
	referralAlphabet   = "abcdefghjkmnpqrstuvwxyz23456789"
	referralCodeLength = 8
)

// SubscribeRequest is a newsletter signup submitted from a tenant site.
type SubscribeRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

// SubscribeUseCase handles newsletter signups and the tenant subscriber counter.
type SubscribeUseCase struct {
	subscribers domain.SubscriberRepository
	tenants     domain.TenantWriter
	tracker     *TrackEventUseCase
	logger      *slog.Logger
}

// NewSubscribeUseCase creates a new SubscribeUseCase. tracker may be nil.
func NewSubscribeUseCase(subscribers domain.SubscriberRepository, tenants domain.TenantWriter, tracker *TrackEventUseCase, logger *slog.Logger) *SubscribeUseCase {
	return &SubscribeUseCase{
		subscribers: subscribers,
		tenants:     tenants,
		tracker:     tracker,
		logger:      logger.With("component", "subscribe"),
	}
}

// Subscribe upserts the subscriber and bumps the tenant counter for new addresses.
// It reports whether the subscriber is new.
func (uc *SubscribeUseCase) Subscribe(ctx context.Context, tenant *domain.TenantRecord, req SubscribeRequest) (*domain.Subscriber, bool, error) {
	if !tenant.Features.Newsletter {
		return nil, false, domain.ErrFeatureDisabled
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return nil, false, domain.ErrInvalidEmail
	}
	source := req.Source
	if source == "" {
		source = "survey"
	}

	code, err := referralCode()
	if err != nil {
		return nil, false, fmt.Errorf("generate referral code: %w", err)
	}
	sub := domain.Subscriber{
		TenantID:     tenant.ID,
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		SessionID:    req.SessionID,
		ReferralCode: code,
		Source:       source,
	}

	created, err := uc.subscribers.Upsert(ctx, sub)
	if err != nil {
		return nil, false, fmt.Errorf("upsert subscriber: %w", err)
	}
	if !created {
		return &sub, false, nil
	}

	if err := uc.tenants.IncrementCounter(ctx, tenant.ID, domain.CounterSubscribers); err != nil {
		// The subscriber row is already committed; a stale counter is tolerated.
		uc.logger.Error("failed to increment subscriber counter", "hostname", tenant.Hostname, "error", err)
	}

	if uc.tracker != nil {
		event := domain.AnalyticsEvent{
			TenantID:  tenant.ID,
			Hostname:  tenant.Hostname,
			Event:     domain.EventSignup,
			SessionID: req.SessionID,
		}
		data, err := json.Marshal(signupData{Email: email, Source: source})
		if err != nil {
			uc.logger.Warn("failed to encode signup event data, tracking without it", "hostname", tenant.Hostname, "error", err)
		} else {
			event.Data = data
		}
		uc.tracker.TrackAsync(ctx, event)
	}
	return &sub, true, nil
}

type signupData struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

// referralCode draws each character uniformly from referralAlphabet.
func referralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	n := big.NewInt(int64(len(referralAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		buf[i] = referralAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
