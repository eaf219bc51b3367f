package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/V4T54L/surveystack/internal/domain"
)

// ActivityMessage is one tick of the live activity feed.
type ActivityMessage struct {
	Rate   float64        `json:"rate"`
	Events map[string]int `json:"events"`
}

// ActivityBroker counts tracked analytics events and pushes a per-second
// summary to connected Server-Sent Events clients.
type ActivityBroker struct {
	logger   *slog.Logger
	clients  map[chan []byte]struct{}
	mu       sync.RWMutex
	observed chan string
	interval time.Duration
}

// NewActivityBroker creates a broker and starts its processing loop.
func NewActivityBroker(ctx context.Context, logger *slog.Logger) *ActivityBroker {
	return newActivityBroker(ctx, logger, time.Second)
}

func newActivityBroker(ctx context.Context, logger *slog.Logger, interval time.Duration) *ActivityBroker {
	b := &ActivityBroker{
		logger:   logger.With("component", "activity_broker"),
		clients:  make(map[chan []byte]struct{}),
		observed: make(chan string, 1000),
		interval: interval,
	}
	go b.run(ctx)
	return b
}

// Observe implements usecase.EventObserver. It never blocks the caller.
func (b *ActivityBroker) Observe(event domain.AnalyticsEvent) {
	select {
	case b.observed <- event.Event:
	default:
		b.logger.Warn("activity counter channel is full, dropping observation")
	}
}

// ServeHTTP handles GET /api/admin/activity.
func (b *ActivityBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages := make(chan []byte, 4)
	b.addClient(messages)
	defer b.removeClient(messages)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-messages:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (b *ActivityBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("activity client connected")
}

func (b *ActivityBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
	b.logger.Info("activity client disconnected")
}

func (b *ActivityBroker) clientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *ActivityBroker) broadcast(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow clients miss ticks.
		}
	}
}

func (b *ActivityBroker) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	counts := make(map[string]int)
	total := 0
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case name := <-b.observed:
			counts[name]++
			total++
		case <-ticker.C:
			now := time.Now()
			rate := 0.0
			if elapsed := now.Sub(last).Seconds(); elapsed > 0 {
				rate = float64(total) / elapsed
			}
			payload, err := json.Marshal(ActivityMessage{Rate: rate, Events: counts})
			if err != nil {
				b.logger.Error("failed to marshal activity message", "error", err)
				continue
			}
			b.broadcast(payload)

			counts = make(map[string]int)
			total = 0
			last = now
		}
	}
}
