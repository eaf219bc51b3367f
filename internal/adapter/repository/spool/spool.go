// Package spool is a segmented append-only file store for analytics events
// that could not reach the stream.
package spool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/surveystack/internal/domain"
)

const (
	segmentPrefix = "events-"
	segmentSuffix = ".jsonl"
	filePerm      = 0o644
)

// ErrFull is returned when an append would exceed the spool's size limit.
var ErrFull = errors.New("event spool is full")

// Spool writes one JSON event per line into rotating segment files.
type Spool struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	drainMu sync.Mutex

	mu          sync.Mutex
	current     *os.File
	currentSize int64
	totalSize   int64
	seq         int
}

// New opens (or creates) a spool in dir.
func New(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory %s: %w", dir, err)
	}
	s := &Spool{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "event_spool"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	segments, err := s.segments()
	if err != nil {
		return nil, err
	}
	for _, path := range segments {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat segment %s: %w", path, err)
		}
		s.totalSize += info.Size()
	}
	if len(segments) > 0 {
		s.logger.Info("found spooled events from a previous run", "segments", len(segments), "bytes", s.totalSize)
	}
	return s, nil
}

// Append writes event to the current segment, rotating when it fills up.
func (s *Spool) Append(ctx context.Context, event domain.AnalyticsEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for spool: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totalSize+int64(len(line)) > s.maxTotalSize {
		return fmt.Errorf("%w (%d bytes)", ErrFull, s.totalSize)
	}
	if s.current == nil || s.currentSize >= s.maxSegmentSize {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	n, err := s.current.Write(line)
	s.currentSize += int64(n)
	s.totalSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write spool segment: %w", err)
	}
	return nil
}

// Drain replays the segments present when it starts, oldest first. The
// append lock is held only to seal the open segment and take the snapshot,
// so events appended while fn runs land in a new segment for the next drain.
// A segment is removed only after fn accepted every event in it; a failure
// leaves it in place and the next drain replays it from the top, so callers
// must tolerate redelivery (events carry a stable ID for that).
func (s *Spool) Drain(ctx context.Context, fn func(domain.AnalyticsEvent) error) error {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	s.mu.Lock()
	s.closeCurrent()
	segments, err := s.segments()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for _, path := range segments {
		if err := s.replay(ctx, path, fn); err != nil {
			return err
		}
		info, statErr := os.Stat(path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove drained segment %s: %w", path, err)
		}
		if statErr == nil {
			s.mu.Lock()
			s.totalSize = max(s.totalSize-info.Size(), 0)
			s.mu.Unlock()
		}
	}
	if len(segments) > 0 {
		s.logger.Info("spool drained", "segments", len(segments))
	}
	return nil
}

func (s *Spool) replay(ctx context.Context, path string, fn func(domain.AnalyticsEvent) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open segment %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var event domain.AnalyticsEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			s.logger.Warn("skipping unreadable spooled event", "segment", filepath.Base(path), "error", err)
			continue
		}
		if err := fn(event); err != nil {
			return fmt.Errorf("replay stopped at event %s: %w", event.ID, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return nil
}

// Size returns the number of bytes currently spooled.
func (s *Spool) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize
}

// Close syncs and closes the open segment.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}

func (s *Spool) rotate() error {
	s.closeCurrent()
	s.seq++
	name := fmt.Sprintf("%s%d-%06d%s", segmentPrefix, time.Now().UnixNano(), s.seq, segmentSuffix)
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create spool segment %s: %w", path, err)
	}
	s.current = f
	s.currentSize = 0
	s.logger.Debug("opened spool segment", "path", path)
	return nil
}

func (s *Spool) closeCurrent() {
	if s.current == nil {
		return
	}
	if err := s.current.Sync(); err != nil {
		s.logger.Error("failed to sync spool segment", "error", err)
	}
	if err := s.current.Close(); err != nil {
		s.logger.Error("failed to close spool segment", "error", err)
	}
	s.current = nil
}

func (s *Spool) segments() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spool directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			out = append(out, filepath.Join(s.dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}
