package delivery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealerops/notifykit/pkg/throttle"
)

// MemoryStore is an in-memory Store implementation for development and
// testing. It enforces the same invariants as the Postgres store: one
// in-flight row per (notification, user, channel) and forward-only status
// transitions.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*Log

	// byProvider indexes rows by provider message ID.
	byProvider map[string]uuid.UUID

	loc *time.Location
	now func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryStoreClock overrides the time source. Mainly for tests.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMemoryStoreLocation sets the location used for calendar-day rate
// limit windows. Defaults to UTC.
func WithMemoryStoreLocation(loc *time.Location) MemoryStoreOption {
	return func(s *MemoryStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewMemoryStore creates an empty in-memory delivery store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		rows:       make(map[uuid.UUID]*Log),
		byProvider: make(map[string]uuid.UUID),
		loc:        time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Insert(ctx context.Context, log *Log) error {
	if err := log.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(log)
}

func (s *MemoryStore) InsertBatch(ctx context.Context, logs []*Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching state so a batch commits
	// fully or not at all. In-flight slots are checked against existing
	// rows and against the batch itself, so an intra-batch duplicate is
	// rejected before the first insert.
	claimed := make(map[inFlightKey]struct{}, len(logs))
	for _, log := range logs {
		if err := log.Validate(); err != nil {
			return err
		}
		if log.Status != "" && !log.Status.InFlight() {
			continue
		}
		key := inFlightKey{
			notificationID: log.NotificationID,
			userID:         log.UserID,
			channel:        string(log.Channel),
		}
		if _, dup := claimed[key]; dup {
			return ErrDuplicateInFlight
		}
		claimed[key] = struct{}{}
		if dup := s.findInFlightLocked(key.notificationID, key.userID, key.channel); dup != nil {
			return ErrDuplicateInFlight
		}
	}
	for _, log := range logs {
		if err := s.insertLocked(log); err != nil {
			return err
		}
	}
	return nil
}

type inFlightKey struct {
	notificationID string
	userID         string
	channel        string
}

func (s *MemoryStore) insertLocked(log *Log) error {
	log.normalize(s.now())

	if log.Status.InFlight() || log.Status == "" {
		if dup := s.findInFlightLocked(log.NotificationID, log.UserID, string(log.Channel)); dup != nil && dup.ID != log.ID {
			return ErrDuplicateInFlight
		}
	}

	row := cloneLog(log)
	s.rows[row.ID] = row
	if row.ProviderMessageID != "" {
		s.byProvider[row.ProviderMessageID] = row.ID
	}
	return nil
}

func (s *MemoryStore) findInFlightLocked(notificationID, userID, channel string) *Log {
	for _, row := range s.rows {
		if row.NotificationID == notificationID &&
			row.UserID == userID &&
			string(row.Channel) == channel &&
			row.Status.InFlight() {
			return row
		}
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLog(row), nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, extra Extra) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	return s.applyLocked(row, status, extra)
}

func (s *MemoryStore) UpdateStatusByProviderID(ctx context.Context, providerMessageID string, status Status, extra Extra) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byProvider[providerMessageID]
	if !ok {
		return ErrNotFound
	}
	return s.applyLocked(s.rows[id], status, extra)
}

func (s *MemoryStore) applyLocked(row *Log, status Status, extra Extra) error {
	if err := row.ApplyTransition(status, extra, s.now()); err != nil {
		return err
	}
	if row.ProviderMessageID != "" {
		s.byProvider[row.ProviderMessageID] = row.ID
	}
	return nil
}

func (s *MemoryStore) ListFailed(ctx context.Context, filter FailedFilter) ([]Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Log
	for _, row := range s.rows {
		if row.Status != StatusFailed {
			continue
		}
		if filter.DealerID != 0 && row.DealerID != filter.DealerID {
			continue
		}
		if filter.Channel != "" && row.Channel != filter.Channel {
			continue
		}
		if filter.MaxRetryCount > 0 && row.RetryCount >= filter.MaxRetryCount {
			continue
		}
		if !filter.FailedBefore.IsZero() && row.FailedAt != nil && row.FailedAt.After(filter.FailedBefore) {
			continue
		}
		out = append(out, *cloneLog(row))
	}

	// Oldest failure first for fair retry ordering.
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].FailedAt, out[j].FailedAt
		switch {
		case ti == nil:
			return tj != nil
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if row.Status != StatusFailed {
		return false, nil
	}
	row.Status = StatusProcessing
	return true, nil
}

// CountDeliveries implements throttle.DeliveryCounter over the delivery
// history: only attempts the user actually received (sent and beyond)
// consume rate-limit budget.
func (s *MemoryStore) CountDeliveries(ctx context.Context, userID string, dealerID int64, window throttle.Window, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var from time.Time
	if window == throttle.WindowDay {
		local := now.In(s.loc)
		from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	} else {
		from = now.Add(-time.Hour)
	}

	count := 0
	for _, row := range s.rows {
		if row.UserID != userID || row.DealerID != dealerID {
			continue
		}
		if !countsAgainstLimit(row.Status) {
			continue
		}
		at := row.CreatedAt
		if row.SentAt != nil {
			at = *row.SentAt
		}
		if !at.Before(from) && !at.After(now) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, row := range s.rows {
		if row.CreatedAt.Before(cutoff) {
			if row.ProviderMessageID != "" {
				delete(s.byProvider, row.ProviderMessageID)
			}
			delete(s.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// countsAgainstLimit reports whether a delivery outcome consumes the
// user's rate-limit budget. Clicked and read imply a delivery happened.
func countsAgainstLimit(status Status) bool {
	switch status {
	case StatusSent, StatusDelivered, StatusClicked, StatusRead:
		return true
	}
	return false
}

func cloneLog(in *Log) *Log {
	out := *in
	if in.Metadata != nil {
		out.Metadata = make(map[string]any, len(in.Metadata))
		for k, v := range in.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
