package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerops/notifykit/pkg/notify"
	"github.com/dealerops/notifykit/pkg/pg"
	"github.com/dealerops/notifykit/pkg/throttle"
)

// PostgresStore is the production Store implementation over pgx. The
// one-in-flight-row invariant is enforced by a partial unique index, and
// status transitions run inside row-locked transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
	now  func() time.Time
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithPostgresStoreLocation sets the location used for calendar-day rate
// limit windows. Defaults to UTC.
func WithPostgresStoreLocation(loc *time.Location) PostgresStoreOption {
	return func(s *PostgresStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPostgresStoreClock overrides the time source. Mainly for tests.
func WithPostgresStoreClock(now func() time.Time) PostgresStoreOption {
	return func(s *PostgresStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPostgresStore creates a delivery store over the given pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresStoreOption) *PostgresStore {
	s := &PostgresStore{
		pool: pool,
		loc:  time.UTC,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const logColumns = `id, dealer_id, notification_id, user_id, channel, status,
	created_at, sent_at, delivered_at, clicked_at, read_at, failed_at,
	provider, provider_message_id, retry_count, error_message, error_code,
	latency_ms, metadata`

const insertLogQuery = `INSERT INTO delivery_logs (
	id, dealer_id, notification_id, user_id, channel, status, created_at,
	sent_at, delivered_at, clicked_at, read_at, failed_at,
	provider, provider_message_id, retry_count, error_message, error_code,
	latency_ms, metadata
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

func (s *PostgresStore) Insert(ctx context.Context, log *Log) error {
	if err := log.Validate(); err != nil {
		return err
	}
	log.normalize(s.now())

	if err := s.exec(ctx, s.pool, insertLogQuery, log); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateInFlight
		}
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, logs []*Log) error {
	for _, log := range logs {
		if err := log.Validate(); err != nil {
			return err
		}
		log.normalize(s.now())
	}

	// One transaction per batch: the batch commits fully or not at all.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, log := range logs {
		if err := s.exec(ctx, tx, insertLogQuery, log); err != nil {
			if pg.IsDuplicateKeyError(err) {
				return ErrDuplicateInFlight
			}
			return fmt.Errorf("insert delivery log batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// dbExecer is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) exec(ctx context.Context, q dbExecer, query string, log *Log) error {
	_, err := q.Exec(ctx, query,
		log.ID, log.DealerID, log.NotificationID, log.UserID, string(log.Channel),
		string(log.Status), log.CreatedAt, log.SentAt, log.DeliveredAt,
		log.ClickedAt, log.ReadAt, log.FailedAt, log.Provider,
		log.ProviderMessageID, log.RetryCount, log.ErrorMessage, log.ErrorCode,
		log.LatencyMs, log.Metadata,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Log, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+logColumns+` FROM delivery_logs WHERE id = $1`, id)
	log, err := scanLog(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get delivery log: %w", err)
	}
	return log, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, extra Extra) error {
	return s.transition(ctx, `SELECT `+logColumns+` FROM delivery_logs WHERE id = $1 FOR UPDATE`, id, status, extra)
}

func (s *PostgresStore) UpdateStatusByProviderID(ctx context.Context, providerMessageID string, status Status, extra Extra) error {
	return s.transition(ctx,
		`SELECT `+logColumns+` FROM delivery_logs
		 WHERE provider_message_id = $1
		 ORDER BY created_at DESC LIMIT 1 FOR UPDATE`,
		providerMessageID, status, extra)
}

// transition loads the row under lock, applies the state machine in Go, and
// writes the result back. Keeping the transition logic in one place means
// the memory and Postgres stores cannot drift.
func (s *PostgresStore) transition(ctx context.Context, selectQuery string, key any, status Status, extra Extra) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	log, err := scanLog(tx.QueryRow(ctx, selectQuery, key))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("load delivery log for update: %w", err)
	}

	if err := log.ApplyTransition(status, extra, s.now()); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE delivery_logs SET
			status = $2, sent_at = $3, delivered_at = $4, clicked_at = $5,
			read_at = $6, failed_at = $7, provider = $8,
			provider_message_id = $9, retry_count = $10, error_message = $11,
			error_code = $12, latency_ms = $13
		 WHERE id = $1`,
		log.ID, string(log.Status), log.SentAt, log.DeliveredAt, log.ClickedAt,
		log.ReadAt, log.FailedAt, log.Provider, log.ProviderMessageID,
		log.RetryCount, log.ErrorMessage, log.ErrorCode, log.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("update delivery log: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListFailed(ctx context.Context, filter FailedFilter) ([]Log, error) {
	query := `SELECT ` + logColumns + ` FROM delivery_logs WHERE status = 'failed'`
	args := []any{}
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}

	if filter.DealerID != 0 {
		args = append(args, filter.DealerID)
		query += ` AND dealer_id = ` + next()
	}
	if filter.Channel != "" {
		args = append(args, string(filter.Channel))
		query += ` AND channel = ` + next()
	}
	if filter.MaxRetryCount > 0 {
		args = append(args, filter.MaxRetryCount)
		query += ` AND retry_count < ` + next()
	}
	if !filter.FailedBefore.IsZero() {
		args = append(args, filter.FailedBefore)
		query += ` AND failed_at <= ` + next()
	}
	query += ` ORDER BY failed_at ASC NULLS LAST`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT ` + next()
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list failed deliveries: %w", err)
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed delivery: %w", err)
		}
		out = append(out, *log)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE delivery_logs SET status = 'processing' WHERE id = $1 AND status = 'failed'`, id)
	if err != nil {
		return false, fmt.Errorf("claim delivery for retry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountDeliveries implements throttle.DeliveryCounter over the delivery
// history.
func (s *PostgresStore) CountDeliveries(ctx context.Context, userID string, dealerID int64, window throttle.Window, now time.Time) (int, error) {
	var from time.Time
	if window == throttle.WindowDay {
		local := now.In(s.loc)
		from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	} else {
		from = now.Add(-time.Hour)
	}

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM delivery_logs
		 WHERE user_id = $1 AND dealer_id = $2
		   AND status IN ('sent','delivered','clicked','read')
		   AND COALESCE(sent_at, created_at) >= $3
		   AND COALESCE(sent_at, created_at) <= $4`,
		userID, dealerID, from, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM delivery_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old delivery logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (*Log, error) {
	var (
		log     Log
		channel string
		status  string
	)
	err := row.Scan(
		&log.ID, &log.DealerID, &log.NotificationID, &log.UserID, &channel,
		&status, &log.CreatedAt, &log.SentAt, &log.DeliveredAt, &log.ClickedAt,
		&log.ReadAt, &log.FailedAt, &log.Provider, &log.ProviderMessageID,
		&log.RetryCount, &log.ErrorMessage, &log.ErrorCode, &log.LatencyMs,
		&log.Metadata,
	)
	if err != nil {
		return nil, err
	}
	log.Channel = notify.Channel(channel)
	log.Status = Status(status)
	return &log, nil
}
