package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gogobubbles/leadops/internal/domain/model"
)

var schema = []string{ //nolint:gochecknoglobals // DDL statements
	`CREATE TABLE IF NOT EXISTS jobs (
		job_id       TEXT PRIMARY KEY,
		lead_id      TEXT NOT NULL DEFAULT '',
		worker_id    TEXT NOT NULL DEFAULT '',
		completed_at TIMESTAMPTZ NOT NULL,
		record       JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_lead_idx ON jobs (lead_id, completed_at)`,
	`CREATE INDEX IF NOT EXISTS jobs_worker_idx ON jobs (worker_id, completed_at)`,
	`CREATE TABLE IF NOT EXISTS checkins (
		id            BIGSERIAL PRIMARY KEY,
		lead_id       TEXT NOT NULL,
		check_in_date TIMESTAMPTZ NOT NULL,
		record        JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS checkins_lead_idx ON checkins (lead_id, check_in_date)`,
	`CREATE TABLE IF NOT EXISTS lead_ratings (
		id           BIGSERIAL PRIMARY KEY,
		lead_id      TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		record       JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS lead_ratings_lead_idx ON lead_ratings (lead_id, submitted_at)`,
	`CREATE TABLE IF NOT EXISTS settlements (
		job_id     TEXT PRIMARY KEY,
		id         UUID NOT NULL,
		settled_at TIMESTAMPTZ NOT NULL,
		record     JSONB NOT NULL
	)`,
}

// PostgresStore is a Store backed by a pgx connection pool. Records are kept
// as JSONB next to the columns they are queried by.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and pings the database.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates missing tables and indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveJob(ctx context.Context, job model.CompletedJobRecord) error {
	defer observe("save_job", time.Now())
	if job.JobID == "" {
		return fmt.Errorf("%w: job_id is required", ErrInvalidInput)
	}
	if job.WorkerID == "" {
		job.WorkerID = job.OriginalBubblerID
	}
	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (job_id, lead_id, worker_id, completed_at, record)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id) DO UPDATE
		SET lead_id = EXCLUDED.lead_id, worker_id = EXCLUDED.worker_id,
		    completed_at = EXCLUDED.completed_at, record = EXCLUDED.record`,
		job.JobID, job.LeadID, job.WorkerID, job.CompletedAt, record,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveCheckIn(ctx context.Context, c model.CheckInRecord) error {
	defer observe("save_check_in", time.Now())
	if c.LeadID == "" {
		return fmt.Errorf("%w: lead_id is required", ErrInvalidInput)
	}
	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode check-in: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO checkins (lead_id, check_in_date, record) VALUES ($1, $2, $3)`,
		c.LeadID, c.CheckInDate, record,
	)
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveLeadRating(ctx context.Context, r model.LeadRating) error {
	defer observe("save_lead_rating", time.Now())
	if r.LeadID == "" {
		return fmt.Errorf("%w: lead_id is required", ErrInvalidInput)
	}
	record, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode lead rating: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO lead_ratings (lead_id, submitted_at, record) VALUES ($1, $2, $3)`,
		r.LeadID, r.SubmittedAt, record,
	)
	if err != nil {
		return fmt.Errorf("insert lead rating: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSettlement(ctx context.Context, st model.Settlement) error {
	defer observe("save_settlement", time.Now())
	if st.Event.JobID == "" {
		return fmt.Errorf("%w: settlement without job_id", ErrInvalidInput)
	}
	record, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settlement: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO settlements (job_id, id, settled_at, record)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO NOTHING`,
		st.Event.JobID, st.ID, st.SettledAt, record,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (s *PostgresStore) Settlement(ctx context.Context, jobID string) (model.Settlement, error) {
	defer observe("settlement", time.Now())
	var record []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM settlements WHERE job_id = $1`, jobID).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Settlement{}, fmt.Errorf("settlement %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return model.Settlement{}, fmt.Errorf("query settlement: %w", err)
	}
	var st model.Settlement
	if err := json.Unmarshal(record, &st); err != nil {
		return model.Settlement{}, fmt.Errorf("decode settlement: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) JobsByLead(ctx context.Context, leadID string, since time.Time) ([]model.CompletedJobRecord, error) {
	defer observe("jobs_by_lead", time.Now())
	return queryRecords[model.CompletedJobRecord](ctx, s.pool, `
		SELECT record FROM jobs WHERE lead_id = $1 AND completed_at >= $2
		ORDER BY completed_at, job_id`, leadID, since)
}

func (s *PostgresStore) JobsByWorker(ctx context.Context, workerID string, since time.Time) ([]model.CompletedJobRecord, error) {
	defer observe("jobs_by_worker", time.Now())
	return queryRecords[model.CompletedJobRecord](ctx, s.pool, `
		SELECT record FROM jobs WHERE worker_id = $1 AND completed_at >= $2
		ORDER BY completed_at, job_id`, workerID, since)
}

func (s *PostgresStore) CheckInsByLead(ctx context.Context, leadID string, since time.Time) ([]model.CheckInRecord, error) {
	defer observe("check_ins_by_lead", time.Now())
	return queryRecords[model.CheckInRecord](ctx, s.pool, `
		SELECT record FROM checkins WHERE lead_id = $1 AND check_in_date >= $2
		ORDER BY check_in_date, id`, leadID, since)
}

func (s *PostgresStore) LeadRatings(ctx context.Context, leadID string, since time.Time) ([]model.LeadRating, error) {
	defer observe("lead_ratings", time.Now())
	return queryRecords[model.LeadRating](ctx, s.pool, `
		SELECT record FROM lead_ratings WHERE lead_id = $1 AND submitted_at >= $2
		ORDER BY submitted_at, id`, leadID, since)
}

func (s *PostgresStore) Leads(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT lead_id FROM jobs WHERE lead_id <> ''
		UNION SELECT lead_id FROM checkins
		UNION SELECT lead_id FROM lead_ratings
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	leads, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan leads: %w", err)
	}
	return leads, nil
}

func (s *PostgresStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM jobs),
		       (SELECT count(*) FROM checkins),
		       (SELECT count(*) FROM lead_ratings),
		       (SELECT count(*) FROM settlements)`,
	).Scan(&c.Jobs, &c.CheckIns, &c.LeadRatings, &c.Settlements)
	if err != nil {
		return Counts{}, fmt.Errorf("count records: %w", err)
	}
	updateRecordGauges(c)
	return c, nil
}

func queryRecords[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	out := make([]T, 0, len(raw))
	for _, b := range raw {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
