package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kpapadakis/ali-price-checker/internal/models"
)

var ErrNotFound = errors.New("not found")

// Schema for the job and quote tables. Applied on startup; every statement is
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS price_job (
	id          UUID PRIMARY KEY,
	country     TEXT NOT NULL DEFAULT '',
	currency    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	total       INT NOT NULL DEFAULT 0,
	completed   INT NOT NULL DEFAULT 0,
	failed      INT NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_job_item (
	job_id    UUID NOT NULL REFERENCES price_job(id) ON DELETE CASCADE,
	position  INT NOT NULL,
	url       TEXT NOT NULL,
	tracking  BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (job_id, position)
);

CREATE TABLE IF NOT EXISTS price_quote (
	id             UUID PRIMARY KEY,
	job_id         UUID NOT NULL REFERENCES price_job(id) ON DELETE CASCADE,
	url            TEXT NOT NULL,
	item_price     DOUBLE PRECISION NOT NULL DEFAULT 0,
	shipping_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency       TEXT NOT NULL DEFAULT '',
	tracking       BOOLEAN NOT NULL DEFAULT false,
	error          TEXT NOT NULL DEFAULT '',
	checked_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_job_status ON price_job(status, created_at);
CREATE INDEX IF NOT EXISTS idx_price_quote_job ON price_quote(job_id);
`

// JobRepository persists price-check jobs and their quotes.
type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// EnsureSchema creates the tables when they are missing.
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateJob stores a job and its items atomically. A missing ID is assigned.
func (r *JobRepository) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Total = len(job.Items)

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO price_job (id, country, currency, status, total, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			job.ID, job.Country, job.Currency, job.Status, job.Total, job.CreatedAt, job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}

		for i, item := range job.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO price_job_item (job_id, position, url, tracking)
				VALUES ($1, $2, $3, $4)`,
				job.ID, i, item.URL, item.Tracking,
			)
			if err != nil {
				return fmt.Errorf("failed to insert job item: %w", err)
			}
		}

		return nil
	})
}

// GetJob loads a job without its items.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job := &models.Job{}
	err := r.db.QueryRow(ctx, `
		SELECT id, country, currency, status, total, completed, failed, error, created_at, updated_at
		FROM price_job WHERE id = $1`, id,
	).Scan(&job.ID, &job.Country, &job.Currency, &job.Status, &job.Total,
		&job.Completed, &job.Failed, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}

// JobItems returns a job's items in submission order.
func (r *JobRepository) JobItems(ctx context.Context, jobID string) ([]models.CheckItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT url, tracking FROM price_job_item
		WHERE job_id = $1 ORDER BY position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job items: %w", err)
	}
	defer rows.Close()

	var items []models.CheckItem
	for rows.Next() {
		var item models.CheckItem
		if err := rows.Scan(&item.URL, &item.Tracking); err != nil {
			return nil, fmt.Errorf("failed to scan job item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// ClaimNextPending flips the oldest pending job to running and returns it.
// SKIP LOCKED keeps concurrent workers off the same job.
func (r *JobRepository) ClaimNextPending(ctx context.Context) (*models.Job, error) {
	job := &models.Job{}

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, country, currency, status, total, completed, failed, created_at, updated_at
			FROM price_job
			WHERE status = $1
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED`, models.JobStatusPending,
		).Scan(&job.ID, &job.Country, &job.Currency, &job.Status, &job.Total,
			&job.Completed, &job.Failed, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE price_job SET status = $1, updated_at = now() WHERE id = $2`,
			models.JobStatusRunning, job.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = models.JobStatusRunning
	return job, nil
}

// UpdateJobStatus sets a job's terminal or intermediate status; jobErr, when
// non-nil, lands in the error column.
func (r *JobRepository) UpdateJobStatus(ctx context.Context, id, status string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE price_job SET status = $1, error = $2, updated_at = now() WHERE id = $3`,
		status, msg, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateJobProgress records how many items finished and how many failed.
func (r *JobRepository) UpdateJobProgress(ctx context.Context, id string, completed, failed int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE price_job SET completed = $1, failed = $2, updated_at = now() WHERE id = $3`,
		completed, failed, id)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// InsertQuote stores one item's result under its job.
func (r *JobRepository) InsertQuote(ctx context.Context, jobID string, quote *models.PriceQuote) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO price_quote (id, job_id, url, item_price, shipping_price, currency, tracking, error, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New().String(), jobID, quote.URL, quote.ItemPrice, quote.ShippingPrice,
		quote.Currency, quote.Tracking, quote.Error, quote.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}
	return nil
}

// ListQuotes returns a job's quotes in check order.
func (r *JobRepository) ListQuotes(ctx context.Context, jobID string) ([]models.PriceQuote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT url, item_price, shipping_price, currency, tracking, error, checked_at
		FROM price_quote WHERE job_id = $1 ORDER BY checked_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quotes: %w", err)
	}
	defer rows.Close()

	var quotes []models.PriceQuote
	for rows.Next() {
		var q models.PriceQuote
		if err := rows.Scan(&q.URL, &q.ItemPrice, &q.ShippingPrice, &q.Currency,
			&q.Tracking, &q.Error, &q.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}

	return quotes, rows.Err()
}
