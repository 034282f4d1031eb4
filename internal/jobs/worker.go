package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kpapadakis/ali-price-checker/internal/database"
	"github.com/kpapadakis/ali-price-checker/internal/models"
)

// StartWorker polls for pending jobs until ctx is cancelled. One job runs at
// a time; a single browser session serves all items of a job.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("worker started", "poll_interval", m.pollInterval)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("worker stopped")
			return
		case <-ticker.C:
			if err := m.runNext(ctx); err != nil {
				m.logger.Error("job run failed", "error", err)
			}
		}
	}
}

// runNext claims and processes one pending job. No pending job is not an
// error.
func (m *Manager) runNext(ctx context.Context) error {
	job, err := m.repo.ClaimNextPending(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}

	m.logger.Info("job claimed", "id", job.ID, "total", job.Total)

	if err := m.runJob(ctx, job); err != nil {
		if statusErr := m.repo.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, err); statusErr != nil {
			m.logger.Error("failed to mark job failed", "id", job.ID, "error", statusErr)
		}
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	return nil
}

func (m *Manager) runJob(ctx context.Context, job *models.Job) error {
	items, err := m.repo.JobItems(ctx, job.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return m.repo.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted, nil)
	}

	checker, err := m.newChecker(ctx, job.Country, job.Currency)
	if err != nil {
		return fmt.Errorf("failed to set up checker: %w", err)
	}
	defer checker.Close()

	completed, failed := 0, 0
	consecutiveErrors := 0

	for _, item := range items {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}

		quote, err := checker.QuotePrice(ctx, item.URL, item.Tracking)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			m.limiter.RecordError()
			failed++
			consecutiveErrors++

			quote = models.NewQuote(item, checker.Currency())
			quote.Error = err.Error()
			m.logger.Warn("quote failed", "job_id", job.ID, "url", item.URL, "error", err)

			if consecutiveErrors >= m.resetThreshold {
				m.logger.Info("resetting session after repeated failures", "job_id", job.ID)
				if resetErr := checker.Reset(ctx); resetErr != nil {
					m.logger.Error("session reset failed", "job_id", job.ID, "error", resetErr)
				}
				consecutiveErrors = 0
			}
		} else {
			m.limiter.RecordSuccess()
			completed++
			consecutiveErrors = 0
			m.logger.Info("item quoted", "job_id", job.ID, "url", item.URL,
				"item_price", quote.ItemPrice, "shipping_price", quote.ShippingPrice,
				"currency", quote.Currency)
		}

		if err := m.repo.InsertQuote(ctx, job.ID, quote); err != nil {
			return fmt.Errorf("failed to store quote: %w", err)
		}
		if m.publisher != nil {
			if err := m.publisher.PublishQuote(ctx, job.ID, quote); err != nil {
				m.logger.Error("failed to publish quote event", "job_id", job.ID, "error", err)
			}
		}
		if err := m.repo.UpdateJobProgress(ctx, job.ID, completed, failed); err != nil {
			m.logger.Error("failed to update progress", "job_id", job.ID, "error", err)
		}
	}

	status := models.JobStatusCompleted
	var jobErr error
	if completed == 0 {
		status = models.JobStatusFailed
		jobErr = fmt.Errorf("all %d items failed", failed)
	}

	if err := m.repo.UpdateJobStatus(ctx, job.ID, status, jobErr); err != nil {
		return err
	}

	m.logger.Info("job finished", "id", job.ID, "status", status,
		"completed", completed, "failed", failed)
	return nil
}
