package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kpapadakis/ali-price-checker/internal/aliexpress"
	"github.com/kpapadakis/ali-price-checker/internal/models"
	"github.com/kpapadakis/ali-price-checker/internal/ratelimit"
)

// Checker is the scraping side of a job: one configured browsing session.
type Checker interface {
	QuotePrice(ctx context.Context, url string, tracking bool) (*models.PriceQuote, error)
	Reset(ctx context.Context) error
	Currency() string
	Close() error
}

// CheckerFactory builds a Checker configured for a job's country/currency.
type CheckerFactory func(ctx context.Context, country, currency string) (Checker, error)

// Repository is what the manager needs from persistence.
type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	JobItems(ctx context.Context, jobID string) ([]models.CheckItem, error)
	ClaimNextPending(ctx context.Context) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id, status string, jobErr error) error
	UpdateJobProgress(ctx context.Context, id string, completed, failed int) error
	InsertQuote(ctx context.Context, jobID string, quote *models.PriceQuote) error
	ListQuotes(ctx context.Context, jobID string) ([]models.PriceQuote, error)
}

// QuotePublisher pushes per-item events; a nil publisher disables events.
type QuotePublisher interface {
	PublishQuote(ctx context.Context, jobID string, quote *models.PriceQuote) error
}

// Manager owns job intake and the background worker.
type Manager struct {
	repo       Repository
	newChecker CheckerFactory
	publisher  QuotePublisher
	limiter    *ratelimit.AdaptiveRateLimiter
	logger     *slog.Logger

	pollInterval   time.Duration
	resetThreshold int
}

type ManagerConfig struct {
	PollInterval   time.Duration
	RateLimitMin   time.Duration
	RateLimitMax   time.Duration
	ResetThreshold int
}

func NewManager(repo Repository, factory CheckerFactory, publisher QuotePublisher, cfg ManagerConfig, logger *slog.Logger) *Manager {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.RateLimitMin == 0 {
		cfg.RateLimitMin = 3 * time.Second
	}
	if cfg.RateLimitMax == 0 {
		cfg.RateLimitMax = 15 * time.Second
	}
	if cfg.ResetThreshold == 0 {
		cfg.ResetThreshold = 3
	}

	return &Manager{
		repo:           repo,
		newChecker:     factory,
		publisher:      publisher,
		limiter:        ratelimit.NewAdaptiveRateLimiter(cfg.RateLimitMin, cfg.RateLimitMax),
		logger:         logger.With("component", "jobs"),
		pollInterval:   cfg.PollInterval,
		resetThreshold: cfg.ResetThreshold,
	}
}

// Create validates and stores a new pending job.
func (m *Manager) Create(ctx context.Context, country, currency string, items []models.CheckItem) (*models.Job, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("job has no items")
	}
	if country != "" && !aliexpress.IsSupportedCountry(country) {
		return nil, fmt.Errorf("%w: %q", aliexpress.ErrCountryNotFound, country)
	}
	if currency != "" && !aliexpress.IsSupportedCurrency(currency) {
		return nil, fmt.Errorf("%w: %q", aliexpress.ErrCurrencyNotFound, currency)
	}

	job := &models.Job{
		Country:  aliexpress.NormalizeCountry(country),
		Currency: strings.ToUpper(aliexpress.NormalizeCurrency(currency)),
		Items:    items,
	}

	if err := m.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	m.logger.Info("job created", "id", job.ID, "items", job.Total,
		"country", job.Country, "currency", job.Currency)
	return job, nil
}

// Get loads a job by ID.
func (m *Manager) Get(ctx context.Context, id string) (*models.Job, error) {
	return m.repo.GetJob(ctx, id)
}

// Quotes returns a job's collected quotes.
func (m *Manager) Quotes(ctx context.Context, id string) ([]models.PriceQuote, error) {
	return m.repo.ListQuotes(ctx, id)
}
