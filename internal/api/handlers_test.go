package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpapadakis/ali-price-checker/internal/database"
	"github.com/kpapadakis/ali-price-checker/internal/jobs"
	"github.com/kpapadakis/ali-price-checker/internal/models"
)

// stubRepo serves handler tests; jobs are keyed by ID and never processed.
type stubRepo struct {
	jobs   map[string]*models.Job
	quotes map[string][]models.PriceQuote
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		jobs:   map[string]*models.Job{},
		quotes: map[string][]models.PriceQuote{},
	}
}

func (r *stubRepo) CreateJob(_ context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = "11111111-1111-1111-1111-111111111111"
	}
	job.Status = models.JobStatusPending
	job.Total = len(job.Items)
	r.jobs[job.ID] = job
	return nil
}

func (r *stubRepo) GetJob(_ context.Context, id string) (*models.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return job, nil
}

func (r *stubRepo) JobItems(_ context.Context, jobID string) ([]models.CheckItem, error) {
	return nil, nil
}

func (r *stubRepo) ClaimNextPending(context.Context) (*models.Job, error) {
	return nil, database.ErrNotFound
}

func (r *stubRepo) UpdateJobStatus(_ context.Context, id, status string, jobErr error) error {
	return nil
}

func (r *stubRepo) UpdateJobProgress(_ context.Context, id string, completed, failed int) error {
	return nil
}

func (r *stubRepo) InsertQuote(_ context.Context, jobID string, quote *models.PriceQuote) error {
	return nil
}

func (r *stubRepo) ListQuotes(_ context.Context, jobID string) ([]models.PriceQuote, error) {
	return r.quotes[jobID], nil
}

func newTestServer(t *testing.T) (*httptest.Server, *stubRepo) {
	t.Helper()

	repo := newStubRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := jobs.NewManager(repo, nil, nil, jobs.ManagerConfig{}, logger)

	router := NewRouter(NewHandler(manager, logger), []string{"*"})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, repo
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCreateJob(t *testing.T) {
	srv, repo := newTestServer(t)

	payload := `{
		"country": "Greece",
		"currency": "eur",
		"items": [
			{"url": "https://www.aliexpress.com/item/33052582900.html", "tracking": true},
			{"url": "https://www.aliexpress.com/item/4000123456789.html"}
		]
	}`

	resp, err := http.Post(srv.URL+"/api/jobs", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var job models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "greece", job.Country)
	assert.Equal(t, "EUR", job.Currency)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.Total)

	_, ok := repo.jobs[job.ID]
	assert.True(t, ok)
}

func TestCreateJobValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{`},
		{"no items", `{"country": "greece", "currency": "EUR", "items": []}`},
		{"unknown country", `{"country": "atlantis", "items": [{"url": "https://www.aliexpress.com/item/1.html"}]}`},
		{"unknown currency", `{"currency": "XXX", "items": [{"url": "https://www.aliexpress.com/item/1.html"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/jobs", "application/json", bytes.NewBufferString(tt.payload))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetJob(t *testing.T) {
	srv, repo := newTestServer(t)

	repo.jobs["job-42"] = &models.Job{
		ID:        "job-42",
		Country:   "greece",
		Currency:  "EUR",
		Status:    models.JobStatusRunning,
		Total:     3,
		Completed: 1,
		CreatedAt: time.Now(),
	}

	resp, err := http.Get(srv.URL + "/api/jobs/job-42")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var job models.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.Equal(t, "job-42", job.ID)
	assert.Equal(t, models.JobStatusRunning, job.Status)
	assert.Equal(t, 1, job.Completed)
}

func TestGetJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/jobs/missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetJobQuotes(t *testing.T) {
	srv, repo := newTestServer(t)

	repo.jobs["job-42"] = &models.Job{ID: "job-42", Status: models.JobStatusCompleted}
	repo.quotes["job-42"] = []models.PriceQuote{
		{URL: "https://www.aliexpress.com/item/1.html", ItemPrice: 4.12, ShippingPrice: 3.66, Currency: "EUR"},
	}

	resp, err := http.Get(srv.URL + "/api/jobs/job-42/quotes")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		JobID  string              `json:"job_id"`
		Quotes []models.PriceQuote `json:"quotes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "job-42", body.JobID)
	require.Len(t, body.Quotes, 1)
	assert.Equal(t, 4.12, body.Quotes[0].ItemPrice)
}

func TestGetJobQuotesEmpty(t *testing.T) {
	srv, repo := newTestServer(t)

	repo.jobs["job-42"] = &models.Job{ID: "job-42", Status: models.JobStatusRunning}

	resp, err := http.Get(srv.URL + "/api/jobs/job-42/quotes")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"quotes":[]`)
}
