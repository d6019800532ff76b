package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
	"github.com/iudanet/docsync/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type statsFunc func(ctx context.Context, sampleSize int) (map[string]storage.CollectionStats, error)

func (f statsFunc) Stats(ctx context.Context, sampleSize int) (map[string]storage.CollectionStats, error) {
	return f(ctx, sampleSize)
}

func TestHealthHandler_Health(t *testing.T) {
	logger := setupTestLogger()
	handler := NewHealthHandler(logger, pingerFunc(func(context.Context) error { return nil }), "sqlite", "1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	resp := w.Result()
	defer func() {
		err := resp.Body.Close()
		assert.NoError(t, err)
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var healthResp api.HealthResponse
	err := json.NewDecoder(resp.Body).Decode(&healthResp)
	require.NoError(t, err)

	assert.Equal(t, "ok", healthResp.Status)
	assert.Equal(t, "sqlite", healthResp.Storage)
	assert.Equal(t, "1.2.3", healthResp.Version)
	assert.NotEmpty(t, healthResp.Timestamp)
	assert.Empty(t, healthResp.Error)
}

func TestHealthHandler_Health_StorageDown(t *testing.T) {
	logger := setupTestLogger()
	handler := NewHealthHandler(logger, pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	}), "mongo", "dev")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var healthResp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &healthResp))
	assert.Equal(t, "unavailable", healthResp.Status)
	assert.Contains(t, healthResp.Error, "connection refused")
}

func TestDebugHandler_Collections(t *testing.T) {
	logger := setupTestLogger()

	var gotSample int
	handler := NewDebugHandler(logger, statsFunc(func(_ context.Context, sampleSize int) (map[string]storage.CollectionStats, error) {
		gotSample = sampleSize
		return map[string]storage.CollectionStats{
			"customers": {
				Count:  2,
				Sample: []models.Document{{ID: "c1", UpdatedAt: "2024-01-01T00:00:00.000Z"}},
			},
			"empty": {},
		}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/collections", nil)
	w := httptest.NewRecorder()

	handler.Collections(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, gotSample)

	var resp map[string]api.CollectionStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Contains(t, resp, "customers")
	assert.Equal(t, int64(2), resp["customers"].Count)
	require.Len(t, resp["customers"].SampleDocs, 1)
	assert.Equal(t, "c1", resp["customers"].SampleDocs[0].ID)

	// Пустая коллекция сериализуется как [] а не null
	assert.Contains(t, w.Body.String(), `"sampleDocs":[]`)
}

func TestDebugHandler_Collections_Error(t *testing.T) {
	logger := setupTestLogger()
	handler := NewDebugHandler(logger, statsFunc(func(context.Context, int) (map[string]storage.CollectionStats, error) {
		return nil, errors.New("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/collections", nil)
	w := httptest.NewRecorder()

	handler.Collections(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())
}
