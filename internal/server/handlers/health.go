package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
	"github.com/iudanet/docsync/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider отдает сводку по коллекциям
type StatsProvider interface {
	Stats(ctx context.Context, sampleSize int) (map[string]storage.CollectionStats, error)
}

// healthTimeout ограничивает проверку хранилища
const healthTimeout = 2 * time.Second

// debugSampleSize количество документов-примеров на коллекцию
const debugSampleSize = 3

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	store   Pinger
	now     func() time.Time
	driver  string
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, store Pinger, driver, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		store:   store,
		now:     time.Now,
		driver:  driver,
		version: version,
	}
}

// Health обрабатывает GET /health
// 200 если хранилище отвечает, иначе 503
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := api.HealthResponse{
		Status:    "ok",
		Timestamp: models.FormatTime(h.now()),
		Storage:   h.driver,
		Version:   h.version,
	}

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("Storage health check failed", slog.Any("error", err))
		resp.Status = "unavailable"
		resp.Error = err.Error()
		writeJSON(w, h.logger, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// DebugHandler отдает диагностику по коллекциям
type DebugHandler struct {
	logger *slog.Logger
	stats  StatsProvider
}

// NewDebugHandler создает handler для GET /debug/collections
func NewDebugHandler(logger *slog.Logger, stats StatsProvider) *DebugHandler {
	return &DebugHandler{logger: logger, stats: stats}
}

// Collections обрабатывает GET /debug/collections
func (h *DebugHandler) Collections(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context(), debugSampleSize)
	if err != nil {
		h.logger.Error("Failed to collect stats", slog.Any("error", err))
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make(map[string]api.CollectionStats, len(stats))
	for name, s := range stats {
		sample := s.Sample
		if sample == nil {
			sample = []models.Document{}
		}
		resp[name] = api.CollectionStats{Count: s.Count, SampleDocs: sample}
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
