package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/metrics"
	"github.com/iudanet/docsync/internal/server/notify"
	"github.com/iudanet/docsync/internal/validation"
	"github.com/iudanet/docsync/pkg/api"
)

//go:generate moq -out documentstorage_mock.go . DocumentStorage

// DocumentStorage определяет операции хранилища, нужные обработчикам репликации
type DocumentStorage interface {
	Pull(ctx context.Context, collection string, cp models.Checkpoint, limit int) ([]models.Document, error)
	BulkWrite(ctx context.Context, collection string, docs []models.Document) error
}

// Options tunes the replication handlers
type Options struct {
	DefaultBatchSize  int
	MaxBatchSize      int
	HeartbeatInterval time.Duration
}

// DefaultOptions returns the defaults used by the server
func DefaultOptions() Options {
	return Options{
		DefaultBatchSize:  api.DefaultBatchSize,
		MaxBatchSize:      1000,
		HeartbeatInterval: 25 * time.Second,
	}
}

// ReplicationHandler handles pull, push and pullStream requests
type ReplicationHandler struct {
	logger      *slog.Logger
	storage     DocumentStorage
	notifier    *notify.Notifier
	broadcaster notify.Broadcaster
	metrics     *metrics.Metrics
	now         func() time.Time
	opts        Options
}

// NewReplicationHandler creates a new replication handler.
// Listeners register on notifier; push signals go through broadcaster, which is
// either the notifier itself or a cluster bridge wrapping it.
func NewReplicationHandler(
	logger *slog.Logger,
	storage DocumentStorage,
	notifier *notify.Notifier,
	broadcaster notify.Broadcaster,
	m *metrics.Metrics,
	opts Options,
) *ReplicationHandler {
	if broadcaster == nil {
		broadcaster = notifier
	}
	return &ReplicationHandler{
		logger:      logger,
		storage:     storage,
		notifier:    notifier,
		broadcaster: broadcaster,
		metrics:     m,
		now:         time.Now,
		opts:        opts,
	}
}

// collection извлекает и проверяет имя коллекции из пути
func (h *ReplicationHandler) collection(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("collection")
	if err := validation.ValidateCollection(name); err != nil {
		h.logger.Warn("Invalid collection", "collection", name, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return "", false
	}
	return name, true
}

// batchSize разбирает batchSize и ограничивает его сверху
func (h *ReplicationHandler) batchSize(raw string) (int, error) {
	if raw == "" {
		return h.opts.DefaultBatchSize, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}

	if n < 1 {
		n = 1
	}
	if n > h.opts.MaxBatchSize {
		n = h.opts.MaxBatchSize
	}
	return n, nil
}

// HandlePull обрабатывает GET /{collection}/pull?updatedAt=&id=&batchSize=
// Возвращает следующую страницу документов после checkpoint
func (h *ReplicationHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	collection, ok := h.collection(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	cp := models.Checkpoint{
		UpdatedAt: query.Get("updatedAt"),
		ID:        query.Get("id"),
	}

	limit, err := h.batchSize(query.Get("batchSize"))
	if err != nil {
		h.logger.Warn("Invalid batchSize parameter", "batchSize", query.Get("batchSize"), "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid batchSize parameter")
		return
	}

	docs, err := h.storage.Pull(r.Context(), collection, cp, limit)
	if err != nil {
		h.metrics.StorageErrorsTotal.WithLabelValues("pull").Inc()
		h.logger.Error("Failed to pull documents", "error", err, "collection", collection)
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	if docs == nil {
		docs = []models.Document{}
	}

	// Пустой результат возвращает исходный checkpoint: клиент догнал сервер
	response := api.PullResponse{
		Documents:  docs,
		Checkpoint: cp.Advance(docs),
	}

	h.metrics.PulledDocumentsTotal.WithLabelValues(collection).Add(float64(len(docs)))
	writeJSON(w, h.logger, http.StatusOK, response)

	h.logger.Debug("Pull completed",
		"collection", collection,
		"since_updated_at", cp.UpdatedAt,
		"since_id", cp.ID,
		"documents", len(docs),
		"checkpoint_updated_at", response.Checkpoint.UpdatedAt)
}

// HandlePush обрабатывает POST /{collection}/push
// Применяет batch целиком (last-write-wins) и будит live-слушателей коллекции
func (h *ReplicationHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	collection, ok := h.collection(w, r)
	if !ok {
		return
	}

	var docs []models.Document
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, api.MaxPushBodyBytes)).Decode(&docs); err != nil {
		h.logger.Warn("Failed to decode push request", "error", err, "collection", collection)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "push batch too large: "+err.Error())
			return
		}
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	now := models.FormatTime(h.now())
	deletes := 0
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			h.logger.Warn("Invalid document in push", "error", err, "collection", collection, "index", i)
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		if docs[i].UpdatedAt == "" {
			docs[i].UpdatedAt = now
		} else {
			ts, err := models.NormalizeTime(docs[i].UpdatedAt)
			if err != nil {
				writeError(w, h.logger, http.StatusBadRequest, err.Error())
				return
			}
			docs[i].UpdatedAt = ts
		}
		if docs[i].Deleted {
			deletes++
		}
	}

	received := len(docs)
	docs = models.Coalesce(docs)

	// Запись выполняется до конца даже если клиент отключился
	if err := h.storage.BulkWrite(context.WithoutCancel(r.Context()), collection, docs); err != nil {
		h.metrics.StorageErrorsTotal.WithLabelValues("push").Inc()
		h.metrics.PushBatchesTotal.WithLabelValues(collection, "error").Inc()
		h.logger.Error("Failed to apply push batch", "error", err, "collection", collection, "documents", len(docs))
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	h.metrics.PushBatchesTotal.WithLabelValues(collection, "ok").Inc()
	h.metrics.PushedDocumentsTotal.WithLabelValues(collection, "upsert").Add(float64(received - deletes))
	h.metrics.PushedDocumentsTotal.WithLabelValues(collection, "delete").Add(float64(deletes))

	listeners := h.broadcaster.Broadcast(collection)
	h.metrics.BroadcastsTotal.WithLabelValues(collection).Add(float64(listeners))

	// Конфликты не возвращаются: состояние клиента всегда побеждает
	writeJSON(w, h.logger, http.StatusOK, []models.Document{})

	h.logger.Info("Push completed",
		"collection", collection,
		"received", received,
		"applied", len(docs),
		"deletes", deletes,
		"listeners", listeners)
}
