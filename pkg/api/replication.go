package api

import "github.com/iudanet/docsync/internal/models"

// Типы событий live-канала
const (
	EventConnected = "connected"
	EventChange    = "change"
)

// DefaultBatchSize размер страницы pull по умолчанию
const DefaultBatchSize = 50

// MaxPushBodyBytes верхняя граница тела POST /{collection}/push.
// Клиент делит очередь на batch меньше этого размера.
const MaxPushBodyBytes = 16 << 20

// PullResponse ответ GET /{collection}/pull
type PullResponse struct {
	Documents  []models.Document `json:"documents"`
	Checkpoint models.Checkpoint `json:"checkpoint"`
}

// StreamEvent событие GET /{collection}/pullStream.
// Никогда не содержит данных документов: только сигнал об изменении коллекции.
type StreamEvent struct {
	Type       string `json:"type"`
	Collection string `json:"collection,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse ответ GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
	Storage   string `json:"storage,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CollectionStats описывает коллекцию в GET /debug/collections
type CollectionStats struct {
	SampleDocs []models.Document `json:"sampleDocs"`
	Count      int64             `json:"count"`
}
