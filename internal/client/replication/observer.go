package replication

import (
	"log/slog"

	"github.com/iudanet/docsync/internal/models"
)

// Observer receives replication events. Calls come from replication
// goroutines and must return quickly.
type Observer interface {
	OnStatus(collection string, status Status)
	OnError(collection string, dir Direction, err error)
	OnReceived(collection string, docs []models.Document)
	OnSent(collection string, docs []models.Document)
}

// LogObserver reports events to slog
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates the default observer
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnStatus(collection string, status Status) {
	o.logger.Info("Replication status changed", "collection", collection, "status", status)
}

func (o *LogObserver) OnError(collection string, dir Direction, err error) {
	o.logger.Warn("Replication failed, will retry", "collection", collection, "direction", dir, "error", err)
}

func (o *LogObserver) OnReceived(collection string, docs []models.Document) {
	o.logger.Debug("Pulled documents", "collection", collection, "count", len(docs))
}

func (o *LogObserver) OnSent(collection string, docs []models.Document) {
	o.logger.Debug("Pushed documents", "collection", collection, "count", len(docs))
}
