package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/docsync/pkg/api"
)

// HandleStream обрабатывает GET /{collection}/pullStream
// Держит event stream открытым и пересылает сигналы об изменениях коллекции.
// Первое событие {"type":"connected"} подтверждает подписку.
func (h *ReplicationHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	collection, ok := h.collection(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	// Регистрируемся до подтверждения, чтобы не пропустить сигнал между ними
	listener := h.notifier.Subscribe(collection)
	defer h.notifier.Unsubscribe(listener)

	w.WriteHeader(http.StatusOK)
	if err := writeEvent(w, api.StreamEvent{Type: api.EventConnected}); err != nil {
		h.logger.Debug("Failed to write connected event", "error", err)
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("Streaming unsupported", "error", err)
		return
	}

	h.logger.Info("Stream opened", "collection", collection, "remote_addr", r.RemoteAddr)

	heartbeat := time.NewTicker(h.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		var err error

		select {
		case <-ctx.Done():
			h.logger.Info("Stream closed by client", "collection", collection, "remote_addr", r.RemoteAddr)
			return
		case evt := <-listener.Events():
			err = writeEvent(w, evt)
		case <-heartbeat.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}

		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			// Транспорт закрыт: помечаем слушателя, notifier удалит его
			listener.Close()
			h.logger.Info("Stream write failed", "collection", collection, "error", err)
			return
		}
	}
}

// writeEvent пишет одно SSE событие в формате "data: <json>\n\n"
func writeEvent(w io.Writer, evt api.StreamEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
