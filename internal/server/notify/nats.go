package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix prefix of change subjects: docsync.changes.<collection>
const SubjectPrefix = "docsync.changes"

// Conn subset of *nats.Conn used by the bridge
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// clusterSignal сообщение между экземплярами сервера
type clusterSignal struct {
	Origin     string `json:"origin"`
	Collection string `json:"collection"`
}

// Bridge связывает локальный Notifier нескольких экземпляров сервера через NATS:
// push на одном экземпляре будит слушателей, подключенных к другим.
type Bridge struct {
	local  Broadcaster
	conn   Conn
	sub    *nats.Subscription
	logger *slog.Logger
	origin string
}

// NewBridge creates a bridge with a random origin id
func NewBridge(local Broadcaster, conn Conn, logger *slog.Logger) *Bridge {
	return &Bridge{
		local:  local,
		conn:   conn,
		logger: logger,
		origin: uuid.New().String(),
	}
}

// Start subscribes to change subjects of every collection
func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(SubjectPrefix+".>", b.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectPrefix, err)
	}
	b.sub = sub

	b.logger.Info("Cluster change bridge started", "origin", b.origin)
	return nil
}

// Stop unsubscribes from NATS
func (b *Bridge) Stop() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

// Broadcast signals local listeners and publishes the signal to other instances.
// A publish failure is logged only: the live channel is best effort.
func (b *Bridge) Broadcast(collection string) int {
	delivered := b.local.Broadcast(collection)

	data, err := json.Marshal(clusterSignal{Origin: b.origin, Collection: collection})
	if err != nil {
		b.logger.Error("Failed to encode cluster signal", "error", err)
		return delivered
	}

	if err := b.conn.Publish(SubjectPrefix+"."+collection, data); err != nil {
		b.logger.Warn("Failed to publish cluster signal", "collection", collection, "error", err)
	}

	return delivered
}

func (b *Bridge) handle(msg *nats.Msg) {
	var signal clusterSignal
	if err := json.Unmarshal(msg.Data, &signal); err != nil {
		b.logger.Warn("Invalid cluster signal", "subject", msg.Subject, "error", err)
		return
	}

	// Собственные сигналы уже разосланы локально
	if signal.Origin == b.origin || signal.Collection == "" {
		return
	}

	b.local.Broadcast(signal.Collection)
}
