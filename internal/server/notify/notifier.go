package notify

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/pkg/api"
)

// Broadcaster рассылает сигнал "коллекция изменилась"
type Broadcaster interface {
	Broadcast(collection string) int
}

// Listener открытый live-канал одного клиента.
// Канал событий буферизован на одно событие: если сигнал уже ожидает
// доставки, следующий сливается с ним.
type Listener struct {
	events     chan api.StreamEvent
	collection string
	closed     atomic.Bool
}

// Events returns the signal channel
func (l *Listener) Events() <-chan api.StreamEvent {
	return l.events
}

// Collection returns the collection the listener is registered for
func (l *Listener) Collection() string {
	return l.collection
}

// Close marks the transport as closed; the notifier prunes it on next broadcast
func (l *Listener) Close() {
	l.closed.Store(true)
}

// Closed reports whether the transport was marked closed
func (l *Listener) Closed() bool {
	return l.closed.Load()
}

// Notifier реестр слушателей по коллекциям.
// Рассылает только сигналы, данные документов через него не передаются.
type Notifier struct {
	listeners map[string]map[*Listener]struct{}
	logger    *slog.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// New creates an empty notifier
func New(logger *slog.Logger) *Notifier {
	return &Notifier{
		listeners: make(map[string]map[*Listener]struct{}),
		logger:    logger,
		now:       time.Now,
	}
}

// Subscribe registers a listener for the collection
func (n *Notifier) Subscribe(collection string) *Listener {
	l := &Listener{
		collection: collection,
		events:     make(chan api.StreamEvent, 1),
	}

	n.mu.Lock()
	set, ok := n.listeners[collection]
	if !ok {
		set = make(map[*Listener]struct{})
		n.listeners[collection] = set
	}
	set[l] = struct{}{}
	total := len(set)
	n.mu.Unlock()

	n.logger.Debug("Listener registered", "collection", collection, "listeners", total)
	return l
}

// Unsubscribe removes the listener
func (n *Notifier) Unsubscribe(l *Listener) {
	l.Close()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.remove(l)
}

// remove must be called with mu held
func (n *Notifier) remove(l *Listener) {
	set, ok := n.listeners[l.collection]
	if !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(n.listeners, l.collection)
	}
}

// Broadcast sends a change signal to every open listener of the collection
// and returns how many listeners were signalled. Listeners with a closed
// transport are pruned. Never blocks.
func (n *Notifier) Broadcast(collection string) int {
	event := api.StreamEvent{
		Type:       api.EventChange,
		Collection: collection,
		Timestamp:  models.FormatTime(n.now()),
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	delivered := 0
	pruned := 0
	for l := range n.listeners[collection] {
		if l.Closed() {
			n.remove(l)
			pruned++
			continue
		}

		select {
		case l.events <- event:
		default:
			// Сигнал уже ожидает доставки, клиент все равно сделает pull
		}
		delivered++
	}

	n.logger.Debug("Change broadcast",
		"collection", collection,
		"listeners", delivered,
		"pruned", pruned)

	return delivered
}

// Listeners returns the number of registered listeners for the collection
func (n *Notifier) Listeners(collection string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.listeners[collection])
}

// Total returns the number of registered listeners across all collections
func (n *Notifier) Total() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	total := 0
	for _, set := range n.listeners {
		total += len(set)
	}
	return total
}
