// Package replication keeps a local collection converged with the sync server.
//
// A Replicator runs two independent single-flight loops per collection:
// pull (IDLE → PULLING → APPLYING → IDLE) and push (IDLE → PUSHING → IDLE).
// Change signals from the live stream, local edits, the poll timer and the
// retry timer only wake the loops; correctness rests on the explicit pull.
package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	clientapi "github.com/iudanet/docsync/internal/client/api"
	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/pkg/api"
)

//go:generate moq -out clientapi_mock.go . ClientAPI

// ClientAPI определяет операции сервера, нужные репликации
type ClientAPI interface {
	Pull(ctx context.Context, collection string, cp models.Checkpoint, batchSize int) (*api.PullResponse, error)
	Push(ctx context.Context, collection string, docs []models.Document) ([]models.Document, error)
	Listen(ctx context.Context, collection string, fn func(api.StreamEvent)) error
}

// Options tunes a replicator
type Options struct {
	BatchSize     int
	RetryInterval time.Duration
	// PollInterval периодический pull на случай потерянных сигналов; 0 отключает
	PollInterval time.Duration
	// MaxPushBytes ограничивает тело одного push; 0 означает половину серверного лимита
	MaxPushBytes int
	// Live подписка на pullStream
	Live bool
}

const defaultMaxPushBytes = api.MaxPushBodyBytes / 2

// DefaultOptions returns the client defaults
func DefaultOptions() Options {
	return Options{
		BatchSize:     api.DefaultBatchSize,
		RetryInterval: 5 * time.Second,
		PollInterval:  60 * time.Second,
		MaxPushBytes:  defaultMaxPushBytes,
		Live:          true,
	}
}

// Replicator replicates one collection
type Replicator struct {
	api         ClientAPI
	store       storage.DocumentStore
	checkpoints storage.CheckpointStore
	observer    Observer
	logger      *slog.Logger

	// Буфер 1: повторные запросы сливаются, пока цикл занят
	pullReq chan struct{}
	pushReq chan struct{}

	cancel      context.CancelFunc
	unsubscribe func()

	collection string
	state      State
	opts       Options
	wg         sync.WaitGroup

	mu      sync.Mutex
	pullMu  sync.Mutex
	pushMu  sync.Mutex
	running bool
	loaded  bool
}

// New creates a replicator. If store also implements storage.CheckpointStore
// the checkpoint survives restarts.
func New(collection string, client ClientAPI, store storage.DocumentStore, logger *slog.Logger, opts Options) *Replicator {
	defaults := DefaultOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaults.RetryInterval
	}

	r := &Replicator{
		api:        client,
		store:      store,
		observer:   NewLogObserver(logger),
		logger:     logger.With("collection", collection),
		pullReq:    make(chan struct{}, 1),
		pushReq:    make(chan struct{}, 1),
		collection: collection,
		opts:       opts,
		state: State{
			Collection: collection,
			PullPhase:  PhaseIdle,
			PushPhase:  PhaseIdle,
			Status:     StatusConnecting,
		},
	}
	if cs, ok := store.(storage.CheckpointStore); ok {
		r.checkpoints = cs
	}
	return r
}

// SetObserver replaces the default slog observer. Call before Start.
func (r *Replicator) SetObserver(o Observer) {
	r.observer = o
}

// Collection returns the replicated collection name
func (r *Replicator) Collection() string {
	return r.collection
}

// State returns a snapshot of the replication state
func (r *Replicator) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start launches the pull, push and live loops. They run until ctx is
// cancelled or Stop is called.
func (r *Replicator) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.running = true
	r.state.PullPhase = PhaseIdle
	r.state.PushPhase = PhaseIdle
	r.mu.Unlock()

	if err := r.loadCheckpoint(ctx); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	unsubscribe := r.store.Subscribe(r.collection, r.onLocalChange)

	r.mu.Lock()
	r.cancel = cancel
	r.unsubscribe = unsubscribe
	r.mu.Unlock()

	r.wg.Add(2)
	go r.pullLoop(ctx)
	go r.pushLoop(ctx)

	if r.opts.Live {
		r.wg.Add(1)
		go r.streamLoop(ctx)
	}

	// Начальный цикл: догоняем сервер и отправляем то, что накопилось офлайн
	r.requestPull()
	r.requestPush()

	r.logger.Info("Replication started", "checkpoint_updated_at", r.State().Checkpoint.UpdatedAt, "live", r.opts.Live)
	return nil
}

// Stop cancels the loops, releases the live subscription and waits for
// in-flight cycles to be abandoned.
func (r *Replicator) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, unsubscribe := r.cancel, r.unsubscribe
	r.mu.Unlock()

	cancel()
	unsubscribe()
	r.wg.Wait()

	r.mu.Lock()
	r.running = false
	r.state.PullPhase = PhaseStopped
	r.state.PushPhase = PhaseStopped
	r.mu.Unlock()

	r.logger.Info("Replication stopped")
}

// SyncOnce pushes everything pending, then pulls until caught up.
// Pull runs even when push fails, so remote changes still arrive.
func (r *Replicator) SyncOnce(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	if err := r.loadCheckpoint(ctx); err != nil {
		return result, err
	}

	pushed, pushErr := r.push(ctx)
	result.Pushed = pushed
	if pushErr != nil {
		pushErr = fmt.Errorf("push failed: %w", pushErr)
	}

	pulled, pullErr := r.pull(ctx)
	result.Pulled = pulled
	if pullErr != nil {
		r.fail(DirectionPull, pullErr)
		pullErr = fmt.Errorf("pull failed: %w", pullErr)
	}

	// Ошибка push фиксируется последней, чтобы успешный pull не скрыл ее в статусе
	if pushErr != nil {
		r.fail(DirectionPush, pushErr)
	}

	return result, errors.Join(pushErr, pullErr)
}

// loadCheckpoint восстанавливает checkpoint один раз за время жизни
func (r *Replicator) loadCheckpoint(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded || r.checkpoints == nil {
		return nil
	}

	cp, err := r.checkpoints.LoadCheckpoint(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	r.state.Checkpoint = cp
	r.loaded = true
	return nil
}

func (r *Replicator) requestPull() {
	select {
	case r.pullReq <- struct{}{}:
	default:
	}
}

func (r *Replicator) requestPush() {
	select {
	case r.pushReq <- struct{}{}:
	default:
	}
}

// onLocalChange hook локального хранилища. Применение pull не отправляется обратно.
func (r *Replicator) onLocalChange(c storage.Change) {
	if c.Origin == storage.OriginLocal {
		r.requestPush()
	}
}

// onStreamEvent сигнал live-канала только будит pull
func (r *Replicator) onStreamEvent(evt api.StreamEvent) {
	switch evt.Type {
	case api.EventConnected:
		r.logger.Debug("Live stream connected")
		r.setStatus(StatusReplicating)
		// Сигналы, пропущенные во время разрыва, восстанавливаются этим pull
		r.requestPull()
	case api.EventChange:
		r.requestPull()
	default:
		r.logger.Debug("Ignoring unknown stream event", "type", evt.Type)
	}
}

func (r *Replicator) pullLoop(ctx context.Context) {
	defer r.wg.Done()

	var poll <-chan time.Time
	if r.opts.PollInterval > 0 {
		ticker := time.NewTicker(r.opts.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	retry := backoff.NewConstantBackOff(r.opts.RetryInterval)
	var retryC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.pullReq:
		case <-poll:
		case <-retryC:
		}
		retryC = nil

		if _, err := r.pull(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.fail(DirectionPull, err)
			retryC = time.After(retry.NextBackOff())
		}
	}
}

func (r *Replicator) pushLoop(ctx context.Context) {
	defer r.wg.Done()

	retry := backoff.NewConstantBackOff(r.opts.RetryInterval)
	var retryC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.pushReq:
		case <-retryC:
		}
		retryC = nil

		if _, err := r.push(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.fail(DirectionPush, err)
			retryC = time.After(retry.NextBackOff())
		}
	}
}

func (r *Replicator) streamLoop(ctx context.Context) {
	defer r.wg.Done()

	b := backoff.WithContext(backoff.NewConstantBackOff(r.opts.RetryInterval), ctx)

	_ = backoff.RetryNotify(func() error {
		err := r.api.Listen(ctx, r.collection, r.onStreamEvent)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = fmt.Errorf("%w: stream ended", clientapi.ErrTransport)
		}
		return err
	}, b, func(err error, next time.Duration) {
		r.fail(DirectionStream, err)
		r.logger.Debug("Reconnecting live stream", "in", next)
	})
}

// pull запрашивает batch за batch, пока сервер не вернет пустой результат
func (r *Replicator) pull(ctx context.Context) (int, error) {
	r.pullMu.Lock()
	defer r.pullMu.Unlock()
	defer r.setPullPhase(PhaseIdle)

	total := 0
	for {
		cp := r.State().Checkpoint

		r.setPullPhase(PhasePulling)
		resp, err := r.api.Pull(ctx, r.collection, cp, r.opts.BatchSize)
		if err != nil {
			return total, err
		}

		if len(resp.Documents) == 0 {
			// Догнали сервер
			r.setStatus(StatusReplicating)
			return total, nil
		}

		if !cp.Less(resp.Checkpoint) {
			return total, fmt.Errorf("%w: %s returned %d documents at %s/%s",
				ErrCheckpointStalled, r.collection, len(resp.Documents), cp.UpdatedAt, cp.ID)
		}

		r.setPullPhase(PhaseApplying)
		if err := r.store.ApplyRemote(ctx, r.collection, resp.Documents); err != nil {
			return total, fmt.Errorf("failed to apply pulled batch: %w", err)
		}

		// Повторный pull того же batch безопасен, поэтому checkpoint сохраняется после применения
		if r.checkpoints != nil {
			if err := r.checkpoints.SaveCheckpoint(ctx, r.collection, resp.Checkpoint); err != nil {
				return total, fmt.Errorf("failed to save checkpoint: %w", err)
			}
		}

		r.mu.Lock()
		r.state.Checkpoint = resp.Checkpoint
		r.state.Pulled += len(resp.Documents)
		r.mu.Unlock()

		total += len(resp.Documents)
		r.observer.OnReceived(r.collection, resp.Documents)
	}
}

// push отправляет очередь batch-ами не больше MaxPushBytes.
// Каждый batch подтверждается отдельно: уже принятые сервером правки
// не отправляются повторно после сбоя на следующем batch.
func (r *Replicator) push(ctx context.Context) (int, error) {
	r.pushMu.Lock()
	defer r.pushMu.Unlock()

	pending, err := r.store.Pending(ctx, r.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to read push queue: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	batches, err := splitPending(pending, r.maxPushBytes())
	if err != nil {
		return 0, err
	}

	r.setPushPhase(PhasePushing)
	defer r.setPushPhase(PhaseIdle)

	total := 0
	for _, batch := range batches {
		docs := make([]models.Document, len(batch))
		for i, p := range batch {
			docs[i] = p.Document
		}

		conflicts, err := r.api.Push(ctx, r.collection, docs)
		if err != nil {
			// Неподтвержденные batch остаются в очереди для повтора
			return total, err
		}
		if len(conflicts) > 0 {
			r.logger.Warn("Server reported conflicts, local state kept", "count", len(conflicts))
		}

		// Правки, пришедшие во время push, остаются в очереди
		if err := r.store.Acknowledge(ctx, r.collection, batch); err != nil {
			return total, fmt.Errorf("failed to acknowledge pushed changes: %w", err)
		}

		r.mu.Lock()
		r.state.Pushed += len(docs)
		r.mu.Unlock()

		total += len(docs)
		r.observer.OnSent(r.collection, docs)
	}

	r.setStatus(StatusReplicating)
	return total, nil
}

func (r *Replicator) maxPushBytes() int {
	if r.opts.MaxPushBytes > 0 {
		return r.opts.MaxPushBytes
	}
	return defaultMaxPushBytes
}

// splitPending делит очередь на batch, JSON-массив каждого не больше limit байт.
// Документ, который сам превышает limit, уходит отдельным batch в конце,
// чтобы его отказ не блокировал остальную очередь.
func splitPending(pending []storage.PendingChange, limit int) ([][]storage.PendingChange, error) {
	var (
		batches   [][]storage.PendingChange
		oversized [][]storage.PendingChange
		current   []storage.PendingChange
		size      = 2 // []
	)

	for _, p := range pending {
		data, err := json.Marshal(p.Document)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", p.Document.ID, err)
		}
		n := len(data)

		if n+2 > limit {
			oversized = append(oversized, []storage.PendingChange{p})
			continue
		}

		extra := n
		if len(current) > 0 {
			extra++ // запятая
		}
		if len(current) > 0 && size+extra > limit {
			batches = append(batches, current)
			current, size, extra = nil, 2, n
		}

		current = append(current, p)
		size += extra
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return append(batches, oversized...), nil
}

func (r *Replicator) setPullPhase(p Phase) {
	r.mu.Lock()
	r.state.PullPhase = p
	r.mu.Unlock()
}

func (r *Replicator) setPushPhase(p Phase) {
	r.mu.Lock()
	r.state.PushPhase = p
	r.mu.Unlock()
}

func (r *Replicator) setStatus(s Status) {
	r.mu.Lock()
	changed := r.state.Status != s
	r.state.Status = s
	r.mu.Unlock()

	if changed {
		r.observer.OnStatus(r.collection, s)
	}
}

// fail сообщает об ошибке наблюдателю; ошибки репликации не фатальны
func (r *Replicator) fail(dir Direction, err error) {
	r.mu.Lock()
	r.state.LastError = err.Error()
	r.mu.Unlock()

	r.setStatus(StatusError)
	r.observer.OnError(r.collection, dir, err)
}
