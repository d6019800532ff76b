package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/iudanet/docsync/internal/client/api"
	clientstorage "github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/client/replication"
	"github.com/iudanet/docsync/internal/client/storage/boltdb"
	"github.com/iudanet/docsync/internal/config"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage/sqlite"
	"github.com/iudanet/docsync/pkg/api"
)

const testCollection = "customers"

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestServer(t *testing.T) (*httptest.Server, *sqlite.Storage) {
	t.Helper()
	return setupTestServerWithConfig(t, config.DefaultServer())
}

func setupTestServerWithConfig(t *testing.T, cfg *config.ServerConfig) (*httptest.Server, *sqlite.Storage) {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := New(setupTestLogger(), cfg, Options{Store: store, Version: "test"})
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

// replica локальная база клиента и ее репликатор
type replica struct {
	store      *boltdb.Storage
	replicator *replication.Replicator
}

func newReplica(t *testing.T, baseURL, name string, live bool) *replica {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), name+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts := replication.Options{
		BatchSize:     50,
		RetryInterval: 50 * time.Millisecond,
		Live:          live,
	}
	r := replication.New(testCollection, clientapi.NewClient(baseURL, 5*time.Second), store, setupTestLogger(), opts)
	return &replica{store: store, replicator: r}
}

func TestServer_LiveReplicationBetweenClients(t *testing.T) {
	ts, _ := setupTestServer(t)
	ctx := context.Background()

	a := newReplica(t, ts.URL, "a", true)
	b := newReplica(t, ts.URL, "b", true)

	require.NoError(t, a.replicator.Start(ctx))
	defer a.replicator.Stop()
	require.NoError(t, b.replicator.Start(ctx))
	defer b.replicator.Stop()

	require.Eventually(t, func() bool {
		return b.replicator.State().Status == replication.StatusReplicating
	}, 5*time.Second, 20*time.Millisecond)

	_, err := a.store.Put(ctx, testCollection, models.Document{ID: "b1", Fields: map[string]any{"name": "Acme"}})
	require.NoError(t, err)

	// B узнает о записи A через pullStream и забирает ее pull-ом
	require.Eventually(t, func() bool {
		doc, err := b.store.Get(ctx, testCollection, "b1")
		return err == nil && doc.Fields["name"] == "Acme"
	}, 5*time.Second, 20*time.Millisecond)

	// Удаление распространяется tombstone-ом
	_, err = b.store.Delete(ctx, testCollection, "b1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := a.store.Get(ctx, testCollection, "b1")
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)

	_, err = a.store.Get(ctx, testCollection, "b1")
	assert.ErrorIs(t, err, clientstorage.ErrDocumentNotFound)
}

func TestServer_SyncOnceRoundTrip(t *testing.T) {
	ts, store := setupTestServer(t)
	ctx := context.Background()

	a := newReplica(t, ts.URL, "a", false)
	b := newReplica(t, ts.URL, "b", false)

	for _, name := range []string{"Acme", "Globex", "Initech"} {
		_, err := a.store.Put(ctx, testCollection, models.Document{Fields: map[string]any{"name": name}})
		require.NoError(t, err)
	}

	result, err := a.replicator.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Pushed)
	assert.Equal(t, 3, result.Pulled)

	result, err = b.replicator.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Pushed)
	assert.Equal(t, 3, result.Pulled)

	listA, err := a.store.List(ctx, testCollection)
	require.NoError(t, err)
	listB, err := b.store.List(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, listA, listB)

	// Повторная синхронизация ничего не приносит
	result, err = b.replicator.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Pulled)

	stored, err := store.Get(ctx, testCollection, listA[0].ID)
	require.NoError(t, err)
	assert.Equal(t, listA[0].Fields["name"], stored.Fields["name"])
}

func TestServer_PullOverHTTP(t *testing.T) {
	ts, store := setupTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.BulkWrite(ctx, testCollection, []models.Document{
		{ID: "a", UpdatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "b", UpdatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "c", UpdatedAt: "2024-01-02T00:00:00.000Z", Deleted: true},
	}))

	client := clientapi.NewClient(ts.URL, 5*time.Second)

	resp, err := client.Pull(ctx, testCollection, models.Checkpoint{}, 2)
	require.NoError(t, err)
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, models.Checkpoint{UpdatedAt: "2024-01-01T00:00:00.000Z", ID: "b"}, resp.Checkpoint)

	resp, err = client.Pull(ctx, testCollection, resp.Checkpoint, 2)
	require.NoError(t, err)
	require.Len(t, resp.Documents, 1)
	assert.True(t, resp.Documents[0].Deleted)

	// Пустой ответ возвращает checkpoint запроса
	last := resp.Checkpoint
	resp, err = client.Pull(ctx, testCollection, last, 2)
	require.NoError(t, err)
	assert.Empty(t, resp.Documents)
	assert.Equal(t, last, resp.Checkpoint)
}

func TestServer_MixedTimestampFormatsStayOrdered(t *testing.T) {
	ts, _ := setupTestServer(t)
	ctx := context.Background()

	client := clientapi.NewClient(ts.URL, 5*time.Second)
	b := newReplica(t, ts.URL, "b", false)

	tests := []struct {
		firstID, first   string
		secondID, second string
	}{
		{firstID: "a", first: "2024-01-01T00:00:00Z", secondID: "c", second: "2024-01-01T00:00:00.500Z"},
		{firstID: "d", first: "2024-01-02T09:00:00+09:00", secondID: "e", second: "2024-01-02T01:00:00.000Z"},
	}

	for _, tt := range tests {
		_, err := client.Push(ctx, testCollection, []models.Document{{ID: tt.firstID, UpdatedAt: tt.first}})
		require.NoError(t, err)
		_, err = b.replicator.SyncOnce(ctx)
		require.NoError(t, err)

		// Хронологически более поздняя запись в другом формате не теряется
		_, err = client.Push(ctx, testCollection, []models.Document{{ID: tt.secondID, UpdatedAt: tt.second}})
		require.NoError(t, err)
		result, err := b.replicator.SyncOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Pulled)

		_, err = b.store.Get(ctx, testCollection, tt.secondID)
		require.NoError(t, err)
	}
}

func TestServer_PushSignalsStream(t *testing.T) {
	ts, _ := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := clientapi.NewClient(ts.URL, 5*time.Second)

	events := make(chan api.StreamEvent, 8)
	done := make(chan error, 1)
	go func() {
		done <- client.Listen(ctx, testCollection, func(evt api.StreamEvent) { events <- evt })
	}()

	select {
	case evt := <-events:
		assert.Equal(t, api.EventConnected, evt.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no connected event")
	}

	_, err := client.Push(ctx, testCollection, []models.Document{{ID: "x", Fields: map[string]any{"n": 1.0}}})
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, api.EventChange, evt.Type)
		assert.Equal(t, testCollection, evt.Collection)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not return")
	}
}

func TestServer_ServiceRoutes(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)

	// Запрос к коллекции учитывается в метриках по шаблону маршрута
	pull, err := http.Get(ts.URL + "/customers/pull")
	require.NoError(t, err)
	_ = pull.Body.Close()
	assert.Equal(t, http.StatusOK, pull.StatusCode)
	assert.Equal(t, "*", pull.Header.Get("Access-Control-Allow-Origin"))

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()

	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "docsync_http_requests_total")
	assert.Contains(t, string(body), "docsync_stream_listeners")
	assert.Contains(t, string(body), `/{collection}/pull`)

	invalid, err := http.Get(ts.URL + "/bad%20name/pull")
	require.NoError(t, err)
	_ = invalid.Body.Close()
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode)
}

func TestServer_PushRateLimit(t *testing.T) {
	cfg := config.DefaultServer()
	cfg.Replication.PushRateLimit = 2
	ts, _ := setupTestServerWithConfig(t, cfg)

	push := func() int {
		resp, err := http.Post(ts.URL+"/customers/push", "application/json", strings.NewReader(`[{"id":"a"}]`))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, push())
	assert.Equal(t, http.StatusOK, push())
	assert.Equal(t, http.StatusTooManyRequests, push())

	// Чтение не ограничивается
	resp, err := http.Get(ts.URL + "/customers/pull")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ServeShutsDown(t *testing.T) {
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	cfg := config.DefaultServer()
	cfg.HTTP.ShutdownTimeout = time.Second
	srv := New(setupTestLogger(), cfg, Options{Store: store})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
