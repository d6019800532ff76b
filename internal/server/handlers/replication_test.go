package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/metrics"
	"github.com/iudanet/docsync/internal/server/notify"
	"github.com/iudanet/docsync/pkg/api"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupReplicationHandler(store DocumentStorage) (*ReplicationHandler, *notify.Notifier) {
	logger := setupTestLogger()
	notifier := notify.New(logger)
	h := NewReplicationHandler(logger, store, notifier, nil, metrics.New(), DefaultOptions())
	h.now = func() time.Time { return fixedNow }
	return h, notifier
}

func newCollectionRequest(method, collection, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.SetPathValue("collection", collection)
	return req
}

func TestReplicationHandler_HandlePull_Success(t *testing.T) {
	docs := []models.Document{
		{ID: "a", UpdatedAt: "2024-01-01T00:00:00.000Z", Fields: map[string]any{"name": "Acme"}},
		{ID: "b", UpdatedAt: "2024-01-02T00:00:00.000Z", Deleted: true},
	}
	store := &DocumentStorageMock{
		PullFunc: func(ctx context.Context, collection string, cp models.Checkpoint, limit int) ([]models.Document, error) {
			return docs, nil
		},
	}
	h, _ := setupReplicationHandler(store)

	req := newCollectionRequest(http.MethodGet, "customers",
		"/customers/pull?updatedAt=2023-12-31T00:00:00.000Z&id=z", "")
	w := httptest.NewRecorder()

	h.HandlePull(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	calls := store.PullCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "customers", calls[0].Collection)
	assert.Equal(t, models.Checkpoint{UpdatedAt: "2023-12-31T00:00:00.000Z", ID: "z"}, calls[0].Cp)
	assert.Equal(t, api.DefaultBatchSize, calls[0].Limit)

	var resp api.PullResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, "Acme", resp.Documents[0].Fields["name"])
	assert.True(t, resp.Documents[1].Deleted)
	assert.Equal(t, models.Checkpoint{UpdatedAt: "2024-01-02T00:00:00.000Z", ID: "b"}, resp.Checkpoint)
}

func TestReplicationHandler_HandlePull_EmptyKeepsCheckpoint(t *testing.T) {
	store := &DocumentStorageMock{
		PullFunc: func(context.Context, string, models.Checkpoint, int) ([]models.Document, error) {
			return nil, nil
		},
	}
	h, _ := setupReplicationHandler(store)

	req := newCollectionRequest(http.MethodGet, "customers",
		"/customers/pull?updatedAt=2024-01-02T00:00:00.000Z&id=b", "")
	w := httptest.NewRecorder()

	h.HandlePull(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"documents":[],"checkpoint":{"updatedAt":"2024-01-02T00:00:00.000Z","id":"b"}}`,
		w.Body.String())
}

func TestReplicationHandler_HandlePull_FromStart(t *testing.T) {
	store := &DocumentStorageMock{
		PullFunc: func(context.Context, string, models.Checkpoint, int) ([]models.Document, error) {
			return []models.Document{}, nil
		},
	}
	h, _ := setupReplicationHandler(store)

	req := newCollectionRequest(http.MethodGet, "customers", "/customers/pull", "")
	w := httptest.NewRecorder()

	h.HandlePull(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.PullCalls(), 1)
	assert.True(t, store.PullCalls()[0].Cp.IsZero())
	assert.JSONEq(t, `{"documents":[],"checkpoint":{"updatedAt":"","id":""}}`, w.Body.String())
}

func TestReplicationHandler_HandlePull_BatchSize(t *testing.T) {
	tests := []struct {
		name       string
		batchSize  string
		wantLimit  int
		wantStatus int
	}{
		{name: "explicit", batchSize: "10", wantLimit: 10, wantStatus: http.StatusOK},
		{name: "clamped to max", batchSize: "5000", wantLimit: 1000, wantStatus: http.StatusOK},
		{name: "clamped to one", batchSize: "0", wantLimit: 1, wantStatus: http.StatusOK},
		{name: "negative", batchSize: "-3", wantLimit: 1, wantStatus: http.StatusOK},
		{name: "not a number", batchSize: "abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &DocumentStorageMock{
				PullFunc: func(context.Context, string, models.Checkpoint, int) ([]models.Document, error) {
					return nil, nil
				},
			}
			h, _ := setupReplicationHandler(store)

			req := newCollectionRequest(http.MethodGet, "customers", "/customers/pull?batchSize="+tt.batchSize, "")
			w := httptest.NewRecorder()

			h.HandlePull(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, store.PullCalls())
				return
			}
			require.Len(t, store.PullCalls(), 1)
			assert.Equal(t, tt.wantLimit, store.PullCalls()[0].Limit)
		})
	}
}

func TestReplicationHandler_HandlePull_InvalidCollection(t *testing.T) {
	store := &DocumentStorageMock{}
	h, _ := setupReplicationHandler(store)

	for _, name := range []string{"", "bad name", "health", strings.Repeat("x", 65)} {
		req := newCollectionRequest(http.MethodGet, name, "/x/pull", "")
		w := httptest.NewRecorder()

		h.HandlePull(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "collection %q", name)
	}
	assert.Empty(t, store.PullCalls())
}

func TestReplicationHandler_HandlePull_StorageError(t *testing.T) {
	store := &DocumentStorageMock{
		PullFunc: func(context.Context, string, models.Checkpoint, int) ([]models.Document, error) {
			return nil, errors.New("database is locked")
		},
	}
	h, _ := setupReplicationHandler(store)

	req := newCollectionRequest(http.MethodGet, "customers", "/customers/pull", "")
	w := httptest.NewRecorder()

	h.HandlePull(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"database is locked"}`, w.Body.String())
}

func TestReplicationHandler_HandlePush_Success(t *testing.T) {
	store := &DocumentStorageMock{
		BulkWriteFunc: func(context.Context, string, []models.Document) error {
			return nil
		},
	}
	h, notifier := setupReplicationHandler(store)

	listener := notifier.Subscribe("customers")
	other := notifier.Subscribe("orders")

	body := `[
		{"id":"b1","name":"Old","updatedAt":"2024-01-01T00:00:00.000Z"},
		{"id":"b2","name":"NoTime"},
		{"newDocumentState":{"id":"b1","name":"Acme","updatedAt":"2024-01-01T00:00:01.000Z","_rev":"1-x"}},
		{"id":"b3","updatedAt":"2024-01-01T00:00:02.000Z","_deleted":true}
	]`
	req := newCollectionRequest(http.MethodPost, "customers", "/customers/push", body)
	w := httptest.NewRecorder()

	h.HandlePush(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	calls := store.BulkWriteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "customers", calls[0].Collection)

	written := calls[0].Docs
	require.Len(t, written, 3)

	assert.Equal(t, "b2", written[0].ID)
	assert.Equal(t, "2024-03-01T12:00:00.000Z", written[0].UpdatedAt)

	assert.Equal(t, "b1", written[1].ID)
	assert.Equal(t, "Acme", written[1].Fields["name"])
	assert.NotContains(t, written[1].Fields, "_rev")

	assert.Equal(t, "b3", written[2].ID)
	assert.True(t, written[2].Deleted)

	select {
	case evt := <-listener.Events():
		assert.Equal(t, api.EventChange, evt.Type)
		assert.Equal(t, "customers", evt.Collection)
	default:
		t.Fatal("expected change signal for customers listener")
	}

	select {
	case <-other.Events():
		t.Fatal("listener of another collection must not be signalled")
	default:
	}
}

func TestReplicationHandler_HandlePush_EmptyBatch(t *testing.T) {
	store := &DocumentStorageMock{
		BulkWriteFunc: func(context.Context, string, []models.Document) error {
			return nil
		},
	}
	h, notifier := setupReplicationHandler(store)
	listener := notifier.Subscribe("customers")

	req := newCollectionRequest(http.MethodPost, "customers", "/customers/push", `[]`)
	w := httptest.NewRecorder()

	h.HandlePush(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	select {
	case <-listener.Events():
	default:
		t.Fatal("empty push still signals listeners")
	}
}

func TestReplicationHandler_HandlePush_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "not an array", body: `{"id":"a"}`},
		{name: "missing id", body: `[{"name":"x"}]`},
		{name: "invalid updatedAt", body: `[{"id":"a","updatedAt":"yesterday"}]`},
		{name: "non-object element", body: `[42]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &DocumentStorageMock{}
			h, notifier := setupReplicationHandler(store)
			listener := notifier.Subscribe("customers")

			req := newCollectionRequest(http.MethodPost, "customers", "/customers/push", tt.body)
			w := httptest.NewRecorder()

			h.HandlePush(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, store.BulkWriteCalls())

			select {
			case <-listener.Events():
				t.Fatal("rejected push must not signal listeners")
			default:
			}
		})
	}
}

func TestReplicationHandler_HandlePush_NormalizesUpdatedAt(t *testing.T) {
	store := &DocumentStorageMock{
		BulkWriteFunc: func(context.Context, string, []models.Document) error {
			return nil
		},
	}
	h, _ := setupReplicationHandler(store)

	body := `[
		{"id":"a","updatedAt":"2024-01-01T00:00:00Z"},
		{"id":"b","updatedAt":"2024-01-01T09:00:00.5+09:00"},
		{"id":"c","updatedAt":"2024-01-01T00:00:00.123456Z","deleted":true}
	]`
	req := newCollectionRequest(http.MethodPost, "customers", "/customers/push", body)
	w := httptest.NewRecorder()

	h.HandlePush(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	calls := store.BulkWriteCalls()
	require.Len(t, calls, 1)

	got := make(map[string]string)
	for _, d := range calls[0].Docs {
		got[d.ID] = d.UpdatedAt
	}
	assert.Equal(t, map[string]string{
		"a": "2024-01-01T00:00:00.000Z",
		"b": "2024-01-01T00:00:00.500Z",
		"c": "2024-01-01T00:00:00.123Z",
	}, got)
}

func TestReplicationHandler_HandlePush_BodyTooLarge(t *testing.T) {
	store := &DocumentStorageMock{}
	h, notifier := setupReplicationHandler(store)
	listener := notifier.Subscribe("customers")

	body := `[{"id":"a","blob":"` + strings.Repeat("x", api.MaxPushBodyBytes) + `"}]`
	req := newCollectionRequest(http.MethodPost, "customers", "/customers/push", body)
	w := httptest.NewRecorder()

	h.HandlePush(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, store.BulkWriteCalls())

	select {
	case <-listener.Events():
		t.Fatal("rejected push must not signal listeners")
	default:
	}
}

func TestReplicationHandler_HandlePush_StorageError(t *testing.T) {
	store := &DocumentStorageMock{
		BulkWriteFunc: func(context.Context, string, []models.Document) error {
			return errors.New("disk full")
		},
	}
	h, notifier := setupReplicationHandler(store)
	listener := notifier.Subscribe("customers")

	req := newCollectionRequest(http.MethodPost, "customers", "/customers/push",
		`[{"id":"a","updatedAt":"2024-01-01T00:00:00.000Z"}]`)
	w := httptest.NewRecorder()

	h.HandlePush(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"disk full"}`, w.Body.String())

	select {
	case <-listener.Events():
		t.Fatal("failed push must not signal listeners")
	default:
	}
}

func TestReplicationHandler_HandlePush_WriteSurvivesCancel(t *testing.T) {
	var writeCtxErr error
	store := &DocumentStorageMock{
		BulkWriteFunc: func(ctx context.Context, _ string, _ []models.Document) error {
			writeCtxErr = ctx.Err()
			return nil
		},
	}
	h, _ := setupReplicationHandler(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := newCollectionRequest(http.MethodPost, "customers", "/customers/push",
		`[{"id":"a","updatedAt":"2024-01-01T00:00:00.000Z"}]`).WithContext(ctx)
	req.SetPathValue("collection", "customers")
	w := httptest.NewRecorder()

	h.HandlePush(w, req)

	require.Len(t, store.BulkWriteCalls(), 1)
	assert.NoError(t, writeCtxErr)
}

// readEvent читает одно SSE сообщение (строки до пустой)
func readEvent(t *testing.T, r *bufio.Reader) []string {
	t.Helper()

	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func startStreamServer(t *testing.T, heartbeat time.Duration) (*httptest.Server, *notify.Notifier) {
	t.Helper()

	logger := setupTestLogger()
	notifier := notify.New(logger)
	opts := DefaultOptions()
	opts.HeartbeatInterval = heartbeat
	h := NewReplicationHandler(logger, &DocumentStorageMock{}, notifier, nil, metrics.New(), opts)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{collection}/pullStream", h.HandleStream)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, notifier
}

func openStream(t *testing.T, ctx context.Context, url string) *bufio.Reader {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	return bufio.NewReader(resp.Body)
}

func TestReplicationHandler_HandleStream(t *testing.T) {
	srv, notifier := startStreamServer(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := openStream(t, ctx, srv.URL+"/customers/pullStream")

	assert.Equal(t, []string{`data: {"type":"connected"}`}, readEvent(t, reader))
	assert.Equal(t, 1, notifier.Listeners("customers"))

	// Сигнал другой коллекции не доходит до этого потока
	assert.Equal(t, 0, notifier.Broadcast("orders"))
	assert.Equal(t, 1, notifier.Broadcast("customers"))

	lines := readEvent(t, reader)
	require.Len(t, lines, 1)
	require.True(t, strings.HasPrefix(lines[0], "data: "))

	var evt api.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[0], "data: ")), &evt))
	assert.Equal(t, api.EventChange, evt.Type)
	assert.Equal(t, "customers", evt.Collection)

	cancel()

	assert.Eventually(t, func() bool {
		return notifier.Listeners("customers") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReplicationHandler_HandleStream_Heartbeat(t *testing.T) {
	srv, _ := startStreamServer(t, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := openStream(t, ctx, srv.URL+"/customers/pullStream")

	assert.Equal(t, []string{`data: {"type":"connected"}`}, readEvent(t, reader))
	assert.Equal(t, []string{": ping"}, readEvent(t, reader))
}

func TestReplicationHandler_HandleStream_InvalidCollection(t *testing.T) {
	h, notifier := setupReplicationHandler(&DocumentStorageMock{})

	req := newCollectionRequest(http.MethodGet, "no spaces", "/x/pullStream", "")
	w := httptest.NewRecorder()

	h.HandleStream(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, notifier.Total())
}
