package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/pkg/api"
)

// DefaultTimeout таймаут обычных запросов
const DefaultTimeout = 30 * time.Second

// DefaultStreamIdleTimeout три пропущенных heartbeat сервера (25s)
const DefaultStreamIdleTimeout = 75 * time.Second

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	// streamClient без таймаута: pullStream держит соединение открытым
	streamClient *http.Client
	baseURL      string
	// streamIdle после этого времени тишины поток считается мертвым
	streamIdle time.Duration
}

// NewClient создает новый API клиент
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		streamClient: &http.Client{},
		streamIdle:   DefaultStreamIdleTimeout,
	}
}

// SetStreamIdleTimeout sets how long pullStream may stay silent before
// Listen gives up. Should exceed the server heartbeat interval; 0 disables.
func (c *Client) SetStreamIdleTimeout(d time.Duration) {
	c.streamIdle = d
}

// Pull запрашивает следующую страницу документов после checkpoint
func (c *Client) Pull(ctx context.Context, collection string, cp models.Checkpoint, batchSize int) (*api.PullResponse, error) {
	query := url.Values{}
	query.Set("updatedAt", cp.UpdatedAt)
	query.Set("id", cp.ID)
	query.Set("batchSize", strconv.Itoa(batchSize))

	var resp api.PullResponse
	path := "/" + url.PathEscape(collection) + "/pull?" + query.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// Push отправляет batch локальных изменений. Возвращает список конфликтов
func (c *Client) Push(ctx context.Context, collection string, docs []models.Document) ([]models.Document, error) {
	if docs == nil {
		docs = []models.Document{}
	}

	var conflicts []models.Document
	path := "/" + url.PathEscape(collection) + "/push"
	if err := c.doRequest(ctx, http.MethodPost, path, docs, &conflicts); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return conflicts, nil
}

// Listen открывает pullStream и вызывает fn для каждого события.
// Блокируется до закрытия потока или отмены ctx; всегда возвращает ошибку.
func (c *Client) Listen(ctx context.Context, collection string, fn func(api.StreamEvent)) error {
	streamCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+"/"+url.PathEscape(collection)+"/pullStream", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: stream request failed: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: stream failed with status %d: %s", ErrProtocol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body io.Reader = resp.Body
	if c.streamIdle > 0 {
		// Полуоткрытое соединение не возвращает ошибку чтения, поэтому
		// молчание дольше streamIdle обрывает запрос
		idle := newIdleReader(resp.Body, c.streamIdle, func() { cancel(ErrStreamIdle) })
		defer idle.stop()
		body = idle
	}

	err = readEvents(body, fn)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(context.Cause(streamCtx), ErrStreamIdle) {
		return fmt.Errorf("%w: no data for %s: %w", ErrTransport, c.streamIdle, ErrStreamIdle)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: stream closed by server", ErrTransport)
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%w: server error (%d): %s", ErrProtocol, resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("%w: request failed with status %d: %s", ErrProtocol, resp.StatusCode, string(respBody))
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", ErrProtocol, err)
		}
	}

	return nil
}
