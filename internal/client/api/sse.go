package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iudanet/docsync/pkg/api"
)

// maxEventSize ограничивает размер одной строки потока
const maxEventSize = 64 * 1024

// readEvents разбирает text/event-stream: строки "data:" одного события
// объединяются до пустой строки, комментарии ":" (heartbeat) пропускаются.
func readEvents(r io.Reader, fn func(api.StreamEvent)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventSize)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if len(data) == 0 {
				continue
			}
			payload := strings.Join(data, "\n")
			data = data[:0]

			var evt api.StreamEvent
			if err := json.Unmarshal([]byte(payload), &evt); err != nil {
				return fmt.Errorf("%w: malformed stream event %q: %w", ErrProtocol, payload, err)
			}
			fn(evt)
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		// Поля event/id/retry не используются
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: stream read failed: %w", ErrTransport, err)
	}
	return nil
}

// idleReader вызывает onIdle, если Read не получал данных дольше timeout
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func newIdleReader(r io.Reader, timeout time.Duration, onIdle func()) *idleReader {
	return &idleReader{r: r, timeout: timeout, timer: time.AfterFunc(timeout, onIdle)}
}

func (i *idleReader) Read(p []byte) (int, error) {
	n, err := i.r.Read(p)
	if n > 0 {
		i.timer.Reset(i.timeout)
	}
	return n, err
}

func (i *idleReader) stop() {
	i.timer.Stop()
}
