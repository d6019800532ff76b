// Package clock выдает метки updatedAt для локальных правок.
package clock

import (
	"sync"
	"time"
)

// Clock гибридные часы с точностью до миллисекунды.
// Следует физическому времени, но каждая метка строго больше предыдущей
// и любой учтенной удаленной метки, как счетчик Лампорта.
type Clock struct {
	now  func() time.Time
	last int64 // unix ms последней выданной или учтенной метки
	mu   sync.Mutex
}

// New creates a clock driven by time.Now
func New() *Clock {
	return NewWithSource(time.Now)
}

// NewWithSource creates a clock over a custom time source.
// Используется в тестах.
func NewWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Tick возвращает метку для новой локальной правки
func (c *Clock) Tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return time.UnixMilli(ms).UTC()
}

// Update учитывает удаленную метку: следующий Tick будет позже нее.
// counter = max(local, remote)
func (c *Clock) Update(remote time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ms := remote.UnixMilli(); ms > c.last {
		c.last = ms
	}
}

// Observe parses an updatedAt value and calls Update.
// Returns false if the value cannot be parsed.
func (c *Clock) Observe(updatedAt string) bool {
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return false
	}
	c.Update(t)
	return true
}

// Timestamp возвращает последнюю метку без изменения часов
func (c *Clock) Timestamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return time.UnixMilli(c.last).UTC()
}
