package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is how long a toast stays visible without interaction.
const DefaultTimeout = 3 * time.Second

// Options describes a toast to show.
type Options struct {
	Title   string
	Message string
	Kind    Kind
	Timeout time.Duration
}

// Toast is a visible notification.
type Toast struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Kind      Kind          `json:"type"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Held      bool          `json:"held"`
	Timeout   time.Duration `json:"-"`
}

// Center keeps the stack of visible toasts. Expiry is evaluated lazily against Now,
// so the center needs no timers of its own.
type Center struct {
	Now            func() time.Time
	DefaultTimeout time.Duration
	// MaxVisible > 0 drops the oldest toasts beyond the limit.
	MaxVisible int

	mu     sync.Mutex
	toasts []Toast
}

// NewCenter constructs a toast center.
func NewCenter(timeout time.Duration) *Center {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Center{DefaultTimeout: timeout, MaxVisible: 5}
}

// Show adds a toast and returns it.
func (c *Center) Show(opts Options) Toast {
	kind := ParseKind(string(opts.Kind))
	title := opts.Title
	if title == "" {
		title = DefaultTitle(kind)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout()
	}
	now := c.now()
	toast := Toast{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   opts.Message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(timeout),
		Timeout:   timeout,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(now)
	c.toasts = append(c.toasts, toast)
	if c.MaxVisible > 0 && len(c.toasts) > c.MaxVisible {
		c.toasts = append([]Toast(nil), c.toasts[len(c.toasts)-c.MaxVisible:]...)
	}
	return toast
}

// Notify implements Notifier.
func (c *Center) Notify(_ context.Context, n Notification) {
	c.Show(Options{Title: n.Title, Message: n.Message, Kind: n.Kind})
}

// Active returns the toasts still visible, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Dismiss removes a toast immediately.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i:i], c.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Hold keeps a toast visible while the pointer rests on it.
func (c *Center) Hold(id string) bool {
	return c.update(id, func(t *Toast, _ time.Time) {
		t.Held = true
	})
}

// Release resumes expiry after Hold with half of the original timeout.
func (c *Center) Release(id string) bool {
	return c.update(id, func(t *Toast, now time.Time) {
		t.Held = false
		t.ExpiresAt = now.Add(t.Timeout / 2)
	})
}

func (c *Center) update(id string, fn func(*Toast, time.Time)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.pruneLocked(now)
	for i := range c.toasts {
		if c.toasts[i].ID == id {
			fn(&c.toasts[i], now)
			return true
		}
	}
	return false
}

func (c *Center) pruneLocked(now time.Time) {
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if t.Held || now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	c.toasts = kept
}

func (c *Center) timeout() time.Duration {
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return DefaultTimeout
}

func (c *Center) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
