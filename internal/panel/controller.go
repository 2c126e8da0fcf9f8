package panel

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/bezva-storefront/internal/cart"
	"github.com/noah-isme/bezva-storefront/internal/events"
	"github.com/noah-isme/bezva-storefront/internal/notify"
)

// ErrEmptyCart is returned by Checkout when there is nothing to order.
var ErrEmptyCart = errors.New("cart is empty")

// Swipe and spring-back parameters.
const (
	SwipeCloseRatio  = 0.35
	SpringBackEasing = 200 * time.Millisecond
)

// Confirmation and toast texts.
const (
	ClearPrompt     = "Opravdu chcete vyprázdnit košík?"
	msgCleared      = "Košík byl vyprázdněn"
	msgEmptyCart    = "Košík je prázdný"
	msgCheckoutNext = "Pokračujeme k objednávce…"
)

// CheckoutHook hands a non-empty cart to the order flow.
type CheckoutHook interface {
	Checkout(ctx context.Context, snap cart.Snapshot) error
}

// CheckoutFunc adapts a function to CheckoutHook.
type CheckoutFunc func(ctx context.Context, snap cart.Snapshot) error

// Checkout implements CheckoutHook.
func (f CheckoutFunc) Checkout(ctx context.Context, snap cart.Snapshot) error { return f(ctx, snap) }

// Config groups Controller dependencies.
type Config struct {
	Store    *cart.Store
	Host     Host
	Notifier notify.Notifier
	Renderer *Renderer
	Checkout CheckoutHook
	Logger   zerolog.Logger
}

// Controller renders the cart store into the off-canvas panel and drives its dialog
// behaviour: open and close, focus trapping, swipe to close and per-line controls.
// It never keeps its own copy of cart data.
type Controller struct {
	store    *cart.Store
	host     Host
	notifier notify.Notifier
	renderer *Renderer
	checkout CheckoutHook
	logger   zerolog.Logger

	unsubscribe func()

	mu          sync.Mutex
	open        bool
	lastFocused Element
	drag        dragState
}

type dragState struct {
	active bool
	id     int
	startX float64
	deltaX float64
}

// New builds a controller, renders the current state and subscribes to changes.
func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, errors.New("panel: store is required")
	}
	if cfg.Host == nil {
		return nil, errors.New("panel: host is required")
	}
	renderer := cfg.Renderer
	if renderer == nil {
		var err error
		if renderer, err = NewRenderer(); err != nil {
			return nil, err
		}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	c := &Controller{
		store:    cfg.Store,
		host:     cfg.Host,
		notifier: notifier,
		renderer: renderer,
		checkout: cfg.Checkout,
		logger:   cfg.Logger,
	}
	c.Render()
	c.unsubscribe = cfg.Store.Subscribe(c.onChange)
	return c, nil
}

// Detach stops reacting to store changes.
func (c *Controller) Detach() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// IsOpen reports whether the panel is shown.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Open shows the panel, remembers the focused element, locks page scroll and moves
// focus into the dialog. Opening an open panel does nothing.
func (c *Controller) Open() {
	c.mu.Lock()
	if c.open {
		c.mu.Unlock()
		return
	}
	c.open = true
	c.lastFocused = c.host.ActiveElement()
	c.mu.Unlock()

	c.host.SetOpen(true)
	c.host.LockScroll(true)
	if container := c.host.Container(); container != nil {
		container.Focus()
	}
}

// Close hides the panel, unlocks scroll, restores focus and resets any swipe offset.
// Closing a closed panel does nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.open = false
	last := c.lastFocused
	c.lastFocused = nil
	c.drag = dragState{}
	c.mu.Unlock()

	c.host.SetOpen(false)
	c.host.LockScroll(false)
	if last != nil {
		last.Focus()
	}
	c.host.SetOffset(0, 0)
}

// HandleKey applies the dialog keyboard contract. It returns true when the key was
// consumed and the default action must be suppressed.
func (c *Controller) HandleKey(ev KeyEvent) bool {
	if !c.IsOpen() {
		return false
	}
	switch ev.Key {
	case "Escape", "Esc":
		c.Close()
		return true
	case "Tab":
		return c.trapFocus(ev.Shift)
	}
	return false
}

// trapFocus moves focus to the next or previous focusable element, wrapping at both
// ends. The candidate list is recomputed on every press.
func (c *Controller) trapFocus(backward bool) bool {
	var focusable []Element
	for _, el := range c.host.Focusables() {
		if el != nil && !el.Disabled() && el.Visible() {
			focusable = append(focusable, el)
		}
	}
	if len(focusable) == 0 {
		return true
	}
	active := c.host.ActiveElement()
	pos := -1
	for i, el := range focusable {
		if el == active {
			pos = i
			break
		}
	}
	var next int
	switch {
	case pos < 0 && backward:
		next = len(focusable) - 1
	case pos < 0:
		next = 0
	case backward:
		next = (pos - 1 + len(focusable)) % len(focusable)
	default:
		next = (pos + 1) % len(focusable)
	}
	focusable[next].Focus()
	return true
}

// PointerDown starts a swipe on the open panel. Only touch pointers take part.
func (c *Controller) PointerDown(ev PointerEvent) {
	if ev.PointerType != PointerTouch {
		return
	}
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.drag = dragState{active: true, id: ev.ID, startX: ev.X}
	c.mu.Unlock()
	c.host.CapturePointer(ev.ID, true)
}

// PointerMove follows a swipe to the right, bounded by the panel width.
func (c *Controller) PointerMove(ev PointerEvent) {
	c.mu.Lock()
	if !c.drag.active || ev.ID != c.drag.id {
		c.mu.Unlock()
		return
	}
	c.drag.deltaX = ev.X - c.drag.startX
	delta := c.drag.deltaX
	c.mu.Unlock()

	if delta > 0 {
		c.host.SetOffset(min(delta, c.host.Width()), 0)
	}
}

// PointerUp ends a swipe: beyond SwipeCloseRatio of the width the panel closes,
// otherwise it springs back.
func (c *Controller) PointerUp(ev PointerEvent) { c.endDrag(ev) }

// PointerCancel ends a swipe like PointerUp.
func (c *Controller) PointerCancel(ev PointerEvent) { c.endDrag(ev) }

// PointerLeave ends a swipe like PointerUp.
func (c *Controller) PointerLeave(ev PointerEvent) { c.endDrag(ev) }

func (c *Controller) endDrag(ev PointerEvent) {
	c.mu.Lock()
	if !c.drag.active || ev.ID != c.drag.id {
		c.mu.Unlock()
		return
	}
	delta := c.drag.deltaX
	c.drag = dragState{}
	c.mu.Unlock()

	c.host.CapturePointer(ev.ID, false)
	if delta > c.host.Width()*SwipeCloseRatio {
		c.Close()
		return
	}
	c.host.SetOffset(0, SpringBackEasing)
}

// Render redraws the item list, totals and badge from the store.
func (c *Controller) Render() {
	snap := c.store.Snapshot()
	content, err := c.renderer.Content(snap)
	if err != nil {
		c.logger.Error().Err(err).Msg("cart panel render failed")
		return
	}
	c.host.ReplaceContent(content)
	c.renderTotals(snap)
}

func (c *Controller) renderTotals(snap cart.Snapshot) {
	c.host.UpdateTotals(NewTotalsView(snap.Summary, snap.Promo))
	c.host.SetBadge(snap.Count)
}

func (c *Controller) onChange(_ context.Context, ev events.Event) error {
	if !events.IsLineOnly(ev.Topic) {
		c.Render()
		return nil
	}
	snap := c.store.Snapshot()
	if it, ok := snap.Item(ev.Key); ok {
		c.host.UpdateLine(NewLineView(it))
	}
	c.renderTotals(snap)
	return nil
}

// Increment raises a line quantity by one, up to cart.MaxQty.
func (c *Controller) Increment(ctx context.Context, key string) (int, error) {
	it, ok := c.store.Snapshot().Item(key)
	if !ok {
		return 0, cart.ErrNotFound
	}
	return c.setQty(ctx, key, min(cart.MaxQty, it.Qty+1))
}

// Decrement lowers a line quantity by one, down to cart.MinQty.
func (c *Controller) Decrement(ctx context.Context, key string) (int, error) {
	it, ok := c.store.Snapshot().Item(key)
	if !ok {
		return 0, cart.ErrNotFound
	}
	return c.setQty(ctx, key, max(cart.MinQty, it.Qty-1))
}

// InputQty applies a typed quantity. Unparseable or zero input counts as 1; the
// clamped value is returned so the input can be corrected.
func (c *Controller) InputQty(ctx context.Context, key, raw string) (int, error) {
	return c.setQty(ctx, key, cart.ClampQty(ParseQty(raw)))
}

func (c *Controller) setQty(ctx context.Context, key string, qty int) (int, error) {
	it, err := c.store.UpdateQty(ctx, key, qty)
	if err != nil {
		return 0, err
	}
	return it.Qty, nil
}

// Remove deletes a line.
func (c *Controller) Remove(ctx context.Context, key string) error {
	return c.store.Remove(ctx, key)
}

// ApplyPromo forwards a promo code to the store.
func (c *Controller) ApplyPromo(ctx context.Context, code string) error {
	_, err := c.store.ApplyPromo(ctx, code)
	return err
}

// RequestClear empties the cart after the user confirms. It reports whether the cart
// was cleared; an empty cart or a declined prompt changes nothing.
func (c *Controller) RequestClear(ctx context.Context) (bool, error) {
	if c.store.Snapshot().Empty() {
		return false, nil
	}
	if !c.host.Confirm(ctx, ClearPrompt) {
		return false, nil
	}
	if err := c.store.Clear(ctx); err != nil {
		return false, err
	}
	c.notifier.Notify(ctx, notify.Notification{Kind: notify.KindInfo, Message: msgCleared})
	return true, nil
}

// Checkout passes a non-empty cart to the checkout hook.
func (c *Controller) Checkout(ctx context.Context) error {
	snap := c.store.Snapshot()
	if snap.Empty() {
		c.notifier.Notify(ctx, notify.Notification{Kind: notify.KindError, Message: msgEmptyCart})
		return ErrEmptyCart
	}
	if c.checkout != nil {
		if err := c.checkout.Checkout(ctx, snap); err != nil {
			return err
		}
	}
	c.notifier.Notify(ctx, notify.Notification{Kind: notify.KindSuccess, Message: msgCheckoutNext})
	return nil
}

// ParseQty reads the leading integer of raw the way a numeric input is read; anything
// without leading digits, and zero, becomes 1.
func ParseQty(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		if s[0] == '-' {
			return cart.MinQty
		}
		return cart.MaxQty
	}
	if n == 0 {
		return 1
	}
	return n
}
