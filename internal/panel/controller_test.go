package panel_test

import (
	"context"
	"errors"
	"html/template"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bezva-storefront/internal/cart"
	"github.com/noah-isme/bezva-storefront/internal/notify"
	"github.com/noah-isme/bezva-storefront/internal/panel"
	"github.com/noah-isme/bezva-storefront/internal/pricing"
	"github.com/noah-isme/bezva-storefront/internal/storage"
)

type fakeElement struct {
	name     string
	host     *fakeHost
	disabled bool
	hidden   bool
}

func (e *fakeElement) Focus()         { e.host.active = e }
func (e *fakeElement) Disabled() bool { return e.disabled }
func (e *fakeElement) Visible() bool  { return !e.hidden }

type offsetCall struct {
	px         float64
	transition time.Duration
}

type fakeHost struct {
	active     panel.Element
	container  *fakeElement
	focusables []*fakeElement
	width      float64
	confirm    bool
	prompts    []string

	open     bool
	locked   bool
	offsets  []offsetCall
	captured map[int]bool

	contentRenders int
	content        template.HTML
	lineUpdates    []panel.LineView
	totals         panel.TotalsView
	badge          int
}

func newFakeHost() *fakeHost {
	h := &fakeHost{width: 400, captured: map[int]bool{}}
	h.container = &fakeElement{name: "container", host: h}
	for _, name := range []string{"close", "dec", "qty", "inc", "remove", "clear", "checkout"} {
		h.focusables = append(h.focusables, &fakeElement{name: name, host: h})
	}
	return h
}

func (h *fakeHost) element(name string) *fakeElement {
	for _, el := range h.focusables {
		if el.name == name {
			return el
		}
	}
	return nil
}

func (h *fakeHost) ActiveElement() panel.Element { return h.active }
func (h *fakeHost) Container() panel.Element     { return h.container }
func (h *fakeHost) Focusables() []panel.Element {
	out := make([]panel.Element, 0, len(h.focusables))
	for _, el := range h.focusables {
		out = append(out, el)
	}
	return out
}
func (h *fakeHost) SetOpen(open bool)      { h.open = open }
func (h *fakeHost) LockScroll(locked bool) { h.locked = locked }
func (h *fakeHost) Width() float64         { return h.width }
func (h *fakeHost) SetOffset(px float64, d time.Duration) {
	h.offsets = append(h.offsets, offsetCall{px: px, transition: d})
}
func (h *fakeHost) CapturePointer(id int, capture bool) { h.captured[id] = capture }
func (h *fakeHost) Confirm(_ context.Context, message string) bool {
	h.prompts = append(h.prompts, message)
	return h.confirm
}
func (h *fakeHost) ReplaceContent(markup template.HTML) {
	h.contentRenders++
	h.content = markup
}
func (h *fakeHost) UpdateLine(line panel.LineView)       { h.lineUpdates = append(h.lineUpdates, line) }
func (h *fakeHost) UpdateTotals(totals panel.TotalsView) { h.totals = totals }
func (h *fakeHost) SetBadge(count int)                   { h.badge = count }

func (h *fakeHost) lastOffset() offsetCall {
	if len(h.offsets) == 0 {
		return offsetCall{}
	}
	return h.offsets[len(h.offsets)-1]
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (c *captureNotifier) Notify(_ context.Context, n notify.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *captureNotifier) last() notify.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return notify.Notification{}
	}
	return c.sent[len(c.sent)-1]
}

type fixture struct {
	store    *cart.Store
	host     *fakeHost
	ctrl     *panel.Controller
	notifier *captureNotifier
}

func newFixture(t *testing.T, hook panel.CheckoutHook) fixture {
	t.Helper()
	n := &captureNotifier{}
	store, err := cart.NewStore(context.Background(), cart.StoreConfig{Storage: storage.NewMemory(), Notifier: n})
	require.NoError(t, err)
	host := newFakeHost()
	ctrl, err := panel.New(panel.Config{Store: store, Host: host, Notifier: n, Checkout: hook})
	require.NoError(t, err)
	t.Cleanup(ctrl.Detach)
	return fixture{store: store, host: host, ctrl: ctrl, notifier: n}
}

func addBagr(t *testing.T, s *cart.Store, qty int) {
	t.Helper()
	_, err := s.Add(context.Background(), cart.AddRequest{
		ProductID: "1",
		Name:      "BAGR SE SKLUZAVKOU",
		UnitPrice: pricing.Units(8900),
		Qty:       qty,
		Image:     "Image/Bagr.png",
	})
	require.NoError(t, err)
}

func TestOpenCloseAreIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	trigger := &fakeElement{name: "cart-toggle", host: f.host}
	f.host.active = trigger

	f.ctrl.Open()
	require.True(t, f.ctrl.IsOpen())
	require.True(t, f.host.open)
	require.True(t, f.host.locked)
	require.Same(t, f.host.container, f.host.active)

	f.host.active = f.host.element("inc")
	f.ctrl.Open()
	require.Same(t, f.host.element("inc"), f.host.active, "second open must not move focus")

	f.ctrl.Close()
	require.False(t, f.ctrl.IsOpen())
	require.False(t, f.host.open)
	require.False(t, f.host.locked)
	require.Same(t, trigger, f.host.active)
	require.Equal(t, offsetCall{}, f.host.lastOffset())

	offsets := len(f.host.offsets)
	f.ctrl.Close()
	require.Len(t, f.host.offsets, offsets)
}

func TestFocusTrapCycles(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Open()

	require.True(t, f.ctrl.HandleKey(panel.KeyEvent{Key: "Tab"}))
	require.Same(t, f.host.element("close"), f.host.active)

	visited := []string{}
	for i := 0; i < len(f.host.focusables)*2; i++ {
		require.True(t, f.ctrl.HandleKey(panel.KeyEvent{Key: "Tab"}))
		visited = append(visited, f.host.active.(*fakeElement).name)
	}
	require.Equal(t, []string{
		"dec", "qty", "inc", "remove", "clear", "checkout", "close",
		"dec", "qty", "inc", "remove", "clear", "checkout", "close",
	}, visited)

	require.True(t, f.ctrl.HandleKey(panel.KeyEvent{Key: "Tab", Shift: true}))
	require.Same(t, f.host.element("checkout"), f.host.active)
}

func TestFocusTrapSkipsDisabledAndHidden(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Open()
	f.host.element("checkout").disabled = true
	f.host.element("clear").hidden = true

	f.host.active = f.host.element("remove")
	f.ctrl.HandleKey(panel.KeyEvent{Key: "Tab"})
	require.Same(t, f.host.element("close"), f.host.active)

	f.ctrl.HandleKey(panel.KeyEvent{Key: "Tab", Shift: true})
	require.Same(t, f.host.element("remove"), f.host.active)

	f.host.element("clear").hidden = false
	f.ctrl.HandleKey(panel.KeyEvent{Key: "Tab"})
	require.Same(t, f.host.element("clear"), f.host.active)
}

func TestKeysIgnoredWhileClosed(t *testing.T) {
	f := newFixture(t, nil)
	require.False(t, f.ctrl.HandleKey(panel.KeyEvent{Key: "Tab"}))
	require.False(t, f.ctrl.HandleKey(panel.KeyEvent{Key: "Escape"}))
	require.Nil(t, f.host.active)

	f.ctrl.Open()
	require.False(t, f.ctrl.HandleKey(panel.KeyEvent{Key: "Enter"}))
	require.True(t, f.ctrl.HandleKey(panel.KeyEvent{Key: "Escape"}))
	require.False(t, f.ctrl.IsOpen())
}

func TestSwipeToClose(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Open()

	f.ctrl.PointerDown(panel.PointerEvent{PointerType: panel.PointerTouch, X: 10, ID: 7})
	require.True(t, f.host.captured[7])
	f.ctrl.PointerMove(panel.PointerEvent{PointerType: panel.PointerTouch, X: 600, ID: 7})
	require.Equal(t, 400.0, f.host.lastOffset().px)
	f.ctrl.PointerUp(panel.PointerEvent{PointerType: panel.PointerTouch, X: 600, ID: 7})
	require.False(t, f.host.captured[7])
	require.False(t, f.ctrl.IsOpen())
	require.Equal(t, offsetCall{}, f.host.lastOffset())
}

func TestShortSwipeSpringsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Open()

	f.ctrl.PointerDown(panel.PointerEvent{PointerType: panel.PointerTouch, X: 100, ID: 1})
	f.ctrl.PointerMove(panel.PointerEvent{PointerType: panel.PointerTouch, X: 200, ID: 1})
	require.Equal(t, 100.0, f.host.lastOffset().px)
	f.ctrl.PointerCancel(panel.PointerEvent{PointerType: panel.PointerTouch, X: 200, ID: 1})

	require.True(t, f.ctrl.IsOpen())
	require.Equal(t, offsetCall{px: 0, transition: panel.SpringBackEasing}, f.host.lastOffset())

	f.ctrl.PointerDown(panel.PointerEvent{PointerType: panel.PointerTouch, X: 300, ID: 2})
	f.ctrl.PointerMove(panel.PointerEvent{PointerType: panel.PointerTouch, X: 0, ID: 2})
	f.ctrl.PointerLeave(panel.PointerEvent{PointerType: panel.PointerTouch, X: 0, ID: 2})
	require.True(t, f.ctrl.IsOpen(), "leftward drags never close")
}

func TestMouseDragIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Open()
	before := len(f.host.offsets)

	f.ctrl.PointerDown(panel.PointerEvent{PointerType: panel.PointerMouse, X: 0, ID: 3})
	f.ctrl.PointerMove(panel.PointerEvent{PointerType: panel.PointerMouse, X: 390, ID: 3})
	f.ctrl.PointerUp(panel.PointerEvent{PointerType: panel.PointerMouse, X: 390, ID: 3})

	require.True(t, f.ctrl.IsOpen())
	require.Len(t, f.host.offsets, before)
	require.Empty(t, f.host.captured)
}

func TestSwipeNeedsOpenPanel(t *testing.T) {
	f := newFixture(t, nil)
	before := len(f.host.offsets)

	f.ctrl.PointerDown(panel.PointerEvent{PointerType: panel.PointerTouch, X: 0, ID: 4})
	f.ctrl.PointerMove(panel.PointerEvent{PointerType: panel.PointerTouch, X: 390, ID: 4})
	f.ctrl.PointerUp(panel.PointerEvent{PointerType: panel.PointerTouch, X: 390, ID: 4})

	require.False(t, f.ctrl.IsOpen())
	require.Empty(t, f.host.captured)
	require.Len(t, f.host.offsets, before)
}

func TestRenderFollowsStore(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, 1, f.host.contentRenders)
	require.Contains(t, string(f.host.content), "Košík je prázdný")
	require.Equal(t, 0, f.host.badge)

	addBagr(t, f.store, 1)
	addBagr(t, f.store, 2)
	require.Equal(t, 3, f.host.contentRenders)
	require.Contains(t, string(f.host.content), "BAGR SE SKLUZAVKOU")
	require.Equal(t, 3, f.host.badge)
	require.Equal(t, "26\u00a0700 Kč", f.host.totals.Subtotal)

	qty, err := f.ctrl.Increment(context.Background(), "1{}")
	require.NoError(t, err)
	require.Equal(t, 4, qty)
	require.Equal(t, 3, f.host.contentRenders, "quantity changes update the line only")
	require.Len(t, f.host.lineUpdates, 1)
	require.Equal(t, "35\u00a0600 Kč", f.host.lineUpdates[0].Amount)
	require.Equal(t, 4, f.host.badge)

	require.NoError(t, f.ctrl.ApplyPromo(context.Background(), "BEZVA10"))
	require.Equal(t, 4, f.host.contentRenders)
	require.Equal(t, "-2\u00a0000 Kč", f.host.totals.Discount)
	require.Equal(t, "BEZVA10", f.host.totals.Promo)

	require.NoError(t, f.ctrl.Remove(context.Background(), "1{}"))
	require.Contains(t, string(f.host.content), "Košík je prázdný")
	require.Equal(t, 0, f.host.badge)
	require.Equal(t, "0 Kč", f.host.totals.Total)
}

func TestQuantityControls(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	addBagr(t, f.store, 1)

	qty, err := f.ctrl.Decrement(ctx, "1{}")
	require.NoError(t, err)
	require.Equal(t, 1, qty)

	qty, err = f.ctrl.InputQty(ctx, "1{}", "98")
	require.NoError(t, err)
	require.Equal(t, 98, qty)
	qty, err = f.ctrl.Increment(ctx, "1{}")
	require.NoError(t, err)
	require.Equal(t, 99, qty)
	qty, err = f.ctrl.Increment(ctx, "1{}")
	require.NoError(t, err)
	require.Equal(t, 99, qty)

	for raw, want := range map[string]int{"": 1, "abc": 1, "0": 1, "-4": 1, "12abc": 12, " 7 ": 7, "250": 99} {
		qty, err = f.ctrl.InputQty(ctx, "1{}", raw)
		require.NoError(t, err)
		require.Equal(t, want, qty, "input %q", raw)
		require.Equal(t, want, f.store.Items()[0].Qty)
	}

	_, err = f.ctrl.Increment(ctx, "missing")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestRequestClearNeedsConfirmation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cleared, err := f.ctrl.RequestClear(ctx)
	require.NoError(t, err)
	require.False(t, cleared)
	require.Empty(t, f.host.prompts, "empty cart never prompts")

	addBagr(t, f.store, 2)
	_, err = f.store.ApplyPromo(ctx, "FREESHIP")
	require.NoError(t, err)

	f.host.confirm = false
	cleared, err = f.ctrl.RequestClear(ctx)
	require.NoError(t, err)
	require.False(t, cleared)
	require.Equal(t, []string{panel.ClearPrompt}, f.host.prompts)
	require.Len(t, f.store.Items(), 1)

	f.host.confirm = true
	cleared, err = f.ctrl.RequestClear(ctx)
	require.NoError(t, err)
	require.True(t, cleared)
	require.Empty(t, f.store.Items())
	require.Equal(t, "FREESHIP", f.store.Promo())
	require.Equal(t, "Košík byl vyprázdněn", f.notifier.last().Message)
	require.Equal(t, notify.KindInfo, f.notifier.last().Kind)
}

func TestCheckout(t *testing.T) {
	var got []cart.Snapshot
	hook := panel.CheckoutFunc(func(_ context.Context, snap cart.Snapshot) error {
		got = append(got, snap)
		return nil
	})
	f := newFixture(t, hook)
	ctx := context.Background()

	require.ErrorIs(t, f.ctrl.Checkout(ctx), panel.ErrEmptyCart)
	require.Equal(t, notify.KindError, f.notifier.last().Kind)
	require.Equal(t, "Košík je prázdný", f.notifier.last().Message)
	require.Empty(t, got)

	addBagr(t, f.store, 3)
	require.NoError(t, f.ctrl.Checkout(ctx))
	require.Len(t, got, 1)
	require.Equal(t, pricing.Units(26700), got[0].Summary.Total)
	require.Equal(t, "Pokračujeme k objednávce…", f.notifier.last().Message)
}

func TestCheckoutHookFailure(t *testing.T) {
	boom := errors.New("order service down")
	f := newFixture(t, panel.CheckoutFunc(func(context.Context, cart.Snapshot) error { return boom }))
	addBagr(t, f.store, 1)
	before := f.notifier.last()

	require.ErrorIs(t, f.ctrl.Checkout(context.Background()), boom)
	require.Equal(t, before, f.notifier.last())
}

func TestDetachStopsRendering(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Detach()
	addBagr(t, f.store, 1)
	require.Equal(t, 1, f.host.contentRenders)
}
