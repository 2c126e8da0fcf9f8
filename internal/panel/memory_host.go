package panel

import (
	"context"
	"html/template"
	"sync"
	"time"
)

// Focus targets of MemoryHost. Toggle is the page button that opens the panel;
// the rest live inside the dialog and are listed in tab order.
const (
	FocusToggle   = "cart-toggle"
	FocusDialog   = "cart-panel"
	FocusClose    = "close"
	FocusPromo    = "promo"
	FocusClear    = "clear"
	FocusCheckout = "checkout"
)

var dialogFocusOrder = []string{FocusClose, FocusPromo, FocusClear, FocusCheckout}

// MemoryHost keeps the last rendered panel state in memory. The storefront process
// uses it behind the HTTP panel endpoints; confirmation comes from the request
// context (see WithConfirmation).
type MemoryHost struct {
	mu      sync.Mutex
	open    bool
	locked  bool
	width   float64
	offset  float64
	content template.HTML
	lines   map[string]LineView
	totals  TotalsView
	badge   int

	toggle    *memoryElement
	dialog    *memoryElement
	controls  []*memoryElement
	active    *memoryElement
	capturing map[int]bool
}

type memoryElement struct {
	host *MemoryHost
	name string
}

func (e *memoryElement) Focus() {
	e.host.mu.Lock()
	defer e.host.mu.Unlock()
	e.host.active = e
}

// Disabled reports the clear and checkout buttons as disabled while the cart is empty.
func (e *memoryElement) Disabled() bool {
	if e.name != FocusClear && e.name != FocusCheckout {
		return false
	}
	e.host.mu.Lock()
	defer e.host.mu.Unlock()
	return e.host.badge == 0
}

func (e *memoryElement) Visible() bool { return true }

// NewMemoryHost returns a host reporting width as the panel width. Focus starts on
// the page's cart toggle.
func NewMemoryHost(width float64) *MemoryHost {
	h := &MemoryHost{width: width, lines: make(map[string]LineView), capturing: make(map[int]bool)}
	h.toggle = &memoryElement{host: h, name: FocusToggle}
	h.dialog = &memoryElement{host: h, name: FocusDialog}
	for _, name := range dialogFocusOrder {
		h.controls = append(h.controls, &memoryElement{host: h, name: name})
	}
	h.active = h.toggle
	return h
}

// HostState is a copy of what MemoryHost currently shows.
type HostState struct {
	Open         bool
	ScrollLocked bool
	Offset       float64
	Focus        string
	Dragging     bool
	Content      template.HTML
	Lines        map[string]LineView
	Totals       TotalsView
	Badge        int
}

// State returns the current host state.
func (h *MemoryHost) State() HostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	lines := make(map[string]LineView, len(h.lines))
	for k, v := range h.lines {
		lines[k] = v
	}
	var focus string
	if h.active != nil {
		focus = h.active.name
	}
	return HostState{
		Open:         h.open,
		ScrollLocked: h.locked,
		Offset:       h.offset,
		Focus:        focus,
		Dragging:     len(h.capturing) > 0,
		Content:      h.content,
		Lines:        lines,
		Totals:       h.totals,
		Badge:        h.badge,
	}
}

func (h *MemoryHost) ActiveElement() Element {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil
	}
	return h.active
}

func (h *MemoryHost) Container() Element { return h.dialog }

func (h *MemoryHost) Focusables() []Element {
	out := make([]Element, 0, len(h.controls))
	for _, el := range h.controls {
		out = append(out, el)
	}
	return out
}

func (h *MemoryHost) SetOpen(open bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open = open
}

func (h *MemoryHost) LockScroll(locked bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locked = locked
}

func (h *MemoryHost) Width() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width
}

func (h *MemoryHost) SetOffset(px float64, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offset = px
}

func (h *MemoryHost) CapturePointer(id int, capture bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if capture {
		h.capturing[id] = true
		return
	}
	delete(h.capturing, id)
}

func (h *MemoryHost) Confirm(ctx context.Context, _ string) bool {
	return ConfirmedFrom(ctx)
}

func (h *MemoryHost) ReplaceContent(markup template.HTML) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.content = markup
	h.lines = make(map[string]LineView)
}

func (h *MemoryHost) UpdateLine(line LineView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines[line.Key] = line
}

func (h *MemoryHost) UpdateTotals(totals TotalsView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totals = totals
}

func (h *MemoryHost) SetBadge(count int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.badge = count
}
