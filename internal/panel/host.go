package panel

import (
	"context"
	"html/template"
	"time"
)

// Element is a focusable node inside the panel.
type Element interface {
	Focus()
	Disabled() bool
	Visible() bool
}

// Host is the surface the panel is drawn on: the page, its focus state and the
// user's confirmation prompt.
type Host interface {
	// ActiveElement returns the currently focused element, or nil.
	ActiveElement() Element
	// Container is the dialog element that receives focus on open.
	Container() Element
	// Focusables lists the panel's focusable descendants in tab order.
	Focusables() []Element
	SetOpen(open bool)
	LockScroll(locked bool)
	// Width is the rendered panel width in pixels.
	Width() float64
	// SetOffset translates the panel horizontally, animated over transition.
	SetOffset(px float64, transition time.Duration)
	CapturePointer(id int, capture bool)
	Confirm(ctx context.Context, message string) bool

	ReplaceContent(markup template.HTML)
	UpdateLine(line LineView)
	UpdateTotals(totals TotalsView)
	SetBadge(count int)
}

// KeyEvent is a keyboard press while the panel has focus.
type KeyEvent struct {
	Key   string
	Shift bool
}

// Pointer types.
const (
	PointerTouch = "touch"
	PointerMouse = "mouse"
	PointerPen   = "pen"
)

// PointerEvent is a pointer sample on the panel surface.
type PointerEvent struct {
	PointerType string
	X           float64
	ID          int
}

type confirmKey struct{}

// WithConfirmation marks ctx as carrying the user's answer to a confirmation prompt.
// MemoryHost reads it; interactive hosts ask the user instead.
func WithConfirmation(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmKey{}, confirmed)
}

// ConfirmedFrom reports the answer stored by WithConfirmation.
func ConfirmedFrom(ctx context.Context) bool {
	v, _ := ctx.Value(confirmKey{}).(bool)
	return v
}
