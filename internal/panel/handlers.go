package panel

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/bezva-storefront/internal/cart"
	"github.com/noah-isme/bezva-storefront/internal/common"
)

// Handler exposes the panel over HTTP: the dialog lifecycle, keyboard and pointer
// input, the per-line steppers, the confirmed clear, checkout and the rendered fragment.
type Handler struct {
	Controller *Controller
	Store      *cart.Store
	Renderer   *Renderer
	Host       *MemoryHost
}

// StateView is the JSON shape of the dialog state.
type StateView struct {
	Open         bool    `json:"open"`
	ScrollLocked bool    `json:"scrollLocked"`
	Focus        string  `json:"focus"`
	Offset       float64 `json:"offset"`
	Dragging     bool    `json:"dragging"`
	Badge        int     `json:"badge"`
	Handled      bool    `json:"handled"`
}

type keyRequest struct {
	Key   string `json:"key" validate:"required"`
	Shift bool   `json:"shift"`
}

type pointerRequest struct {
	Phase       string  `json:"phase" validate:"required,oneof=down move up cancel leave"`
	PointerType string  `json:"pointerType" validate:"required"`
	X           float64 `json:"x"`
	ID          int     `json:"id"`
}

type inputRequest struct {
	Value string `json:"value"`
}

func (h *Handler) state(handled bool) StateView {
	view := StateView{Open: h.Controller.IsOpen(), Handled: handled}
	if h.Host != nil {
		st := h.Host.State()
		view.ScrollLocked = st.ScrollLocked
		view.Focus = st.Focus
		view.Offset = st.Offset
		view.Dragging = st.Dragging
		view.Badge = st.Badge
	}
	return view
}

// State handles GET /api/v1/panel.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, h.state(false))
}

// Action handles open, close, key and pointer.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	handled := false
	switch chi.URLParam(r, "action") {
	case "open":
		h.Controller.Open()
		handled = true
	case "close":
		h.Controller.Close()
		handled = true
	case "key":
		var req keyRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
		handled = h.Controller.HandleKey(KeyEvent{Key: req.Key, Shift: req.Shift})
	case "pointer":
		var req pointerRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
		ev := PointerEvent{PointerType: req.PointerType, X: req.X, ID: req.ID}
		switch req.Phase {
		case "down":
			h.Controller.PointerDown(ev)
		case "move":
			h.Controller.PointerMove(ev)
		case "up":
			h.Controller.PointerUp(ev)
		case "cancel":
			h.Controller.PointerCancel(ev)
		case "leave":
			h.Controller.PointerLeave(ev)
		}
		handled = true
	default:
		common.WriteError(w, common.NotFound("unknown panel action", nil))
		return
	}
	common.Data(w, http.StatusOK, h.state(handled))
}

// Step handles POST /api/v1/cart/items/{key}/{action} for increment, decrement and
// input. Input takes the raw text of the quantity field.
func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	key, err := cart.LineKeyParam(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	ctx := r.Context()
	switch chi.URLParam(r, "action") {
	case "increment":
		_, err = h.Controller.Increment(ctx, key)
	case "decrement":
		_, err = h.Controller.Decrement(ctx, key)
	case "input":
		var req inputRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
		_, err = h.Controller.InputQty(ctx, key, req.Value)
	default:
		common.WriteError(w, common.NotFound("unknown line action", nil))
		return
	}
	if err != nil {
		cart.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, cart.NewView(h.Store.Snapshot()))
}

// Fragment handles GET /fragments/cart.
func (h *Handler) Fragment(w http.ResponseWriter, r *http.Request) {
	markup, err := h.Renderer.Panel(h.Store.Snapshot(), h.Controller.IsOpen())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}

// Clear handles DELETE /api/v1/cart. The caller confirms with ?confirm=true.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Store.Snapshot().Empty() {
		common.Data(w, http.StatusOK, cart.NewView(h.Store.Snapshot()))
		return
	}
	ctx := WithConfirmation(r.Context(), common.QueryBool(r, "confirm"))
	cleared, err := h.Controller.RequestClear(ctx)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !cleared {
		common.JSONError(w, http.StatusConflict, "CONFIRMATION_REQUIRED", ClearPrompt, nil)
		return
	}
	common.Data(w, http.StatusOK, cart.NewView(h.Store.Snapshot()))
}

// Checkout handles POST /api/v1/cart/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.Checkout(r.Context()); err != nil {
		if errors.Is(err, ErrEmptyCart) {
			common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", msgEmptyCart, nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusAccepted, map[string]any{"message": msgCheckoutNext})
}
