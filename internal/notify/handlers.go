package notify

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/bezva-storefront/internal/common"
)

// Handler exposes the toast stack over HTTP.
type Handler struct {
	Center *Center
}

type showRequest struct {
	Title   string `json:"title" validate:"max=120"`
	Message string `json:"message" validate:"required,max=500"`
	Type    string `json:"type"`
	// TimeoutMs overrides the default display time.
	TimeoutMs int `json:"timeoutMs" validate:"min=0,max=60000"`
}

// List returns the visible toasts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, h.Center.Active())
}

// Show pushes a new toast.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	var req showRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	toast := h.Center.Show(Options{
		Title:   req.Title,
		Message: req.Message,
		Kind:    ParseKind(req.Type),
		Timeout: msDuration(req.TimeoutMs),
	})
	common.Data(w, http.StatusCreated, toast)
}

// Dismiss closes a toast.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.Center.Dismiss)
}

// Hold pauses expiry while the pointer is over a toast.
func (h *Handler) Hold(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.Center.Hold)
}

// Release resumes expiry after Hold.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.Center.Release)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, fn func(string) bool) {
	id := chi.URLParam(r, "id")
	if !fn(id) {
		common.WriteError(w, common.NotFound("notification not found", nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
