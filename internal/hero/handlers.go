package hero

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/bezva-storefront/internal/common"
)

// Handler exposes the slider over HTTP.
type Handler struct {
	Slider *Slider
}

type goRequest struct {
	Index *int `json:"index" validate:"required"`
}

type swipeRequest struct {
	DX float64 `json:"dx"`
}

// Get returns the slider state.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, h.Slider.State())
}

// Action handles next, prev, go, swipe, pause and resume.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "next":
		h.Slider.Next()
	case "prev":
		h.Slider.Prev()
	case "go":
		var req goRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
		h.Slider.Go(*req.Index)
	case "swipe":
		var req swipeRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
		h.Slider.Swipe(req.DX)
	case "pause":
		h.Slider.Pause()
	case "resume":
		h.Slider.Resume()
	default:
		common.WriteError(w, common.NotFound("unknown hero action", nil))
		return
	}
	common.Data(w, http.StatusOK, h.Slider.State())
}
