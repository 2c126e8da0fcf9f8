package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/bezva-storefront/internal/common"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	manager *Manager
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Manager *Manager
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{manager: cfg.Manager}
}

// CardView is a product as shown in the grid.
type CardView struct {
	Product
	Slug       string `json:"slug"`
	PriceLabel string `json:"priceLabel"`
	Meta       string `json:"meta"`
	Stars      string `json:"stars,omitempty"`
}

func cardView(p Product) CardView {
	v := CardView{Product: p, Slug: Slugify(p.Name), PriceLabel: CardPrice(p), Meta: p.Summary()}
	if p.Rating != nil {
		v.Stars = Stars(*p.Rating)
	}
	return v
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":    h.manager.Categories(),
		"options": h.manager.CategoryOptions(),
	})
}

// Products handles GET /api/v1/products with category, search and sort.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	items := h.manager.Query(ParseParams(r.URL.Query()))
	views := make([]CardView, 0, len(items))
	for _, p := range items {
		views = append(views, cardView(p))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(views)))
	common.Data(w, http.StatusOK, views)
}

// Product handles GET /api/v1/products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	p, err := h.manager.ProductByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.WriteError(w, common.NotFound("product not found", err))
			return
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, cardView(p))
}
