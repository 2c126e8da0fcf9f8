package cart

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/bezva-storefront/internal/catalog"
	"github.com/noah-isme/bezva-storefront/internal/common"
	"github.com/noah-isme/bezva-storefront/internal/pricing"
)

// ProductLookup resolves catalog products for add-to-cart requests.
type ProductLookup interface {
	ProductByID(id string) (catalog.Product, error)
}

// Handler wires the cart store to HTTP.
type Handler struct {
	Store   *Store
	Catalog ProductLookup
}

// ItemView is the JSON shape of a cart line.
type ItemView struct {
	Key       string  `json:"key"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Qty       int     `json:"qty"`
	Amount    float64 `json:"amount"`
	Image     string  `json:"image,omitempty"`
	Meta      Meta    `json:"meta"`
}

// PricingView carries totals in koruna.
type PricingView struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// View is the JSON shape of the whole cart.
type View struct {
	Items   []ItemView  `json:"items"`
	Promo   *string     `json:"promo"`
	Pricing PricingView `json:"pricing"`
	Count   int         `json:"count"`
}

// NewView projects a snapshot for the API.
func NewView(snap Snapshot) View {
	items := make([]ItemView, 0, len(snap.Items))
	for _, it := range snap.Items {
		meta := it.Meta
		if meta == nil {
			meta = Meta{}
		}
		items = append(items, ItemView{
			Key:       it.Key,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: pricing.ToUnits(it.UnitPrice),
			Qty:       it.Qty,
			Amount:    pricing.ToUnits(it.Amount()),
			Image:     it.Image,
			Meta:      meta,
		})
	}
	view := View{
		Items: items,
		Pricing: PricingView{
			Subtotal: pricing.ToUnits(snap.Summary.Subtotal),
			Discount: pricing.ToUnits(snap.Summary.Discount),
			Total:    pricing.ToUnits(snap.Summary.Total),
			Currency: "CZK",
		},
		Count: snap.Count,
	}
	if snap.Promo != "" {
		promo := snap.Promo
		view.Promo = &promo
	}
	return view
}

// Get returns cart contents and pricing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	common.Data(w, http.StatusOK, NewView(h.Store.Snapshot()))
}

// AddItem puts a catalog product into the cart. Name, price and image always come
// from the catalog.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil || h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	var payload struct {
		ProductID catalog.ID `json:"productId" validate:"required"`
		Qty       int        `json:"qty"`
		Meta      Meta       `json:"meta"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	product, err := h.Catalog.ProductByID(string(payload.ProductID))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			common.WriteError(w, common.NotFound("product not found", err))
			return
		}
		WriteError(w, err)
		return
	}
	var unitPrice pricing.Money
	if product.Price != nil {
		unitPrice = pricing.FromUnits(*product.Price)
	}
	if _, err := h.Store.Add(r.Context(), AddRequest{
		ProductID: string(product.ID),
		Name:      product.Name,
		UnitPrice: unitPrice,
		Qty:       payload.Qty,
		Image:     product.Image,
		Meta:      payload.Meta,
	}); err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, NewView(h.Store.Snapshot()))
}

// UpdateItem sets a line quantity. Out-of-range values are clamped.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	key, err := LineKeyParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	var payload struct {
		Qty *int `json:"qty" validate:"required"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if _, err := h.Store.UpdateQty(r.Context(), key, *payload.Qty); err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, NewView(h.Store.Snapshot()))
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	key, err := LineKeyParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.Store.Remove(r.Context(), key); err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, NewView(h.Store.Snapshot()))
}

// ApplyPromo sets or clears the promo code.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code" validate:"max=64"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if _, err := h.Store.ApplyPromo(r.Context(), payload.Code); err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, NewView(h.Store.Snapshot()))
}

// LineKeyParam reads the {key} URL parameter. Keys embed JSON, so clients send them
// percent-encoded. chi matches on r.URL.RawPath when the request carried escapes that
// the decoded path cannot reproduce (such as %2F) and on the decoded r.URL.Path
// otherwise, so the parameter is unescaped only in the first case.
func LineKeyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(key)
		if err != nil {
			return "", common.BadRequest("invalid line key", err)
		}
		key = decoded
	}
	if key == "" {
		return "", common.BadRequest("line key is required", nil)
	}
	return key, nil
}

// WriteError maps store errors onto the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case common.IsAppError(err):
		common.WriteError(w, err)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found", nil)
	case errors.Is(err, ErrUnknownPromo):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PROMO", "Neplatný promo kód", nil)
	case errors.Is(err, ErrMissingProduct), errors.Is(err, ErrInvalidMeta):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrClosed):
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "cart is closed", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
