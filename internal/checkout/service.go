package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/bezva-storefront/internal/cart"
	"github.com/noah-isme/bezva-storefront/internal/pricing"
)

// ErrEmptyOrder is returned for a snapshot without lines.
var ErrEmptyOrder = errors.New("checkout: order has no lines")

// Line is one ordered item.
type Line struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Qty       int       `json:"qty"`
	UnitPrice float64   `json:"unitPrice"`
	Amount    float64   `json:"amount"`
	Meta      cart.Meta `json:"meta,omitempty"`
}

// Order summarises a cart handed over to the order flow.
type Order struct {
	ID        string    `json:"orderId"`
	Status    string    `json:"status"`
	Currency  string    `json:"currency"`
	Lines     []Line    `json:"lines"`
	Promo     string    `json:"promo,omitempty"`
	Subtotal  float64   `json:"subtotal"`
	Discount  float64   `json:"discount"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service is the default checkout hook. The real order flow lives outside this
// process, so it builds the order summary, logs it and keeps the most recent one.
type Service struct {
	Logger zerolog.Logger
	Now    func() time.Time
	// OnOrder, when set, receives every built order.
	OnOrder func(ctx context.Context, order Order) error

	mu   sync.Mutex
	last *Order
}

// Checkout builds an order from snap.
func (s *Service) Checkout(ctx context.Context, snap cart.Snapshot) error {
	if snap.Empty() {
		return ErrEmptyOrder
	}
	order := s.build(snap)
	s.Logger.Info().
		Str("order_id", order.ID).
		Int("lines", len(order.Lines)).
		Float64("total", order.Total).
		Str("promo", order.Promo).
		Msg("checkout requested")
	if s.OnOrder != nil {
		if err := s.OnOrder(ctx, order); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.last = &order
	s.mu.Unlock()
	return nil
}

// Last returns the most recent order.
func (s *Service) Last() (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Order{}, false
	}
	return *s.last, true
}

func (s *Service) build(snap cart.Snapshot) Order {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	lines := make([]Line, 0, len(snap.Items))
	for _, it := range snap.Items {
		lines = append(lines, Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: pricing.ToUnits(it.UnitPrice),
			Amount:    pricing.ToUnits(it.Amount()),
			Meta:      it.Meta,
		})
	}
	return Order{
		ID:        uuid.NewString(),
		Status:    "PENDING_CONFIRMATION",
		Currency:  "CZK",
		Lines:     lines,
		Promo:     snap.Promo,
		Subtotal:  pricing.ToUnits(snap.Summary.Subtotal),
		Discount:  pricing.ToUnits(snap.Summary.Discount),
		Total:     pricing.ToUnits(snap.Summary.Total),
		CreatedAt: now().UTC(),
	}
}
