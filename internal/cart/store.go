package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/bezva-storefront/internal/events"
	"github.com/noah-isme/bezva-storefront/internal/notify"
	"github.com/noah-isme/bezva-storefront/internal/pricing"
	"github.com/noah-isme/bezva-storefront/internal/promo"
	"github.com/noah-isme/bezva-storefront/internal/storage"
)

var (
	// ErrNotFound indicates the requested line does not exist.
	ErrNotFound = errors.New("cart item not found")
	// ErrMissingProduct is returned when an add request has no product identity.
	ErrMissingProduct = errors.New("product id is required")
	// ErrInvalidMeta is returned when selection attributes cannot be serialised.
	ErrInvalidMeta = errors.New("invalid item meta")
	// ErrUnknownPromo is returned for codes missing from the rule table.
	ErrUnknownPromo = promo.ErrUnknownCode
	// ErrClosed is returned by mutations after Close.
	ErrClosed = errors.New("cart store closed")
)

// Default record keys on the device.
const (
	DefaultItemsKey = "bezvaparta_cart_v1"
	DefaultPromoKey = "bezvaparta_promo_v1"
)

// Operation labels reported to the Recorder.
const (
	OpAdd        = "add"
	OpRemove     = "remove"
	OpUpdateQty  = "update_qty"
	OpClear      = "clear"
	OpApplyPromo = "apply_promo"
)

// Recorder receives mutation outcomes, e.g. for Prometheus.
type Recorder interface {
	Mutation(op, result string)
	PersistFailure(record string)
}

var nopLogger = zerolog.Nop()

// StoreConfig groups Store dependencies.
type StoreConfig struct {
	Storage  storage.Store
	Events   *events.Bus
	Notifier notify.Notifier
	Rules    promo.Table
	Logger   *zerolog.Logger
	Recorder Recorder
	ItemsKey string
	PromoKey string
}

// AddRequest describes a product being put into the cart.
type AddRequest struct {
	ProductID string
	Name      string
	UnitPrice pricing.Money
	Qty       int
	Image     string
	Meta      Meta
}

// Snapshot is a consistent copy of the cart state with its computed totals.
type Snapshot struct {
	Items   []Item
	Promo   string
	Summary pricing.Summary
	Count   int
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool { return len(s.Items) == 0 }

// Item returns the line with key.
func (s Snapshot) Item(key string) (Item, bool) {
	for _, it := range s.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// Store is the sole owner and mutator of the cart state. Every mutation is persisted
// before observers are notified; persistence failures are logged and swallowed so the
// in-memory state stays authoritative for the session.
type Store struct {
	storage  storage.Store
	bus      *events.Bus
	notifier notify.Notifier
	engine   pricing.Engine
	logger   *zerolog.Logger
	recorder Recorder
	tracer   trace.Tracer
	itemsKey string
	promoKey string

	mu     sync.Mutex
	items  []Item
	promo  string
	closed bool
}

// NewStore constructs the store and loads the persisted state. Missing or corrupt
// records yield an empty cart and no promo.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.Storage == nil {
		return nil, errors.New("cart: storage is required")
	}
	rules := cfg.Rules
	if rules == nil {
		rules = promo.Default()
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("cart: promo rules: %w", err)
	}
	bus := cfg.Events
	if bus == nil {
		bus = &events.Bus{}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &nopLogger
	}
	s := &Store{
		storage:  cfg.Storage,
		bus:      bus,
		notifier: notifier,
		engine:   pricing.Engine{Rules: rules},
		logger:   logger,
		recorder: cfg.Recorder,
		tracer:   otel.Tracer("github.com/noah-isme/bezva-storefront/internal/cart"),
		itemsKey: valueOrDefault(cfg.ItemsKey, DefaultItemsKey),
		promoKey: valueOrDefault(cfg.PromoKey, DefaultPromoKey),
	}
	s.items = s.loadItems(ctx)
	s.promo = s.loadPromo(ctx)
	return s, nil
}

// Subscribe registers an observer for every state change.
func (s *Store) Subscribe(h events.Handler) func() {
	return s.bus.Subscribe(h)
}

// Rules returns the promo table the store validates against.
func (s *Store) Rules() promo.Table {
	return s.engine.Rules
}

// Add inserts a new line or merges into the existing line with the same key. Merged
// quantities are clamped to MaxQty.
func (s *Store) Add(ctx context.Context, req AddRequest) (Item, error) {
	ctx, span := s.tracer.Start(ctx, "cart.Add")
	defer span.End()

	id := strings.TrimSpace(req.ProductID)
	if id == "" {
		s.record(OpAdd, "rejected")
		return Item{}, ErrMissingProduct
	}
	key, meta, err := lineIdentity(id, req.Meta)
	if err != nil {
		s.record(OpAdd, "rejected")
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidMeta, err)
	}
	span.SetAttributes(attribute.String("cart.key", key))
	qty := req.Qty
	if qty <= 0 {
		qty = 1
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Item{}, ErrClosed
	}
	var result Item
	if pos := s.indexLocked(key); pos >= 0 {
		s.items[pos].Qty = ClampQty(s.items[pos].Qty + qty)
		result = s.items[pos].clone()
	} else {
		price := min(max(req.UnitPrice, 0), pricing.MaxPrice)
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = id
		}
		item := Item{
			Key:       key,
			ProductID: id,
			Name:      name,
			UnitPrice: price,
			Qty:       ClampQty(qty),
			Image:     req.Image,
			Meta:      meta,
		}
		s.items = append(s.items, item)
		result = item.clone()
	}
	s.persistItemsLocked(ctx)
	s.mu.Unlock()

	s.record(OpAdd, "ok")
	s.emit(ctx, events.TopicItemAdded, key)
	s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindSuccess, Message: "Přidáno do košíku"})
	return result, nil
}

// Remove deletes the line with key. A missing key leaves the state untouched.
func (s *Store) Remove(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "cart.Remove", trace.WithAttributes(attribute.String("cart.key", key)))
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	pos := s.indexLocked(key)
	if pos < 0 {
		s.mu.Unlock()
		s.record(OpRemove, "noop")
		return ErrNotFound
	}
	s.items = append(s.items[:pos:pos], s.items[pos+1:]...)
	s.persistItemsLocked(ctx)
	s.mu.Unlock()

	s.record(OpRemove, "ok")
	s.emit(ctx, events.TopicItemRemoved, key)
	s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindInfo, Message: "Položka odstraněna"})
	return nil
}

// UpdateQty sets the quantity of a line, clamped to [MinQty, MaxQty].
func (s *Store) UpdateQty(ctx context.Context, key string, qty int) (Item, error) {
	ctx, span := s.tracer.Start(ctx, "cart.UpdateQty", trace.WithAttributes(attribute.String("cart.key", key)))
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Item{}, ErrClosed
	}
	pos := s.indexLocked(key)
	if pos < 0 {
		s.mu.Unlock()
		s.record(OpUpdateQty, "noop")
		return Item{}, ErrNotFound
	}
	s.items[pos].Qty = ClampQty(qty)
	result := s.items[pos].clone()
	s.persistItemsLocked(ctx)
	s.mu.Unlock()

	s.record(OpUpdateQty, "ok")
	s.emit(ctx, events.TopicQtyUpdated, key)
	return result, nil
}

// Clear removes every line. The active promo code is kept.
func (s *Store) Clear(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "cart.Clear")
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.items = nil
	s.persistItemsLocked(ctx)
	s.mu.Unlock()

	s.record(OpClear, "ok")
	s.emit(ctx, events.TopicCleared, "")
	return nil
}

// ApplyPromo activates a code from the rule table. An empty code clears the active
// promo; an unknown code is rejected without changing state.
func (s *Store) ApplyPromo(ctx context.Context, code string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "cart.ApplyPromo")
	defer span.End()

	normalized := promo.Normalize(code)
	if normalized != "" {
		if _, err := s.engine.Rules.Resolve(normalized); err != nil {
			s.record(OpApplyPromo, "rejected")
			s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindError, Message: "Neplatný promo kód"})
			return "", err
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	s.promo = normalized
	s.persistPromoLocked(ctx)
	s.mu.Unlock()

	s.record(OpApplyPromo, "ok")
	s.emit(ctx, events.TopicPromoChanged, "")
	if normalized == "" {
		s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindInfo, Message: "Promo kód odstraněn"})
	} else {
		s.notifier.Notify(ctx, notify.Notification{Kind: notify.KindSuccess, Message: fmt.Sprintf("Promo kód %s aplikován", normalized)})
	}
	return normalized, nil
}

// Snapshot returns a copy of the current state with totals.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, 0, len(s.items))
	pricingItems := make([]pricing.Item, 0, len(s.items))
	count := 0
	for _, it := range s.items {
		items = append(items, it.clone())
		pricingItems = append(pricingItems, pricing.Item{Qty: it.Qty, UnitPrice: it.UnitPrice})
		count += it.Qty
	}
	return Snapshot{
		Items:   items,
		Promo:   s.promo,
		Summary: s.engine.Compute(pricingItems, s.promo),
		Count:   count,
	}
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	return s.Snapshot().Items
}

// Promo returns the active promo code or an empty string.
func (s *Store) Promo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promo
}

// Count returns the total quantity across all lines.
func (s *Store) Count() int {
	return s.Snapshot().Count
}

// Totals computes subtotal, discount and total of the current state.
func (s *Store) Totals() pricing.Summary {
	return s.Snapshot().Summary
}

// Close writes the state one final time and rejects further mutations.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.persistItemsLocked(ctx)
	s.persistPromoLocked(ctx)
	s.closed = true
	return nil
}

func (s *Store) indexLocked(key string) int {
	for i, it := range s.items {
		if it.Key == key {
			return i
		}
	}
	return -1
}

func (s *Store) persistItemsLocked(ctx context.Context) {
	data, err := encodeItems(s.items)
	if err == nil {
		err = s.storage.Set(ctx, s.itemsKey, data)
	}
	if err != nil {
		s.persistFailed("items", err)
	}
}

func (s *Store) persistPromoLocked(ctx context.Context) {
	var err error
	if s.promo == "" {
		err = s.storage.Delete(ctx, s.promoKey)
	} else {
		var data []byte
		data, err = encodePromo(s.promo)
		if err == nil {
			err = s.storage.Set(ctx, s.promoKey, data)
		}
	}
	if err != nil {
		s.persistFailed("promo", err)
	}
}

func (s *Store) persistFailed(record string, err error) {
	s.logger.Warn().Err(err).Str("record", record).Msg("cart persist failed")
	if s.recorder != nil {
		s.recorder.PersistFailure(record)
	}
}

func (s *Store) loadItems(ctx context.Context) []Item {
	data, err := s.storage.Get(ctx, s.itemsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("record", "items").Msg("cart load failed")
		}
		return nil
	}
	items, err := decodeItems(data)
	if err != nil {
		s.logger.Debug().Err(err).Str("record", "items").Msg("discarding malformed cart record")
		return nil
	}
	return items
}

func (s *Store) loadPromo(ctx context.Context) string {
	data, err := s.storage.Get(ctx, s.promoKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("record", "promo").Msg("cart load failed")
		}
		return ""
	}
	code, err := decodePromo(data, s.engine.Rules)
	if err != nil {
		s.logger.Debug().Err(err).Str("record", "promo").Msg("discarding malformed promo record")
		return ""
	}
	return code
}

func (s *Store) emit(ctx context.Context, topic, key string) {
	if _, err := s.bus.Emit(ctx, topic, key); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("cart observer failed")
	}
}

func (s *Store) record(op, result string) {
	if s.recorder != nil {
		s.recorder.Mutation(op, result)
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
