package events

// Topic constants for cart state changes.
const (
	TopicItemAdded    = "cart.item_added"
	TopicItemRemoved  = "cart.item_removed"
	TopicQtyUpdated   = "cart.qty_updated"
	TopicCleared      = "cart.cleared"
	TopicPromoChanged = "cart.promo_changed"
)

// DefaultTopics returns every topic the cart store emits.
func DefaultTopics() []string {
	return []string{
		TopicItemAdded,
		TopicItemRemoved,
		TopicQtyUpdated,
		TopicCleared,
		TopicPromoChanged,
	}
}

// IsLineOnly reports whether the topic only touches a single line's amounts.
func IsLineOnly(topic string) bool {
	return topic == TopicQtyUpdated
}
