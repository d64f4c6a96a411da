package events

// Topics emitted by the point of sale flow.
const (
	TopicOrderCreated   = "order.created"
	TopicProductChanged = "product.changed"
	TopicLowStock       = "stock.low"
)
