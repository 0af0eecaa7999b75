package contracts

// RabbitMQ topology.
const (
	// ExchangeLocationTopic carries per-party live location change events.
	// Routing key is the party id, so a subscriber binds exactly one key.
	ExchangeLocationTopic = "location.live"

	// ExchangeTrackingTopic carries session-level events (e.g. responder near).
	ExchangeTrackingTopic = "tracking.events"

	// QueueNearNotifications feeds the outbound notification sender.
	QueueNearNotifications = "tracking.near.notifications"

	// RouteNearPrefix prefixes "near" event routing keys: near.<party_id>.
	RouteNearPrefix = "near."
)
