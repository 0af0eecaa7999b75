package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"peertrack/internal/general/contracts"
	"peertrack/internal/general/logger"
)

// NearNotifier hands "counterpart is near" events to the external
// notification sender via the tracking events exchange.
type NearNotifier struct {
	pub    *MQPublisher
	logger *logger.Logger
}

func NewNearNotifier(pub *MQPublisher, logger *logger.Logger) *NearNotifier {
	return &NearNotifier{pub: pub, logger: logger}
}

// NotifyNear publishes one NearEvent. Called at most once per session.
func (n *NearNotifier) NotifyNear(ctx context.Context, ev contracts.NearEvent) error {
	ev.Producer = "tracking-service"
	ev.SentAt = time.Now().UTC()

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal near event: %w", err)
	}

	if err := n.pub.Publish(contracts.ExchangeTrackingTopic, contracts.RouteNearPrefix+ev.NotifyPartyID, body); err != nil {
		return fmt.Errorf("publish near event: %w", err)
	}

	n.logger.Info(ctx, "near_event_published", "Proximity event published", map[string]any{
		"session_id":      ev.SessionID,
		"notify_party_id": ev.NotifyPartyID,
		"distance_m":      ev.DistanceMeters,
	})
	return nil
}
