package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"peertrack/internal/general/contracts"
	"peertrack/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NearDeliverer pushes a decoded proximity notification to the target party.
type NearDeliverer interface {
	PushNear(ev contracts.NearEvent) error
}

// RunNearConsumer drains the near-notification queue and delivers each event
// to the connected party. It blocks until ctx is done, resubscribing with
// backoff when the channel drops (reconnects happen underneath in the client).
func RunNearConsumer(ctx context.Context, client *Client, deliver NearDeliverer, logger *logger.Logger) {
	handler := func(hctx context.Context, d amqp.Delivery) error {
		var ev contracts.NearEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return fmt.Errorf("decode near event: %w", err)
		}
		if err := deliver.PushNear(ev); err != nil {
			return fmt.Errorf("deliver near event: %w", err)
		}
		return nil
	}

	for {
		err := client.Consume(ctx, contracts.QueueNearNotifications, "trackd-near", 8, handler)

		select {
		case <-ctx.Done():
			return
		default:
		}

		if err != nil {
			logger.Error(ctx, "near_consumer_stopped", "Near notification consumer stopped, retrying", err, nil)
		}
		time.Sleep(2 * time.Second)
	}
}
