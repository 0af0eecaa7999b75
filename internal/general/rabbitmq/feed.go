package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"peertrack/internal/domain/geo"
	"peertrack/internal/domain/track"
	"peertrack/internal/general/contracts"
	"peertrack/internal/general/logger"
)

// LocationFeed is the subscribe-to-changes side of the shared live-position
// store. Each subscription gets a private auto-delete queue bound to the
// peer's routing key, so delivery order per party is the broker's queue
// order.
type LocationFeed struct {
	client *Client
	logger *logger.Logger
}

func NewLocationFeed(client *Client, logger *logger.Logger) *LocationFeed {
	return &LocationFeed{client: client, logger: logger}
}

// Subscribe starts delivering decoded change events for one party. A delete
// event delivers nil (party offline). The returned stop function tears the
// consumer down; it is safe to call more than once.
func (f *LocationFeed) Subscribe(ctx context.Context, partyID string, fn func(*track.LiveLocationRecord)) (func(), error) {
	ch, err := f.client.newConsumerChannel(0)
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare("", false /* durable */, true /* autoDelete */, true /* exclusive */, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: declare feed queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, partyID, contracts.ExchangeLocationTopic, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: bind feed queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true /* autoAck */, true /* exclusive */, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: consume feed queue: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					// channel closed underneath us; the peer stays
					// unreconciled until the caller resubscribes
					f.logger.Error(subCtx, "location_feed_closed",
						"Live location feed closed unexpectedly", nil,
						map[string]any{"party_id": partyID})
					return
				}

				var ev contracts.LocationChangeEvent
				if err := json.Unmarshal(d.Body, &ev); err != nil {
					f.logger.Error(subCtx, "location_feed_decode_failed",
						"Failed to decode location change event", err,
						map[string]any{"party_id": partyID})
					continue
				}

				if ev.Deleted {
					fn(nil)
					continue
				}
				fn(&track.LiveLocationRecord{
					PartyID: ev.PartyID,
					Coordinate: geo.Coordinate{
						Latitude:  ev.Latitude,
						Longitude: ev.Longitude,
						Heading:   ev.Heading,
						Speed:     ev.Speed,
					},
					UpdatedAt: ev.UpdatedAt,
				})
			}
		}
	}()

	stop := func() {
		cancel()
		_ = ch.Close()
	}
	return stop, nil
}
