package contracts

import "time"

// Envelope carries common metadata on every published message.
type Envelope struct {
	Producer      string    `json:"producer,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	SentAt        time.Time `json:"sent_at,omitempty"`
}

// LocationChangeEvent is published to ExchangeLocationTopic whenever a
// party's live row is upserted or deleted. Deleted=true marks the party
// going offline; coordinate fields are meaningless in that case.
type LocationChangeEvent struct {
	PartyID   string    `json:"party_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"deleted,omitempty"`
	Envelope
}

// NearEvent is published to ExchangeTrackingTopic when the proximity
// detector latches. NotifyPartyID is the party that should receive the
// "your counterpart is near" notification.
type NearEvent struct {
	SessionID      string    `json:"session_id"`
	NotifyPartyID  string    `json:"notify_party_id"`
	PeerPartyID    string    `json:"peer_party_id"`
	DistanceMeters float64   `json:"distance_meters"`
	At             time.Time `json:"at"`
	Envelope
}
