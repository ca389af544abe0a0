package domain

import "time"

// PaymentEventOutcome records what a webhook delivery did
type PaymentEventOutcome string

const (
	EventApplied      PaymentEventOutcome = "applied"
	EventDuplicate    PaymentEventOutcome = "duplicate"
	EventOrderMissing PaymentEventOutcome = "order_missing"
	EventIgnored      PaymentEventOutcome = "ignored"
)

// PaymentEvent is an archived, signature-verified processor notification
type PaymentEvent struct {
	ID              string              `json:"id" bson:"_id"`
	Type            string              `json:"type" bson:"type"`
	PaymentIntentID string              `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	OrderID         string              `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Status          string              `json:"status,omitempty" bson:"status,omitempty"`
	AmountMinor     int64               `json:"amount_minor" bson:"amount_minor"`
	Outcome         PaymentEventOutcome `json:"outcome" bson:"outcome"`
	Payload         string              `json:"-" bson:"payload"`
	ReceivedAt      time.Time           `json:"received_at" bson:"received_at"`
}
