package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotConfigured    = errors.New("payment processor not configured")
	ErrUnavailable      = errors.New("payment processor unavailable")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// EventPaymentIntentSucceeded is the only event type that changes an order
const EventPaymentIntentSucceeded = "payment_intent.succeeded"

// IntentRequest asks the processor to start a charge
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// Intent is the processor's handle for an in-progress charge
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Processor creates payment intents on an external payment processor
type Processor interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// Event is a webhook notification envelope
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// IntentObject is the payment intent carried by payment_intent.* events
type IntentObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// ParseEvent decodes a verified webhook payload
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, errors.New("event is missing id or type")
	}
	return &event, nil
}

// PaymentIntent decodes the event object as a payment intent
func (e *Event) PaymentIntent() (*IntentObject, error) {
	var intent IntentObject
	if err := json.Unmarshal(e.Data.Object, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	return &intent, nil
}
