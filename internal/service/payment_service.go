package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/eventlog"
	"storefront/internal/metrics"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateIntentInput asks for a payment intent on an order. A zero Amount
// charges the order total.
type CreateIntentInput struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
}

// IntentResult is returned to the client to confirm the charge
type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"payment_intent_id"`
	AmountMinor     int64  `json:"amount"`
}

// PaymentService defines the interface for the payment processor bridge
type PaymentService interface {
	CreateIntent(ctx context.Context, requester Requester, input CreateIntentInput) (*IntentResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.PaymentEvent, error)
}

type paymentService struct {
	orderRepo     repository.OrderRepository
	processor     payment.Processor
	claimer       payment.EventClaimer
	archive       eventlog.Archive
	webhookSecret string
	now           func() time.Time
	logger        *zap.Logger
}

// NewPaymentService creates a new instance of PaymentService. claimer may be
// nil, in which case replays rely on the conditional paid update alone.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	processor payment.Processor,
	claimer payment.EventClaimer,
	archive eventlog.Archive,
	webhookSecret string,
	logger *zap.Logger,
) PaymentService {
	if archive == nil {
		archive = eventlog.NewNoopArchive()
	}
	return &paymentService{
		orderRepo:     orderRepo,
		processor:     processor,
		claimer:       claimer,
		archive:       archive,
		webhookSecret: webhookSecret,
		now:           time.Now,
		logger:        logger,
	}
}

// CreateIntent starts a charge of round(amount*100) minor units for an
// order the requester may access
func (s *paymentService) CreateIntent(ctx context.Context, requester Requester, input CreateIntentInput) (*IntentResult, error) {
	order, err := s.orderRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if !requester.CanAccess(order.UserID) {
		return nil, ErrAccessDenied
	}
	if order.IsPaid {
		return nil, fmt.Errorf("%w: order is already paid", ErrInvalidInput)
	}

	amount := input.Amount
	if amount.IsZero() {
		amount = order.TotalPrice
	}
	if !domain.RoundMoney(amount).Equal(order.TotalPrice) {
		return nil, fmt.Errorf("%w: amount does not match order total %s", ErrInvalidInput, order.TotalPrice.StringFixed(2))
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, payment.IntentRequest{
		AmountMinor: domain.MinorUnits(amount),
		Metadata: map[string]string{
			"orderId": order.ID.String(),
			"userId":  order.UserID.String(),
		},
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, payment.ErrNotConfigured) {
			outcome = "not_configured"
		}
		metrics.PaymentIntents.WithLabelValues(outcome).Inc()
		return nil, err
	}

	metrics.PaymentIntents.WithLabelValues("created").Inc()
	s.logger.Info("Payment intent created",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", intent.Amount),
	)

	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountMinor:     domain.MinorUnits(amount),
	}, nil
}

// HandleWebhook verifies and applies a processor notification. Nothing in
// payload is looked at before the signature checks out.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.PaymentEvent, error) {
	if err := payment.VerifySignature(payload, signature, s.webhookSecret, payment.DefaultTolerance, s.now()); err != nil {
		s.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, err
	}

	event, err := payment.ParseEvent(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	record := &domain.PaymentEvent{
		ID:         event.ID,
		Type:       event.Type,
		Payload:    string(payload),
		ReceivedAt: s.now().UTC(),
	}

	if event.Type != payment.EventPaymentIntentSucceeded {
		record.Outcome = domain.EventIgnored
		s.finish(ctx, record)
		return record, nil
	}

	intent, err := event.PaymentIntent()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	record.PaymentIntentID = intent.ID
	record.Status = intent.Status
	record.AmountMinor = intent.Amount
	record.OrderID = intent.Metadata["orderId"]

	if s.claimer != nil {
		claimed, err := s.claimer.Claim(ctx, event.ID)
		if err != nil {
			s.logger.Warn("Event claim unavailable, relying on conditional update", zap.String("event_id", event.ID), zap.Error(err))
		} else if !claimed {
			record.Outcome = domain.EventDuplicate
			s.finish(ctx, record)
			return record, nil
		}
	}

	outcome, err := s.markPaid(ctx, record, intent)
	if err != nil {
		if s.claimer != nil {
			if relErr := s.claimer.Release(ctx, event.ID); relErr != nil {
				s.logger.Warn("Failed to release event claim", zap.String("event_id", event.ID), zap.Error(relErr))
			}
		}
		return nil, err
	}

	record.Outcome = outcome
	s.finish(ctx, record)
	return record, nil
}

func (s *paymentService) markPaid(ctx context.Context, record *domain.PaymentEvent, intent *payment.IntentObject) (domain.PaymentEventOutcome, error) {
	orderID, err := uuid.Parse(record.OrderID)
	if err != nil {
		s.logger.Warn("Webhook references no order", zap.String("event_id", record.ID), zap.String("order_id", record.OrderID))
		return domain.EventOrderMissing, nil
	}

	applied, err := s.orderRepo.MarkPaid(ctx, orderID, domain.PaymentResult{ID: intent.ID, Status: intent.Status}, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		s.logger.Warn("Webhook for unknown order", zap.String("event_id", record.ID), zap.String("order_id", record.OrderID))
		return domain.EventOrderMissing, nil
	case err != nil:
		return "", fmt.Errorf("failed to mark order paid: %w", err)
	case !applied:
		s.logger.Warn("Replayed payment for paid order", zap.String("event_id", record.ID), zap.String("order_id", record.OrderID))
		return domain.EventDuplicate, nil
	}

	s.logger.Info("Order paid",
		zap.String("order_id", record.OrderID),
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", intent.Amount),
	)
	return domain.EventApplied, nil
}

// finish archives record and counts it; archive failures never fail the webhook
func (s *paymentService) finish(ctx context.Context, record *domain.PaymentEvent) {
	metrics.WebhookEvents.WithLabelValues(record.Type, string(record.Outcome)).Inc()

	if err := s.archive.Record(ctx, record); err != nil {
		s.logger.Error("Failed to archive payment event", zap.String("event_id", record.ID), zap.Error(err))
	}
}
