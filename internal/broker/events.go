package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"pricecheck-service/internal/models"
	"pricecheck-service/internal/util"
)

// EventProducer writes a keyed event to a topic.
type EventProducer interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing price check results
type EventPublisher struct {
	producer EventProducer
	now      func() time.Time
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventProducer) *EventPublisher {
	return &EventPublisher{producer: producer, now: time.Now}
}

func (ep *EventPublisher) newBase(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: ep.now().UTC(),
	}
}

// PublishPriceChecked publishes PriceChecked event
func (ep *EventPublisher) PublishPriceChecked(ctx context.Context, event *models.PriceCheckedEvent) error {
	if err := ep.producer.PublishEvent(ctx, "item-"+event.Slug, event); err != nil {
		return err
	}
	util.PriceEventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return nil
}

// PublishPriceCheckFailed publishes PriceCheckFailed event
func (ep *EventPublisher) PublishPriceCheckFailed(ctx context.Context, event *models.PriceCheckFailedEvent) error {
	if err := ep.producer.PublishEvent(ctx, "request-"+event.RequestID, event); err != nil {
		return err
	}
	util.PriceEventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return nil
}

// PriceChecked publishes the result of a successful query. The request id is
// taken from ctx when present.
func (ep *EventPublisher) PriceChecked(ctx context.Context, query, platform string, summary *models.Summary) error {
	return ep.PublishPriceChecked(ctx, &models.PriceCheckedEvent{
		BaseEvent: ep.newBase(models.EventTypePriceChecked),
		RequestID: util.RequestIDFromContext(ctx),
		Query:     query,
		Platform:  platform,
		Slug:      summary.Slug,
		Name:      summary.Name,
		Sell:      summary.Statistics.Sell,
		Buy:       summary.Statistics.Buy,
	})
}

// PriceCheckFailed publishes a failure for a requested price check.
func (ep *EventPublisher) PriceCheckFailed(ctx context.Context, req *models.PriceCheckRequestedEvent, reason, kind string) error {
	return ep.PublishPriceCheckFailed(ctx, &models.PriceCheckFailedEvent{
		BaseEvent: ep.newBase(models.EventTypePriceCheckFailed),
		RequestID: req.RequestID,
		Query:     req.Query,
		Platform:  req.Platform,
		Reason:    reason,
		Kind:      kind,
	})
}

// RequestPublisher enqueues price checks for the worker
type RequestPublisher struct {
	producer EventProducer
}

func NewRequestPublisher(producer EventProducer) *RequestPublisher {
	return &RequestPublisher{producer: producer}
}

// RequestPriceCheck publishes a PriceCheckRequested event and returns its request id.
func (rp *RequestPublisher) RequestPriceCheck(ctx context.Context, query, platform string) (string, error) {
	requestID := uuid.New().String()
	event := &models.PriceCheckRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePriceCheckRequested,
			Timestamp: time.Now().UTC(),
		},
		RequestID: requestID,
		Query:     query,
		Platform:  platform,
	}
	if err := rp.producer.PublishEvent(ctx, "request-"+requestID, event); err != nil {
		return "", err
	}
	return requestID, nil
}

// EventHandler handles incoming events
type EventHandler struct {
	onPriceCheckRequested func(context.Context, *models.PriceCheckRequestedEvent) error
	logger                *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnPriceCheckRequested registers a handler for PriceCheckRequested events
func (eh *EventHandler) OnPriceCheckRequested(handler func(context.Context, *models.PriceCheckRequestedEvent) error) {
	eh.onPriceCheckRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypePriceCheckRequested:
		if eh.onPriceCheckRequested != nil {
			var event models.PriceCheckRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PriceCheckRequested event: %w", err)
			}
			return eh.onPriceCheckRequested(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
