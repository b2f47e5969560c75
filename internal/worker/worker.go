package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pricecheck-service/internal/apperror"
	"pricecheck-service/internal/broker"
	"pricecheck-service/internal/models"
	"pricecheck-service/internal/util"
)

const processedTTL = 24 * time.Hour

// PriceChecker runs a price query.
type PriceChecker interface {
	QueryMarket(ctx context.Context, query, platform string) (*models.Summary, error)
}

// FailurePublisher reports price checks that could not be answered.
type FailurePublisher interface {
	PriceCheckFailed(ctx context.Context, req *models.PriceCheckRequestedEvent, reason, kind string) error
}

// Deduplicator remembers handled request ids.
type Deduplicator interface {
	MarkProcessed(ctx context.Context, requestID string, ttl time.Duration) (bool, error)
	ForgetProcessed(ctx context.Context, requestID string) error
}

// PriceCheckWorker answers PriceCheckRequested events. Successful results are
// published by the service's observer; failures are published here.
type PriceCheckWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	checker      PriceChecker
	failures     FailurePublisher
	dedup        Deduplicator
	logger       *zap.Logger
}

// NewPriceCheckWorker creates a new price check worker. dedup may be nil.
func NewPriceCheckWorker(
	consumer *broker.Consumer,
	checker PriceChecker,
	failures FailurePublisher,
	dedup Deduplicator,
) *PriceCheckWorker {
	w := &PriceCheckWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		checker:      checker,
		failures:     failures,
		dedup:        dedup,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnPriceCheckRequested(w.HandlePriceCheckRequested)
	return w
}

// Start starts the worker
func (w *PriceCheckWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting price check worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PriceCheckWorker) Stop() error {
	w.logger.Info("Stopping price check worker")
	return w.consumer.Close()
}

// HandlePriceCheckRequested runs one requested price check. A returned error
// leaves the message uncommitted so it is delivered again.
func (w *PriceCheckWorker) HandlePriceCheckRequested(ctx context.Context, event *models.PriceCheckRequestedEvent) error {
	logger := w.logger.With(zap.String("request_id", event.RequestID), zap.String("query", event.Query))

	if w.dedup != nil && event.RequestID != "" {
		first, err := w.dedup.MarkProcessed(ctx, event.RequestID, processedTTL)
		if err != nil {
			logger.Warn("Dedup check failed, processing anyway", zap.Error(err))
		} else if !first {
			logger.Info("Skipping duplicate price check request")
			return nil
		}
	}

	ctx = util.WithRequestID(ctx, event.RequestID)
	_, err := w.checker.QueryMarket(ctx, event.Query, event.Platform)
	if err == nil {
		return nil
	}

	logger.Warn("Requested price check failed", zap.Error(err))
	if perr := w.failures.PriceCheckFailed(ctx, event, err.Error(), apperror.KindOf(err).String()); perr != nil {
		if w.dedup != nil && event.RequestID != "" {
			if ferr := w.dedup.ForgetProcessed(ctx, event.RequestID); ferr != nil {
				logger.Error("Failed to reset dedup marker", zap.Error(ferr))
			}
		}
		return perr
	}
	return nil
}
