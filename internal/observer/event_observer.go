package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-photo-culler/pkg/models"
)

// BatchEvent represents one event emitted during a batch run.
type BatchEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	BatchID        int64                  `json:"batch_id"`
	Filename       string                 `json:"filename,omitempty"`
	Disposition    string                 `json:"disposition,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Progress       *models.BatchProgress  `json:"progress,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of batch event
type EventType string

const (
	// BatchStarted when a batch run begins
	BatchStarted EventType = "batch_started"
	// ItemCompleted when one file has been analyzed and recorded
	ItemCompleted EventType = "item_completed"
	// ItemFailed when one file could not be processed
	ItemFailed EventType = "item_failed"
	// ChunkSettled when a chunk has fully merged and counters were persisted
	ChunkSettled EventType = "chunk_settled"
	// BatchPaused when processing is suspended at a chunk boundary
	BatchPaused EventType = "batch_paused"
	// BatchResumed when a paused run continues
	BatchResumed EventType = "batch_resumed"
	// BatchCompleted when all files have been processed
	BatchCompleted EventType = "batch_completed"
	// BatchCancelled when a run was stopped before finishing
	BatchCancelled EventType = "batch_cancelled"
)

// Observer defines the interface for batch event observers
type Observer interface {
	OnEvent(ctx context.Context, event BatchEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event BatchEvent)
}

// LoggingObserver logs batch events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles batch events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event BatchEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"batch_id":   event.BatchID,
	}

	if event.Filename != "" {
		fields["filename"] = event.Filename
	}
	if event.Disposition != "" {
		fields["disposition"] = event.Disposition
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	if event.Progress != nil {
		fields["processed"] = event.Progress.Processed
		fields["total"] = event.Progress.Total
		fields["percentage"] = event.Progress.Percentage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case BatchStarted:
		o.logger.WithFields(fields).Info("Batch run started")
	case ItemCompleted:
		o.logger.WithFields(fields).Debug("Image processed")
	case ItemFailed:
		o.logger.WithFields(fields).Error("Image processing failed")
	case ChunkSettled:
		o.logger.WithFields(fields).Info("Chunk settled")
	case BatchPaused:
		o.logger.WithFields(fields).Info("Batch paused")
	case BatchResumed:
		o.logger.WithFields(fields).Info("Batch resumed")
	case BatchCompleted:
		o.logger.WithFields(fields).Info("Batch completed")
	case BatchCancelled:
		o.logger.WithFields(fields).Warn("Batch cancelled")
	default:
		o.logger.WithFields(fields).Info("Batch event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects metrics from batch events
type MetricsObserver struct {
	mu                  sync.RWMutex
	batchesStarted      int64
	batchesCompleted    int64
	batchesCancelled    int64
	itemsProcessed      int64
	itemsFailed         int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles batch events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event BatchEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case BatchStarted:
		o.batchesStarted++
	case ItemCompleted:
		o.itemsProcessed++
		o.totalProcessingTime += event.ProcessingTime
	case ItemFailed:
		o.itemsFailed++
	case BatchCompleted:
		o.batchesCompleted++
	case BatchCancelled:
		o.batchesCancelled++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.itemsProcessed > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.itemsProcessed)
	}

	return map[string]interface{}{
		"batches_started":       o.batchesStarted,
		"batches_completed":     o.batchesCompleted,
		"batches_cancelled":     o.batchesCancelled,
		"items_processed":       o.itemsProcessed,
		"items_failed":          o.itemsFailed,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Delivery is synchronous
// so that progress-carrying events arrive in order.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event BatchEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}()
	}
}
