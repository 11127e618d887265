package observer

import (
	"context"
	"sync"
	"time"

	"heri-science-api/internal/logger"

	"github.com/sirupsen/logrus"
)

// ProcessingEvent describes one step of a request's lifecycle
type ProcessingEvent struct {
	Type        EventType              `json:"type"`
	RequestID   string                 `json:"request_id"`
	ProcessType string                 `json:"process_type,omitempty"`
	Mode        string                 `json:"mode,omitempty"`
	Duration    time.Duration          `json:"duration_ns,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of processing event
type EventType string

const (
	// ProcessingStarted when a processing request is accepted
	ProcessingStarted EventType = "processing_started"
	// ProcessingCompleted when the pipeline produced its full result
	ProcessingCompleted EventType = "processing_completed"
	// ProcessingFailed when the request could not produce any image
	ProcessingFailed EventType = "processing_failed"
	// ProcessingDegraded when the pipeline failed and a fallback result was served
	ProcessingDegraded EventType = "processing_degraded"
	// UploadFailed when every remote upload backend failed
	UploadFailed EventType = "upload_failed"
	// ChatFallback when no chat provider answered
	ChatFallback EventType = "chat_fallback"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ProcessingEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ProcessingEvent)
}

// LoggingObserver logs processing events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles processing events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ProcessingEvent) {
	fields := logrus.Fields{
		"event_type": event.Type,
		"request_id": event.RequestID,
	}
	if event.ProcessType != "" {
		fields["process_type"] = event.ProcessType
	}
	if event.Mode != "" {
		fields["mode"] = event.Mode
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.Type {
	case ProcessingStarted:
		entry.Debug("Image processing started")
	case ProcessingCompleted:
		entry.Info("Image processing completed")
	case ProcessingFailed:
		entry.Error("Image processing failed")
	case ProcessingDegraded:
		entry.Warn("Image processing degraded to fallback")
	case UploadFailed:
		entry.Warn("Remote upload failed")
	case ChatFallback:
		entry.Warn("Chat providers unavailable, served fallback")
	default:
		entry.Info("Processing event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	pending   sync.WaitGroup
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

// NotifyObservers notifies all observers of an event. Observers run
// concurrently and outlive the request context's cancellation.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ProcessingEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)

	for _, observer := range observers {
		p.pending.Add(1)
		go func(obs Observer) {
			defer p.pending.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logger.WithFields(logrus.Fields{
						"observer":   obs.GetObserverName(),
						"event":      event.Type,
						"request_id": event.RequestID,
						"panic":      r,
					}).Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every notification in flight has been handled
func (p *EventPublisher) Wait() {
	p.pending.Wait()
}
