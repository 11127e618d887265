package observer

import (
	"context"
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of the collected counters
type MetricsSnapshot struct {
	Started           int64            `json:"started"`
	Completed         int64            `json:"completed"`
	Failed            int64            `json:"failed"`
	Degraded          int64            `json:"degraded"`
	UploadFailures    int64            `json:"upload_failures"`
	ChatFallbacks     int64            `json:"chat_fallbacks"`
	AvgProcessingTime float64          `json:"avg_processing_time_sec"`
	ByMode            map[string]int64 `json:"by_mode"`
	ByProcessType     map[string]int64 `json:"by_process_type"`
}

// MetricsObserver collects metrics from processing events
type MetricsObserver struct {
	mu                  sync.RWMutex
	started             int64
	completed           int64
	failed              int64
	degraded            int64
	uploadFailures      int64
	chatFallbacks       int64
	totalProcessingTime time.Duration
	byMode              map[string]int64
	byProcessType       map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		byMode:        make(map[string]int64),
		byProcessType: make(map[string]int64),
	}
}

// OnEvent handles processing events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ProcessingEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.Type {
	case ProcessingStarted:
		o.started++
	case ProcessingCompleted, ProcessingDegraded:
		if event.Type == ProcessingCompleted {
			o.completed++
		} else {
			o.degraded++
		}
		o.totalProcessingTime += event.Duration
		if event.Mode != "" {
			o.byMode[event.Mode]++
		}
		if event.ProcessType != "" {
			o.byProcessType[event.ProcessType]++
		}
	case ProcessingFailed:
		o.failed++
	case UploadFailed:
		o.uploadFailures++
	case ChatFallback:
		o.chatFallbacks++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics. The average covers completed and
// degraded requests.
func (o *MetricsObserver) GetMetrics() MetricsSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var avg float64
	if finished := o.completed + o.degraded; finished > 0 {
		avg = (o.totalProcessingTime / time.Duration(finished)).Seconds()
	}

	snap := MetricsSnapshot{
		Started:           o.started,
		Completed:         o.completed,
		Failed:            o.failed,
		Degraded:          o.degraded,
		UploadFailures:    o.uploadFailures,
		ChatFallbacks:     o.chatFallbacks,
		AvgProcessingTime: avg,
		ByMode:            make(map[string]int64, len(o.byMode)),
		ByProcessType:     make(map[string]int64, len(o.byProcessType)),
	}
	for k, v := range o.byMode {
		snap.ByMode[k] = v
	}
	for k, v := range o.byProcessType {
		snap.ByProcessType[k] = v
	}
	return snap
}
