package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// AlertHandler is invoked for every alert that passes through the pipeline.
type AlertHandler func(alert *Alert)

// AlertPipeline fans alerts out to registered handlers and keeps a bounded
// in-memory store of the most recent alerts.
type AlertPipeline struct {
	mu       sync.RWMutex
	logger   zerolog.Logger
	handlers []AlertHandler
	store    []*Alert
	maxStore int
	total    int64
}

// NewAlertPipeline creates an alert pipeline holding up to maxStore alerts.
func NewAlertPipeline(logger zerolog.Logger, maxStore int) *AlertPipeline {
	if maxStore <= 0 {
		maxStore = 10000
	}
	return &AlertPipeline{
		logger:   logger.With().Str("component", "alert_pipeline").Logger(),
		maxStore: maxStore,
	}
}

// AddHandler registers a handler invoked synchronously for every alert.
func (p *AlertPipeline) AddHandler(h AlertHandler) {
	p.mu.Lock()
	p.handlers = append(p.handlers, h)
	p.mu.Unlock()
}

// Process stores the alert and dispatches it to all handlers.
func (p *AlertPipeline) Process(alert *Alert) {
	p.mu.Lock()
	p.total++
	p.store = append(p.store, alert)
	if len(p.store) > p.maxStore {
		p.store = p.store[len(p.store)-p.maxStore:]
	}
	handlers := make([]AlertHandler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.Unlock()

	for _, h := range handlers {
		h(alert)
	}

	p.logger.Debug().
		Str("alert_id", alert.ID).
		Str("type", alert.Type).
		Str("severity", alert.Severity.String()).
		Msg("alert processed")
}

// Recent returns up to n of the most recent alerts in chronological order.
func (p *AlertPipeline) Recent(n int) []*Alert {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n > len(p.store) {
		n = len(p.store)
	}
	if n <= 0 {
		return []*Alert{}
	}
	out := make([]*Alert, n)
	copy(out, p.store[len(p.store)-n:])
	return out
}

// Total returns the number of alerts processed over the pipeline's lifetime.
func (p *AlertPipeline) Total() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}
