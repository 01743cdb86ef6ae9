package runner

import (
	"context"
	"sync"
)

// Handler receives run events.
type Handler interface {
	Event(ctx context.Context, event Event, result *Result) error
	Err(text string) error
}

// Formatter renders events for a human or a tool.
type Formatter interface {
	Format(event Event, result *Result) error
	Summary(result *Result) error
}

// MultiHandler dispatches events to several handlers in order, stopping at
// the first error.
type MultiHandler struct {
	handlers []Handler
}

// NewMultiHandler combines handlers.
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Event forwards event to every handler.
func (m *MultiHandler) Event(ctx context.Context, event Event, result *Result) error {
	for _, h := range m.handlers {
		if err := h.Event(ctx, event, result); err != nil {
			return err
		}
	}

	return nil
}

// Err forwards text to every handler.
func (m *MultiHandler) Err(text string) error {
	for _, h := range m.handlers {
		if err := h.Err(text); err != nil {
			return err
		}
	}

	return nil
}

// ResultHandler records terminal events in the result.
type ResultHandler struct{}

// NewResultHandler creates a ResultHandler.
func NewResultHandler() *ResultHandler { return &ResultHandler{} }

// Event adds event to result.
func (h *ResultHandler) Event(_ context.Context, event Event, result *Result) error {
	result.Add(event)

	return nil
}

// Err discards text.
func (h *ResultHandler) Err(string) error { return nil }

// StopOnFailHandler returns ErrMaxFailures once max files have failed.
type StopOnFailHandler struct {
	max int
}

// NewStopOnFailHandler stops after max failures. Zero never stops.
func NewStopOnFailHandler(maxFailures int) *StopOnFailHandler {
	return &StopOnFailHandler{max: maxFailures}
}

// Event checks the failure count after the result has been updated.
func (h *StopOnFailHandler) Event(_ context.Context, event Event, result *Result) error {
	if h.max <= 0 || !event.Action.IsTerminal() {
		return nil
	}

	if result.Failed+result.Errors >= h.max {
		return ErrMaxFailures
	}

	return nil
}

// Err discards text.
func (h *StopOnFailHandler) Err(string) error { return nil }

// FormatHandler adapts a Formatter to Handler.
type FormatHandler struct {
	formatter Formatter
	err       func(string) error
}

// NewFormatHandler writes events through f and errors through errf.
func NewFormatHandler(f Formatter, errf func(string) error) *FormatHandler {
	return &FormatHandler{formatter: f, err: errf}
}

// Event formats event.
func (h *FormatHandler) Event(_ context.Context, event Event, result *Result) error {
	return h.formatter.Format(event, result)
}

// Err reports text.
func (h *FormatHandler) Err(text string) error {
	if h.err == nil {
		return nil
	}

	return h.err(text)
}

// Summary renders the final summary.
func (h *FormatHandler) Summary(result *Result) error { return h.formatter.Summary(result) }

// syncHandler serialises calls into a handler for concurrent workers.
type syncHandler struct {
	mu sync.Mutex
	h  Handler
}

func (s *syncHandler) Event(ctx context.Context, event Event, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.h.Event(ctx, event, result)
}

func (s *syncHandler) Err(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.h.Err(text)
}
