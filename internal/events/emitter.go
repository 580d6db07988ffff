package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events synchronously to the handlers
// subscribed to their type and to handlers registered for every type.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	all    []EventHandler
	byType map[string][]EventHandler
	logger *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		byType: make(map[string][]EventHandler),
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler subscribes handler to every event type.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, handler)
}

// Subscribe registers handler for events of the given types only.
func (e *InMemoryEventEmitter) Subscribe(handler EventHandler, eventTypes ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range eventTypes {
		e.byType[t] = append(e.byType[t], handler)
	}
}

func (e *InMemoryEventEmitter) handlersFor(eventType string) []EventHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	handlers := make([]EventHandler, 0, len(e.all)+len(e.byType[eventType]))
	handlers = append(handlers, e.byType[eventType]...)
	return append(handlers, e.all...)
}

// EmitEvent delivers event to every matching handler. A failing handler does
// not stop delivery to the others; all failures are joined into the result.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	handlers := e.handlersFor(event.Type)
	if len(handlers) == 0 {
		e.logger.DebugContext(ctx, "no handlers for event",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.ErrorContext(ctx, "event handler failed",
				slog.String("error", err.Error()),
				slog.Int("handler_index", i),
				slog.String("event_type", event.Type),
				slog.String("event_id", event.ID.String()))
			errs = append(errs, fmt.Errorf("%s handler %d: %w", event.Type, i, err))
		}
	}
	return errors.Join(errs...)
}

// LoggingHandler writes rank changes and matches to the log. Other events are ignored.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With(slog.String("component", "event_log"))}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *Event) error {
	switch event.Type {
	case TypeRankChanged:
		var payload RankChanged
		if err := event.UnmarshalPayload(&payload); err != nil {
			return err
		}
		h.logger.InfoContext(ctx, "player rank changed",
			slog.Int64("player_id", payload.Change.PlayerID),
			slog.String("type", string(payload.Change.Type)),
			slog.String("old_tier", string(payload.Change.OldTier)),
			slog.String("new_tier", string(payload.Change.NewTier)),
			slog.Int("new_rating", payload.Change.NewRating),
			slog.String("battle_id", payload.BattleID.String()))

	case TypeMatchFound:
		var payload MatchFound
		if err := event.UnmarshalPayload(&payload); err != nil {
			return err
		}
		h.logger.DebugContext(ctx, "match delivered",
			slog.String("match_id", payload.Match.ID.String()),
			slog.Any("recipients", payload.Recipients))
	}
	return nil
}
