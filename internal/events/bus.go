package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// Bus implements interfaces.EventBus with trigger -> handler fan-out and a
// persisted execution log. Handlers for the same trigger run concurrently;
// a handler failure never aborts its siblings and never escapes Publish.
type Bus struct {
	subscribers map[interfaces.Trigger][]interfaces.EventHandler
	custom      map[string]interfaces.Trigger
	logStorage  interfaces.EventLogStorage
	logger      arbor.ILogger
	mu          sync.RWMutex
}

// NewBus creates an event bus backed by the given event log storage
func NewBus(logStorage interfaces.EventLogStorage, logger arbor.ILogger) *Bus {
	bus := &Bus{
		subscribers: make(map[interfaces.Trigger][]interfaces.EventHandler),
		custom:      make(map[string]interfaces.Trigger),
		logStorage:  logStorage,
		logger:      logger,
	}
	for _, t := range builtinTriggers {
		bus.custom[string(t)] = t
	}
	return bus
}

var builtinTriggers = []interfaces.Trigger{
	interfaces.TriggerNewProject,
	interfaces.TriggerProjectUpdate,
	interfaces.TriggerProjectRemove,
	interfaces.TriggerNewAsset,
	interfaces.TriggerAssetUpdate,
	interfaces.TriggerAssetRemove,
	interfaces.TriggerGithubPush,
	interfaces.TriggerGithubPR,
	interfaces.TriggerBlockchainEvent,
	interfaces.TriggerContractUpgraded,
}

// RegisterCustom returns the existing trigger registered under name or
// mints a new one. Newly minted triggers behave identically to built-ins.
func (b *Bus) RegisterCustom(name string) interfaces.Trigger {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.custom[name]; ok {
		return t
	}
	t := interfaces.Trigger(name)
	b.custom[name] = t

	b.logger.Debug().Str("trigger", name).Msg("Custom trigger registered")
	return t
}

// Subscribe registers a handler for every trigger it declares
func (b *Bus) Subscribe(handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	triggers := handler.Triggers()
	if len(triggers) == 0 {
		return fmt.Errorf("handler %s declares no triggers", handler.Name())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range triggers {
		b.subscribers[t] = append(b.subscribers[t], handler)
		b.logger.Debug().
			Str("handler", handler.Name()).
			Str("trigger", string(t)).
			Int("subscriber_count", len(b.subscribers[t])).
			Msg("Event handler subscribed")
	}
	return nil
}

// Publish fans the event out to all handlers registered for the trigger,
// waits for them all and writes exactly one event log row per invocation.
// Individual handler failures are logged and swallowed; the publisher can
// only observe them through the event log.
func (b *Bus) Publish(ctx context.Context, trigger interfaces.Trigger, payload map[string]interface{}) error {
	b.mu.RLock()
	handlers := make([]interfaces.EventHandler, len(b.subscribers[trigger]))
	copy(handlers, b.subscribers[trigger])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug().Str("trigger", string(trigger)).Msg("No subscribers for trigger")
		return nil
	}

	b.logger.Info().
		Str("trigger", string(trigger)).
		Int("subscriber_count", len(handlers)).
		Msg("Publishing event")

	event := interfaces.Event{Trigger: trigger, Payload: payload}

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h interfaces.EventHandler) {
			defer wg.Done()
			b.invoke(ctx, h, event)
		}(handler)
	}
	wg.Wait()

	return nil
}

// invoke runs one handler with panic isolation and records the outcome
func (b *Bus) invoke(ctx context.Context, h interfaces.EventHandler, event interfaces.Event) {
	var result *models.HandlerResult
	var err error

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("handler panicked: %v", rec)
			}
		}()
		result, err = h.Handle(ctx, event)
	}()

	var record map[string]interface{}
	if err != nil {
		b.logger.Error().
			Err(err).
			Str("handler", h.Name()).
			Str("trigger", string(event.Trigger)).
			Msg("Event handler failed")
		record = map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		}
	} else {
		record = map[string]interface{}{"success": true}
		if result != nil {
			record["success"] = result.Success
			if result.Data != nil {
				record["data"] = result.Data
			}
		}
	}

	logRow := models.NewEventLog(h.Name(), string(event.Trigger), record)
	if saveErr := b.logStorage.SaveEventLog(ctx, logRow); saveErr != nil {
		b.logger.Error().
			Err(saveErr).
			Str("handler", h.Name()).
			Str("trigger", string(event.Trigger)).
			Msg("Failed to persist event log")
	}
}

// Close drops all subscriptions
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = make(map[interfaces.Trigger][]interfaces.EventHandler)
	b.logger.Info().Msg("Event bus closed")
	return nil
}
