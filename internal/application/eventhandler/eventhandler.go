// Package eventhandler reacts to classroom events after they are committed.
// Handlers run outside the container lock, so they may read the container
// but must not dispatch into it.
package eventhandler

import "github.com/petgalaxy/classroom-pets/internal/domain/shared"

// Handler is an event handler that knows which events it wants.
// An empty EventTypes subscribes to every event.
type Handler interface {
	Handle(event shared.Event) error
	EventTypes() []shared.EventType
}

// Register subscribes every handler to the bus.
func Register(bus shared.EventSubscriber, handlers ...Handler) error {
	for _, h := range handlers {
		types := h.EventTypes()
		if len(types) == 0 {
			if err := bus.SubscribeAll(h.Handle); err != nil {
				return err
			}
			continue
		}
		for _, t := range types {
			if err := bus.Subscribe(t, h.Handle); err != nil {
				return err
			}
		}
	}
	return nil
}
