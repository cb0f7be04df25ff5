// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to the classroom.
const (
	// Pet events
	EventPetAdopted    EventType = "pet.adopted"
	EventPointsChanged EventType = "pet.points_changed"
	EventPetLeveledUp  EventType = "pet.leveled_up"
	EventPetMaxed      EventType = "pet.maxed"

	// Roster events
	EventStudentSaved   EventType = "student.saved"
	EventStudentRemoved EventType = "student.removed"

	// System events
	EventClassroomReset EventType = "classroom.reset"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event. The timestamp is supplied by the
// caller so reducers stay free of wall-clock reads.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pet Events
// ═══════════════════════════════════════════════════════════════════════════

// PetAdoptedEvent is emitted when a student adopts a pet.
type PetAdoptedEvent struct {
	BaseEvent
	PetName string `json:"pet_name"`
}

// Payload implements Event interface.
func (e PetAdoptedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"pet_name": e.PetName,
	}
}

// PointsChangedEvent is emitted whenever a pet's point balance moves.
type PointsChangedEvent struct {
	BaseEvent
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Reason   string `json:"reason"`
}

// Payload implements Event interface.
func (e PointsChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"reason":    e.Reason,
	}
}

// PetLeveledUpEvent is emitted when a pet reaches a new stage.
type PetLeveledUpEvent struct {
	BaseEvent
	OldStage int `json:"old_stage"`
	NewStage int `json:"new_stage"`
}

// Payload implements Event interface.
func (e PetLeveledUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_stage": e.OldStage,
		"new_stage": e.NewStage,
	}
}

// PetMaxedEvent is emitted once a pet hits the terminal state and its
// certificate unlocks.
type PetMaxedEvent struct {
	BaseEvent
	PetName string `json:"pet_name"`
}

// Payload implements Event interface.
func (e PetMaxedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"pet_name": e.PetName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Roster & System Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentSavedEvent is emitted when a student joins or is edited.
type StudentSavedEvent struct {
	BaseEvent
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// Payload implements Event interface.
func (e StudentSavedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":    e.Name,
		"created": e.Created,
	}
}

// StudentRemovedEvent is emitted when a student and their pet are deleted.
type StudentRemovedEvent struct {
	BaseEvent
	HadPet bool `json:"had_pet"`
}

// Payload implements Event interface.
func (e StudentRemovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"had_pet": e.HadPet,
	}
}

// ClassroomResetEvent is emitted when all data is wiped.
type ClassroomResetEvent struct {
	BaseEvent
	StudentsRemoved int `json:"students_removed"`
}

// Payload implements Event interface.
func (e ClassroomResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"students_removed": e.StudentsRemoved,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
