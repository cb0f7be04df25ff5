package eventhandler

import (
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ACTIVITY LOG HANDLER
// Writes one structured line per classroom event.
// ═══════════════════════════════════════════════════════════════════════════

// ActivityLogHandler logs every event.
type ActivityLogHandler struct {
	log *logger.Logger
}

// NewActivityLogHandler creates the handler.
func NewActivityLogHandler(log *logger.Logger) *ActivityLogHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ActivityLogHandler{log: log.With(logger.Component("activity"))}
}

// Handle implements Handler.
func (h *ActivityLogHandler) Handle(event shared.Event) error {
	fields := []logger.Field{
		logger.String("event_type", string(event.EventType())),
		logger.StudentID(event.AggregateID()),
		logger.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case shared.PointsChangedEvent:
		fields = append(fields,
			logger.Points(e.Amount),
			logger.Int("new_total", e.NewTotal),
			logger.String("reason", e.Reason),
		)
	case shared.PetAdoptedEvent:
		fields = append(fields, logger.PetName(e.PetName))
	case shared.PetLeveledUpEvent:
		fields = append(fields, logger.Int("old_stage", e.OldStage), logger.Stage(e.NewStage))
	case shared.PetMaxedEvent:
		// Certificate unlocked; worth surfacing above debug.
		h.log.Info("pet fully grown", append(fields, logger.PetName(e.PetName))...)
		return nil
	case shared.ClassroomResetEvent:
		h.log.Warn("classroom reset", append(fields, logger.Int("students_removed", e.StudentsRemoved))...)
		return nil
	default:
		for k, v := range event.Payload() {
			fields = append(fields, logger.Any(k, v))
		}
	}

	h.log.Debug("classroom event", fields...)
	return nil
}

// EventTypes implements Handler.
func (h *ActivityLogHandler) EventTypes() []shared.EventType {
	return nil
}
