package services

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/revisia/revisia-backend/internal/clients/redis"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
)

// RevisionNotifier fans revision lifecycle events out to the frontend.
// Publishing is best effort: a failed publish is logged, never surfaced.
type RevisionNotifier interface {
	SessionStarted(ctx context.Context, userID, syntheseID uuid.UUID)
	SessionCompleted(ctx context.Context, userID, syntheseID uuid.UUID, iterationsCount int, masteryScore *int)
	SessionStopped(ctx context.Context, userID, syntheseID uuid.UUID)
	SessionExpired(ctx context.Context, userID, syntheseID uuid.UUID)
}

type revisionNotifier struct {
	log *logger.Logger
	bus redisclient.Bus
}

// NewRevisionNotifier wraps the event bus; a nil bus yields a notifier
// that only logs (local development without Redis).
func NewRevisionNotifier(log *logger.Logger, bus redisclient.Bus) RevisionNotifier {
	return &revisionNotifier{log: log.With("service", "RevisionNotifier"), bus: bus}
}

type revisionEventPayload struct {
	UserID          uuid.UUID `json:"user_id"`
	SyntheseID      uuid.UUID `json:"synthese_id"`
	IterationsCount int       `json:"iterations_count,omitempty"`
	MasteryScore    *int      `json:"mastery_score,omitempty"`
}

func (n *revisionNotifier) publish(ctx context.Context, event string, payload revisionEventPayload) {
	if n.bus == nil {
		n.log.Debug("Event bus not configured, dropping event", "event", event)
		return
	}
	if err := n.bus.Publish(ctx, event, payload); err != nil {
		n.log.Warn("Failed to publish revision event", "event", event, "error", err)
	}
}

func (n *revisionNotifier) SessionStarted(ctx context.Context, userID, syntheseID uuid.UUID) {
	n.publish(ctx, "revision.started", revisionEventPayload{UserID: userID, SyntheseID: syntheseID})
}

func (n *revisionNotifier) SessionCompleted(ctx context.Context, userID, syntheseID uuid.UUID, iterationsCount int, masteryScore *int) {
	n.publish(ctx, "revision.completed", revisionEventPayload{
		UserID:          userID,
		SyntheseID:      syntheseID,
		IterationsCount: iterationsCount,
		MasteryScore:    masteryScore,
	})
}

func (n *revisionNotifier) SessionStopped(ctx context.Context, userID, syntheseID uuid.UUID) {
	n.publish(ctx, "revision.stopped", revisionEventPayload{UserID: userID, SyntheseID: syntheseID})
}

func (n *revisionNotifier) SessionExpired(ctx context.Context, userID, syntheseID uuid.UUID) {
	n.publish(ctx, "revision.expired", revisionEventPayload{UserID: userID, SyntheseID: syntheseID})
}
