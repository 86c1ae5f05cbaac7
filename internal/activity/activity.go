// Package activity appends entries to the couple's audit feed.
package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"to-dogether/internal/models"
	"to-dogether/internal/repository"
	"to-dogether/pkg/logger"
)

// Entry describes one action. An empty Message is replaced by DefaultMessage.
type Entry struct {
	UserID      int
	Type        models.ActivityType
	EntityType  models.EntityType
	EntityID    int
	EntityTitle string
	Message     string
}

// DefaultMessage renders the fallback text for an activity.
func DefaultMessage(t models.ActivityType, et models.EntityType, title string) string {
	switch t {
	case models.ActivityCreated:
		return fmt.Sprintf(`Created new %s "%s"`, et.Noun(), title)
	case models.ActivityUpdated:
		return fmt.Sprintf(`Updated %s "%s"`, et.Noun(), title)
	case models.ActivityDeleted:
		return fmt.Sprintf(`Deleted %s "%s"`, et.Noun(), title)
	case models.ActivityCompleted:
		return fmt.Sprintf(`Completed "%s"`, title)
	case models.ActivityReopened:
		return fmt.Sprintf(`Reopened "%s"`, title)
	case models.ActivityItemAdded:
		return fmt.Sprintf(`Added item to "%s"`, title)
	case models.ActivityItemUpdated:
		return fmt.Sprintf(`Updated item in "%s"`, title)
	case models.ActivityItemDeleted:
		return fmt.Sprintf(`Deleted item from "%s"`, title)
	case models.ActivityItemCompleted:
		return fmt.Sprintf(`Completed item in "%s"`, title)
	case models.ActivityItemReopened:
		return fmt.Sprintf(`Reopened item in "%s"`, title)
	}
	return fmt.Sprintf(`%s %s "%s"`, t, et.Noun(), title)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

type Recorder struct {
	log *logger.Loggers
	now func() time.Time
}

func NewRecorder(log *logger.Loggers, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{log: log, now: now}
}

// Record appends e inside a savepoint of q's transaction. On failure only
// the activity row is undone; q stays usable.
func (r *Recorder) Record(ctx context.Context, q repository.Queries, e Entry) (*models.Activity, error) {
	title := truncate(e.EntityTitle, models.MaxTitleLength)
	msg := e.Message
	if msg == "" {
		msg = DefaultMessage(e.Type, e.EntityType, title)
	}

	a := &models.Activity{
		UserID:       e.UserID,
		ActivityType: e.Type,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		EntityTitle:  title,
		Message:      truncate(msg, models.MaxActivityMessageLength),
		CreatedAt:    r.now().UTC(),
	}
	err := q.Savepoint(ctx, func(q repository.Queries) error {
		return q.CreateActivity(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RecordBestEffort is Record for callers whose mutation must survive a
// failed append. The failure is logged and swallowed.
func (r *Recorder) RecordBestEffort(ctx context.Context, q repository.Queries, e Entry) {
	if _, err := r.Record(ctx, q, e); err != nil {
		r.log.Error.Error("Failed to record activity", logger.Fields(ctx,
			zap.String("activity_type", e.Type.String()),
			zap.Int("entity_id", e.EntityID),
			zap.Error(err),
		)...)
	}
}
