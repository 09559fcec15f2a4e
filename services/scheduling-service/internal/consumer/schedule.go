package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// ScheduleChangedTopic announces edits to a practitioner's working windows.
const ScheduleChangedTopic = "scheduling.schedule.changed.v1"

type scheduleChanged struct {
	PractitionerID string `json:"practitioner_id"`
}

type PractitionerInvalidator interface {
	InvalidatePractitioner(ctx context.Context, practitionerID string) error
}

// ScheduleChanged drops every cached availability date of the practitioner named in the event.
func ScheduleChanged(cache PractitionerInvalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt scheduleChanged
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			// Malformed payloads would never succeed; drop them.
			logger.Warn("malformed schedule change event", "err", err, "offset", msg.Offset)
			return nil
		}
		if evt.PractitionerID == "" {
			logger.Warn("schedule change event without practitioner", "offset", msg.Offset)
			return nil
		}
		if err := cache.InvalidatePractitioner(ctx, evt.PractitionerID); err != nil {
			return fmt.Errorf("invalidate availability for %s: %w", evt.PractitionerID, err)
		}
		logger.Info("availability cache invalidated", "practitioner_id", evt.PractitionerID)
		return nil
	}
}
