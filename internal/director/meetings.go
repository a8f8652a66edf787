package director

import (
	"context"
	"encoding/json"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
	"github.com/madhatter5501/aegis/internal/bus"
)

// upcomingMeetingWindow mirrors the upstream "next 45 minutes" sweep.
const upcomingMeetingWindow = 45 * time.Minute

// checkUpcomingMeetings asks the Librarian to prepare a brief for any
// calendar event starting within the window that doesn't already have
// one, per spec.md §4.6's proactive meeting preparation.
func (d *Director) checkUpcomingMeetings(ctx context.Context) error {
	if d.calendar == nil {
		return nil
	}
	upcoming, err := d.calendar.GetUpcomingEvents(upcomingMeetingWindow)
	if err != nil {
		d.logger.Error("get upcoming events failed", "error", err)
		return nil
	}

	for _, event := range upcoming {
		if event.ID == "" {
			continue
		}
		_, err := d.store.GetLatestMeetingPrep(event.ID)
		if err == nil {
			continue // already prepared
		}
		if apperr.ClassifyOf(err) != apperr.KindNotFound {
			d.logger.Error("get meeting prep failed", "event", event.ID, "error", err)
			continue
		}

		eventJSON, err := json.Marshal(event)
		if err != nil {
			d.logger.Error("marshal event failed", "event", event.ID, "error", err)
			continue
		}
		if _, err := d.bus.RequestMeetingPrep(Name, event.ID, string(eventJSON), bus.PriorityLow); err != nil {
			d.logger.Error("request meeting prep failed", "event", event.ID, "error", err)
		}
	}
	return nil
}

func decodeJSON(body string, v any) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "decode message body")
	}
	return nil
}
