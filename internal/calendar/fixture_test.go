package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFixture(t *testing.T, body string) *FixtureCalendar {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar_fixture.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	c, err := LoadFixtureCalendar(path)
	if err != nil {
		t.Fatalf("LoadFixtureCalendar: %v", err)
	}
	return c
}

const twoEventFixture = `
events:
  - id: evt-1
    subject: Standup
    start: 2026-07-30T09:00:00Z
    end: 2026-07-30T09:15:00Z
    organizer: alex@example.com
    is_online: true
  - id: evt-2
    subject: Next week planning
    start: 2026-08-06T09:00:00Z
    end: 2026-08-06T10:00:00Z
    organizer: priya@example.com
`

func TestGetEventsTodayFiltersToCalendarDay(t *testing.T) {
	c := writeFixture(t, twoEventFixture)
	c.now = func() time.Time { return time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC) }

	events, err := c.GetEventsToday()
	if err != nil {
		t.Fatalf("GetEventsToday: %v", err)
	}
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("expected only evt-1 today, got %+v", events)
	}
}

func TestGetUpcomingEventsRespectsWindow(t *testing.T) {
	c := writeFixture(t, twoEventFixture)
	c.now = func() time.Time { return time.Date(2026, 7, 30, 8, 50, 0, 0, time.UTC) }

	events, err := c.GetUpcomingEvents(30 * time.Minute)
	if err != nil {
		t.Fatalf("GetUpcomingEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("expected only evt-1 within 30m window, got %+v", events)
	}

	none, err := c.GetUpcomingEvents(5 * time.Minute)
	if err != nil {
		t.Fatalf("GetUpcomingEvents: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no events within 5m window, got %+v", none)
	}
}

func TestGetEventDetailsNotFound(t *testing.T) {
	c := writeFixture(t, twoEventFixture)
	_, err := c.GetEventDetails("does-not-exist")
	if err == nil {
		t.Fatal("expected error for unknown event id")
	}
}

func TestGetEventDetailsReturnsMatch(t *testing.T) {
	c := writeFixture(t, twoEventFixture)
	e, err := c.GetEventDetails("evt-2")
	if err != nil {
		t.Fatalf("GetEventDetails: %v", err)
	}
	if e.Subject != "Next week planning" || e.Organizer != "priya@example.com" {
		t.Fatalf("unexpected event: %+v", e)
	}
}
