package calendar

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// fixtureFile is the on-disk shape of the calendar collaborator stub,
// e.g. configs/calendar_fixture.yaml.
type fixtureFile struct {
	Events []Event `yaml:"events"`
}

// FixtureCalendar serves a fixed, YAML-declared event list. It stands in
// for the real Outlook/Graph-API collaborator the original implementation
// authenticates against; spec.md §6 places auth and refresh out of scope,
// so this is the whole of the calendar surface a project root carries.
type FixtureCalendar struct {
	events []Event
	now    func() time.Time
}

// LoadFixtureCalendar reads path and parses it as a fixtureFile.
func LoadFixtureCalendar(path string) (*FixtureCalendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindToolUnavailable, err, "read calendar fixture: %s", path)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "parse calendar fixture: %s", path)
	}
	return &FixtureCalendar{events: f.Events, now: time.Now}, nil
}

// GetEventsToday returns events whose Start falls within the current
// local calendar day.
func (c *FixtureCalendar) GetEventsToday() ([]Event, error) {
	now := c.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)
	return c.inRange(start, end), nil
}

// GetUpcomingEvents returns events starting between now and now+within.
func (c *FixtureCalendar) GetUpcomingEvents(within time.Duration) ([]Event, error) {
	now := c.now()
	return c.inRange(now, now.Add(within)), nil
}

func (c *FixtureCalendar) inRange(start, end time.Time) []Event {
	var out []Event
	for _, e := range c.events {
		if !e.Start.Before(start) && e.Start.Before(end) {
			out = append(out, e)
		}
	}
	return out
}

// GetEventDetails looks up a single event by id.
func (c *FixtureCalendar) GetEventDetails(id string) (Event, error) {
	for _, e := range c.events {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, apperr.New(apperr.KindNotFound, "no calendar event with id %s", id)
}
