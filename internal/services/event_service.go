package services

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/klefe6/almanac/internal/events"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// EventService exposes the release calendars behind the event-day
// filters.
type EventService struct {
	cal    *events.Calendar
	logger *slog.Logger
}

// NewEventService creates a new event service
func NewEventService(cal *events.Calendar, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		cal:    cal,
		logger: logger.With(slog.String("component", "event_service")),
	}
}

// Types lists every tracked calendar in display order.
func (s *EventService) Types() []domain.EventType {
	return domain.EventTypes()
}

// Dates returns one calendar's release dates, optionally restricted to
// a year range. Zero bounds mean unbounded.
func (s *EventService) Dates(eventType string, yearFrom, yearTo int) ([]string, error) {
	t, ok := events.ParseFilter(eventType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", eventType, ErrUnknownEventType)
	}

	dates := s.cal.Dates(t)
	if yearFrom == 0 && yearTo == 0 {
		return dates, nil
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		year, err := strconv.Atoi(d[:4])
		if err != nil {
			continue
		}
		if yearFrom != 0 && year < yearFrom {
			continue
		}
		if yearTo != 0 && year > yearTo {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// FOMCWeeks returns the sorted Monday anchors of every week containing
// an FOMC decision.
func (s *EventService) FOMCWeeks() []string {
	set := s.cal.FOMCWeekMondays()
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Status reports what the calendar holds and when it last reloaded.
func (s *EventService) Status() events.Status {
	return s.cal.Status()
}
