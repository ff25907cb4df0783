// Package events tracks the economic release calendars the day filters
// select on. Built-in curated dates cover 2022 through 2026; a YAML
// overlay file can replace individual calendars and is hot-reloaded
// when watched.
package events

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/klefe6/almanac/internal/calendar"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// DayFormat is the wire format for event dates.
const DayFormat = "2006-01-02"

// ParseFilter maps a filter token to its calendar, accepting the
// singular, the "_day" and the "_days" spellings.
func ParseFilter(name string) (domain.EventType, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, "_days")
	n = strings.TrimSuffix(n, "_day")
	t := domain.EventType(n)
	if t.Valid() {
		return t, true
	}
	return "", false
}

// Status reports what the calendar currently holds and where it came
// from.
type Status struct {
	Counts      map[domain.EventType]int `json:"counts"`
	OverlayPath string                   `json:"overlay_path,omitempty"`
	ReloadedAt  time.Time                `json:"reloaded_at"`
}

// Calendar holds the release-date sets and derived lookups. All reads
// are safe for concurrent use with reloads.
type Calendar struct {
	logger *slog.Logger

	mu        sync.RWMutex
	days      map[domain.EventType]map[string]struct{}
	major     map[string]struct{}
	fomcWeeks map[string]struct{}
	overlay   string
	reloaded  time.Time
}

// NewCalendar builds a calendar from the built-in date lists.
func NewCalendar(logger *slog.Logger) *Calendar {
	c := &Calendar{
		logger: logger.With(slog.String("component", "event_calendar")),
	}
	c.mu.Lock()
	c.loadLocked(nil)
	c.mu.Unlock()
	return c
}

// loadLocked rebuilds the date sets from the built-ins plus an
// optional per-type overlay. The caller holds the write lock.
func (c *Calendar) loadLocked(overlay map[domain.EventType][]string) {
	days := make(map[domain.EventType]map[string]struct{}, len(builtinDates))
	for _, t := range domain.EventTypes() {
		list := builtinDates[t]
		if o, ok := overlay[t]; ok {
			list = o
		}
		set := make(map[string]struct{}, len(list))
		for _, d := range list {
			set[d] = struct{}{}
		}
		days[t] = set
	}

	major := make(map[string]struct{})
	for _, set := range days {
		for d := range set {
			major[d] = struct{}{}
		}
	}

	fomcWeeks := make(map[string]struct{})
	for d := range days[domain.EventFOMC] {
		ts, err := time.Parse(DayFormat, d)
		if err != nil {
			c.logger.Warn("skipping malformed event date", slog.String("date", d))
			continue
		}
		fomcWeeks[calendar.WeekStart(ts).Format(DayFormat)] = struct{}{}
	}

	c.days = days
	c.major = major
	c.fomcWeeks = fomcWeeks
	c.reloaded = time.Now()
}

// LoadOverlay merges a YAML overlay file into the calendar. Each top
// level key names an event type and replaces that type's built-in
// list entirely.
func (c *Calendar) LoadOverlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading events overlay: %w", err)
	}

	var parsed map[string][]string
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parsing events overlay %s: %w", path, err)
	}

	overlay := make(map[domain.EventType][]string, len(parsed))
	for key, dates := range parsed {
		t, ok := ParseFilter(key)
		if !ok {
			c.logger.Warn("ignoring unknown event type in overlay",
				slog.String("path", path),
				slog.String("type", key))
			continue
		}
		for _, d := range dates {
			if _, err := time.Parse(DayFormat, d); err != nil {
				return fmt.Errorf("events overlay %s: bad date %q for %s", path, d, t)
			}
		}
		overlay[t] = dates
	}

	c.mu.Lock()
	c.loadLocked(overlay)
	c.overlay = path
	c.mu.Unlock()

	c.logger.Info("event calendar overlay loaded",
		slog.String("path", path),
		slog.Int("types", len(overlay)))
	return nil
}

// Dates returns the sorted release dates of one calendar.
func (c *Calendar) Dates(t domain.EventType) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.days[t]))
	for d := range c.days[t] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// DaySet returns a copy of one calendar's date set, keyed by ISO day.
func (c *Calendar) DaySet(t domain.EventType) map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]struct{}, len(c.days[t]))
	for d := range c.days[t] {
		out[d] = struct{}{}
	}
	return out
}

// MajorSet returns a copy of the union of every calendar's dates.
func (c *Calendar) MajorSet() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]struct{}, len(c.major))
	for d := range c.major {
		out[d] = struct{}{}
	}
	return out
}

// FOMCWeekMondays returns a copy of the Monday anchors of every week
// containing an FOMC decision.
func (c *Calendar) FOMCWeekMondays() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]struct{}, len(c.fomcWeeks))
	for d := range c.fomcWeeks {
		out[d] = struct{}{}
	}
	return out
}

// IsEventDay reports whether day falls on a release date of any of
// the given calendars; with no calendars given it checks all of them.
func (c *Calendar) IsEventDay(day time.Time, types ...domain.EventType) bool {
	key := day.Format(DayFormat)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(types) == 0 {
		_, ok := c.major[key]
		return ok
	}
	for _, t := range types {
		if _, ok := c.days[t][key]; ok {
			return true
		}
	}
	return false
}

// Status reports per-type date counts and overlay provenance.
func (c *Calendar) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[domain.EventType]int, len(c.days))
	for t, set := range c.days {
		counts[t] = len(set)
	}
	return Status{
		Counts:      counts,
		OverlayPath: c.overlay,
		ReloadedAt:  c.reloaded,
	}
}
