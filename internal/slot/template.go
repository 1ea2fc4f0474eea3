package slot

import (
	"sort"
	"time"
)

// Template describes one bookable window on a weekday, as hand-authored in
// the weekly coaching schedule.
type Template struct {
	Weekday         time.Weekday
	Start           string // "15:04"
	DurationMinutes int
}

// Instance is a Template materialized onto a concrete date. Instances are
// derived on every availability request and never stored; Available is
// advisory until the commit path re-checks against the calendar provider.
type Instance struct {
	Date            time.Time
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Available       bool
}

// weeklyTemplates is the production coaching schedule. Saturday and Sunday
// have no coaching slots.
var weeklyTemplates = map[time.Weekday][]Template{
	time.Monday: {
		{Weekday: time.Monday, Start: "15:00", DurationMinutes: 60},
	},
	time.Tuesday: {
		{Weekday: time.Tuesday, Start: "15:00", DurationMinutes: 60},
		{Weekday: time.Tuesday, Start: "16:00", DurationMinutes: 60},
	},
	time.Wednesday: {
		{Weekday: time.Wednesday, Start: "15:00", DurationMinutes: 60},
		{Weekday: time.Wednesday, Start: "16:00", DurationMinutes: 60},
	},
	time.Thursday: {
		{Weekday: time.Thursday, Start: "15:00", DurationMinutes: 60},
		{Weekday: time.Thursday, Start: "16:00", DurationMinutes: 60},
	},
	time.Friday: {
		{Weekday: time.Friday, Start: "11:00", DurationMinutes: 60},
		{Weekday: time.Friday, Start: "12:00", DurationMinutes: 60},
		{Weekday: time.Friday, Start: "13:00", DurationMinutes: 60},
		{Weekday: time.Friday, Start: "14:00", DurationMinutes: 60},
		{Weekday: time.Friday, Start: "15:00", DurationMinutes: 60},
	},
}

// TemplatesFor returns the schedule templates for a weekday, ordered by start
// time. Weekdays without coaching return an empty slice.
func TemplatesFor(weekday time.Weekday) []Template {
	templates := weeklyTemplates[weekday]
	out := make([]Template, len(templates))
	copy(out, templates)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// InstancesFor materializes the weekday templates onto the given date in the
// given location. All instances start out Available; run Scan to mark
// conflicts against existing calendar events.
func InstancesFor(date time.Time, loc *time.Location) []Instance {
	if loc == nil {
		loc = time.UTC
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	templates := TemplatesFor(day.Weekday())
	instances := make([]Instance, 0, len(templates))
	for _, tpl := range templates {
		start, err := time.ParseInLocation("15:04", tpl.Start, loc)
		if err != nil {
			continue
		}
		slotStart := day.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
		instances = append(instances, Instance{
			Date:            day,
			Start:           slotStart,
			End:             slotStart.Add(time.Duration(tpl.DurationMinutes) * time.Minute),
			DurationMinutes: tpl.DurationMinutes,
			Available:       true,
		})
	}
	return instances
}
