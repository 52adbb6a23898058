// Package activity folds post timestamps into per-day contribution buckets
// for the profile heatmap.
package activity

import (
	"time"
)

// DefaultSpan is the number of days the profile calendar covers.
const DefaultSpan = 365

const (
	dayLayout = "2006-01-02"
	maxLevel  = 4
)

// Zone is the fixed UTC+09:00 offset every day key is computed in.
var Zone = time.FixedZone("UTC+9", 9*60*60)

// Stamp is the creation and last-update time of one post.
type Stamp struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Day is one populated calendar bucket.
type Day struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Created int    `json:"created_count"`
	Updated int    `json:"updated_count"`
	Level   int    `json:"level"`
}

// DayKey returns the YYYY-MM-DD key of t in Zone.
func DayKey(t time.Time) string {
	return t.In(Zone).Format(dayLayout)
}

// Level maps an activity count onto the 0-4 heatmap intensity.
func Level(count int) int {
	l := (count + 1) / 2
	if l > maxLevel {
		return maxLevel
	}
	return l
}

// Aggregate counts each post once on its creation day, and once more on its
// update day when that is a different day. Only populated days are returned.
func Aggregate(stamps []Stamp) map[string]Day {
	days := make(map[string]Day)
	for _, s := range stamps {
		created := DayKey(s.CreatedAt)
		d := days[created]
		d.Created++
		days[created] = d

		if s.UpdatedAt.IsZero() {
			continue
		}
		if updated := DayKey(s.UpdatedAt); updated != created {
			d := days[updated]
			d.Updated++
			days[updated] = d
		}
	}

	for key, d := range days {
		d.Date = key
		d.Count = d.Created + d.Updated
		d.Level = Level(d.Count)
		days[key] = d
	}
	return days
}

// Week is one Sunday-first calendar column. Slots outside the window are nil.
type Week [7]*Day

// Calendar is the gap-filled heatmap for a trailing window.
type Calendar struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Total int    `json:"total"`
	Weeks []Week `json:"weeks"`
}

// BuildCalendar fills the span days ending on end's day with zero entries
// where days has none and groups them into weeks.
func BuildCalendar(days map[string]Day, end time.Time, span int) Calendar {
	if span <= 0 {
		span = DefaultSpan
	}

	e := end.In(Zone)
	last := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, Zone)
	first := last.AddDate(0, 0, -(span - 1))

	cal := Calendar{
		Start: first.Format(dayLayout),
		End:   last.Format(dayLayout),
		Weeks: make([]Week, 0, span/7+2),
	}

	var week Week
	slot := int(first.Weekday())
	for i := 0; i < span; i++ {
		date := first.AddDate(0, 0, i)
		key := date.Format(dayLayout)

		d, ok := days[key]
		if !ok {
			d = Day{Date: key}
		}
		cal.Total += d.Count
		week[slot] = &d

		slot++
		if slot == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = Week{}
			slot = 0
		}
	}
	if slot > 0 {
		cal.Weeks = append(cal.Weeks, week)
	}
	return cal
}
