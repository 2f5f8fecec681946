// Package models defines the core domain types for Rounds.
package models

import (
	"fmt"
	"time"
)

// Urgency orders tasks from least to most pressing. The ordering is
// total: a higher value always outranks a lower one.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyHigh
	UrgencyUrgent
	UrgencyCritical
	UrgencyEmergency
)

var urgencyNames = map[Urgency]string{
	UrgencyLow:       "low",
	UrgencyNormal:    "normal",
	UrgencyHigh:      "high",
	UrgencyUrgent:    "urgent",
	UrgencyCritical:  "critical",
	UrgencyEmergency: "emergency",
}

func (u Urgency) String() string {
	if name, ok := urgencyNames[u]; ok {
		return name
	}
	return fmt.Sprintf("urgency(%d)", int(u))
}

// ParseUrgency maps a stored urgency name back to its ordered value.
// Unknown names fall back to normal.
func ParseUrgency(s string) Urgency {
	for u, name := range urgencyNames {
		if name == s {
			return u
		}
	}
	return UrgencyNormal
}

// BuildingStatus is a view-time classification of a building relative to
// the worker. It is computed during resolution, never stored.
type BuildingStatus string

const (
	BuildingStatusCurrent     BuildingStatus = "current"
	BuildingStatusAssigned    BuildingStatus = "assigned"
	BuildingStatusAvailable   BuildingStatus = "available"
	BuildingStatusCoverage    BuildingStatus = "coverage"
	BuildingStatusUnavailable BuildingStatus = "unavailable"
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BuildingSummary describes one building a worker can be attributed to.
type BuildingSummary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Address    string         `json:"address"`
	Coordinate Coordinate     `json:"coordinate"`
	Status     BuildingStatus `json:"status"`
}

// Task is a one-off work item. BuildingID may be empty for tasks not yet
// resolved to a location; DueTime may be nil for undated tasks.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	BuildingID    string     `json:"building_id,omitempty"`
	DueTime       *time.Time `json:"due_time,omitempty"`
	Urgency       Urgency    `json:"urgency"`
	IsCompleted   bool       `json:"is_completed"`
	Category      string     `json:"category,omitempty"`
	RequiresPhoto bool       `json:"requires_photo"`
}

// RoutineInstance is one concrete occurrence of a recurring obligation on
// a specific date, already expanded from its recurrence rule.
type RoutineInstance struct {
	ID         string    `json:"id"`
	BuildingID string    `json:"building_id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// ScheduleEntry is one unit of planned work at a building in a time
// window. Entries are immutable once a synthesis pass has produced them;
// the next pass replaces the whole set.
type ScheduleEntry struct {
	ID         string    `json:"id"`
	BuildingID string    `json:"building_id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TaskCount  int       `json:"task_count"`
}

// Duration returns the entry's length. Windows are clamped at synthesis
// time so this is never negative.
func (e ScheduleEntry) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// TimeOfDay is a wall-clock time without a date, used by route sequences
// and collection rules that repeat weekly.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// On anchors the wall-clock time to a calendar date in that date's
// location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// RouteSequence is one stop in a worker's day-of-week route plan. It is
// consumed read-only, as a location-resolution signal and as a fallback
// source for attributing ad-hoc tasks to buildings.
type RouteSequence struct {
	BuildingID        string        `json:"building_id"`
	BuildingName      string        `json:"building_name"`
	ArrivalTime       TimeOfDay     `json:"arrival_time"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Operations        []string      `json:"operations,omitempty"`
}

// WeatherPoint is one observed or forecast weather sample.
type WeatherPoint struct {
	TempF      float64   `json:"temp_f"`
	Condition  string    `json:"condition"`
	PrecipProb float64   `json:"precip_prob"`
	WindMph    float64   `json:"wind_mph"`
	Timestamp  time.Time `json:"timestamp"`
}

// WeatherSnapshot is current conditions plus an hourly forecast ordered
// by hour offset from now.
type WeatherSnapshot struct {
	Current WeatherPoint   `json:"current"`
	Hourly  []WeatherPoint `json:"hourly"`
}

// CheckIn is an explicit worker clock-in at a building. It is the
// strongest location signal and wins over every inferred one until it
// expires.
type CheckIn struct {
	Building  BuildingSummary `json:"building"`
	At        time.Time       `json:"at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the check-in is no longer valid at now.
func (c CheckIn) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// DaySchedule is the merged, deduplicated schedule for one calendar day.
type DaySchedule struct {
	Date       time.Time       `json:"date"`
	Items      []ScheduleEntry `json:"items"`
	TotalHours float64         `json:"total_hours"`
}

// WeeklyPlan covers today plus the next six days, in date order.
type WeeklyPlan struct {
	Days []DaySchedule `json:"days"`
}

// Today returns the plan's first day, which is always the synthesis
// date.
func (w WeeklyPlan) Today() DaySchedule {
	if len(w.Days) == 0 {
		return DaySchedule{}
	}
	return w.Days[0]
}

// Suggestion is a weather-aware prompt for work appropriate right now,
// with a short checklist of sub-steps.
type Suggestion struct {
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Rationale string   `json:"rationale"`
	Checklist []string `json:"checklist"`
}

// DailyPlan is the full output of one synthesis pass. It is derived, not
// persisted; a new pass replaces it wholesale.
type DailyPlan struct {
	WorkerID        string           `json:"worker_id"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Generation      uint64           `json:"generation"`
	Week            WeeklyPlan       `json:"week"`
	CurrentBuilding *BuildingSummary `json:"current_building,omitempty"`
	Upcoming        []Task           `json:"upcoming"`
	DeferredOutdoor []Task           `json:"deferred_outdoor"`
	Suggestions     []Suggestion     `json:"suggestions"`
	DeferOutdoor    bool             `json:"defer_outdoor"`
}
