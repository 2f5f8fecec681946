package plan

import (
	"sort"
	"strings"
	"time"

	"github.com/fieldops/rounds/internal/models"
)

const (
	defaultStartHour = 9
	defaultDuration  = time.Hour

	// routeAttributionWindow is how far an ad-hoc task's start may sit
	// from a route stop's arrival and still be attributed to that stop's
	// building.
	routeAttributionWindow = 2 * time.Hour
)

// MergeInput carries the raw sources for one calendar day. All fields may
// be empty; an empty input produces an empty, valid day.
type MergeInput struct {
	Date              time.Time
	Routines          []models.RoutineInstance
	Tasks             []models.Task
	Routes            []models.RouteSequence
	CurrentBuildingID string
}

// MergeDay combines routine instances and ad-hoc tasks for one day into a
// single ordered, deduplicated entry list. Entries sharing a building, a
// case-insensitive title and a start minute are the same obligation seen
// through two sources and collapse into one.
func MergeDay(in MergeInput) []models.ScheduleEntry {
	dayStart := startOfDay(in.Date)
	dayEnd := dayStart.Add(24 * time.Hour)

	entries := make([]models.ScheduleEntry, 0, len(in.Routines)+len(in.Tasks))

	for _, r := range in.Routines {
		entries = append(entries, clampWindow(models.ScheduleEntry{
			ID:         r.ID,
			BuildingID: r.BuildingID,
			Title:      r.Title,
			StartTime:  r.Start,
			EndTime:    r.End,
			TaskCount:  1,
		}))
	}

	for _, t := range in.Tasks {
		start := taskStart(t, dayStart)
		// A due time outside the day belongs to another day's merge.
		if start.Before(dayStart) || !start.Before(dayEnd) {
			continue
		}
		buildingID := t.BuildingID
		if buildingID == "" {
			buildingID = attributeBuilding(start, in.Routes, in.CurrentBuildingID)
		}
		entries = append(entries, clampWindow(models.ScheduleEntry{
			ID:         t.ID,
			BuildingID: buildingID,
			Title:      t.Title,
			StartTime:  start,
			EndTime:    start.Add(defaultDuration),
			TaskCount:  1,
		}))
	}

	return Dedupe(entries)
}

// Dedupe collapses entries sharing the (building, lowercase title, start
// minute) key: the merged entry keeps the latest end time, the summed
// task count, the earliest start and the smallest id with its title
// casing. The survivor is canonical, so permuting the input changes
// nothing in the output.
func Dedupe(entries []models.ScheduleEntry) []models.ScheduleEntry {
	type key struct {
		buildingID string
		title      string
		startMin   int64
	}

	merged := make(map[key]*models.ScheduleEntry, len(entries))
	order := make([]key, 0, len(entries))

	for _, e := range entries {
		k := key{
			buildingID: e.BuildingID,
			title:      strings.ToLower(e.Title),
			startMin:   e.StartTime.Truncate(time.Minute).Unix(),
		}
		if existing, ok := merged[k]; ok {
			if e.StartTime.Before(existing.StartTime) {
				existing.StartTime = e.StartTime
			}
			if e.EndTime.After(existing.EndTime) {
				existing.EndTime = e.EndTime
			}
			existing.TaskCount += e.TaskCount
			if e.ID < existing.ID || (e.ID == existing.ID && e.Title < existing.Title) {
				existing.ID = e.ID
				existing.Title = e.Title
			}
			continue
		}
		copied := e
		merged[k] = &copied
		order = append(order, k)
	}

	out := make([]models.ScheduleEntry, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// TotalHours sums entry durations for a day.
func TotalHours(entries []models.ScheduleEntry) float64 {
	var total time.Duration
	for _, e := range entries {
		total += e.Duration()
	}
	return total.Hours()
}

// taskStart derives a schedule start from a task's due time, defaulting
// to 09:00 local on undated tasks.
func taskStart(t models.Task, dayStart time.Time) time.Time {
	if t.DueTime != nil {
		return *t.DueTime
	}
	return dayStart.Add(defaultStartHour * time.Hour)
}

// attributeBuilding resolves a building for an unattributed task: a route
// stop whose window contains the start wins, then the nearest stop whose
// arrival is within two hours, then the caller's current building. An
// empty result keeps the task visible but unattributed.
func attributeBuilding(start time.Time, routes []models.RouteSequence, currentBuildingID string) string {
	var nearest string
	var nearestGap time.Duration
	for _, rs := range routes {
		arrival := rs.ArrivalTime.On(start)
		dur := rs.EstimatedDuration
		if dur <= 0 {
			dur = defaultDuration
		}
		if !start.Before(arrival) && start.Before(arrival.Add(dur)) {
			return rs.BuildingID
		}
		gap := start.Sub(arrival)
		if gap < 0 {
			gap = -gap
		}
		if gap <= routeAttributionWindow && (nearest == "" || gap < nearestGap) {
			nearest = rs.BuildingID
			nearestGap = gap
		}
	}
	if nearest != "" {
		return nearest
	}
	return currentBuildingID
}

// clampWindow corrects an inverted window by pinning the end to the
// start. Inverted windows are a data defect, not an error.
func clampWindow(e models.ScheduleEntry) models.ScheduleEntry {
	if e.EndTime.Before(e.StartTime) {
		e.EndTime = e.StartTime
	}
	return e
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
