package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldops/rounds/internal/models"
)

// CollectionRule is a calendar-conditioned recurring obligation, e.g. a
// municipal set-out window: on the listed weekdays, the matching worker
// owes one entry per building in the group during the window. Rules are
// pure data; adding one never touches merge logic.
type CollectionRule struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	WorkerID       string            `json:"worker_id"`
	CollectionDays []time.Weekday    `json:"collection_days"`
	WindowStart    models.TimeOfDay  `json:"window_start"`
	WindowEnd      models.TimeOfDay  `json:"window_end"`
	BuildingGroup  []string          `json:"building_group"`
	BuildingNames  map[string]string `json:"building_names,omitempty"`
}

// AppliesOn reports whether the rule fires for this worker on this date.
func (r CollectionRule) AppliesOn(date time.Time, workerID string) bool {
	if r.WorkerID != "" && r.WorkerID != workerID {
		return false
	}
	wd := date.Weekday()
	for _, d := range r.CollectionDays {
		if d == wd {
			return true
		}
	}
	return false
}

const circuitIDPrefix = "circuit:"

// CircuitID is the synthetic building identifier injected entries are
// grouped under. It shares the dedup key-space with organic entries but
// can never collide with a real building id.
func (r CollectionRule) CircuitID() string {
	return circuitIDPrefix + r.ID
}

// isCircuitID reports whether a building id names an injected circuit
// rather than a real building.
func isCircuitID(id string) bool {
	return strings.HasPrefix(id, circuitIDPrefix)
}

// InjectCalendarTasks returns the synthetic entries the rules add for
// this worker and date; the caller appends them before deduplication.
// Each fired rule emits one entry per building in its group, titled with
// the building so group members stay distinct through dedup while a
// re-run of the injector collapses cleanly.
func InjectCalendarTasks(date time.Time, workerID string, rules []CollectionRule) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, rule := range rules {
		if !rule.AppliesOn(date, workerID) {
			continue
		}
		start := rule.WindowStart.On(date)
		end := rule.WindowEnd.On(date)
		for _, buildingID := range rule.BuildingGroup {
			label := buildingID
			if name, ok := rule.BuildingNames[buildingID]; ok && name != "" {
				label = name
			}
			out = append(out, clampWindow(models.ScheduleEntry{
				ID:         fmt.Sprintf("%s:%s:%s", rule.ID, buildingID, date.Format("2006-01-02")),
				BuildingID: rule.CircuitID(),
				Title:      fmt.Sprintf("%s: %s", rule.Title, label),
				StartTime:  start,
				EndTime:    end,
				TaskCount:  1,
			}))
		}
	}
	return out
}
