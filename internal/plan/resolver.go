// Package plan synthesizes a field worker's daily work plan from routine
// schedules, ad-hoc tasks, route plans and weather, and resolves which
// building the worker is currently at. Everything in this package is a
// pure function over immutable input snapshots.
package plan

import (
	"math"
	"time"

	"github.com/fieldops/rounds/internal/models"
)

const (
	// upcomingWindow is how far ahead a schedule entry's start may be
	// for the worker to count as "about to arrive" at its building.
	upcomingWindow = 60 * time.Minute

	// proximityRadiusMeters bounds the GPS fallback. Positions are
	// noisy; outside this radius a fix says nothing useful.
	proximityRadiusMeters = 500.0

	earthRadiusMeters = 6371000.0
)

// WorkerState is the full location-signal snapshot for one worker at one
// instant.
type WorkerState struct {
	CheckIn       *models.CheckIn
	TodaySchedule []models.ScheduleEntry
	Position      *models.Coordinate
	Assigned      []models.BuildingSummary
	Now           time.Time
}

// resolveStrategy inspects one signal source and returns a building, or
// nil to pass to the next strategy in the chain.
type resolveStrategy func(WorkerState) *models.BuildingSummary

// resolveChain is tried in order; the first non-nil result wins. The
// order encodes signal strength: an explicit clock-in beats planned
// intent, planned intent beats GPS, GPS beats the bare assignment list.
var resolveChain = []resolveStrategy{
	resolveFromCheckIn,
	resolveFromActiveWindow,
	resolveFromUpcomingWindow,
	resolveFromProximity,
	resolveFromAssignment,
}

// ResolveCurrentBuilding picks the single building the worker is "at"
// right now. It never fails: missing data at one step advances to the
// next, and nil comes back only when no building information exists at
// all. The returned summary carries status "current".
func ResolveCurrentBuilding(state WorkerState) *models.BuildingSummary {
	for _, strategy := range resolveChain {
		if b := strategy(state); b != nil {
			b.Status = models.BuildingStatusCurrent
			return b
		}
	}
	return nil
}

func resolveFromCheckIn(state WorkerState) *models.BuildingSummary {
	if state.CheckIn == nil || state.CheckIn.Expired(state.Now) {
		return nil
	}
	b := state.CheckIn.Building
	return &b
}

func resolveFromActiveWindow(state WorkerState) *models.BuildingSummary {
	for _, entry := range state.TodaySchedule {
		// Circuit entries are obligations, not places the worker can be.
		if entry.BuildingID == "" || isCircuitID(entry.BuildingID) {
			continue
		}
		if !state.Now.Before(entry.StartTime) && !state.Now.After(entry.EndTime) {
			return buildingByID(state, entry.BuildingID)
		}
	}
	return nil
}

func resolveFromUpcomingWindow(state WorkerState) *models.BuildingSummary {
	var best *models.ScheduleEntry
	for i := range state.TodaySchedule {
		entry := &state.TodaySchedule[i]
		if entry.BuildingID == "" || isCircuitID(entry.BuildingID) {
			continue
		}
		lead := entry.StartTime.Sub(state.Now)
		if lead <= 0 || lead > upcomingWindow {
			continue
		}
		if best == nil || entry.StartTime.Before(best.StartTime) {
			best = entry
		}
	}
	if best == nil {
		return nil
	}
	return buildingByID(state, best.BuildingID)
}

func resolveFromProximity(state WorkerState) *models.BuildingSummary {
	if state.Position == nil {
		return nil
	}
	var nearest *models.BuildingSummary
	var nearestDist float64
	for i := range state.Assigned {
		b := state.Assigned[i]
		d := haversineMeters(*state.Position, b.Coordinate)
		if d > proximityRadiusMeters {
			continue
		}
		if nearest == nil || d < nearestDist || (d == nearestDist && b.ID < nearest.ID) {
			nearest = &state.Assigned[i]
			nearestDist = d
		}
	}
	if nearest == nil {
		return nil
	}
	b := *nearest
	return &b
}

func resolveFromAssignment(state WorkerState) *models.BuildingSummary {
	if len(state.Assigned) == 0 {
		return nil
	}
	b := state.Assigned[0]
	return &b
}

// buildingByID finds an assigned building by id, falling back to a bare
// summary when the schedule references a building outside the assignment
// list (coverage work).
func buildingByID(state WorkerState, id string) *models.BuildingSummary {
	for i := range state.Assigned {
		if state.Assigned[i].ID == id {
			b := state.Assigned[i]
			return &b
		}
	}
	return &models.BuildingSummary{ID: id, Status: models.BuildingStatusCoverage}
}

// haversineMeters is the great-circle distance between two coordinates.
func haversineMeters(a, b models.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
