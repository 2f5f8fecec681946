package plan

import (
	"testing"
	"time"

	"github.com/fieldops/rounds/internal/models"
)

var resolverNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func building(id, name string, lat, lon float64) models.BuildingSummary {
	return models.BuildingSummary{
		ID:         id,
		Name:       name,
		Coordinate: models.Coordinate{Lat: lat, Lon: lon},
		Status:     models.BuildingStatusAssigned,
	}
}

func TestResolverCheckInWinsOverEverything(t *testing.T) {
	b1 := building("B1", "Maple House", 0, 0)
	b2 := building("B2", "Oak House", 0.001, 0)

	state := WorkerState{
		CheckIn: &models.CheckIn{
			Building:  b1,
			At:        resolverNow.Add(-time.Hour),
			ExpiresAt: resolverNow.Add(time.Hour),
		},
		// Schedule and GPS both point at B2; the check-in must still win.
		TodaySchedule: []models.ScheduleEntry{{
			BuildingID: "B2",
			StartTime:  resolverNow.Add(-30 * time.Minute),
			EndTime:    resolverNow.Add(30 * time.Minute),
		}},
		Position: &models.Coordinate{Lat: 0.001, Lon: 0},
		Assigned: []models.BuildingSummary{b2, b1},
		Now:      resolverNow,
	}

	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B1" {
		t.Fatalf("expected check-in building B1, got %+v", got)
	}
	if got.Status != models.BuildingStatusCurrent {
		t.Errorf("expected status current, got %s", got.Status)
	}
}

func TestResolverExpiredCheckInIgnored(t *testing.T) {
	b1 := building("B1", "Maple House", 0, 0)
	b2 := building("B2", "Oak House", 0, 0)

	state := WorkerState{
		CheckIn: &models.CheckIn{
			Building:  b1,
			At:        resolverNow.Add(-5 * time.Hour),
			ExpiresAt: resolverNow.Add(-time.Hour),
		},
		Assigned: []models.BuildingSummary{b2, b1},
		Now:      resolverNow,
	}

	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B2" {
		t.Fatalf("expected assignment fallback B2, got %+v", got)
	}
}

func TestResolverActiveScheduleWindow(t *testing.T) {
	state := WorkerState{
		TodaySchedule: []models.ScheduleEntry{
			{BuildingID: "B3", StartTime: resolverNow.Add(-15 * time.Minute), EndTime: resolverNow.Add(15 * time.Minute)},
		},
		Assigned: []models.BuildingSummary{building("B1", "Maple House", 0, 0)},
		Now:      resolverNow,
	}

	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B3" {
		t.Fatalf("expected active-window building B3, got %+v", got)
	}
	// B3 is not in the assignment list; it is coverage work and still
	// resolves.
	if got.Status != models.BuildingStatusCurrent {
		t.Errorf("expected status current, got %s", got.Status)
	}
}

func TestResolverUpcomingWindowPicksEarliest(t *testing.T) {
	state := WorkerState{
		TodaySchedule: []models.ScheduleEntry{
			{BuildingID: "B2", StartTime: resolverNow.Add(45 * time.Minute), EndTime: resolverNow.Add(90 * time.Minute)},
			{BuildingID: "B1", StartTime: resolverNow.Add(20 * time.Minute), EndTime: resolverNow.Add(50 * time.Minute)},
			{BuildingID: "B4", StartTime: resolverNow.Add(2 * time.Hour), EndTime: resolverNow.Add(3 * time.Hour)},
		},
		Assigned: []models.BuildingSummary{building("B9", "Elm House", 0, 0)},
		Now:      resolverNow,
	}

	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B1" {
		t.Fatalf("expected earliest upcoming building B1, got %+v", got)
	}
}

func TestResolverGPSNearestWithinRadius(t *testing.T) {
	// ~400m and ~600m north of the worker at (0,0).
	near := building("B2", "Near House", 0.0036, 0)
	far := building("B1", "Far House", 0.0054, 0)

	state := WorkerState{
		Position: &models.Coordinate{Lat: 0, Lon: 0},
		Assigned: []models.BuildingSummary{far, near},
		Now:      resolverNow,
	}

	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B2" {
		t.Fatalf("expected 400m building B2, got %+v", got)
	}
}

func TestResolverGPSOutOfRadiusFallsThrough(t *testing.T) {
	// Both buildings beyond 500m; the fix is useless and the first
	// assignment wins.
	state := WorkerState{
		Position: &models.Coordinate{Lat: 0, Lon: 0},
		Assigned: []models.BuildingSummary{
			building("B7", "First House", 0.01, 0),
			building("B8", "Second House", 0.02, 0),
		},
		Now: resolverNow,
	}

	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B7" {
		t.Fatalf("expected first assigned building B7, got %+v", got)
	}
}

func TestResolverTotality(t *testing.T) {
	state := WorkerState{
		Assigned: []models.BuildingSummary{
			building("B5", "Only House", 0, 0),
		},
		Now: resolverNow,
	}

	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B5" {
		t.Fatalf("expected first assigned building B5, got %+v", got)
	}
}

func TestResolverNilWhenNoSignals(t *testing.T) {
	if got := ResolveCurrentBuilding(WorkerState{Now: resolverNow}); got != nil {
		t.Fatalf("expected nil with no building information, got %+v", got)
	}
}

func TestHaversine(t *testing.T) {
	a := models.Coordinate{Lat: 0, Lon: 0}
	b := models.Coordinate{Lat: 0.0036, Lon: 0}
	d := haversineMeters(a, b)
	if d < 390 || d > 410 {
		t.Errorf("expected ~400m, got %.1f", d)
	}
}

func TestResolverSkipsCircuitEntries(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) // Tuesday
	rule := CollectionRule{
		ID:             "trash-east",
		Title:          "Trash set-out",
		CollectionDays: []time.Weekday{time.Tuesday},
		WindowStart:    models.TimeOfDay{Hour: 20},
		WindowEnd:      models.TimeOfDay{Hour: 21},
		BuildingGroup:  []string{"B9"},
	}
	schedule := Dedupe(InjectCalendarTasks(day, "w1", []CollectionRule{rule}))
	b9 := building("B9", "Ninth Street", 0, 0)

	// Inside the set-out window the circuit entry is active, but a
	// circuit is an obligation, not a place; resolution must fall through
	// to the assignment list.
	got := ResolveCurrentBuilding(WorkerState{
		TodaySchedule: schedule,
		Assigned:      []models.BuildingSummary{b9},
		Now:           day.Add(20*time.Hour + 30*time.Minute),
	})
	if got == nil || got.ID != "B9" {
		t.Fatalf("expected assignment fallback B9 during the window, got %+v", got)
	}
	if got.Name != "Ninth Street" {
		t.Errorf("expected a real building summary, got %+v", got)
	}

	// Half an hour before the window the circuit entry is the earliest
	// upcoming one; it must not win there either.
	got = ResolveCurrentBuilding(WorkerState{
		TodaySchedule: schedule,
		Assigned:      []models.BuildingSummary{b9},
		Now:           day.Add(19*time.Hour + 30*time.Minute),
	})
	if got == nil || got.ID != "B9" {
		t.Fatalf("expected assignment fallback B9 before the window, got %+v", got)
	}
}

func TestResolverCircuitEntryDoesNotShadowRealUpcoming(t *testing.T) {
	b2 := building("B2", "Oak House", 0.001, 0)
	state := WorkerState{
		TodaySchedule: []models.ScheduleEntry{
			{BuildingID: "circuit:recycling", StartTime: resolverNow.Add(10 * time.Minute), EndTime: resolverNow.Add(40 * time.Minute)},
			{BuildingID: "B2", StartTime: resolverNow.Add(45 * time.Minute), EndTime: resolverNow.Add(90 * time.Minute)},
		},
		Assigned: []models.BuildingSummary{b2},
		Now:      resolverNow,
	}
	got := ResolveCurrentBuilding(state)
	if got == nil || got.ID != "B2" {
		t.Fatalf("expected the real upcoming building B2, got %+v", got)
	}
}
