package plan

import (
	"errors"
	"testing"
	"time"

	"github.com/fieldops/rounds/internal/models"
	"github.com/fieldops/rounds/internal/weather"
)

// fakeSources implements every source interface over fixed slices.
type fakeSources struct {
	routines  []models.RoutineInstance
	tasks     map[string][]models.Task // keyed by date YYYY-MM-DD
	routes    map[time.Weekday][]models.RouteSequence
	buildings []models.BuildingSummary
	rules     []CollectionRule
	position  *models.Coordinate
	snapshot  models.WeatherSnapshot
	err       error
}

func (f *fakeSources) GetRoutineInstances(workerID string, from, to time.Time) ([]models.RoutineInstance, error) {
	return f.routines, f.err
}

func (f *fakeSources) GetTasks(workerID string, date time.Time) ([]models.Task, error) {
	return f.tasks[date.Format("2006-01-02")], f.err
}

func (f *fakeSources) GetRouteSequences(workerID string, weekday time.Weekday) ([]models.RouteSequence, error) {
	return f.routes[weekday], f.err
}

func (f *fakeSources) GetAssignedBuildings(workerID string) ([]models.BuildingSummary, error) {
	return f.buildings, f.err
}

func (f *fakeSources) GetCollectionRules(workerID string) ([]CollectionRule, error) {
	return f.rules, f.err
}

func (f *fakeSources) GetCurrentPosition() (*models.Coordinate, error) {
	return f.position, nil
}

func (f *fakeSources) GetForecast() (models.WeatherSnapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeSources) sources() Sources {
	return Sources{
		Routines:  f,
		Tasks:     f,
		Routes:    f,
		Weather:   f,
		Position:  f,
		Buildings: f,
		Rules:     f,
	}
}

var orchNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC) // a Tuesday

func mild() models.WeatherSnapshot {
	pt := models.WeatherPoint{TempF: 60, Condition: "Clear", PrecipProb: 0.05, WindMph: 4}
	return models.WeatherSnapshot{Current: pt, Hourly: []models.WeatherPoint{pt, pt, pt}}
}

func TestBuildPlanFullPipeline(t *testing.T) {
	due := orchNow.Add(2 * time.Hour)
	f := &fakeSources{
		routines: []models.RoutineInstance{
			{ID: "r1", BuildingID: "B1", Title: "Sweep lobby",
				Start: orchNow.Add(-30 * time.Minute), End: orchNow.Add(30 * time.Minute)},
		},
		tasks: map[string][]models.Task{
			orchNow.Format("2006-01-02"): {
				{ID: "t1", Title: "Replace bulb", BuildingID: "B1", DueTime: &due, Urgency: models.UrgencyHigh},
			},
		},
		buildings: []models.BuildingSummary{
			{ID: "B1", Name: "Maple House", Status: models.BuildingStatusAssigned},
		},
		rules: []CollectionRule{{
			ID:             "set-out",
			Title:          "Collection set-out",
			WorkerID:       "w1",
			CollectionDays: []time.Weekday{time.Tuesday},
			WindowStart:    models.TimeOfDay{Hour: 20, Minute: 0},
			WindowEnd:      models.TimeOfDay{Hour: 21, Minute: 0},
			BuildingGroup:  []string{"B1", "B2", "B3"},
		}},
		snapshot: mild(),
	}

	got, err := BuildPlan(BuildInput{WorkerID: "w1", Date: orchNow, Now: orchNow, Sources: f.sources()})
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}

	if len(got.Week.Days) != 7 {
		t.Fatalf("expected 7 day schedules, got %d", len(got.Week.Days))
	}
	if !got.Week.Days[0].Date.Equal(startOfDay(orchNow)) {
		t.Errorf("expected week to start today, got %s", got.Week.Days[0].Date)
	}

	// Today: routine + task + 3 injected circuit entries.
	today := got.Week.Today()
	if len(today.Items) != 5 {
		t.Fatalf("expected 5 entries today, got %d: %+v", len(today.Items), today.Items)
	}

	// Next Tuesday, day 7, is outside the window; no other day injects.
	injected := 0
	for d := 1; d < 7; d++ {
		for _, e := range got.Week.Days[d].Items {
			if e.BuildingID == "circuit:set-out" {
				injected++
			}
		}
	}
	if injected != 0 {
		t.Errorf("expected circuit entries only on Tuesday, found %d elsewhere", injected)
	}

	// The active routine window puts the worker at B1.
	if got.CurrentBuilding == nil || got.CurrentBuilding.ID != "B1" {
		t.Fatalf("expected current building B1, got %+v", got.CurrentBuilding)
	}
	if got.CurrentBuilding.Status != models.BuildingStatusCurrent {
		t.Errorf("expected current status, got %s", got.CurrentBuilding.Status)
	}

	if len(got.Upcoming) != 1 || got.Upcoming[0].ID != "t1" {
		t.Errorf("expected t1 upcoming, got %+v", got.Upcoming)
	}
	if got.DeferOutdoor {
		t.Error("mild weather should not defer")
	}
	if len(got.Suggestions) == 0 {
		t.Error("expected suggestions")
	}
}

func TestBuildPlanWeatherDeferral(t *testing.T) {
	rain := mild()
	rain.Hourly[0].PrecipProb = 0.8
	dueNow := orchNow
	f := &fakeSources{
		tasks: map[string][]models.Task{
			orchNow.Format("2006-01-02"): {
				{ID: "t1", Title: "Hose sidewalks", DueTime: &dueNow},
				{ID: "t2", Title: "Lobby check", DueTime: &dueNow},
			},
		},
		snapshot: rain,
	}

	got, err := BuildPlan(BuildInput{WorkerID: "w1", Date: orchNow, Now: orchNow, Sources: f.sources()})
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if !got.DeferOutdoor {
		t.Fatal("expected deferral")
	}
	if len(got.DeferredOutdoor) != 1 || got.DeferredOutdoor[0].Title != "Hose sidewalks" {
		t.Fatalf("expected hose task deferred, got %+v", got.DeferredOutdoor)
	}
	// The schedule itself keeps the deferred task; only the "do now"
	// view excludes it.
	found := false
	for _, e := range got.Week.Today().Items {
		if e.Title == "Hose sidewalks" {
			found = true
		}
	}
	if !found {
		t.Error("deferred task missing from day schedule")
	}
}

func TestBuildPlanCheckInDrivesResolution(t *testing.T) {
	b2 := models.BuildingSummary{ID: "B2", Name: "Oak House"}
	f := &fakeSources{
		buildings: []models.BuildingSummary{{ID: "B1", Name: "Maple House"}, b2},
		snapshot:  mild(),
	}

	got, err := BuildPlan(BuildInput{
		WorkerID: "w1",
		Date:     orchNow,
		Now:      orchNow,
		CheckIn: &models.CheckIn{
			Building:  b2,
			At:        orchNow.Add(-time.Hour),
			ExpiresAt: orchNow.Add(time.Hour),
		},
		Sources: f.sources(),
	})
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if got.CurrentBuilding == nil || got.CurrentBuilding.ID != "B2" {
		t.Fatalf("expected checked-in building B2, got %+v", got.CurrentBuilding)
	}
}

func TestBuildPlanEmptySources(t *testing.T) {
	got, err := BuildPlan(BuildInput{WorkerID: "w1", Date: orchNow, Now: orchNow})
	if err != nil {
		t.Fatalf("expected empty valid plan, got error: %v", err)
	}
	if len(got.Week.Days) != 7 {
		t.Fatalf("expected 7 empty days, got %d", len(got.Week.Days))
	}
	if got.CurrentBuilding != nil {
		t.Errorf("expected nil current building, got %+v", got.CurrentBuilding)
	}
}

func TestBuildPlanSourceErrorFailsWhole(t *testing.T) {
	f := &fakeSources{err: errors.New("db locked")}
	if _, err := BuildPlan(BuildInput{WorkerID: "w1", Date: orchNow, Now: orchNow, Sources: f.sources()}); err == nil {
		t.Fatal("expected error when a source fails")
	}
}

func TestBuildPlanZeroDate(t *testing.T) {
	if _, err := BuildPlan(BuildInput{WorkerID: "w1"}); err == nil {
		t.Fatal("expected error on zero date")
	}
}

var _ weather.Source = (*fakeSources)(nil)
