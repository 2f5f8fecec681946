package plan

import (
	"fmt"
	"time"

	"github.com/fieldops/rounds/internal/models"
	"github.com/fieldops/rounds/internal/weather"
)

// The source interfaces below are the system's external collaborators.
// They hand over already-resolved data; the core does no I/O of its own.

type RoutineSource interface {
	GetRoutineInstances(workerID string, from, to time.Time) ([]models.RoutineInstance, error)
}

type TaskSource interface {
	GetTasks(workerID string, date time.Time) ([]models.Task, error)
}

type RouteSource interface {
	GetRouteSequences(workerID string, weekday time.Weekday) ([]models.RouteSequence, error)
}

type PositionSource interface {
	GetCurrentPosition() (*models.Coordinate, error)
}

type BuildingSource interface {
	GetAssignedBuildings(workerID string) ([]models.BuildingSummary, error)
}

type RuleSource interface {
	GetCollectionRules(workerID string) ([]CollectionRule, error)
}

// Sources bundles the collaborators feeding one synthesis pass. Any
// field may be nil; a nil source contributes nothing and the pass
// degrades instead of failing.
type Sources struct {
	Routines  RoutineSource
	Tasks     TaskSource
	Routes    RouteSource
	Weather   weather.Source
	Position  PositionSource
	Buildings BuildingSource
	Rules     RuleSource
}

// BuildInput is one synthesis request. CheckIn is the caller-owned
// explicit clock-in state, passed in as a snapshot like everything else.
type BuildInput struct {
	WorkerID string
	Date     time.Time
	Now      time.Time
	CheckIn  *models.CheckIn
	Sources  Sources
}

const planDays = 7

// BuildPlan runs the full pipeline: merge, inject, dedupe, resolve the
// current building, then score the "do now" ordering against weather.
// It either returns a complete plan or an error; it never returns a
// partial one. The caller keeps its previous plan on error.
func BuildPlan(in BuildInput) (*models.DailyPlan, error) {
	if in.Date.IsZero() {
		return nil, fmt.Errorf("build plan: zero date")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	src := in.Sources

	buildings, err := assignedBuildings(src, in.WorkerID)
	if err != nil {
		return nil, err
	}

	rules, err := collectionRules(src, in.WorkerID)
	if err != nil {
		return nil, err
	}

	weekStart := startOfDay(in.Date)
	routines, err := expandRoutines(src, in.WorkerID, weekStart)
	if err != nil {
		return nil, err
	}

	// A first resolution pass, without a schedule, gives the merge its
	// current-building fallback for unattributed tasks. The schedule it
	// would need does not exist yet.
	fallback := ResolveCurrentBuilding(WorkerState{
		CheckIn:  in.CheckIn,
		Position: position(src),
		Assigned: buildings,
		Now:      now,
	})
	fallbackID := ""
	if fallback != nil {
		fallbackID = fallback.ID
	}

	week := models.WeeklyPlan{Days: make([]models.DaySchedule, 0, planDays)}
	var todayTasks []models.Task
	for d := 0; d < planDays; d++ {
		date := weekStart.AddDate(0, 0, d)

		tasks, err := dayTasks(src, in.WorkerID, date)
		if err != nil {
			return nil, err
		}
		if d == 0 {
			todayTasks = tasks
		}

		routes, err := dayRoutes(src, in.WorkerID, date.Weekday())
		if err != nil {
			return nil, err
		}

		entries := append(
			MergeDay(MergeInput{
				Date:              date,
				Routines:          routines[d],
				Tasks:             tasks,
				Routes:            routes,
				CurrentBuildingID: fallbackID,
			}),
			InjectCalendarTasks(date, in.WorkerID, rules)...,
		)
		entries = Dedupe(entries)

		week.Days = append(week.Days, models.DaySchedule{
			Date:       date,
			Items:      entries,
			TotalHours: TotalHours(entries),
		})
	}

	current := ResolveCurrentBuilding(WorkerState{
		CheckIn:       in.CheckIn,
		TodaySchedule: week.Today().Items,
		Position:      position(src),
		Assigned:      buildings,
		Now:           now,
	})

	snap, err := forecast(src)
	if err != nil {
		return nil, err
	}
	ordering := weather.ScoreAndOrder(todayTasks, snap, now)

	return &models.DailyPlan{
		WorkerID:        in.WorkerID,
		GeneratedAt:     now,
		Week:            week,
		CurrentBuilding: current,
		Upcoming:        ordering.Upcoming,
		DeferredOutdoor: ordering.Deferred,
		Suggestions:     weather.Suggest(current, snap, ordering.Upcoming),
		DeferOutdoor:    ordering.Defer,
	}, nil
}

func assignedBuildings(src Sources, workerID string) ([]models.BuildingSummary, error) {
	if src.Buildings == nil {
		return nil, nil
	}
	buildings, err := src.Buildings.GetAssignedBuildings(workerID)
	if err != nil {
		return nil, fmt.Errorf("assigned buildings: %w", err)
	}
	return buildings, nil
}

func collectionRules(src Sources, workerID string) ([]CollectionRule, error) {
	if src.Rules == nil {
		return nil, nil
	}
	rules, err := src.Rules.GetCollectionRules(workerID)
	if err != nil {
		return nil, fmt.Errorf("collection rules: %w", err)
	}
	return rules, nil
}

func expandRoutines(src Sources, workerID string, weekStart time.Time) ([planDays][]models.RoutineInstance, error) {
	var byDay [planDays][]models.RoutineInstance
	if src.Routines == nil {
		return byDay, nil
	}
	instances, err := src.Routines.GetRoutineInstances(workerID, weekStart, weekStart.AddDate(0, 0, planDays))
	if err != nil {
		return byDay, fmt.Errorf("routine instances: %w", err)
	}
	index := make(map[string]int, planDays)
	for d := 0; d < planDays; d++ {
		index[weekStart.AddDate(0, 0, d).Format("2006-01-02")] = d
	}
	for _, inst := range instances {
		if d, ok := index[inst.Start.Format("2006-01-02")]; ok {
			byDay[d] = append(byDay[d], inst)
		}
	}
	return byDay, nil
}

func dayTasks(src Sources, workerID string, date time.Time) ([]models.Task, error) {
	if src.Tasks == nil {
		return nil, nil
	}
	tasks, err := src.Tasks.GetTasks(workerID, date)
	if err != nil {
		return nil, fmt.Errorf("tasks for %s: %w", date.Format("2006-01-02"), err)
	}
	return tasks, nil
}

func dayRoutes(src Sources, workerID string, weekday time.Weekday) ([]models.RouteSequence, error) {
	if src.Routes == nil {
		return nil, nil
	}
	routes, err := src.Routes.GetRouteSequences(workerID, weekday)
	if err != nil {
		return nil, fmt.Errorf("routes for %s: %w", weekday, err)
	}
	return routes, nil
}

func position(src Sources) *models.Coordinate {
	if src.Position == nil {
		return nil
	}
	// A failed fix is the same as no fix.
	pos, err := src.Position.GetCurrentPosition()
	if err != nil {
		return nil
	}
	return pos
}

func forecast(src Sources) (models.WeatherSnapshot, error) {
	if src.Weather == nil {
		return models.WeatherSnapshot{}, nil
	}
	snap, err := src.Weather.GetForecast()
	if err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("forecast: %w", err)
	}
	return snap, nil
}
