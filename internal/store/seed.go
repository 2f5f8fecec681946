package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fieldops/rounds/internal/models"
	"github.com/fieldops/rounds/internal/plan"
)

// Seed is the JSON fixture format accepted by LoadSeed, used to stand up
// demo and test databases.
type Seed struct {
	Buildings []models.BuildingSummary `json:"buildings"`
	Workers   []SeedWorker             `json:"workers"`
}

// SeedWorker groups one worker's assignments and sources.
type SeedWorker struct {
	ID              string                `json:"id"`
	Buildings       []string              `json:"buildings"`
	Routines        []SeedRoutine         `json:"routines"`
	Tasks           []models.Task         `json:"tasks"`
	Routes          []SeedRoute           `json:"routes"`
	CollectionRules []plan.CollectionRule `json:"collection_rules"`
}

type SeedRoutine struct {
	BuildingID  string           `json:"building_id"`
	Title       string           `json:"title"`
	Weekdays    []time.Weekday   `json:"weekdays"`
	Start       models.TimeOfDay `json:"start"`
	DurationMin int              `json:"duration_min"`
}

type SeedRoute struct {
	Weekday time.Weekday           `json:"weekday"`
	Stops   []models.RouteSequence `json:"stops"`
}

// LoadSeed reads a fixture file and inserts its contents.
func (s *Store) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	return s.ApplySeed(seed)
}

// ApplySeed inserts a parsed fixture.
func (s *Store) ApplySeed(seed Seed) error {
	for _, b := range seed.Buildings {
		if err := s.UpsertBuilding(b); err != nil {
			return err
		}
	}
	for _, w := range seed.Workers {
		for i, buildingID := range w.Buildings {
			if err := s.AssignBuilding(w.ID, buildingID, i); err != nil {
				return err
			}
		}
		for _, r := range w.Routines {
			if _, err := s.AddRoutineRule(RoutineRule{
				WorkerID:    w.ID,
				BuildingID:  r.BuildingID,
				Title:       r.Title,
				Weekdays:    r.Weekdays,
				Start:       r.Start,
				DurationMin: r.DurationMin,
			}); err != nil {
				return err
			}
		}
		for _, t := range w.Tasks {
			if _, err := s.CreateTask(w.ID, t); err != nil {
				return err
			}
		}
		for _, route := range w.Routes {
			for i, stop := range route.Stops {
				if err := s.AddRouteStop(w.ID, route.Weekday, stop, i); err != nil {
					return err
				}
			}
		}
		for _, rule := range w.CollectionRules {
			if rule.WorkerID == "" {
				rule.WorkerID = w.ID
			}
			if _, err := s.AddCollectionRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}
