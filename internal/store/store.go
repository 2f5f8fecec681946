// Package store provides SQLite-backed implementations of the plan
// source interfaces: buildings, assignments, routine rules, ad-hoc
// tasks, route sequences and collection rules.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fieldops/rounds/internal/models"
	"github.com/fieldops/rounds/internal/plan"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the Rounds SQLite database. It is the
// normalization boundary: every row it hands to the planner carries a
// canonical building id.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		lat REAL NOT NULL DEFAULT 0,
		lon REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS assignments (
		worker_id TEXT NOT NULL,
		building_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (worker_id, building_id),
		FOREIGN KEY (building_id) REFERENCES buildings(id)
	);

	CREATE TABLE IF NOT EXISTS routine_rules (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		building_id TEXT NOT NULL,
		title TEXT NOT NULL,
		weekdays TEXT NOT NULL,
		start_hour INTEGER NOT NULL,
		start_minute INTEGER NOT NULL,
		duration_min INTEGER NOT NULL DEFAULT 60
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		building_id TEXT,
		title TEXT NOT NULL,
		due_time DATETIME,
		urgency TEXT NOT NULL DEFAULT 'normal',
		is_completed INTEGER NOT NULL DEFAULT 0,
		category TEXT,
		requires_photo INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS route_stops (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		weekday INTEGER NOT NULL,
		building_id TEXT NOT NULL,
		building_name TEXT,
		arrival_hour INTEGER NOT NULL,
		arrival_minute INTEGER NOT NULL,
		duration_min INTEGER NOT NULL DEFAULT 60,
		operations TEXT,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS collection_rules (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		title TEXT NOT NULL,
		weekdays TEXT NOT NULL,
		start_hour INTEGER NOT NULL,
		start_minute INTEGER NOT NULL,
		end_hour INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		building_ids TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_worker ON tasks(worker_id);
	CREATE INDEX IF NOT EXISTS idx_routines_worker ON routine_rules(worker_id);
	CREATE INDEX IF NOT EXISTS idx_routes_worker ON route_stops(worker_id, weekday);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Buildings ---

// UpsertBuilding creates or replaces a building record.
func (s *Store) UpsertBuilding(b models.BuildingSummary) error {
	_, err := s.db.Exec(`
		INSERT INTO buildings (id, name, address, lat, lon) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, address=excluded.address,
			lat=excluded.lat, lon=excluded.lon`,
		b.ID, b.Name, b.Address, b.Coordinate.Lat, b.Coordinate.Lon)
	if err != nil {
		return fmt.Errorf("upsert building: %w", err)
	}
	return nil
}

// AssignBuilding adds a building to a worker's assignment list at the
// given position. Position order is the resolver's final fallback order.
func (s *Store) AssignBuilding(workerID, buildingID string, position int) error {
	_, err := s.db.Exec(`
		INSERT INTO assignments (worker_id, building_id, position) VALUES (?, ?, ?)
		ON CONFLICT(worker_id, building_id) DO UPDATE SET position=excluded.position`,
		workerID, buildingID, position)
	if err != nil {
		return fmt.Errorf("assign building: %w", err)
	}
	return nil
}

// GetAssignedBuildings returns the worker's buildings in assignment
// order, with status "assigned".
func (s *Store) GetAssignedBuildings(workerID string) ([]models.BuildingSummary, error) {
	rows, err := s.db.Query(`
		SELECT b.id, b.name, b.address, b.lat, b.lon
		FROM assignments a JOIN buildings b ON b.id = a.building_id
		WHERE a.worker_id = ?
		ORDER BY a.position, b.id`, workerID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var out []models.BuildingSummary
	for rows.Next() {
		var b models.BuildingSummary
		var address sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &address, &b.Coordinate.Lat, &b.Coordinate.Lon); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		b.Address = address.String
		b.Status = models.BuildingStatusAssigned
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- Routine rules ---

// RoutineRule is a weekly recurrence the store expands into dated
// instances on read.
type RoutineRule struct {
	ID          string
	WorkerID    string
	BuildingID  string
	Title       string
	Weekdays    []time.Weekday
	Start       models.TimeOfDay
	DurationMin int
}

// AddRoutineRule inserts a recurrence rule. An empty ID is generated.
func (s *Store) AddRoutineRule(r RoutineRule) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.DurationMin <= 0 {
		r.DurationMin = 60
	}
	_, err := s.db.Exec(`
		INSERT INTO routine_rules (id, worker_id, building_id, title, weekdays, start_hour, start_minute, duration_min)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.WorkerID, r.BuildingID, r.Title, formatWeekdays(r.Weekdays),
		r.Start.Hour, r.Start.Minute, r.DurationMin)
	if err != nil {
		return "", fmt.Errorf("add routine rule: %w", err)
	}
	return r.ID, nil
}

// GetRoutineInstances expands the worker's recurrence rules into
// concrete instances in [from, to).
func (s *Store) GetRoutineInstances(workerID string, from, to time.Time) ([]models.RoutineInstance, error) {
	rows, err := s.db.Query(`
		SELECT id, building_id, title, weekdays, start_hour, start_minute, duration_min
		FROM routine_rules WHERE worker_id = ?`, workerID)
	if err != nil {
		return nil, fmt.Errorf("query routine rules: %w", err)
	}
	defer rows.Close()

	var out []models.RoutineInstance
	for rows.Next() {
		var (
			id, buildingID, title, weekdays string
			startHour, startMinute, durMin  int
		)
		if err := rows.Scan(&id, &buildingID, &title, &weekdays, &startHour, &startMinute, &durMin); err != nil {
			return nil, fmt.Errorf("scan routine rule: %w", err)
		}
		days := parseWeekdays(weekdays)
		for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
			if !containsWeekday(days, day.Weekday()) {
				continue
			}
			start := models.TimeOfDay{Hour: startHour, Minute: startMinute}.On(day)
			out = append(out, models.RoutineInstance{
				ID:         fmt.Sprintf("%s:%s", id, day.Format("2006-01-02")),
				BuildingID: buildingID,
				Title:      title,
				Start:      start,
				End:        start.Add(time.Duration(durMin) * time.Minute),
			})
		}
	}
	return out, rows.Err()
}

// --- Tasks ---

// CreateTask inserts an ad-hoc task. An empty ID is generated.
func (s *Store) CreateTask(workerID string, t models.Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	var due interface{}
	if t.DueTime != nil {
		due = t.DueTime.UTC()
	}
	var buildingID interface{}
	if t.BuildingID != "" {
		buildingID = t.BuildingID
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, worker_id, building_id, title, due_time, urgency, is_completed, category, requires_photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, workerID, buildingID, t.Title, due, t.Urgency.String(),
		boolToInt(t.IsCompleted), t.Category, boolToInt(t.RequiresPhoto), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return t.ID, nil
}

// CompleteTask marks a task done.
func (s *Store) CompleteTask(taskID string) error {
	res, err := s.db.Exec(`UPDATE tasks SET is_completed = 1 WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete task: no task %s", taskID)
	}
	return nil
}

// GetTasks returns the worker's tasks scheduled on the given calendar
// day. Undated tasks stay on every day's list until completed.
func (s *Store) GetTasks(workerID string, date time.Time) ([]models.Task, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.db.Query(`
		SELECT id, building_id, title, due_time, urgency, is_completed, category, requires_photo
		FROM tasks
		WHERE worker_id = ?
		  AND (due_time IS NULL OR (due_time >= ? AND due_time < ?))
		ORDER BY created_at, id`,
		workerID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var (
			t          models.Task
			buildingID sql.NullString
			due        sql.NullTime
			urgency    string
			completed  int
			category   sql.NullString
			photo      int
		)
		if err := rows.Scan(&t.ID, &buildingID, &t.Title, &due, &urgency, &completed, &category, &photo); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.BuildingID = buildingID.String
		if due.Valid {
			local := due.Time.In(date.Location())
			t.DueTime = &local
		}
		t.Urgency = models.ParseUrgency(urgency)
		t.IsCompleted = completed != 0
		t.Category = category.String
		t.RequiresPhoto = photo != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Route sequences ---

// AddRouteStop inserts one stop of a worker's day-of-week route.
func (s *Store) AddRouteStop(workerID string, weekday time.Weekday, seq models.RouteSequence, position int) error {
	ops, err := json.Marshal(seq.Operations)
	if err != nil {
		return fmt.Errorf("encode operations: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO route_stops (id, worker_id, weekday, building_id, building_name, arrival_hour, arrival_minute, duration_min, operations, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), workerID, int(weekday), seq.BuildingID, seq.BuildingName,
		seq.ArrivalTime.Hour, seq.ArrivalTime.Minute,
		int(seq.EstimatedDuration/time.Minute), string(ops), position)
	if err != nil {
		return fmt.Errorf("add route stop: %w", err)
	}
	return nil
}

// GetRouteSequences returns the worker's route for one weekday in stop
// order.
func (s *Store) GetRouteSequences(workerID string, weekday time.Weekday) ([]models.RouteSequence, error) {
	rows, err := s.db.Query(`
		SELECT building_id, building_name, arrival_hour, arrival_minute, duration_min, operations
		FROM route_stops
		WHERE worker_id = ? AND weekday = ?
		ORDER BY position, arrival_hour, arrival_minute`,
		workerID, int(weekday))
	if err != nil {
		return nil, fmt.Errorf("query route stops: %w", err)
	}
	defer rows.Close()

	var out []models.RouteSequence
	for rows.Next() {
		var (
			seq          models.RouteSequence
			buildingName sql.NullString
			durMin       int
			ops          sql.NullString
		)
		if err := rows.Scan(&seq.BuildingID, &buildingName, &seq.ArrivalTime.Hour, &seq.ArrivalTime.Minute, &durMin, &ops); err != nil {
			return nil, fmt.Errorf("scan route stop: %w", err)
		}
		seq.BuildingName = buildingName.String
		seq.EstimatedDuration = time.Duration(durMin) * time.Minute
		if ops.Valid && ops.String != "" {
			if err := json.Unmarshal([]byte(ops.String), &seq.Operations); err != nil {
				return nil, fmt.Errorf("decode operations: %w", err)
			}
		}
		out = append(out, seq)
	}
	return out, rows.Err()
}

// --- Collection rules ---

// AddCollectionRule inserts a calendar-conditioned rule. An empty ID is
// generated.
func (s *Store) AddCollectionRule(r plan.CollectionRule) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	ids, err := json.Marshal(r.BuildingGroup)
	if err != nil {
		return "", fmt.Errorf("encode building group: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO collection_rules (id, worker_id, title, weekdays, start_hour, start_minute, end_hour, end_minute, building_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.WorkerID, r.Title, formatWeekdays(r.CollectionDays),
		r.WindowStart.Hour, r.WindowStart.Minute, r.WindowEnd.Hour, r.WindowEnd.Minute, string(ids))
	if err != nil {
		return "", fmt.Errorf("add collection rule: %w", err)
	}
	return r.ID, nil
}

// GetCollectionRules returns the rules applying to a worker, including
// shared rules with no worker filter. Building display names are joined
// in so injected entry titles can name the building.
func (s *Store) GetCollectionRules(workerID string) ([]plan.CollectionRule, error) {
	rows, err := s.db.Query(`
		SELECT id, worker_id, title, weekdays, start_hour, start_minute, end_hour, end_minute, building_ids
		FROM collection_rules
		WHERE worker_id = ? OR worker_id = ''`, workerID)
	if err != nil {
		return nil, fmt.Errorf("query collection rules: %w", err)
	}
	defer rows.Close()

	var out []plan.CollectionRule
	for rows.Next() {
		var (
			r   plan.CollectionRule
			wd  string
			ids string
		)
		if err := rows.Scan(&r.ID, &r.WorkerID, &r.Title, &wd,
			&r.WindowStart.Hour, &r.WindowStart.Minute,
			&r.WindowEnd.Hour, &r.WindowEnd.Minute, &ids); err != nil {
			return nil, fmt.Errorf("scan collection rule: %w", err)
		}
		r.CollectionDays = parseWeekdays(wd)
		if err := json.Unmarshal([]byte(ids), &r.BuildingGroup); err != nil {
			return nil, fmt.Errorf("decode building group: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		names, err := s.buildingNames(out[i].BuildingGroup)
		if err != nil {
			return nil, err
		}
		out[i].BuildingNames = names
	}
	return out, nil
}

func (s *Store) buildingNames(ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		var name string
		err := s.db.QueryRow(`SELECT name FROM buildings WHERE id = ?`, id).Scan(&name)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("building name %s: %w", id, err)
		}
		names[id] = name
	}
	return names, nil
}

// --- Helpers ---

func formatWeekdays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func parseWeekdays(s string) []time.Weekday {
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			continue
		}
		out = append(out, time.Weekday(n))
	}
	return out
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
