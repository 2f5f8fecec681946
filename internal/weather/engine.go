// Package weather scores and reorders tasks against a forecast snapshot
// and produces weather-appropriate work suggestions. Everything here is
// a pure function of its inputs.
package weather

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fieldops/rounds/internal/models"
)

// Deferral thresholds, checked against the next two forecast hours.
const (
	deferPrecipProb = 0.4
	deferTempF      = 45.0
	deferWindMph    = 25.0

	lookaheadHours = 2
)

// outdoorTerms is the fixed vocabulary that marks a task title as
// outdoor work for deferral purposes.
var outdoorTerms = []string{
	"hose",
	"sidewalk",
	"exterior",
	"curb",
	"power wash",
	"gutter",
	"courtyard",
	"patio",
	"lawn",
	"set out",
	"sweep front",
}

// ShouldDeferOutdoorWork reports whether outdoor work should be pushed
// off the immediate list: any of the next two hourly points crossing a
// precipitation, cold or wind threshold is enough.
func ShouldDeferOutdoorWork(snap models.WeatherSnapshot) bool {
	for i, pt := range snap.Hourly {
		if i >= lookaheadHours {
			break
		}
		if pt.PrecipProb >= deferPrecipProb || pt.TempF <= deferTempF || pt.WindMph >= deferWindMph {
			return true
		}
	}
	return false
}

// IsOutdoorTask reports whether a title lexically indicates outdoor work.
func IsOutdoorTask(title string) bool {
	lower := strings.ToLower(title)
	for _, term := range outdoorTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Ordering is the weather-adjusted "do now" view over a candidate set.
// Deferred tasks are excluded from Upcoming but never dropped from the
// underlying source.
type Ordering struct {
	Upcoming []models.Task
	Deferred []models.Task
	Defer    bool
}

// ScoreAndOrder ranks incomplete tasks by weather-adjusted score, lowest
// (most urgent right now) first. Ties fall back to due time ascending,
// then stable input order, so identical inputs always order identically.
func ScoreAndOrder(tasks []models.Task, snap models.WeatherSnapshot, now time.Time) Ordering {
	deferring := ShouldDeferOutdoorWork(snap)

	ord := Ordering{Defer: deferring}
	for _, t := range tasks {
		if t.IsCompleted {
			continue
		}
		if deferring && IsOutdoorTask(t.Title) {
			ord.Deferred = append(ord.Deferred, t)
			continue
		}
		ord.Upcoming = append(ord.Upcoming, t)
	}

	type scored struct {
		task  models.Task
		score float64
	}
	ranked := make([]scored, len(ord.Upcoming))
	for i, t := range ord.Upcoming {
		ranked[i] = scored{task: t, score: Score(t, snap, now)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score < b.score
		}
		switch {
		case a.task.DueTime == nil:
			return false
		case b.task.DueTime == nil:
			return true
		default:
			return a.task.DueTime.Before(*b.task.DueTime)
		}
	})
	for i, r := range ranked {
		ord.Upcoming[i] = r.task
	}
	return ord
}

// Score computes the weather-adjusted urgency score for one task. Lower
// means sooner. The score is pure in (task, snapshot, now).
func Score(t models.Task, snap models.WeatherSnapshot, now time.Time) float64 {
	// Emergency ranks 0, low ranks 5.
	rank := float64(models.UrgencyEmergency - t.Urgency)
	score := rank * 10

	slack := 48 * time.Hour
	if t.DueTime != nil {
		slack = t.DueTime.Sub(now)
		if slack < 0 {
			slack = 0
		}
	}
	score += slack.Minutes() / 30

	if IsOutdoorTask(t.Title) {
		if ShouldDeferOutdoorWork(snap) {
			score += 25
		} else {
			// Weather is fine now; get outdoor work in before it turns.
			score -= 5
		}
	}
	return score
}

// suggestionChecklists is the fixed checklist per suggestion category.
var suggestionChecklists = map[string][]string{
	"collection_prep": {
		"Stage bins at the service entrance",
		"Check compactor room for overflow",
		"Confirm set-out window with posted schedule",
	},
	"drainage_check": {
		"Clear roof drain strainers",
		"Walk the basement for seepage",
		"Check sump pump operation",
	},
	"exterior_sweep": {
		"Sweep entrance and sidewalk",
		"Hose down the curb line",
		"Empty exterior trash receptacles",
	},
	"indoor_rotation": {
		"Mop lobby and elevator cabs",
		"Dust mailboxes and fixtures",
		"Restock supply closet",
	},
}

// Suggest produces up to three ranked suggestions for a building given
// the snapshot, each with a weather rationale and its category checklist.
// Suggestions matching the top two upcoming titles are dropped so the
// same obligation is not shown through two surfaces.
func Suggest(building *models.BuildingSummary, snap models.WeatherSnapshot, upcoming []models.Task) []models.Suggestion {
	condition := snap.Current.Condition
	if condition == "" {
		condition = "current conditions"
	}

	var candidates []models.Suggestion
	if ShouldDeferOutdoorWork(snap) {
		candidates = append(candidates,
			suggestion("Drainage check", "drainage_check", fmt.Sprintf("Weather ahead: %s", condition)),
			suggestion("Indoor rotation", "indoor_rotation", fmt.Sprintf("Outdoor work deferred (%s)", condition)),
		)
	} else {
		candidates = append(candidates,
			suggestion("Exterior sweep", "exterior_sweep", fmt.Sprintf("Good window: %s", condition)),
		)
	}
	candidates = append(candidates,
		suggestion("Collection prep", "collection_prep", fmt.Sprintf("Routine prep (%s)", condition)),
	)
	if building != nil && building.Name != "" {
		for i := range candidates {
			candidates[i].Title = fmt.Sprintf("%s at %s", candidates[i].Title, building.Name)
		}
	}

	shown := make(map[string]bool, 2)
	for i, t := range upcoming {
		if i >= 2 {
			break
		}
		shown[strings.ToLower(t.Title)] = true
	}

	out := make([]models.Suggestion, 0, 3)
	for _, c := range candidates {
		if shown[strings.ToLower(c.Title)] {
			continue
		}
		out = append(out, c)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func suggestion(title, category, rationale string) models.Suggestion {
	return models.Suggestion{
		Title:     title,
		Category:  category,
		Rationale: rationale,
		Checklist: suggestionChecklists[category],
	}
}
