// Package planner owns the caller-side state around the pure plan core:
// the refresh loop, trigger coalescing, the generation counter, and the
// worker's explicit check-in and live position.
package planner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/fieldops/rounds/internal/models"
	"github.com/fieldops/rounds/internal/plan"
)

// ErrNoPlan is returned before the first successful synthesis.
var ErrNoPlan = errors.New("no plan computed yet")

// Config defines the planner configuration.
type Config struct {
	// RefreshInterval is how often the plan is recomputed without an
	// explicit trigger.
	RefreshInterval time.Duration
	// DebounceWindow coalesces bursts of data-change triggers into one
	// recomputation.
	DebounceWindow time.Duration
	// CheckInTTL is how long an explicit check-in stays valid.
	CheckInTTL time.Duration
}

// DefaultConfig returns the default planner configuration.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval: 5 * time.Minute,
		DebounceWindow:  250 * time.Millisecond,
		CheckInTTL:      4 * time.Hour,
	}
}

// Planner recomputes the worker's plan on a timer and on demand, and
// keeps the last good result. Synthesis itself is pure; everything
// stateful lives here.
type Planner struct {
	workerID string
	sources  plan.Sources
	config   *Config

	mu         sync.Mutex
	current    *models.DailyPlan
	generation uint64
	checkIn    *models.CheckIn
	position   *models.Coordinate

	trigger chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a planner for one worker.
func New(workerID string, sources plan.Sources, cfg *Config) *Planner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Planner{
		workerID: workerID,
		sources:  sources,
		config:   cfg,
		trigger:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	// The planner itself is the position source in the chain; live
	// fixes arrive through SetPosition.
	if p.sources.Position == nil {
		p.sources.Position = p
	}
	return p
}

// Start begins the refresh loop and computes the first plan.
func (p *Planner) Start() {
	p.wg.Add(1)
	go p.refreshLoop()
	p.Refresh()
	log.Println("Planner started")
}

// Stop stops the refresh loop.
func (p *Planner) Stop() {
	p.cancel()
	p.wg.Wait()
	log.Println("Planner stopped")
}

// Refresh requests a recomputation. Requests arriving while one is
// already queued collapse into it.
func (p *Planner) Refresh() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Planner) refreshLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.recompute()
		case <-p.trigger:
			p.debounce()
			p.recompute()
		}
	}
}

// debounce absorbs the burst that follows a data-change event so a run
// of upstream updates costs one recomputation, not one each.
func (p *Planner) debounce() {
	timer := time.NewTimer(p.config.DebounceWindow)
	defer timer.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.trigger:
			// Absorbed; keep waiting out the window.
		case <-timer.C:
			return
		}
	}
}

// recompute runs one synthesis pass. The result is installed only if its
// generation is still the latest; on failure the last good plan stays.
func (p *Planner) recompute() {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	checkIn := p.checkIn
	p.mu.Unlock()

	now := time.Now()
	result, err := plan.BuildPlan(plan.BuildInput{
		WorkerID: p.workerID,
		Date:     now,
		Now:      now,
		CheckIn:  checkIn,
		Sources:  p.sources,
	})
	if err != nil {
		log.Printf("Plan synthesis failed (keeping previous plan): %v", err)
		return
	}
	result.Generation = gen

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.Generation > gen {
		// A newer pass already landed; this result is stale.
		return
	}
	p.current = result
}

// Plan returns the last successfully computed plan.
func (p *Planner) Plan() (*models.DailyPlan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, ErrNoPlan
	}
	return p.current, nil
}

// CheckIn records an explicit clock-in at a building and triggers a
// recomputation.
func (p *Planner) CheckIn(building models.BuildingSummary, at time.Time) models.CheckIn {
	ci := models.CheckIn{
		Building:  building,
		At:        at,
		ExpiresAt: at.Add(p.config.CheckInTTL),
	}
	p.mu.Lock()
	p.checkIn = &ci
	p.mu.Unlock()
	p.Refresh()
	return ci
}

// CheckOut clears the explicit check-in.
func (p *Planner) CheckOut() {
	p.mu.Lock()
	p.checkIn = nil
	p.mu.Unlock()
	p.Refresh()
}

// SetPosition records the latest live position fix.
func (p *Planner) SetPosition(c models.Coordinate) {
	p.mu.Lock()
	p.position = &c
	p.mu.Unlock()
	p.Refresh()
}

// GetCurrentPosition implements plan.PositionSource.
func (p *Planner) GetCurrentPosition() (*models.Coordinate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.position == nil {
		return nil, nil
	}
	c := *p.position
	return &c, nil
}
