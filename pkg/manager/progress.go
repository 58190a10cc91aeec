package manager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agvsim/fleet-simulator/pkg/models"
)

// maxTrackedErrors caps the error history one cycle retains.
const maxTrackedErrors = 5

// progressTracker records what a robot's current generation cycle is doing.
// Each unit owns one tracker; Reset starts a fresh cycle with a new id.
type progressTracker struct {
	mu sync.Mutex

	cycleID     string
	currentStep string
	stepStarted time.Time
	processed   int
	points      int
	errors      []models.ProgressError
	steps       []models.StepResult
}

func newProgressTracker() *progressTracker {
	return &progressTracker{}
}

// Reset begins a new cycle, discarding all state of the previous one.
func (p *progressTracker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cycleID = uuid.NewString()
	p.currentStep = ""
	p.stepStarted = time.Time{}
	p.processed = 0
	p.points = 0
	p.errors = nil
	p.steps = nil
}

// StartStep marks the named step as in progress.
func (p *progressTracker) StartStep(name string) {
	p.mu.Lock()
	p.currentStep = name
	p.stepStarted = time.Now()
	p.mu.Unlock()
}

// CompleteStep closes the current step with its outcome.
func (p *progressTracker) CompleteStep(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentStep == "" {
		return
	}
	p.steps = append(p.steps, models.StepResult{
		Step:      p.currentStep,
		Success:   success,
		Duration:  time.Since(p.stepStarted).Seconds(),
		Timestamp: time.Now(),
	})
	p.currentStep = ""
}

// AddError records a fault against the current step.
func (p *progressTracker) AddError(message string) {
	p.mu.Lock()
	p.errors = append(p.errors, models.ProgressError{
		Message:   message,
		Step:      p.currentStep,
		Timestamp: time.Now(),
	})
	p.mu.Unlock()
}

// AddMission accounts one persisted mission and its data points.
func (p *progressTracker) AddMission(points int) {
	p.mu.Lock()
	p.processed++
	p.points += points
	p.mu.Unlock()
}

// Snapshot returns a copy of the tracker state. The error list is truncated
// to the most recent entries.
func (p *progressTracker) Snapshot() models.ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := models.ProgressSnapshot{
		CycleID:             p.cycleID,
		CurrentStep:         p.currentStep,
		ProcessedMissions:   p.processed,
		GeneratedDataPoints: p.points,
		Errors:              make([]models.ProgressError, 0, maxTrackedErrors),
		StepsCompleted:      append([]models.StepResult(nil), p.steps...),
	}
	if p.currentStep != "" {
		snap.StepDuration = time.Since(p.stepStarted).Seconds()
	}

	errs := p.errors
	if len(errs) > maxTrackedErrors {
		errs = errs[len(errs)-maxTrackedErrors:]
	}
	snap.Errors = append(snap.Errors, errs...)
	return snap
}
