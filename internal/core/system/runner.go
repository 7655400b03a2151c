package system

import "time"

// Runner executes systems phase by phase each tick. Systems of one phase
// run in registration order. The caller drives ticks; Runner owns no
// goroutine.
type Runner struct {
	phases [phaseCount][]System
}

func NewRunner() *Runner {
	return &Runner{}
}

// Register adds s to its phase. A phase outside the known range panics.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		panic("system: unknown phase")
	}
	r.phases[p] = append(r.phases[p], s)
}

// Len returns the number of registered systems.
func (r *Runner) Len() int {
	n := 0
	for _, ss := range r.phases {
		n += len(ss)
	}
	return n
}

// Tick runs every phase once.
func (r *Runner) Tick(dt time.Duration) {
	for p := range r.phases {
		r.TickPhase(Phase(p), dt)
	}
}

// TickPhase runs only the systems of phase. The main loop uses it to poll
// inspector input between ticks.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	for _, s := range r.phases[phase] {
		s.Update(dt)
	}
}
