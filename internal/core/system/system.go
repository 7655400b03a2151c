package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain inspector packet queues
	PhasePreUpdate               // 1: dispatch last tick's events
	PhaseUpdate                  // 2: world tree update
	PhasePostUpdate              // 3: reserved
	PhaseOutput                  // 4: flush inspector replies
	PhasePersist                 // 5: snapshot the tree
	PhaseCleanup                 // 6: destroy queued nodes

	phaseCount
)

// System is one stage of the tick pipeline.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
