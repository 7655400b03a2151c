package event

import "time"

// World tree lifecycle events. Kind is the node kind name ("Sector",
// "Entity", "Action").

type NodeCreated struct {
	Kind  string
	Name  string
	Class string
}

type NodeDestroyed struct {
	Kind string
	Name string
}

type TickCompleted struct {
	Tick  uint64
	Total time.Duration
}

type SnapshotSaved struct {
	Tick   uint64
	Digest string
}
