package replication

import "github.com/iudanet/docsync/internal/models"

// Phase состояние одного направления репликации
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePulling  Phase = "pulling"
	PhaseApplying Phase = "applying"
	PhasePushing  Phase = "pushing"
	PhaseStopped  Phase = "stopped"
)

// Status advisory connectivity indicator. Convergence never depends on it.
type Status string

const (
	StatusConnecting  Status = "connecting"
	StatusReplicating Status = "replicating"
	StatusError       Status = "error"
)

// Direction источник ошибки
type Direction string

const (
	DirectionPull   Direction = "pull"
	DirectionPush   Direction = "push"
	DirectionStream Direction = "stream"
)

// State snapshot of a replicator
type State struct {
	Collection string
	Checkpoint models.Checkpoint
	PullPhase  Phase
	PushPhase  Phase
	Status     Status
	LastError  string
	Pulled     int
	Pushed     int
}

// SyncResult итог одного SyncOnce
type SyncResult struct {
	Pushed int // отправлено документов
	Pulled int // получено документов
}
