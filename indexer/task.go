// Package indexer implements component C9: the submission indexer that
// orchestrates the parser set (C2), file-list indexer (C6), document
// builder (C7) and writer coordinator (C8) into index_one/delete_submission,
// tracking progress through a per-accession task table.
package indexer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskState is one stage of a submission's indexing lifecycle.
type TaskState string

const (
	StateQueued    TaskState = "QUEUED"
	StateRunning   TaskState = "RUNNING"
	StateCompleted TaskState = "COMPLETED"
	StateFailed    TaskState = "FAILED"
	StateCancelled TaskState = "CANCELLED"
	StateNotFound  TaskState = "NOT_FOUND"
)

// TaskStatus is the polled-for view of a single index_one invocation.
type TaskStatus struct {
	Accession string
	TaskID    string
	QueuedAt  time.Time
	State     TaskState
	Message   string
}

// snapshot copies the status under the table's lock so callers never
// observe a status struct being concurrently mutated.
func (s TaskStatus) snapshot() TaskStatus { return s }

// taskTable enforces at-most-one-RUNNING task per accession (spec §4.9
// step 1). A second index_one call for an accession already RUNNING joins
// the existing task instead of starting a second worker, mirroring the
// notebit pipeline's inProgress-map dedup — except here the duplicate call
// gets the in-flight task's id back rather than being silently dropped.
type taskTable struct {
	mu    sync.Mutex
	tasks map[string]*TaskStatus
}

func newTaskTable() *taskTable {
	return &taskTable{tasks: make(map[string]*TaskStatus)}
}

// startOrJoin either registers a new RUNNING task for accession and
// returns (status, false), or returns the existing in-flight task and
// true if one is already RUNNING.
func (t *taskTable) startOrJoin(accession string) (*TaskStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.tasks[accession]; ok {
		return existing, true
	}
	status := &TaskStatus{
		Accession: accession,
		TaskID:    uuid.NewString(),
		QueuedAt:  time.Now(),
		State:     StateRunning,
	}
	t.tasks[accession] = status
	return status, false
}

func (t *taskTable) finish(accession string, state TaskState, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.tasks[accession]; ok {
		s.State = state
		s.Message = message
	}
	delete(t.tasks, accession)
}

// Status returns the current task status for accession, or
// (TaskStatus{State: NOT_FOUND}, false) if no task for it is in flight;
// finish removes a task as soon as it completes, so a finished task also
// reports NOT_FOUND.
func (t *taskTable) Status(accession string) (TaskStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.tasks[accession]
	if !ok {
		return TaskStatus{Accession: accession, State: StateNotFound}, false
	}
	return s.snapshot(), true
}
