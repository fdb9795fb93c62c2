package ingest

import (
	"sync"
	"time"
)

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is the in-process view of one document's processing.
type Job struct {
	DocumentID int64     `json:"document_id"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
	Result     *Result   `json:"result,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (j Job) Active() bool { return j.State == StatePending || j.State == StateRunning }

// defaultMaxJobs bounds how many jobs the tracker remembers.
const defaultMaxJobs = 1024

// Tracker records job states. It is process-local; after a restart the
// document status is derived from the store instead.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[int64]*Job
	max  int
	now  func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[int64]*Job), max: defaultMaxJobs, now: time.Now}
}

func (t *Tracker) set(id int64, fn func(j *Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	if !ok {
		j = &Job{DocumentID: id}
		t.jobs[id] = j
	}
	fn(j)
	j.UpdatedAt = t.now()
	if len(t.jobs) > t.max {
		t.pruneLocked()
	}
}

// pruneLocked drops the oldest finished job.
func (t *Tracker) pruneLocked() {
	var oldest *Job
	for _, j := range t.jobs {
		if j.Active() {
			continue
		}
		if oldest == nil || j.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = j
		}
	}
	if oldest != nil {
		delete(t.jobs, oldest.DocumentID)
	}
}

func (t *Tracker) Pending(id int64) { t.set(id, func(j *Job) { j.State = StatePending }) }
func (t *Tracker) Running(id int64) { t.set(id, func(j *Job) { j.State = StateRunning }) }

func (t *Tracker) Succeeded(id int64, r *Result) {
	t.set(id, func(j *Job) { j.State, j.Result, j.Error = StateSucceeded, r, "" })
}

// Failed records the failure stage only; the raw error is logged elsewhere.
func (t *Tracker) Failed(id int64, err error) {
	t.set(id, func(j *Job) {
		j.State = StateFailed
		j.Error = string(StageOf(err))
		if j.Error == "" {
			j.Error = "internal"
		}
	})
}

// Get returns a copy of the job for id.
func (t *Tracker) Get(id int64) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (t *Tracker) Active(id int64) bool {
	j, ok := t.Get(id)
	return ok && j.Active()
}

func (t *Tracker) Forget(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}
