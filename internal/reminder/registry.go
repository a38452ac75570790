package reminder

import (
	"sync"
	"time"
)

// Stopper cancels a pending timer. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

type Kind string

const (
	KindMeal     Kind = "meal"
	KindExercise Kind = "exercise"
)

// Job is one reminder waiting to be armed.
type Job struct {
	FireAt time.Time
	Kind   Kind
	Name   string
	Run    func()
}

// Timer describes an armed reminder.
type Timer struct {
	FireAt time.Time
	Kind   Kind
	Name   string

	stop Stopper
}

type timerSet struct {
	gen    uint64
	timers []*Timer
}

// Registry maps each Key to the timers currently armed for it. At most one
// set is held per key: registering a new set stops and replaces the old one.
// State is process memory only.
type Registry struct {
	now   func() time.Time
	after AfterFunc

	mu   sync.Mutex
	gen  uint64
	sets map[Key]*timerSet
}

// NewRegistry returns a registry backed by the wall clock and time.AfterFunc.
func NewRegistry() *Registry {
	return newRegistry(time.Now, realAfterFunc)
}

func newRegistry(now func() time.Time, after AfterFunc) *Registry {
	return &Registry{
		now:   now,
		after: after,
		sets:  make(map[Key]*timerSet),
	}
}

// Cancel stops every timer registered under key and forgets the key.
// It is a no-op for unknown keys.
func (r *Registry) Cancel(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(key)
}

func (r *Registry) cancelLocked(key Key) {
	set, ok := r.sets[key]
	if !ok {
		return
	}
	for _, t := range set.timers {
		t.stop.Stop()
	}
	delete(r.sets, key)
}

// Register replaces the set armed under key with timers for jobs. Jobs whose
// FireAt is not in the future are dropped. An empty job list leaves the key
// with nothing armed.
func (r *Registry) Register(key Key, jobs []Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked(key)
	if len(jobs) == 0 {
		return
	}

	r.gen++
	set := &timerSet{gen: r.gen}
	now := r.now()
	for _, job := range jobs {
		delay := job.FireAt.Sub(now)
		if delay <= 0 {
			continue
		}
		t := &Timer{FireAt: job.FireAt, Kind: job.Kind, Name: job.Name}
		run, gen := job.Run, set.gen
		// The callback blocks on r.mu until this Register returns, so t.stop
		// is always set before release can observe t.
		t.stop = r.after(delay, func() {
			if r.release(key, gen, t) {
				run()
			}
		})
		set.timers = append(set.timers, t)
	}
	if len(set.timers) > 0 {
		r.sets[key] = set
	}
}

// release removes a fired timer from its set. It reports false when the set
// was cancelled or superseded after the timer fired but before it got here.
func (r *Registry) release(key Key, gen uint64, t *Timer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[key]
	if !ok || set.gen != gen {
		return false
	}
	for i, cur := range set.timers {
		if cur == t {
			set.timers = append(set.timers[:i], set.timers[i+1:]...)
			if len(set.timers) == 0 {
				delete(r.sets, key)
			}
			return true
		}
	}
	return false
}

// Armed returns a snapshot of the timers currently registered under key,
// ordered as they were registered.
func (r *Registry) Armed(key Key) []Timer {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[key]
	if !ok {
		return nil
	}
	out := make([]Timer, 0, len(set.timers))
	for _, t := range set.timers {
		out = append(out, Timer{FireAt: t.FireAt, Kind: t.Kind, Name: t.Name})
	}
	return out
}

// Keys returns the number of keys with at least one armed timer.
func (r *Registry) Keys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

// CancelAll stops every armed timer.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.sets {
		r.cancelLocked(key)
	}
}
