package reminder

import (
	"context"
	"sync"
	"time"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock hands out timers that only fire when the test calls fire.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) all() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

// fire runs a timer's callback the way time.AfterFunc would, even if the
// timer was stopped, to mimic a callback that lost the race with Stop.
func (t *fakeTimer) fire() {
	t.fn()
}

type memStore struct {
	mu       sync.Mutex
	entries  map[Key]Entry
	contacts map[int]*Contact

	entryErr    error
	contactErr  error
	byDateCalls []time.Time
}

func newMemStore() *memStore {
	return &memStore{
		entries:  make(map[Key]Entry),
		contacts: make(map[int]*Contact),
	}
}

func (m *memStore) put(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[KeyFor(e.UserID, e.Date)] = e
}

func (m *memStore) remove(userID int, date time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, KeyFor(userID, date))
}

func (m *memStore) FindEntry(_ context.Context, userID int, date time.Time) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entryErr != nil {
		return nil, m.entryErr
	}
	e, ok := m.entries[KeyFor(userID, date)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memStore) FindEntriesByDate(_ context.Context, date time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byDateCalls = append(m.byDateCalls, date)
	if m.entryErr != nil {
		return nil, m.entryErr
	}
	want := date.UTC().Format("2006-01-02")
	var out []Entry
	for _, e := range m.entries {
		if e.Date.UTC().Format("2006-01-02") == want {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) FindContact(_ context.Context, userID int) (*Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contactErr != nil {
		return nil, m.contactErr
	}
	return m.contacts[userID], nil
}

func (m *memStore) sweepCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byDateCalls)
}

type recordingNotifier struct {
	mu        sync.Mutex
	meals     []MealReminder
	exercises []ExerciseReminder
	err       error
}

func (n *recordingNotifier) SendMealReminder(_ context.Context, r MealReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.meals = append(n.meals, r)
	return n.err
}

func (n *recordingNotifier) SendExerciseReminder(_ context.Context, r ExerciseReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exercises = append(n.exercises, r)
	return n.err
}
