package engine

import (
	"sync"
	"time"
)

// Clock abstracts time for the lifecycle engine so settlement timing is
// deterministic under test. The real clock schedules with time.AfterFunc;
// the manual clock fires tasks only when advanced explicitly.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

// NewRealClock returns a Clock backed by the system timer.
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type manualTask struct {
	at  time.Time
	seq int
	fn  func()
}

// ManualClock is a deterministic Clock for tests. Scheduled tasks fire
// during Advance, in target-time order with ties broken by scheduling
// order (request-arrival order is preserved).
type ManualClock struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []manualTask
}

// NewManualClock creates a manual clock starting at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.tasks = append(c.tasks, manualTask{at: c.now.Add(d), seq: c.seq, fn: f})
}

// Advance moves the clock forward and fires every task now due. Tasks
// run without the clock lock held, so they may schedule further tasks;
// tasks becoming due within the same advance also fire.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		due := -1
		for i, task := range c.tasks {
			if task.at.After(target) {
				continue
			}
			if due == -1 || task.at.Before(c.tasks[due].at) ||
				(task.at.Equal(c.tasks[due].at) && task.seq < c.tasks[due].seq) {
				due = i
			}
		}
		if due == -1 {
			c.now = target
			c.mu.Unlock()
			return
		}
		task := c.tasks[due]
		c.tasks = append(c.tasks[:due], c.tasks[due+1:]...)
		if task.at.After(c.now) {
			c.now = task.at
		}
		c.mu.Unlock()

		task.fn()
	}
}

// PendingTasks returns how many tasks are scheduled but not yet fired.
func (c *ManualClock) PendingTasks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}
