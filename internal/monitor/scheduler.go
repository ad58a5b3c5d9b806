package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mirrorhua/watchdog/internal/checker"
	"github.com/mirrorhua/watchdog/internal/storage"
)

// Notifier receives every recorded transition. Satisfied by
// notifier.Engine.
type Notifier interface {
	Evaluate(ctx context.Context, monitorID string, status storage.Status, message string, prev *storage.Status)
}

// retryWait is how long a task backs off after a storage error before
// trying its monitor again.
const retryWait = 10 * time.Second

// Scheduler runs one long-lived task goroutine per active monitor. Each
// task probes, records, notifies, then sleeps the monitor's interval
// measured from the end of the probe, so at most one probe per monitor is
// ever in flight.
type Scheduler struct {
	store    storage.Store
	registry *checker.Registry
	recorder *Recorder
	notifier Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

type task struct {
	monitorID string
	stop      chan struct{}
	done      chan struct{}
	once      sync.Once
}

func (t *task) cancel() {
	t.once.Do(func() { close(t.stop) })
}

func (t *task) cancelled() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

func NewScheduler(store storage.Store, registry *checker.Registry, recorder *Recorder, notifier Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		registry: registry,
		recorder: recorder,
		notifier: notifier,
		logger:   logger,
		tasks:    make(map[string]*task),
	}
}

// Start brings the scheduler up with one task per active monitor.
func (s *Scheduler) Start(ctx context.Context) error {
	return s.ResetAll(ctx)
}

// ResetAll stops every running task and starts a fresh one for each active
// monitor in the store. Called at startup and after bulk changes.
func (s *Scheduler) ResetAll(ctx context.Context) error {
	monitors, err := s.store.ListActiveMonitors(ctx)
	if err != nil {
		return fmt.Errorf("list active monitors: %w", err)
	}

	s.stopAll()
	for _, m := range monitors {
		s.startTask(m.ID)
	}
	s.logger.Info("scheduler reset", "tasks", len(monitors))
	return nil
}

// AddOrReplace ensures the monitor has a running task when it is active
// and none when it is not. Config changes need no restart: tasks re-read
// their monitor before every probe.
func (s *Scheduler) AddOrReplace(m *storage.Monitor) {
	if !m.Active {
		s.Remove(m.ID)
		return
	}
	s.startTask(m.ID)
}

// Remove stops the monitor's task. A probe already in flight completes and
// records normally; the map entry stays until the task exits so a
// replacement started meanwhile cannot probe concurrently with it.
func (s *Scheduler) Remove(monitorID string) {
	s.mu.Lock()
	t := s.tasks[monitorID]
	s.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

// Pause stops the monitor's task without touching the store. The caller is
// expected to flip the monitor's active flag separately.
func (s *Scheduler) Pause(monitorID string) {
	s.Remove(monitorID)
}

// Resume starts a task for the monitor if one is not already running.
func (s *Scheduler) Resume(monitorID string) {
	s.startTask(monitorID)
}

// Stop cancels every task and waits for in-flight probes to finish.
func (s *Scheduler) Stop() {
	s.stopAll()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) stopAll() {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()
	for _, t := range tasks {
		t.cancel()
	}
}

// startTask starts a task unless one is already running. A cancelled
// predecessor may still be draining an in-flight probe; the replacement
// waits for its done channel before the first probe so no two probes for
// one monitor ever overlap.
func (s *Scheduler) startTask(monitorID string) {
	s.mu.Lock()
	prev := s.tasks[monitorID]
	if prev != nil && !prev.cancelled() {
		s.mu.Unlock()
		return
	}
	t := &task{monitorID: monitorID, stop: make(chan struct{}), done: make(chan struct{})}
	s.tasks[monitorID] = t
	s.wg.Add(1)
	s.mu.Unlock()
	go s.runTask(t, prev)
}

// dropTask clears the map entry for a task that is exiting on its own,
// for example after its monitor was deleted.
func (s *Scheduler) dropTask(t *task) {
	s.mu.Lock()
	if cur, ok := s.tasks[t.monitorID]; ok && cur == t {
		delete(s.tasks, t.monitorID)
	}
	s.mu.Unlock()
}

func (s *Scheduler) runTask(t, prev *task) {
	defer s.wg.Done()
	defer s.dropTask(t)
	defer close(t.done)

	if prev != nil {
		select {
		case <-prev.done:
		case <-t.stop:
			return
		}
	}

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		// Probes run on a background context so shutdown never aborts
		// half-finished network I/O; checkers bound themselves with the
		// monitor's own timeout.
		ctx := context.Background()

		m, err := s.store.GetMonitor(ctx, t.monitorID)
		if errors.Is(err, sql.ErrNoRows) {
			return
		}
		if err != nil {
			s.logger.Error("load monitor", "monitor_id", t.monitorID, "error", err)
			if !s.waitOrStop(t, retryWait) {
				return
			}
			continue
		}
		if !m.Active {
			return
		}

		prev := m.LastStatus
		res := s.probe(ctx, m)

		rec, err := s.recorder.Record(ctx, m.ID, m.Type, res.Status, res.Message, res.Ping, res.Details)
		if err == nil && s.notifier != nil {
			s.notifier.Evaluate(ctx, m.ID, rec.Status, res.Message, prev)
		}

		interval := time.Duration(m.Interval) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		if !s.waitOrStop(t, interval) {
			return
		}
	}
}

// probe runs one retry-wrapped check. A panicking checker is folded into a
// down result so the task loop survives.
func (s *Scheduler) probe(ctx context.Context, m *storage.Monitor) (res *checker.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("checker panic",
				"monitor_id", m.ID, "type", m.Type,
				"panic", r, "stack", string(debug.Stack()))
			res = &checker.Result{
				Status:  storage.StatusDown,
				Message: fmt.Sprintf("检查执行出错: %v", r),
			}
		}
	}()

	c, err := s.registry.Get(m.Type)
	if err != nil {
		return &checker.Result{
			Status:  storage.StatusDown,
			Message: fmt.Sprintf("检查执行出错: %v", err),
		}
	}
	return checker.RunWithRetries(ctx, c, m)
}

func (s *Scheduler) waitOrStop(t *task, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.stop:
		return false
	case <-timer.C:
		return true
	}
}
