// Package worker runs periodic background tasks (token purges, sync expiry,
// database backups) on tickers until the runner is stopped.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrStarted is returned when Start is called twice / Retourné si Start est appelé deux fois
var ErrStarted = errors.New("worker: runner already started")

// StatusRecorder reports task state / Rapporte l'état des tâches
type StatusRecorder interface {
	SetBackgroundTaskStatus(task string, running bool)
	RecordTaskRun(task string, err error)
}

// Task is a named job run every Interval / Tâche nommée exécutée à chaque intervalle
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner owns one goroutine per task / Gère une goroutine par tâche
type Runner struct {
	metrics StatusRecorder

	mu      sync.Mutex
	tasks   []Task
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewRunner creates an idle runner / Crée un runner inactif
func NewRunner(metrics StatusRecorder) *Runner {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Runner{metrics: metrics}
}

// Add registers a task before Start / Enregistre une tâche avant Start
func (r *Runner) Add(t Task) error {
	if t.Name == "" || t.Run == nil {
		return errors.New("worker: task needs a name and a run function")
	}
	if t.Interval <= 0 {
		return fmt.Errorf("worker: task %s needs a positive interval", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrStarted
	}
	r.tasks = append(r.tasks, t)
	return nil
}

// Tasks lists registered task names / Liste les tâches enregistrées
func (r *Runner) Tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.tasks))
	for i, t := range r.tasks {
		names[i] = t.Name
	}
	return names
}

// Start launches every task until ctx ends or Stop is called
// Lance toutes les tâches jusqu'à l'annulation de ctx ou l'appel à Stop
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrStarted
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	for _, t := range r.tasks {
		r.wg.Add(1)
		go r.loop(ctx, t)
	}
	slog.Info("background workers started", "tasks", len(r.tasks))
	return nil
}

// Stop cancels every task and waits for in-flight runs / Arrête les tâches et attend leur fin
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
}

// RunNow runs a task once, outside its schedule / Exécute une tâche une fois, hors planning
func (r *Runner) RunNow(ctx context.Context, name string) error {
	r.mu.Lock()
	var task *Task
	for i := range r.tasks {
		if r.tasks[i].Name == name {
			task = &r.tasks[i]
			break
		}
	}
	r.mu.Unlock()
	if task == nil {
		return fmt.Errorf("worker: unknown task %q", name)
	}
	return r.run(ctx, *task)
}

func (r *Runner) loop(ctx context.Context, t Task) {
	defer r.wg.Done()
	r.metrics.SetBackgroundTaskStatus(t.Name, true)
	defer r.metrics.SetBackgroundTaskStatus(t.Name, false)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = r.run(ctx, t)
		case <-ctx.Done():
			slog.Debug("background task stopped", "task", t.Name)
			return
		}
	}
}

// run executes one pass, turning panics into errors / Exécute un passage, les panics deviennent des erreurs
func (r *Runner) run(ctx context.Context, t Task) (err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("worker: task %s panicked: %v", t.Name, p)
		}
		r.metrics.RecordTaskRun(t.Name, err)
		if err != nil {
			slog.Error("background task failed", "task", t.Name, "err", err)
			return
		}
		slog.Debug("background task completed", "task", t.Name, "duration", time.Since(start))
	}()
	return t.Run(ctx)
}

type nopRecorder struct{}

func (nopRecorder) SetBackgroundTaskStatus(string, bool) {}
func (nopRecorder) RecordTaskRun(string, error)          {}
