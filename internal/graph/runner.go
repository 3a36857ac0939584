package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// Runner executes task trees.
type Runner struct {
	// Concurrency bounds the members of each parallel composite running at
	// once. Zero means unbounded.
	Concurrency int
	Recorder    metrics.Recorder
}

// NewRunner creates a runner.
func NewRunner(concurrency int, rec metrics.Recorder) *Runner {
	return &Runner{Concurrency: concurrency, Recorder: metrics.OrNoop(rec)}
}

// Run executes n. A series stops at the first failing member. A parallel
// composite always lets every member finish and joins their errors.
func (r *Runner) Run(ctx context.Context, n *Node) error {
	switch n.Kind {
	case KindTask:
		return r.runTask(ctx, n.Task)
	case KindSeries:
		return r.runSeries(ctx, n)
	case KindParallel:
		return r.runParallel(ctx, n)
	default:
		return aberrors.InternalError(fmt.Sprintf("unknown node kind %d", n.Kind), nil)
	}
}

func (r *Runner) runSeries(ctx context.Context, n *Node) error {
	slog.Debug("Starting series", logfields.Composite(n.Name), logfields.Count(len(n.Children)))
	for _, c := range n.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Run(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runParallel(ctx context.Context, n *Node) error {
	slog.Debug("Starting parallel", logfields.Composite(n.Name), logfields.Count(len(n.Children)))

	// A plain group: one member failing must not cancel its siblings.
	var g errgroup.Group
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}

	errs := make([]error, len(n.Children))
	for i, c := range n.Children {
		g.Go(func() error {
			errs[i] = r.Run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (r *Runner) runTask(ctx context.Context, t Task) (err error) {
	rec := metrics.OrNoop(r.Recorder)
	name := t.Name()
	runID := uuid.NewString()
	start := time.Now()

	slog.Info("Starting task", logfields.Task(name), logfields.RunID(runID))

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Task panicked", logfields.Task(name), logfields.RunID(runID),
				slog.Any("panic", p), slog.String("stack", string(debug.Stack())))
			err = aberrors.InternalError(fmt.Sprintf("task %s panicked: %v", name, p), nil)
		}
		if err != nil && !aberrors.IsCategory(err, aberrors.CategoryTask) {
			err = aberrors.TaskFailed(name, err)
		}

		elapsed := time.Since(start)
		rec.ObserveTaskDuration(name, elapsed)
		attrs := []any{logfields.Task(name), logfields.RunID(runID), logfields.DurationMS(float64(elapsed.Microseconds()) / 1000)}
		switch {
		case err == nil:
			rec.IncTaskResult(name, metrics.ResultSuccess)
			slog.Info("Finished task", attrs...)
		case errors.Is(err, context.Canceled):
			rec.IncTaskResult(name, metrics.ResultCanceled)
			slog.Info("Task canceled", attrs...)
		default:
			rec.IncTaskResult(name, metrics.ResultFailed)
			slog.Error("Task failed", append(attrs, logfields.Error(err))...)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return t.Run(ctx)
}
