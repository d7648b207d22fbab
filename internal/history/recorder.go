// Package history persists controller lifecycle events as analysis records.
package history

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/fashionvista/fashionvista/internal/analyzer"
	"github.com/fashionvista/fashionvista/internal/store"
	"github.com/fashionvista/fashionvista/pkg/models"
)

// Recorder implements analyzer.Observer. Events are queued and written by a
// single worker, so a submission's record is always created before it is
// completed.
type Recorder struct {
	store  store.Store
	events chan analyzer.Event
}

func NewRecorder(s store.Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1
	}
	return &Recorder{store: s, events: make(chan analyzer.Event, buffer)}
}

// OnEvent enqueues e without blocking. A full queue drops the event.
func (r *Recorder) OnEvent(e analyzer.Event) {
	select {
	case r.events <- e:
	default:
		slog.Warn("history queue full, dropping event",
			"kind", e.Kind, "session", e.Session, "submission_id", e.State.SubmissionID)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case e := <-r.events:
			r.record(ctx, e)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	ctx := context.Background()
	for {
		select {
		case e := <-r.events:
			r.record(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) record(ctx context.Context, e analyzer.Event) {
	var err error
	switch e.Kind {
	case analyzer.EventSubmitted:
		err = r.store.CreateAnalysis(ctx, &models.Analysis{
			ID:        e.State.SubmissionID,
			SessionID: e.Session,
			Seq:       int64(e.State.Seq),
			ImageURL:  e.State.ImageURL,
			Status:    models.AnalysisStatusPending,
			CreatedAt: e.State.SubmittedAt.UTC(),
		})
	case analyzer.EventSettled:
		err = r.complete(ctx, e.State)
	case analyzer.EventDiscarded:
		err = r.store.CompleteAnalysis(ctx, e.State.SubmissionID, models.AnalysisStatusSuperseded)
	default:
		return
	}

	if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		slog.Error("failed to record analysis event",
			"kind", e.Kind,
			"session", e.Session,
			"submission_id", e.State.SubmissionID,
			"error", err,
		)
	}
}

func (r *Recorder) complete(ctx context.Context, st analyzer.State) error {
	switch st.Phase {
	case analyzer.PhaseSucceeded:
		raw, err := sonic.ConfigStd.Marshal(st.Result)
		if err != nil {
			return err
		}
		return r.store.CompleteAnalysis(ctx, st.SubmissionID, models.AnalysisStatusSucceeded,
			store.WithResult(raw), store.WithWarnings(st.Result.Warnings()))
	case analyzer.PhaseFailed:
		msg := ""
		if st.Err != nil {
			msg = st.Err.Error()
		}
		return r.store.CompleteAnalysis(ctx, st.SubmissionID, models.AnalysisStatusFailed,
			store.WithFailure(string(st.Reason), msg))
	}
	return nil
}

var _ analyzer.Observer = (*Recorder)(nil)
