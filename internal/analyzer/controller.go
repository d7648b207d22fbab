package analyzer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// EventKind names a controller lifecycle event.
type EventKind string

const (
	// EventSubmitted fires when a submission enters Pending.
	EventSubmitted EventKind = "submitted"
	// EventSettled fires when the latest submission reaches Succeeded or Failed.
	EventSettled EventKind = "settled"
	// EventDiscarded fires when a superseded submission's response arrives.
	// State holds what that response would have produced.
	EventDiscarded EventKind = "discarded"
)

// Event is delivered to observers after the controller lock is released.
type Event struct {
	Kind    EventKind
	Session string
	State   State
}

// Observer receives controller events. OnEvent runs on the submitting or
// settling goroutine and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds each outbound call.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithSession labels events and logs with a session identifier.
func WithSession(id string) Option {
	return func(c *Controller) {
		c.session = id
	}
}

// Controller owns the request lifecycle of one analysis client: at most one
// submission is current, and only the latest submission may set the final
// state. Safe for concurrent use.
type Controller struct {
	client    Client
	timeout   time.Duration
	session   string
	observers []Observer
	now       func() time.Time
	inflight  *sync.WaitGroup

	mu         sync.Mutex
	seq        uint64
	state      State
	cancel     context.CancelFunc
	changed    chan struct{}
	lastActive time.Time
}

// NewController creates an Idle controller backed by client.
func NewController(client Client, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		timeout: defaultTimeout,
		now:     time.Now,
		changed: make(chan struct{}),
		state:   State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastActive = c.now()
	return c
}

// Submit moves the controller to Pending, cancels any in-flight call and
// issues exactly one outbound call for imageURL. The call is detached from
// ctx cancellation but keeps its values. Returns the submission's sequence
// number.
func (c *Controller) Submit(ctx context.Context, imageURL string) uint64 {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	now := c.now()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	c.cancel = cancel
	c.state = State{
		Phase:        PhasePending,
		Seq:          c.seq,
		SubmissionID: uuid.New(),
		ImageURL:     imageURL,
		SubmittedAt:  now,
	}
	c.lastActive = now
	pending := c.state
	c.broadcastLocked()
	c.mu.Unlock()

	slog.Debug("analysis submitted", "session", c.session, "seq", pending.Seq, "image_url", imageURL)
	c.emit(Event{Kind: EventSubmitted, Session: c.session, State: pending})

	if c.inflight != nil {
		c.inflight.Add(1)
	}
	go c.run(runCtx, cancel, pending)

	return pending.Seq
}

// CurrentState returns a snapshot of the latest submission.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = c.now()
	return c.state
}

// Wait blocks until submission seq settles. It returns ErrSuperseded when a
// newer submission replaced it, ErrUnknownSubmission for a sequence number
// never issued, or ctx's error. The returned state is always the latest one.
func (c *Controller) Wait(ctx context.Context, seq uint64) (State, error) {
	for {
		c.mu.Lock()
		st := c.state
		ch := c.changed
		c.lastActive = c.now()
		c.mu.Unlock()

		switch {
		case seq > st.Seq:
			return st, ErrUnknownSubmission
		case seq < st.Seq:
			return st, ErrSuperseded
		case st.Settled():
			return st, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Pending reports whether a submission is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Phase == PhasePending
}

// IdleSince returns the last time the controller was used.
func (c *Controller) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, pending State) {
	defer cancel()
	if c.inflight != nil {
		defer c.inflight.Done()
	}

	result, err := c.client.Analyze(ctx, pending.ImageURL)

	settled := pending
	settled.SettledAt = c.now()
	if err != nil {
		settled.Phase = PhaseFailed
		settled.Reason = reasonFor(err)
		settled.Err = err
	} else {
		settled.Phase = PhaseSucceeded
		settled.Result = result
	}

	c.mu.Lock()
	if pending.Seq != c.seq {
		c.mu.Unlock()
		slog.Debug("stale analysis response discarded",
			"session", c.session, "seq", pending.Seq, "phase", settled.Phase)
		c.emit(Event{Kind: EventDiscarded, Session: c.session, State: settled})
		return
	}
	c.state = settled
	c.cancel = nil
	c.broadcastLocked()
	c.mu.Unlock()

	if err != nil {
		slog.Warn("image analysis failed",
			"session", c.session,
			"seq", settled.Seq,
			"image_url", settled.ImageURL,
			"reason", settled.Reason,
			"error", err,
		)
	} else {
		attrs := []any{
			"session", c.session,
			"seq", settled.Seq,
			"colors", len(result.Colors),
			"pattern", result.Predictions.Pattern.Predicted,
			"style", result.Predictions.Style.Predicted,
			"duration_ms", settled.SettledAt.Sub(settled.SubmittedAt).Milliseconds(),
		}
		if w := result.Warnings(); len(w) > 0 {
			attrs = append(attrs, "warnings", w)
		}
		slog.Info("image analysis succeeded", attrs...)
	}

	c.emit(Event{Kind: EventSettled, Session: c.session, State: settled})
}

// broadcastLocked wakes every Wait caller. c.mu must be held.
func (c *Controller) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) emit(e Event) {
	for _, o := range c.observers {
		o.OnEvent(e)
	}
}
