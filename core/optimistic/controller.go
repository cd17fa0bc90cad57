package optimistic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/toast"
)

var (
	// ErrInFlight rejects a trigger while the same (collection, id, operation) is unresolved.
	ErrInFlight = errors.New("mutation already in flight")
	ErrClosed   = errors.New("controller closed")
	ErrNoFetch  = errors.New("collection has no fetch function")
)

const DefaultAckDuration = 400 * time.Millisecond

// State is the per-record reconciliation state.
type State uint8

const (
	Synced State = iota
	Mutated
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Mutated:
		return "mutated"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	default:
		return "synced"
	}
}

// Remote is the asynchronous backend call carrying a mutation.
type Remote func(ctx context.Context) error

// Fetch loads the authoritative collection.
type Fetch[T Keyed] func(ctx context.Context) ([]T, error)

type Options[T Keyed] struct {
	Entity   broadcast.Entity
	Fetch    Fetch[T]
	Notifier toast.Notifier
	// Hub receives a change for every confirmed mutation, tagged with Origin.
	Hub    *broadcast.Hub
	Origin string

	// ReloadOnSuccess refetches the collection after each confirmed mutation.
	ReloadOnSuccess bool
	// KeepOnFailure leaves the optimistic state in place when the remote call fails.
	KeepOnFailure bool
	AckDuration   time.Duration

	// Observer is told about every per-record state transition.
	Observer func(id string, st State)
	Now      func() time.Time
}

// Intent describes one mutation: what changes locally and which remote call carries it.
type Intent[T Keyed] struct {
	Op     string
	Delta  Delta[T]
	Call   Remote
	Change broadcast.Op // defaults from the delta kind

	// FailureTitle is the title of the error toast raised on failure.
	FailureTitle string
	// Reload overrides Options.ReloadOnSuccess for this intent.
	Reload *bool
}

type intentKey struct {
	id string
	op string
}

type pending[T Keyed] struct {
	key   intentKey
	delta Delta[T]
	ids   []string // records the delta touched when triggered
}

// Pending is the handle of a triggered mutation.
type Pending struct {
	done chan struct{}
	err  error
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the remote call resolved and returns its error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Controller owns one collection. Reducers run synchronously under its lock and every
// remote call runs on its own goroutine.
type Controller[T Keyed] struct {
	opts Options[T]

	mu sync.Mutex
	// base is the last authoritative collection with the confirmed deltas folded in;
	// items is base with the pending deltas re-applied in trigger order.
	base     []T
	items    []T
	inflight map[intentKey]struct{}
	pending  []*pending[T]
	states   map[string]State
	acks     map[string]time.Time
	closed   bool

	wg sync.WaitGroup
}

func NewController[T Keyed](opts Options[T]) *Controller[T] {
	if opts.Notifier == nil {
		opts.Notifier = toast.Discard
	}
	if opts.AckDuration <= 0 {
		opts.AckDuration = DefaultAckDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller[T]{
		opts:     opts,
		inflight: make(map[intentKey]struct{}),
		states:   make(map[string]State),
		acks:     make(map[string]time.Time),
	}
}

type transition struct {
	id string
	st State
}

func (c *Controller[T]) setState(id string, st State, out *[]transition) {
	if st == Synced {
		delete(c.states, id)
	} else {
		c.states[id] = st
	}
	*out = append(*out, transition{id: id, st: st})
}

func (c *Controller[T]) emit(ts []transition) {
	if c.opts.Observer == nil {
		return
	}
	for _, t := range ts {
		c.opts.Observer(t.id, t.st)
	}
}

// Load fetches the collection. Use it on mount and for every reload.
func (c *Controller[T]) Load(ctx context.Context) error {
	if c.opts.Fetch == nil {
		return ErrNoFetch
	}
	items, err := c.opts.Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching collection")
	}
	c.Replace(items)
	return nil
}

// Replace installs an authoritative collection and re-applies the deltas still in flight.
// The last replacement to land wins.
func (c *Controller[T]) Replace(items []T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.base = append([]T(nil), items...)
	c.rebuild()

	var ts []transition
	for id, st := range c.states {
		if st == Confirmed {
			c.settle(id, &ts)
		}
	}
	c.mu.Unlock()
	c.emit(ts)
}

// rebuild derives items from base and the pending deltas. Callers hold mu.
func (c *Controller[T]) rebuild() {
	next := c.base
	for _, p := range c.pending {
		next = Reduce(next, p.delta)
	}
	c.items = append([]T(nil), next...)
}

func (c *Controller[T]) pendingOn(id string) bool {
	for _, p := range c.pending {
		for _, pid := range p.ids {
			if pid == id {
				return true
			}
		}
	}
	return false
}

// Items returns a copy of the current collection.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Controller[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.items {
		if rec.Key() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

func (c *Controller[T]) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

// Acknowledged reports whether the record was mutated less than AckDuration ago.
// The flag clears on its own, whatever the remote call is doing.
func (c *Controller[T]) Acknowledged(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.acks[id]
	if !ok {
		return false
	}
	if !c.opts.Now().Before(until) {
		delete(c.acks, id)
		return false
	}
	return true
}

// InFlight reports whether op is unresolved for the record.
func (c *Controller[T]) InFlight(id, op string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[intentKey{id: id, op: op}]
	return ok
}

// Trigger applies the intent's delta immediately and issues its remote call in the
// background. It returns ErrInFlight, without calling the backend, while the same
// operation on the same record is unresolved.
func (c *Controller[T]) Trigger(ctx context.Context, in Intent[T]) (*Pending, error) {
	key := intentKey{id: in.Delta.ID, op: in.Op}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	c.inflight[key] = struct{}{}

	p := &pending[T]{key: key, delta: in.Delta, ids: touched(c.items, in.Delta)}
	c.items = Reduce(c.items, in.Delta)
	c.pending = append(c.pending, p)

	var ts []transition
	until := c.opts.Now().Add(c.opts.AckDuration)
	for _, id := range p.ids {
		c.acks[id] = until
		c.setState(id, Mutated, &ts)
	}
	c.wg.Add(1)
	c.mu.Unlock()
	c.emit(ts)

	handle := &Pending{done: make(chan struct{})}
	go func() {
		defer c.wg.Done()
		err := call(ctx, in.Call)
		c.resolve(ctx, in, p, err)
		handle.finish(err)
	}()
	return handle, nil
}

// Mutate is Trigger followed by Wait.
func (c *Controller[T]) Mutate(ctx context.Context, in Intent[T]) error {
	p, err := c.Trigger(ctx, in)
	if err != nil {
		return err
	}
	return p.Wait()
}

// call runs the remote call, turning a panic into an error.
func call(ctx context.Context, remote Remote) (err error) {
	if remote == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("remote call panicked: %v", r)
		}
	}()
	return remote(ctx)
}

// resolve settles p. A confirmed delta is folded into base; a failed one is dropped and
// the collection rebuilt from base and the deltas still pending, so other mutations of the
// same records survive the rollback.
func (c *Controller[T]) resolve(ctx context.Context, in Intent[T], p *pending[T], err error) {
	c.mu.Lock()
	delete(c.inflight, p.key)
	for i, q := range c.pending {
		if q == p {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	if c.closed {
		c.mu.Unlock()
		return
	}

	var ts []transition
	if err != nil {
		if c.opts.KeepOnFailure {
			c.base = Reduce(c.base, p.delta)
		}
		c.rebuild()
		for _, id := range p.ids {
			if !c.opts.KeepOnFailure {
				c.setState(id, RolledBack, &ts)
			}
			c.settle(id, &ts)
		}
		c.mu.Unlock()
		c.emit(ts)
		c.opts.Notifier.Notify(toast.New(toast.Error, in.failureTitle(), errorMessage(err)))
		return
	}

	reload := c.opts.ReloadOnSuccess
	if in.Reload != nil {
		reload = *in.Reload
	}
	reload = reload && c.opts.Fetch != nil
	c.base = Reduce(c.base, p.delta)
	c.rebuild()
	for _, id := range p.ids {
		c.setState(id, Confirmed, &ts)
		if !reload {
			c.settle(id, &ts)
		}
	}
	c.mu.Unlock()
	c.emit(ts)

	if c.opts.Hub != nil && c.opts.Entity != "" {
		op := in.Change
		if op == "" {
			op = changeOp(in.Delta.Kind)
		}
		recordID := p.key.id
		if recordID == AllRecords {
			recordID = ""
		}
		c.opts.Hub.Publish(broadcast.NewChange(c.opts.Entity, op, recordID).WithOrigin(c.opts.Origin))
	}
	if reload {
		if lerr := c.Load(ctx); lerr != nil {
			c.opts.Notifier.Notify(toast.New(toast.Warning, "Refresh failed", errorMessage(lerr)))
		}
	}
}

// settle returns a resolved record to Synced, or to Mutated while another delta on it is
// still pending.
func (c *Controller[T]) settle(id string, ts *[]transition) {
	if c.pendingOn(id) {
		c.setState(id, Mutated, ts)
		return
	}
	c.setState(id, Synced, ts)
}

func (in Intent[T]) failureTitle() string {
	if in.FailureTitle != "" {
		return in.FailureTitle
	}
	if in.Op != "" {
		return fmt.Sprintf("Could not %s", in.Op)
	}
	return "Action failed"
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return errors.Cause(err).Error()
}

func changeOp(k Kind) broadcast.Op {
	switch k {
	case KindInsert:
		return broadcast.OpCreate
	case KindRemove:
		return broadcast.OpDelete
	default:
		return broadcast.OpUpdate
	}
}

// Close detaches the controller from its view: outcomes resolving afterwards change
// nothing and raise no toast.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Wait blocks until every triggered remote call resolved.
func (c *Controller[T]) Wait() {
	c.wg.Wait()
}
