// Package views holds the dashboard views. Each view owns one collection through an
// optimistic controller, reloads it when other views (or other clients) change it, and
// renders it through client-side filters.
package views

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/session"
	"github.com/nexussync/clubs/core/toast"
)

var (
	ErrAdminOnly   = core.NewForbiddenError("only admins can do this")
	ErrManagerOnly = core.NewForbiddenError("only admins and club leads can do this")
)

// Deps are handed to every view at construction.
type Deps struct {
	Session  *session.Session
	Notifier toast.Notifier
	// Hub carries the entity-changed signals shared by the views.
	Hub    *broadcast.Hub
	Logger core.Logger
	Config core.DashboardConfig
}

type base[T optimistic.Keyed] struct {
	name   string
	origin string
	sess   *session.Session
	ctrl   *optimistic.Controller[T]
	hub    *broadcast.Hub
	watch  []broadcast.Entity
	logger core.Logger
	notify toast.Notifier

	debounce time.Duration
	poll     time.Duration
	reloads  atomic.Int64

	mu      sync.Mutex
	mounted bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type baseOptions[T optimistic.Keyed] struct {
	name            string
	entity          broadcast.Entity
	fetch           optimistic.Fetch[T]
	reloadOnSuccess bool
	// watch lists the entities whose changes trigger a reload; entity by default.
	watch []broadcast.Entity
}

func newBase[T optimistic.Keyed](deps Deps, opts baseOptions[T]) (*base[T], error) {
	if !deps.Session.Valid(time.Now()) {
		return nil, session.ErrNoSession
	}
	if deps.Notifier == nil {
		deps.Notifier = toast.Discard
	}
	watch := opts.watch
	if len(watch) == 0 {
		watch = []broadcast.Entity{opts.entity}
	}

	b := &base[T]{
		name:     opts.name,
		origin:   string(opts.entity) + "-" + ulid.Make().String(),
		sess:     deps.Session,
		hub:      deps.Hub,
		watch:    watch,
		logger:   deps.Logger,
		notify:   deps.Notifier,
		debounce: deps.Config.ReloadDebounce,
		poll:     deps.Config.PollInterval,
	}
	b.ctrl = optimistic.NewController(optimistic.Options[T]{
		Entity:          opts.entity,
		Fetch:           opts.fetch,
		Notifier:        deps.Notifier,
		Hub:             deps.Hub,
		Origin:          b.origin,
		ReloadOnSuccess: opts.reloadOnSuccess,
		AckDuration:     deps.Config.AckDuration,
		Observer: func(id string, st optimistic.State) {
			if b.logger != nil {
				b.logger.Debug(b.name + ": " + id + " " + st.String())
			}
		},
	})
	return b, nil
}

// Origin is the id tagging the changes this view causes.
func (b *base[T]) Origin() string { return b.origin }

// Mount loads the collection and starts listening for changes.
func (b *base[T]) Mount(ctx context.Context) error {
	if err := b.ctrl.Load(ctx); err != nil {
		return errors.Wrapf(err, "loading %s", b.name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mounted {
		return nil
	}
	b.mounted = true

	var sub *broadcast.Subscription
	if b.hub != nil {
		sub = b.hub.Subscribe(b.watch...)
	}
	wctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go b.listen(wctx, sub)
	return nil
}

// Unmount stops listening. Remote calls still running resolve without effect.
func (b *base[T]) Unmount() {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		b.ctrl.Close()
		return
	}
	b.mounted = false
	b.cancel()
	b.mu.Unlock()

	b.ctrl.Close()
	b.wg.Wait()
}

// listen reloads the collection once changes stopped coming for the debounce duration,
// and every poll interval. Changes this view caused itself are skipped.
func (b *base[T]) listen(ctx context.Context, sub *broadcast.Subscription) {
	defer b.wg.Done()

	var changes <-chan broadcast.Change
	if sub != nil {
		defer sub.Close()
		changes = sub.C
	}
	var poll <-chan time.Time
	if b.poll > 0 {
		ticker := time.NewTicker(b.poll)
		defer ticker.Stop()
		poll = ticker.C
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if change.Origin != "" && change.Origin == b.origin {
				continue
			}
			fire = time.After(b.debounce)
		case <-fire:
			fire = nil
			b.reload(ctx)
		case <-poll:
			b.reload(ctx)
		}
	}
}

func (b *base[T]) reload(ctx context.Context) {
	b.reloads.Add(1)
	if err := b.ctrl.Load(ctx); err != nil && ctx.Err() == nil {
		b.notify.Notify(toast.New(toast.Warning, "Could not refresh "+b.name, errors.Cause(err).Error()))
	}
}

// Reloads returns how many reloads the changes and the poll ticker caused so far.
func (b *base[T]) Reloads() int { return int(b.reloads.Load()) }

// Reload refetches the collection now.
func (b *base[T]) Reload(ctx context.Context) error {
	return errors.Wrapf(b.ctrl.Load(ctx), "reloading %s", b.name)
}

func (b *base[T]) Get(id string) (T, bool) { return b.ctrl.Get(id) }

func (b *base[T]) State(id string) optimistic.State { return b.ctrl.State(id) }

// Acknowledged reports whether the record was just mutated (see optimistic.Controller).
func (b *base[T]) Acknowledged(id string) bool { return b.ctrl.Acknowledged(id) }

func (b *base[T]) InFlight(id, op string) bool { return b.ctrl.InFlight(id, op) }

func (b *base[T]) Len() int { return len(b.ctrl.Items()) }

// Wait blocks until every mutation triggered on the view resolved.
func (b *base[T]) Wait() { b.ctrl.Wait() }

func (b *base[T]) filter(keep func(T) bool) []T { return filterItems(b.ctrl.Items(), keep) }

// trigger runs the intent with the view's origin attached to the remote call.
func (b *base[T]) trigger(ctx context.Context, in optimistic.Intent[T]) (*optimistic.Pending, error) {
	return b.ctrl.Trigger(broadcast.ContextWithOrigin(ctx, b.origin), in)
}

func filterItems[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep == nil || keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
