package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// State is the evaluator lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrNotReady is returned when a snapshot is requested before
	// initialization has completed. Callers are expected to observe the
	// state first; hitting this is a caller bug, not a runtime condition.
	ErrNotReady = errors.New("permission evaluator not initialized")

	// ErrInitializing is returned when Initialize is called while another
	// initialization is already in flight.
	ErrInitializing = errors.New("permission evaluator initialization already in progress")
)

// Evaluator owns the Uninitialized -> Loading -> Ready state machine around a
// permission Snapshot. Initialization fans out the catalog, principal and
// per-role fetches concurrently and publishes an immutable snapshot only when
// every fetch succeeded; a single failed role resolution fails the whole
// initialization rather than yielding a Ready state built from incomplete
// data. Re-initialization (after an admin edits the principal's roles)
// replaces the snapshot wholesale, never mutates it under readers.
type Evaluator struct {
	mu    sync.RWMutex
	state State
	snap  *Snapshot
	ready chan struct{}
	subs  []chan State
}

// NewEvaluator returns an evaluator in the Uninitialized state.
func NewEvaluator() *Evaluator {
	return &Evaluator{ready: make(chan struct{})}
}

// State returns the current lifecycle state.
func (e *Evaluator) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Snapshot returns the published snapshot, or ok=false before Ready. UI code
// must treat the not-ready case as "render nothing", never as a denial.
func (e *Evaluator) Snapshot() (*Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateReady {
		return nil, false
	}
	return e.snap, true
}

// Subscribe returns a channel that receives state transitions. The channel is
// buffered; when a slow consumer falls behind, the oldest queued transition
// is dropped in favor of the newest, so the final state is always delivered.
func (e *Evaluator) Subscribe() <-chan State {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan State, 4)
	ch <- e.state
	e.subs = append(e.subs, ch)
	return ch
}

// WaitReady blocks until the evaluator is Ready or the context is done.
func (e *Evaluator) WaitReady(ctx context.Context) error {
	e.mu.RLock()
	ready := e.ready
	e.mu.RUnlock()
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialize fetches the rule catalog, the principal's detail, and each of
// the principal's roles' rules, then publishes the merged snapshot and
// transitions to Ready. The catalog and principal fetches run concurrently,
// as do the per-role fetches; any single failure aborts the whole
// initialization and returns the evaluator to Uninitialized so the caller can
// retry visibly. Calling Initialize again from Ready re-runs the whole
// build and is idempotent with respect to query answers.
func (e *Evaluator) Initialize(ctx context.Context, src Source, userID int64) error {
	e.mu.Lock()
	if e.state == StateLoading {
		e.mu.Unlock()
		return ErrInitializing
	}
	e.setStateLocked(StateLoading)
	e.mu.Unlock()

	snap, err := buildSnapshot(ctx, src, userID)
	if err != nil {
		e.mu.Lock()
		e.setStateLocked(StateUninitialized)
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.snap = snap
	e.setStateLocked(StateReady)
	close(e.ready)
	e.mu.Unlock()
	return nil
}

// Reset discards the snapshot and returns to Uninitialized. Called on logout;
// all derived authorization state dies with the session.
func (e *Evaluator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = nil
	e.ready = make(chan struct{})
	e.setStateLocked(StateUninitialized)
}

// setStateLocked transitions the state and notifies subscribers. Must be
// called with e.mu held. Re-publishing Ready (idempotent re-init) leaves the
// already-closed ready channel alone.
func (e *Evaluator) setStateLocked(s State) {
	if e.state == StateReady && s == StateReady {
		return
	}
	if e.state == StateReady && s == StateLoading {
		// Re-initialization: readers of the old snapshot are unaffected,
		// but WaitReady callers should block until the new snapshot lands.
		e.ready = make(chan struct{})
	}
	e.state = s
	for _, ch := range e.subs {
		select {
		case ch <- s:
		default:
			// full buffer: drop the oldest queued transition so the
			// newest one still lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Initialize transitions via this helper so the fan-out logic stays testable
// on its own.
func buildSnapshot(ctx context.Context, src Source, userID int64) (*Snapshot, error) {
	var (
		catalog []Rule
		user    *User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if catalog, err = src.RuleCatalog(gctx); err != nil {
			return fmt.Errorf("fetching rule catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if user, err = src.Principal(gctx, userID); err != nil {
			return fmt.Errorf("fetching user %d: %w", userID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Resolve every role's member rules. All resolutions must succeed; a
	// partially-resolved rule set must never surface as Ready.
	roleRules := make([][]Rule, len(user.Roles))
	rg, rctx := errgroup.WithContext(ctx)
	for i, role := range user.Roles {
		if len(role.Rules) > 0 {
			roleRules[i] = role.Rules
			continue
		}
		rg.Go(func() error {
			rules, err := src.RoleRules(rctx, role.ID)
			if err != nil {
				return fmt.Errorf("resolving rules of role %q (%d): %w", role.Name, role.ID, err)
			}
			roleRules[i] = rules
			return nil
		})
	}
	if err := rg.Wait(); err != nil {
		return nil, err
	}

	return newSnapshot(user, catalog, roleRules), nil
}
