package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/apiclient"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/reconcile"
)

var (
	// ErrForbidden is returned when a non-admin session attempts a mutation.
	ErrForbidden = errors.New("admin role required")
	// ErrUnauthenticated is returned when no token is stored.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrReadOnly is returned for mutations on a list-only resource.
	ErrReadOnly = errors.New("resource is read-only")
	// ErrPending is returned when a mutation targets a record the backend has
	// not confirmed yet.
	ErrPending = errors.New("record is still being saved")
	// ErrInvalidPatch is returned when an update body does not fit the form fields.
	ErrInvalidPatch = errors.New("invalid update")
)

// Gate answers whether mutation controls are available.
type Gate interface {
	IsAdmin(ctx context.Context) bool
}

// State is what a view renders.
type State[T any] struct {
	Items   []T              `json:"items"`
	CanEdit bool             `json:"canEdit"`
	Notice  reconcile.Notice `json:"notice"`
	Done    bool             `json:"done"`
	Seeded  bool             `json:"seeded"`
}

// resourceAPI binds a view to the backend client calls of one resource.
// Nil mutation funcs make the resource list-only.
type resourceAPI[F any] struct {
	list   func(ctx context.Context) (*apiclient.Response, error)
	create func(ctx context.Context, fields F) (*apiclient.Response, error)
	update func(ctx context.Context, id models.ID, fields F) (*apiclient.Response, error)
	remove func(ctx context.Context, id models.ID) (*apiclient.Response, error)
}

// ResourceView holds one resource's list for a workspace and applies the
// reconciliation policy to every backend answer. Backend calls run without
// the lock held; a sequence number orders the answers.
type ResourceView[T any, P reconcile.Record[T], F any] struct {
	name     string
	policy   *reconcile.Policy[T, P]
	api      resourceAPI[F]
	gate     Gate
	toRecord func(F) T
	toFields func(T) F
	log      logrus.FieldLogger

	mu      sync.Mutex
	items   []T
	loaded  bool
	seeded  bool
	seq     uint64
	applied uint64
}

// Loaded reports whether an initial load has completed.
func (v *ResourceView[T, P, F]) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Items returns a copy of the held list.
func (v *ResourceView[T, P, F]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.items)
}

// State returns the held list, loading it first if it never was.
func (v *ResourceView[T, P, F]) State(ctx context.Context) State[T] {
	if !v.Loaded() {
		return v.Load(ctx)
	}
	return v.snapshot(ctx, reconcile.Notice{}, false)
}

// Load fetches the list and merges it into the held one. An answer older
// than the last applied change is dropped.
func (v *ResourceView[T, P, F]) Load(ctx context.Context) State[T] {
	seq := v.next()
	out := apiclient.Classify(v.api.list(ctx))
	observe(v.name, "load", out)

	v.mu.Lock()
	if seq < v.applied {
		applied := v.applied
		v.mu.Unlock()
		v.log.WithFields(logrus.Fields{"seq": seq, "applied": applied}).Debug("dropping stale load")
		return v.snapshot(ctx, reconcile.Notice{}, false)
	}
	held := v.items
	if v.seeded {
		held = nil
	}
	res := v.policy.Load(held, out)
	v.items = res.List
	v.seeded = res.Seeded
	v.loaded = true
	v.applied = seq
	v.mu.Unlock()

	if out.Kind != reconcile.OK {
		v.log.WithFields(logrus.Fields{"outcome": out.Kind.String(), "status": out.Status}).WithError(out.Err).Info("list load kept local data")
	}
	return v.snapshot(ctx, res.Notice, false)
}

// Create inserts fields optimistically and settles it with the backend.
func (v *ResourceView[T, P, F]) Create(ctx context.Context, fields F) (State[T], error) {
	if v.api.create == nil {
		return State[T]{}, ErrReadOnly
	}
	if !v.gate.IsAdmin(ctx) {
		return State[T]{}, ErrForbidden
	}
	v.ensureLoaded(ctx)

	v.mu.Lock()
	next, pending := v.policy.BeginCreate(v.items, v.toRecord(fields))
	v.commitLocked(next)
	v.mu.Unlock()

	out := apiclient.Classify(v.api.create(ctx, v.toFields(pending.After)))
	observe(v.name, "create", out)

	v.mu.Lock()
	res := v.policy.CompleteCreate(v.items, pending, out)
	v.commitLocked(res.List)
	v.mu.Unlock()

	v.logMutation("create", pending.Ref, out)
	if res.Refresh {
		st := v.Load(ctx)
		st.Notice, st.Done = res.Notice, res.Done
		return st, nil
	}
	return v.snapshot(ctx, res.Notice, res.Done), nil
}

// Update merges patch into the record with id optimistically and settles it.
// patch is a form fields value or a raw JSON object; fields it omits keep
// their held value and the merged record is what the backend receives.
func (v *ResourceView[T, P, F]) Update(ctx context.Context, id models.ID, patch any) (State[T], error) {
	if v.api.update == nil {
		return State[T]{}, ErrReadOnly
	}
	if !v.gate.IsAdmin(ctx) {
		return State[T]{}, ErrForbidden
	}
	fields, err := fieldPatch[F](patch)
	if err != nil {
		return State[T]{}, err
	}
	v.ensureLoaded(ctx)

	v.mu.Lock()
	next, pending, err := v.policy.BeginUpdate(v.items, models.RefOf(id), fields)
	if err == nil && (pending.Ref.Provisional() || pending.Ref.Unconfirmed()) {
		err = ErrPending
	}
	if err != nil {
		v.mu.Unlock()
		return State[T]{}, err
	}
	v.commitLocked(next)
	v.mu.Unlock()

	out := apiclient.Classify(v.api.update(ctx, pending.Ref.Key(), v.toFields(pending.After)))
	observe(v.name, "update", out)

	v.mu.Lock()
	res := v.policy.CompleteUpdate(v.items, pending, out)
	v.commitLocked(res.List)
	v.mu.Unlock()

	v.logMutation("update", pending.Ref, out)
	return v.snapshot(ctx, res.Notice, res.Done), nil
}

// Delete removes the record with id optimistically and settles it.
func (v *ResourceView[T, P, F]) Delete(ctx context.Context, id models.ID) (State[T], error) {
	if v.api.remove == nil {
		return State[T]{}, ErrReadOnly
	}
	if !v.gate.IsAdmin(ctx) {
		return State[T]{}, ErrForbidden
	}
	v.ensureLoaded(ctx)

	v.mu.Lock()
	next, pending, err := v.policy.BeginDelete(v.items, models.RefOf(id))
	if err == nil && (pending.Ref.Provisional() || pending.Ref.Unconfirmed()) {
		err = ErrPending
	}
	if err != nil {
		v.mu.Unlock()
		return State[T]{}, err
	}
	v.commitLocked(next)
	v.mu.Unlock()

	out := apiclient.Classify(v.api.remove(ctx, pending.Ref.Key()))
	observe(v.name, "delete", out)

	v.mu.Lock()
	res := v.policy.CompleteDelete(v.items, pending, out)
	v.commitLocked(res.List)
	v.mu.Unlock()

	v.logMutation("delete", pending.Ref, out)
	return v.snapshot(ctx, res.Notice, res.Done), nil
}

// Reset forgets the held list so the next State reloads it.
func (v *ResourceView[T, P, F]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = []T{}
	v.loaded = false
	v.seeded = false
	v.seq++
	v.applied = v.seq
}

// fieldPatch reduces patch to the keys of F that it carries, so identifiers
// cannot be rewritten through an update.
func fieldPatch[F any](patch any) (json.RawMessage, error) {
	raw, ok := patch.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(patch)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		raw = b
	}
	var fields F
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: body must be an object", ErrInvalidPatch)
	}
	for _, key := range []string{"id", "_id", "tempId"} {
		delete(obj, key)
	}
	return json.Marshal(obj)
}

// ensureLoaded makes a mutation start from the backend's list rather than
// an empty one.
func (v *ResourceView[T, P, F]) ensureLoaded(ctx context.Context) {
	if !v.Loaded() {
		v.Load(ctx)
	}
}

func (v *ResourceView[T, P, F]) next() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	return v.seq
}

// commitLocked stores a new list as the latest applied change.
func (v *ResourceView[T, P, F]) commitLocked(list []T) {
	v.items = list
	v.seeded = false
	v.loaded = true
	v.seq++
	v.applied = v.seq
}

func (v *ResourceView[T, P, F]) snapshot(ctx context.Context, notice reconcile.Notice, done bool) State[T] {
	v.mu.Lock()
	items := slices.Clone(v.items)
	seeded := v.seeded
	v.mu.Unlock()
	if items == nil {
		items = []T{}
	}
	return State[T]{
		Items:   items,
		CanEdit: v.gate.IsAdmin(ctx) && v.api.create != nil,
		Notice:  notice,
		Done:    done,
		Seeded:  seeded,
	}
}

func (v *ResourceView[T, P, F]) logMutation(op string, ref models.Ref, out reconcile.Outcome) {
	entry := v.log.WithFields(logrus.Fields{
		"op":      op,
		"record":  ref.Key().String(),
		"outcome": out.Kind.String(),
		"status":  out.Status,
	})
	if out.Failed() {
		entry.WithError(out.Err).Warn(fmt.Sprintf("%s %s rolled back", op, v.name))
		return
	}
	entry.Info(fmt.Sprintf("%s %s settled", op, v.name))
}
