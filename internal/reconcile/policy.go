package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hongminglow/lending-console/internal/models"
)

// ErrNotFound is returned when an update or delete targets a record that is
// not in the held list.
var ErrNotFound = errors.New("record not held")

// Record is the constraint every reconciled entity satisfies through the
// embedded models.Identity.
type Record[T any] interface {
	*T
	Ref() models.Ref
	Stamp(tempID string)
	Confirm()
	Accept()
}

// Result is the next held list and what to tell the user.
type Result[T any] struct {
	List   []T
	Notice Notice
	// Done is true when the form or edit mode may be closed.
	Done bool
	// Refresh asks the view to reload because the held list may lag the backend.
	Refresh bool
	// Seeded is true when List is the fallback seed rather than backend data.
	Seeded bool
}

// Pending carries what a mutation needs to finish or roll back.
type Pending[T any] struct {
	Ref    models.Ref
	Before T
	After  T
}

// Policy holds the rules for one resource type.
type Policy[T any, P Record[T]] struct {
	// Noun names the resource in notices, e.g. "customer".
	Noun string
	// Seed returns the fallback list used when nothing is held and the
	// backend has nothing usable.
	Seed func() []T
	// NewTempID generates provisional identifiers.
	NewTempID func() string
	// Prepare fills client-side defaults on a create candidate.
	Prepare func(P)
}

// New builds a policy with uuid based provisional identifiers.
func New[T any, P Record[T]](noun string, seed func() []T) *Policy[T, P] {
	return &Policy[T, P]{
		Noun:      noun,
		Seed:      seed,
		NewTempID: func() string { return "tmp-" + uuid.NewString() },
	}
}

// Load merges a list response into the held list.
//
// A non-empty list at least as long as the held one replaces it; a shorter
// one is union-merged so held records are never dropped. Anything else keeps
// the held list, or falls back to the seed when nothing is held.
func (p *Policy[T, P]) Load(held []T, out Outcome) Result[T] {
	if out.Kind == OK {
		if items, ok := decodeList[T](out.Body); ok && len(items) > 0 {
			items = dedupe[T, P](items)
			if len(items) >= len(held) {
				return Result[T]{List: adopt[T, P](held, items)}
			}
			return Result[T]{List: union[T, P](held, items)}
		}
	}
	if len(held) > 0 {
		return Result[T]{List: slices.Clone(held)}
	}
	return Result[T]{List: p.seed(), Seeded: true}
}

// BeginCreate inserts candidate under a provisional identifier.
func (p *Policy[T, P]) BeginCreate(held []T, candidate T) ([]T, Pending[T]) {
	if p.Prepare != nil {
		p.Prepare(P(&candidate))
	}
	P(&candidate).Stamp(p.NewTempID())
	next := append(slices.Clone(nonNil(held)), candidate)
	return next, Pending[T]{Ref: P(&candidate).Ref(), After: candidate}
}

// CompleteCreate settles an optimistic insert against the backend's answer.
func (p *Policy[T, P]) CompleteCreate(current []T, pending Pending[T], out Outcome) Result[T] {
	next := slices.Clone(nonNil(current))
	idx := indexOf[T, P](next, pending.Ref)

	if out.Failed() {
		if idx >= 0 {
			next = slices.Delete(next, idx, idx+1)
		}
		return Result[T]{List: next, Notice: failed(out, p.generic("create"))}
	}

	notice := succeeded("%s added successfully!", capitalize(p.Noun))
	if out.Kind == OK {
		if obj, ok := createdPayload(out.Body); ok {
			base := pending.After
			if idx >= 0 {
				base = next[idx]
			}
			if confirmed, err := overlay(base, []byte(obj.Raw)); err == nil {
				P(&confirmed).Confirm()
				return Result[T]{List: place[T, P](next, idx, confirmed), Notice: notice, Done: true}
			}
		}
	}

	// The backend accepted the record but did not say what it stored. The
	// refresh replaces the local copy once the backend lists it.
	if idx >= 0 {
		P(&next[idx]).Accept()
	}
	return Result[T]{List: next, Notice: notice, Done: true, Refresh: true}
}

// BeginUpdate applies patch in place to the record matching ref. patch is any
// JSON-encodable value; only the fields it carries change.
func (p *Policy[T, P]) BeginUpdate(held []T, ref models.Ref, patch any) ([]T, Pending[T], error) {
	idx := indexOf[T, P](held, ref)
	if idx < 0 {
		return nonNil(held), Pending[T]{}, fmt.Errorf("update %s %s: %w", p.Noun, ref.Key(), ErrNotFound)
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return nonNil(held), Pending[T]{}, fmt.Errorf("encode %s patch: %w", p.Noun, err)
	}
	before := held[idx]
	after, err := overlay(before, raw)
	if err != nil {
		return nonNil(held), Pending[T]{}, fmt.Errorf("apply %s patch: %w", p.Noun, err)
	}
	next := slices.Clone(held)
	next[idx] = after
	return next, Pending[T]{Ref: P(&before).Ref(), Before: before, After: after}, nil
}

// CompleteUpdate settles an optimistic update. Fields the backend returns win;
// fields it omits keep their optimistic value.
func (p *Policy[T, P]) CompleteUpdate(current []T, pending Pending[T], out Outcome) Result[T] {
	next := slices.Clone(nonNil(current))
	idx := indexOf[T, P](next, pending.Ref)

	if out.Failed() {
		if idx >= 0 {
			next[idx] = pending.Before
		}
		return Result[T]{List: next, Notice: failed(out, p.generic("update"))}
	}

	if idx >= 0 && out.Kind == OK {
		if obj, ok := objectPayload(out.Body); ok {
			if merged, err := overlay(next[idx], []byte(obj.Raw)); err == nil {
				next[idx] = merged
			}
		}
	}
	return Result[T]{
		List:   next,
		Notice: succeeded("%s updated successfully!", capitalize(p.Noun)),
		Done:   true,
	}
}

// BeginDelete removes the record matching ref.
func (p *Policy[T, P]) BeginDelete(held []T, ref models.Ref) ([]T, Pending[T], error) {
	idx := indexOf[T, P](held, ref)
	if idx < 0 {
		return nonNil(held), Pending[T]{}, fmt.Errorf("delete %s %s: %w", p.Noun, ref.Key(), ErrNotFound)
	}
	removed := held[idx]
	next := slices.Delete(slices.Clone(held), idx, idx+1)
	return next, Pending[T]{Ref: P(&removed).Ref(), Before: removed}, nil
}

// CompleteDelete settles an optimistic removal. On failure the record is put
// back and the list re-sorted by identifier.
func (p *Policy[T, P]) CompleteDelete(current []T, pending Pending[T], out Outcome) Result[T] {
	next := slices.Clone(nonNil(current))
	if out.Failed() {
		if indexOf[T, P](next, pending.Ref) < 0 {
			next = append(next, pending.Before)
		}
		SortByID[T, P](next)
		return Result[T]{List: next, Notice: failed(out, p.generic("delete"))}
	}
	next = slices.DeleteFunc(next, func(item T) bool {
		return P(&item).Ref().Matches(pending.Ref)
	})
	return Result[T]{
		List:   next,
		Notice: succeeded("%s deleted successfully!", capitalize(p.Noun)),
		Done:   true,
	}
}

func (p *Policy[T, P]) seed() []T {
	if p.Seed == nil {
		return []T{}
	}
	return nonNil(p.Seed())
}

func (p *Policy[T, P]) generic(verb string) string {
	return fmt.Sprintf("Failed to %s %s. Please try again.", verb, p.Noun)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
