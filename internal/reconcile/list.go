package reconcile

import (
	"slices"

	"github.com/hongminglow/lending-console/internal/models"
)

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func indexOf[T any, P Record[T]](list []T, ref models.Ref) int {
	if ref.IsZero() {
		return -1
	}
	for i := range list {
		if P(&list[i]).Ref().Matches(ref) {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of every identifier. Records without any
// identifier are kept as they cannot be compared.
func dedupe[T any, P Record[T]](list []T) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		ref := P(&item).Ref()
		if !ref.IsZero() && indexOf[T, P](out, ref) >= 0 {
			continue
		}
		out = append(out, item)
	}
	return out
}

// adopt takes the server list as authoritative but keeps held records that
// are still waiting for their create to be confirmed.
func adopt[T any, P Record[T]](held, items []T) []T {
	out := slices.Clone(items)
	for _, item := range held {
		ref := P(&item).Ref()
		if ref.Provisional() && indexOf[T, P](out, ref) < 0 {
			out = append(out, item)
		}
	}
	return out
}

// union keeps every held record and appends the identifiers it lacks. Each
// appended record stands in for one held record the backend accepted without
// an identifier, oldest first.
func union[T any, P Record[T]](held, items []T) []T {
	out := slices.Clone(nonNil(held))
	added := 0
	for _, item := range items {
		if indexOf[T, P](out, P(&item).Ref()) < 0 {
			out = append(out, item)
			added++
		}
	}
	return slices.DeleteFunc(out, func(item T) bool {
		if added > 0 && P(&item).Ref().Unconfirmed() {
			added--
			return true
		}
		return false
	})
}

// place stores a confirmed record in the slot of its provisional version.
// When a refresh already brought the confirmed record in, the provisional
// slot is dropped instead.
func place[T any, P Record[T]](list []T, idx int, confirmed T) []T {
	ref := P(&confirmed).Ref()
	for j := range list {
		if j != idx && P(&list[j]).Ref().Matches(ref) {
			list[j] = confirmed
			if idx >= 0 {
				list = slices.Delete(list, idx, idx+1)
			}
			return list
		}
	}
	if idx >= 0 {
		list[idx] = confirmed
		return list
	}
	return append(list, confirmed)
}

// SortByID orders records by their preferred identifier, numerically where
// possible. Provisional records go last in insertion order.
func SortByID[T any, P Record[T]](list []T) {
	slices.SortStableFunc(list, func(a, b T) int {
		ra, rb := P(&a).Ref(), P(&b).Ref()
		pa, pb := ra.Provisional(), rb.Provisional()
		switch {
		case pa && pb:
			return 0
		case pa:
			return 1
		case pb:
			return -1
		}
		ka, kb := ra.Key(), rb.Key()
		switch {
		case ka.Less(kb):
			return -1
		case kb.Less(ka):
			return 1
		}
		return 0
	})
}
