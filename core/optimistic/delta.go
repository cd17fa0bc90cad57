// Package optimistic applies mutations to a local collection before the backend confirms
// them, then reconciles with the outcome of the remote call.
package optimistic

// Keyed is a record with an id unique within its collection.
type Keyed interface {
	Key() string
}

// AllRecords targets every record of the collection (eg. mark all notifications read).
const AllRecords = "*"

type Kind uint8

const (
	KindUpdate Kind = iota
	KindInsert
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindRemove:
		return "remove"
	default:
		return "update"
	}
}

// Delta is the synchronous transformation of a collection for one mutation intent.
type Delta[T Keyed] struct {
	Kind Kind
	ID   string

	// update
	Apply func(T) T

	// insert
	Record T
	Front  bool
}

// Update changes the record with the given id (every record with AllRecords).
func Update[T Keyed](id string, apply func(T) T) Delta[T] {
	return Delta[T]{Kind: KindUpdate, ID: id, Apply: apply}
}

// Insert appends rec, or replaces the record sharing its id.
func Insert[T Keyed](rec T) Delta[T] {
	return Delta[T]{Kind: KindInsert, ID: rec.Key(), Record: rec}
}

// Prepend is Insert at the front of the collection.
func Prepend[T Keyed](rec T) Delta[T] {
	return Delta[T]{Kind: KindInsert, ID: rec.Key(), Record: rec, Front: true}
}

func Remove[T Keyed](id string) Delta[T] {
	return Delta[T]{Kind: KindRemove, ID: id}
}

func (d Delta[T]) targets(rec T) bool {
	return d.ID == AllRecords || rec.Key() == d.ID
}

// Reduce returns a new collection with d applied. The input is never modified, records
// other than the target keep their value and position, and an absent target leaves the
// collection unchanged.
func Reduce[T Keyed](items []T, d Delta[T]) []T {
	out := make([]T, 0, len(items)+1)
	switch d.Kind {
	case KindInsert:
		replaced := false
		for _, rec := range items {
			if rec.Key() == d.ID {
				rec = d.Record
				replaced = true
			}
			out = append(out, rec)
		}
		if !replaced {
			if d.Front {
				out = append([]T{d.Record}, out...)
			} else {
				out = append(out, d.Record)
			}
		}
	case KindRemove:
		for _, rec := range items {
			if !d.targets(rec) {
				out = append(out, rec)
			}
		}
	default:
		for _, rec := range items {
			if d.Apply != nil && d.targets(rec) {
				rec = d.Apply(rec)
			}
			out = append(out, rec)
		}
	}
	return out
}

// touched returns the ids of the records d changes in items, in collection order.
func touched[T Keyed](items []T, d Delta[T]) []string {
	if d.ID != AllRecords {
		return []string{d.ID}
	}
	ids := make([]string, 0, len(items))
	for _, rec := range items {
		ids = append(ids, rec.Key())
	}
	return ids
}
