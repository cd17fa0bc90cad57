package broadcast

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/wI2L/jsondiff"
)

// Entity names a collection whose changes are broadcast.
type Entity string

const (
	Users         Entity = "users"
	Clubs         Entity = "clubs"
	Events        Entity = "events"
	Registrations Entity = "registrations"
	Posts         Entity = "posts"
	Comments      Entity = "comments"
	Notifications Entity = "notifications"
	Budgets       Entity = "budgets"
	Conflicts     Entity = "conflicts"
	Venues        Entity = "venues"
	Quizzes       Entity = "quizzes"
	Messages      Entity = "messages"
)

var AllEntities = []Entity{
	Users, Clubs, Events, Registrations, Posts, Comments, Notifications,
	Budgets, Conflicts, Venues, Quizzes, Messages,
}

func ParseEntity(name string) (Entity, bool) {
	for _, e := range AllEntities {
		if string(e) == name {
			return e, true
		}
	}
	return "", false
}

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change signals that a record (or, with an empty RecordID, a whole collection) changed.
type Change struct {
	ID       string         `json:"id"`
	Entity   Entity         `json:"entity"`
	RecordID string         `json:"record_id,omitempty"`
	Op       Op             `json:"op"`
	Patch    jsondiff.Patch `json:"patch,omitempty"`
	Origin   string         `json:"origin,omitempty"`
	At       time.Time      `json:"at"`
}

func NewChange(entity Entity, op Op, recordID string) Change {
	return Change{
		ID:       ulid.Make().String(),
		Entity:   entity,
		RecordID: recordID,
		Op:       op,
		At:       time.Now().UTC(),
	}
}

// WithPatch attaches the JSON patch turning before into after.
func (c Change) WithPatch(before, after interface{}) (Change, error) {
	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return c, errors.Wrap(err, "computing patch")
	}
	c.Patch = patch
	return c, nil
}

// WithOrigin tags the change with the id of the view (or client) that caused it.
func (c Change) WithOrigin(origin string) Change {
	c.Origin = origin
	return c
}

type originKey struct{}

// ContextWithOrigin tags ctx with the id of the view (or client) acting on behalf of it.
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func OriginFromContext(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}
