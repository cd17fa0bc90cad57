package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops orderings on fields that are not in allowed.
// Orderings are interpolated into SQL so only known columns may pass.
func CleanOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	if len(orderings) == 0 {
		return nil
	}
	clean := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				clean = append(clean, DBOrdering{Field: fld, Ascending: ord.Ascending})
				break
			}
		}
	}
	return clean
}

// OrderBy renders orderings as an SQL ORDER BY list, or def when there are none.
func OrderBy(orderings []DBOrdering, def string) string {
	if len(orderings) == 0 {
		return def
	}
	list := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		list = append(list, ord.String())
	}
	return strings.Join(list, ", ")
}
