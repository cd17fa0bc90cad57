package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryBool reads a boolean query param. Unparsable values are nil.
func queryBool(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

// queryTime reads an RFC 3339 query param, or a plain date. Unparsable values are zero.
func queryTime(ctx echo.Context, name string) time.Time {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// queryStatuses reads a comma-separated list of statuses, dropping the unknown ones.
func queryStatuses(ctx echo.Context, name string) []status.Status {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil
	}
	var sts []status.Status
	for _, s := range strings.Split(val, ",") {
		if st, err := status.Parse(s); err == nil {
			sts = append(sts, st)
		}
	}
	return sts
}

type (
	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	StatusRequest struct {
		Status status.Status `json:"status"`
	}
)
