package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sigcolegio/backend/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// intParam parses a positive integer from the path or, when missing there, the query string.
// A missing value is 0.
func intParam(ctx echo.Context, name string) (int, error) {
	val := ctx.Param(name)
	if val == "" {
		val = ctx.QueryParam(name)
	}
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a positive number"})
	}
	return n, nil
}
