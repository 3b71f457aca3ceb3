package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/compass/core"
)

var orderingParam = "ordering"

// Ordering is the "?ordering=field,-other" parameter of the list endpoints.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the ordering parameter and refuses the fields known does not accept.
func (ord *Ordering) Bind(ctx echo.Context, known func(field string) bool) error {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}

	var unknown []string
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		if !known(field) {
			unknown = append(unknown, field)
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}

	if len(unknown) > 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: orderingParam,
			Error: "cannot order by: " + strings.Join(unknown, ", "),
		})
	}
	return nil
}

// sortByQuery orders items the way the request asks, among the getters of fields.
func sortByQuery[T any](ctx echo.Context, items []T, fields map[string]func(T) string) error {
	ordering := new(Ordering)
	err := ordering.Bind(ctx, func(field string) bool {
		_, ok := fields[field]
		return ok
	})
	if err != nil {
		return err
	}
	core.SortBy(items, ordering.Orderings, fields)
	return nil
}
