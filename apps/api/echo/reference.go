package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/reference"
)

func referenceKind(ctx echo.Context) (reference.Kind, error) {
	kind := reference.Kind(ctx.Param("kind"))
	if !kind.Valid() {
		return "", reference.ErrUnknownKind
	}
	return kind, nil
}

// JSON API

type referenceApi struct {
	svc *reference.Service
}

func registerReferenceAPI(g *echo.Group, svc *reference.Service) {
	api := referenceApi{svc: svc}

	g.GET("/:kind", api.query)
}

func (api *referenceApi) query(ctx echo.Context) error {
	kind, err := referenceKind(ctx)
	if err != nil {
		return err
	}
	items, err := api.svc.List(ctx.Request().Context(), kind)
	if err = degraded(ctx, err); err != nil {
		return errors.Wrapf(err, "querying %s", kind)
	}
	return ctx.JSON(http.StatusOK, items)
}

// HTML pages

type referencePage struct {
	Headers  []string
	Rows     [][]string
	Degraded bool
}

func registerReferencePages(g *echo.Group, svc *reference.Service) {
	g.GET("/:kind", func(ctx echo.Context) error {
		kind, err := referenceKind(ctx)
		if err != nil {
			return err
		}
		items, err := svc.List(ctx.Request().Context(), kind)
		if err != nil && !core.IsDegraded(err) {
			return errors.Wrapf(err, "querying %s", kind)
		}

		data := referenceTable(items)
		data.Degraded = err != nil
		return render(ctx, http.StatusOK, "reference", &page{Title: kind.Title(), Data: data})
	})
}

// referenceTable lays a reference list out as rows of display values.
func referenceTable(items interface{}) referencePage {
	var tbl referencePage
	switch items := items.(type) {
	case []reference.District:
		tbl.Headers = []string{"ID", "Name", "Region"}
		for _, d := range items {
			tbl.Rows = append(tbl.Rows, []string{d.ID, d.Name, d.RegionID})
		}
	case []reference.Campus:
		tbl.Headers = []string{"ID", "Name", "School"}
		for _, c := range items {
			tbl.Rows = append(tbl.Rows, []string{c.ID, c.Name, c.SchoolID})
		}
	case []reference.Grade:
		tbl.Headers = []string{"ID", "Name", "Code", "Number"}
		for _, g := range items {
			tbl.Rows = append(tbl.Rows, []string{g.ID, g.Name, g.Code, g.Number})
		}
	case []reference.Language:
		tbl.Headers = []string{"ID", "Name", "Code"}
		for _, l := range items {
			tbl.Rows = append(tbl.Rows, []string{l.ID, l.Name, l.Code})
		}
	case []reference.Contract:
		tbl.Headers = []string{"ID", "Name", "Type", "Date", "Total hours", "Full value", "Discount", "PDF"}
		for _, c := range items {
			tbl.Rows = append(tbl.Rows, []string{c.ID, c.Name, c.Type, c.Date, c.TotalHours, c.FullValue, c.Discount, c.PDFLink})
		}
	}
	return tbl
}
