package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/school"
)

var schoolOrderings = map[string]func(school.School) string{
	"name":     func(s school.School) string { return s.Name },
	"district": func(s school.School) string { return s.District },
}

// JSON API

type schoolApi struct {
	svc *school.Service
}

func registerSchoolAPI(g *echo.Group, svc *school.Service) {
	api := schoolApi{svc: svc}

	g.GET("", api.query)
	g.POST("", api.create)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schools, err := api.svc.List(ctx.Request().Context())
	if err = degraded(ctx, err); err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if err = sortByQuery(ctx, schools, schoolOrderings); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	sch, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) update(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	sch, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// HTML pages

type (
	schoolPages struct {
		svc        *school.Service
		refSvc     *reference.Service
		translator ut.Translator
	}

	schoolListPage struct {
		Schools  []school.School
		Degraded bool
	}

	schoolFormPage struct {
		ID        string
		School    school.NewSchool
		Districts []reference.District
	}
)

func registerSchoolPages(g *echo.Group, svc *school.Service, refSvc *reference.Service, translator ut.Translator) {
	pages := schoolPages{svc: svc, refSvc: refSvc, translator: translator}

	g.GET("", pages.list)
	g.POST("", pages.create)
	g.GET("/new", pages.newForm)
	g.GET("/:id/edit", pages.editForm)
	g.POST("/:id", pages.update)
	g.POST("/:id/delete", pages.destroy)
}

func (pages *schoolPages) list(ctx echo.Context) error {
	schools, err := pages.svc.List(ctx.Request().Context())
	if err != nil && !core.IsDegraded(err) {
		return errors.Wrap(err, "querying schools")
	}
	return render(ctx, http.StatusOK, "schools", &page{
		Title: "Schools",
		Data:  schoolListPage{Schools: schools, Degraded: err != nil},
	})
}

func (pages *schoolPages) renderForm(ctx echo.Context, code int, id string, ns school.NewSchool, fldErrs map[string]string) error {
	districts, _ := pages.refSvc.Districts(ctx.Request().Context())
	title := "Add school"
	if id != "" {
		title = "Edit school"
	}
	return render(ctx, code, "school_form", &page{
		Title:  title,
		Errors: fldErrs,
		Data:   schoolFormPage{ID: id, School: ns, Districts: districts},
	})
}

func (pages *schoolPages) saved(ctx echo.Context, id string, ns school.NewSchool, err error) error {
	if err == nil {
		return ctx.Redirect(http.StatusSeeOther, "/schools")
	}
	if isNotFound(err) {
		return err
	}
	if fldErrs, ok := fieldErrors(err, pages.translator); ok {
		return pages.renderForm(ctx, http.StatusBadRequest, id, ns, fldErrs)
	}
	return pages.renderForm(ctx, http.StatusServiceUnavailable, id, ns, nil)
}

func (pages *schoolPages) newForm(ctx echo.Context) error {
	return pages.renderForm(ctx, http.StatusOK, "", school.NewSchool{}, nil)
}

func (pages *schoolPages) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	_, err := pages.svc.Create(ctx.Request().Context(), data)
	return pages.saved(ctx, "", data, err)
}

func (pages *schoolPages) editForm(ctx echo.Context) error {
	sch, err := pages.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if core.IsDegraded(err) {
			return ctx.Redirect(http.StatusSeeOther, "/schools")
		}
		return errors.Wrap(err, "getting school")
	}
	return pages.renderForm(ctx, http.StatusOK, sch.ID, school.NewSchool{Name: sch.Name, DistrictID: sch.DistrictID}, nil)
}

func (pages *schoolPages) update(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	id := ctx.Param("id")
	_, err := pages.svc.Update(ctx.Request().Context(), id, data)
	return pages.saved(ctx, id, data, err)
}

func (pages *schoolPages) destroy(ctx echo.Context) error {
	if err := pages.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil && isNotFound(err) {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/schools")
}
