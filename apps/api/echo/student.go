package echoapi

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/student"
)

var (
	genders = []string{"Male", "Female", "Other"}

	studentOrderings = map[string]func(student.Student) string{
		"student_id":   func(s student.Student) string { return numericKey(s.ID) },
		"name":         func(s student.Student) string { return s.Name },
		"email":        func(s student.Student) string { return s.Email },
		"gender":       func(s student.Student) string { return s.Gender },
		"campus":       func(s student.Student) string { return s.Campus },
		"campus_id":    func(s student.Student) string { return s.CampusID },
		"grade_id":     func(s student.Student) string { return numericKey(s.GradeID) },
		"language_id":  func(s student.Student) string { return s.LanguageID },
		"student_code": func(s student.Student) string { return s.StudentCode },
	}
)

// numericKey left pads digits so that "9" sorts before "10".
func numericKey(s string) string {
	const width = 20
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// degraded turns a read that fell back to an empty result into a Warning header.
func degraded(ctx echo.Context, err error) error {
	if core.IsDegraded(err) {
		ctx.Response().Header().Set("Warning", fmt.Sprintf("199 - %q", err.Error()))
		return nil
	}
	return err
}

func openUpload(ctx echo.Context) (*multipart.FileHeader, multipart.File, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: "please select a CSV or XLSX file"})
	}
	file, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening uploaded file")
	}
	return fh, file, nil
}

// JSON API

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, svc *student.Service) {
	api := studentApi{svc: svc}

	g.GET("", api.query)
	g.POST("", api.create)
	g.POST("/bulk", api.createMany)
	g.POST("/import", api.importFile)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.List(ctx.Request().Context())
	if err = degraded(ctx, err); err != nil {
		return errors.Wrap(err, "querying students")
	}
	if err = sortByQuery(ctx, students, studentOrderings); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) createMany(ctx echo.Context) error {
	var data []student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to []NewStudent")
	}
	students, err := api.svc.CreateMany(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating students")
	}
	return ctx.JSON(http.StatusCreated, students)
}

func (api *studentApi) importFile(ctx echo.Context) error {
	fh, file, err := openUpload(ctx)
	if err != nil {
		return err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	reqCtx := ctx.Request().Context()
	if preview, _ := strconv.ParseBool(ctx.QueryParam("preview")); preview {
		report, err := api.svc.PreviewImport(reqCtx, fh.Filename, file)
		if err != nil {
			return errors.Wrap(err, "previewing import")
		}
		return ctx.JSON(http.StatusOK, report)
	}

	report, err := api.svc.Import(reqCtx, fh.Filename, file)
	if err != nil {
		if report.Filename != "" && !report.Validation.Valid {
			return ctx.JSON(http.StatusBadRequest, report)
		}
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusCreated, report)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	std, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// HTML pages

type (
	studentPages struct {
		svc        *student.Service
		refSvc     *reference.Service
		translator ut.Translator
	}

	studentListPage struct {
		Students []student.Student
		Degraded bool
	}

	studentFormPage struct {
		ID      string
		Student student.NewStudent
		Options reference.FormOptions
		Genders []string
	}

	studentImportPage struct {
		Report *student.ImportReport
	}
)

func registerStudentPages(g *echo.Group, svc *student.Service, refSvc *reference.Service, translator ut.Translator) {
	pages := studentPages{svc: svc, refSvc: refSvc, translator: translator}

	g.GET("", pages.list)
	g.POST("", pages.create)
	g.GET("/new", pages.newForm)
	g.GET("/import", pages.importForm)
	g.POST("/import", pages.importFile)
	g.GET("/:id/edit", pages.editForm)
	g.POST("/:id", pages.update)
	g.POST("/:id/delete", pages.destroy)
}

func (pages *studentPages) list(ctx echo.Context) error {
	students, err := pages.svc.List(ctx.Request().Context())
	if err != nil && !core.IsDegraded(err) {
		return errors.Wrap(err, "querying students")
	}
	return render(ctx, http.StatusOK, "students", &page{
		Title: "Students",
		Data:  studentListPage{Students: students, Degraded: err != nil},
	})
}

// renderForm shows the student form; reference data that cannot be loaded leaves its dropdown empty.
func (pages *studentPages) renderForm(ctx echo.Context, code int, id string, ns student.NewStudent, fldErrs map[string]string) error {
	opts, _ := pages.refSvc.FormOptions(ctx.Request().Context())
	title := "Add student"
	if id != "" {
		title = "Edit student"
	}
	return render(ctx, code, "student_form", &page{
		Title:  title,
		Errors: fldErrs,
		Data:   studentFormPage{ID: id, Student: ns, Options: opts, Genders: genders},
	})
}

// saved redirects to the list once a write succeeded, or shows the form again with what went wrong.
func (pages *studentPages) saved(ctx echo.Context, id string, ns student.NewStudent, err error) error {
	if err == nil {
		return ctx.Redirect(http.StatusSeeOther, "/students")
	}
	if isNotFound(err) {
		return err
	}
	if fldErrs, ok := fieldErrors(err, pages.translator); ok {
		return pages.renderForm(ctx, http.StatusBadRequest, id, ns, fldErrs)
	}
	// the service already reported the failure; keep what the operator typed
	return pages.renderForm(ctx, http.StatusServiceUnavailable, id, ns, nil)
}

func (pages *studentPages) newForm(ctx echo.Context) error {
	return pages.renderForm(ctx, http.StatusOK, "", student.NewStudent{}, nil)
}

func (pages *studentPages) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	_, err := pages.svc.Create(ctx.Request().Context(), data)
	return pages.saved(ctx, "", data, err)
}

func (pages *studentPages) editForm(ctx echo.Context) error {
	std, err := pages.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if core.IsDegraded(err) {
			return ctx.Redirect(http.StatusSeeOther, "/students")
		}
		return errors.Wrap(err, "getting student")
	}
	return pages.renderForm(ctx, http.StatusOK, std.ID, std.NewStudent(), nil)
}

func (pages *studentPages) update(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	id := ctx.Param("id")
	_, err := pages.svc.Update(ctx.Request().Context(), id, data)
	return pages.saved(ctx, id, data, err)
}

func (pages *studentPages) destroy(ctx echo.Context) error {
	if err := pages.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil && isNotFound(err) {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/students")
}

func (pages *studentPages) importForm(ctx echo.Context) error {
	return render(ctx, http.StatusOK, "student_import", &page{Title: "Import students", Data: studentImportPage{}})
}

func (pages *studentPages) importFile(ctx echo.Context) error {
	fh, file, err := openUpload(ctx)
	if err != nil {
		fldErrs, _ := fieldErrors(err, pages.translator)
		core.Notify(ctx.Request().Context(), core.ErrorToast("No file selected", "Please select a CSV or XLSX file to upload."))
		return render(ctx, http.StatusBadRequest, "student_import", &page{
			Title:  "Import students",
			Errors: fldErrs,
			Data:   studentImportPage{},
		})
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	reqCtx := ctx.Request().Context()
	var report student.ImportReport
	if ctx.FormValue("action") == "upload" {
		report, err = pages.svc.Import(reqCtx, fh.Filename, file)
		if err == nil {
			return ctx.Redirect(http.StatusSeeOther, "/students")
		}
	} else {
		report, err = pages.svc.PreviewImport(reqCtx, fh.Filename, file)
	}

	code := http.StatusOK
	var fldErrs map[string]string
	if err != nil {
		var ok bool
		if fldErrs, ok = fieldErrors(err, pages.translator); ok {
			code = http.StatusBadRequest
		} else {
			code = http.StatusServiceUnavailable
		}
	}
	data := studentImportPage{}
	if report.Filename != "" {
		data.Report = &report
	}
	return render(ctx, code, "student_import", &page{Title: "Import students", Errors: fldErrs, Data: data})
}
