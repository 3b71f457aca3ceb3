package echoapi

import (
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/user"
)

const (
	pagesDir   = "templates/pages"
	layoutFile = "layout.gohtml"
)

// page is the data every dashboard template receives.
type page struct {
	AppName  string
	Build    string
	Title    string
	Operator *user.User
	CSRF     string
	Toasts   []core.Toast
	Errors   map[string]string
	Data     interface{}
}

// renderer executes the dashboard pages, each one parsed together with the layout.
type renderer struct {
	conf      *core.Config
	templates map[string]*template.Template
}

var _ echo.Renderer = (*renderer)(nil)

var templateFuncs = template.FuncMap{
	"referenceKinds": func() []reference.Kind { return reference.Kinds },
	"isSelected": func(value, current string) bool {
		return value == current
	},
}

func newRenderer(fsys fs.FS, conf *core.Config) *renderer {
	layout := template.Must(
		template.New(layoutFile).Funcs(templateFuncs).ParseFS(fsys, path.Join(pagesDir, layoutFile)),
	)

	files, err := fs.Glob(fsys, path.Join(pagesDir, "*.gohtml"))
	if err != nil {
		panic(err)
	}

	r := &renderer{conf: conf, templates: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		base := path.Base(file)
		if base == layoutFile {
			continue
		}
		tmpl := template.Must(template.Must(layout.Clone()).ParseFS(fsys, file))
		r.templates[strings.TrimSuffix(base, path.Ext(base))] = tmpl
	}
	return r
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("page %q not found", name)
	}
	if p, ok := data.(*page); ok {
		p.AppName = r.conf.AppName
		p.Build = r.conf.Build
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// render fills p with the request state (operator, csrf token, pending toasts) and renders the page name.
func render(ctx echo.Context, code int, name string, p *page) error {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		p.Operator = &usr
	}
	if token, ok := ctx.Get(contextCSRFKey).(string); ok {
		p.CSRF = token
	}
	if toasts, ok := ctx.Get(contextToastsKey).(*core.Toasts); ok {
		p.Toasts = append(p.Toasts, toasts.Drain()...)
	}
	return ctx.Render(code, name, p)
}
