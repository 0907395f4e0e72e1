package echoportal

import (
	"html/template"
	"io"
	"path"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core/session"
	appfs "github.com/trezcool/studentportal/fs"
)

const pagesDir = "templates/pages"

// pages rendered outside the authenticated shell
var publicPages = map[string]bool{
	"login":          true,
	"logout":         true,
	"reset_password": true,
	"error":          true,
}

var funcs = template.FuncMap{
	"number": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
	"field": func(fields map[string]string, name string) string {
		return fields[name]
	},
}

type (
	pageTemplate struct {
		once sync.Once
		tmpl *template.Template
		err  error
	}

	// renderer implements echo.Renderer; each page is parsed on its first render.
	renderer struct {
		appName string

		mu    sync.Mutex
		pages map[string]*pageTemplate
	}

	pageData struct {
		AppName string
		Active  string // sidebar entry
		CSRF    string
		Session session.Session

		Message string            // success message
		Error   string            // failure message
		Fields  map[string]string // per-field failure messages
		Form    interface{}       // submitted values, re-rendered on failure
		Data    interface{}
	}
)

func newRenderer(appName string) *renderer {
	return &renderer{appName: appName, pages: make(map[string]*pageTemplate)}
}

func newPageData(ctx echo.Context, active string, data interface{}) *pageData {
	return &pageData{
		Active:  active,
		CSRF:    getCSRFToken(ctx),
		Session: getContextSession(ctx),
		Data:    data,
	}
}

func (r *renderer) lookup(name string) *pageTemplate {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.pages[name]
	if !ok {
		pt = new(pageTemplate)
		r.pages[name] = pt
	}
	return pt
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, ctx echo.Context) error {
	pt := r.lookup(name)
	pt.once.Do(func() {
		pt.tmpl, pt.err = parsePage(name)
	})
	if pt.err != nil {
		return errors.Wrapf(pt.err, "parsing page %q", name)
	}
	if pd, ok := data.(*pageData); ok {
		pd.AppName = r.appName
	}
	return pt.tmpl.ExecuteTemplate(w, "layout", data)
}

func parsePage(name string) (*template.Template, error) {
	layout := "_shell.gohtml"
	if publicPages[name] {
		layout = "_public.gohtml"
	}
	return template.New(name).
		Funcs(funcs).
		Option("missingkey=error").
		ParseFS(appfs.FS, path.Join(pagesDir, layout), path.Join(pagesDir, name+".gohtml"))
}
