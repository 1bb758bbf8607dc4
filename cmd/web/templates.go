package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/myrjola/sotopia-chat/internal/contexthelpers"
	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/ui"
)

// pageTemplate returns the template set for the given page name.
//
// pageName corresponds to a directory inside ui/templates/pages. It has to
// include a template named "page". The set also contains the shared base and
// every partial, so the same set serves full pages and htmx fragments.
func (app *application) pageTemplate(pageName string) (*template.Template, error) {
	files := []string{"templates/base.gohtml"}

	partialFiles, err := fs.Glob(ui.Files, "templates/partials/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "glob partial template files")
	}
	files = append(files, partialFiles...)

	pageTemplateFiles, err := fs.Glob(ui.Files, fmt.Sprintf("templates/pages/%s/*.gohtml", pageName))
	if err != nil {
		return nil, errors.Wrap(err, "glob page template files")
	}
	files = append(files, pageTemplateFiles...)

	// We need to initialize the FuncMap before parsing the files. These will be overridden in the render functions.
	t, err := template.New(pageName).Funcs(template.FuncMap{
		"nonce": func() string {
			panic("not implemented")
		},
		"csrf": func() string {
			panic("not implemented")
		},
	}).ParseFS(ui.Files, files...)
	if err != nil {
		return nil, errors.Wrap(err, "parse template files")
	}
	return t, nil
}

// requestFuncs binds the nonce and csrf helpers to the current request.
func requestFuncs(r *http.Request) template.FuncMap {
	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=%q", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=%q/>", contexthelpers.CSRFToken(ctx))
	return template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // we trust the csrf since it's not provided by user.
		},
	}
}

// render writes a full page: the "base" template of the given page's set.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	app.renderTemplate(w, r, status, page, "base", data)
}

// renderPartial writes a fragment of the page, e.g. for an htmx swap.
func (app *application) renderPartial(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	app.renderTemplate(w, r, status, "home", templateName, data)
}

func (app *application) renderTemplate(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	page string,
	templateName string,
	data any,
) {
	t, err := app.pageTemplate(page)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "parse template", slog.String("page", page)))
		return
	}
	t.Funcs(requestFuncs(r))

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, templateName, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", templateName)))
		return
	}

	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}
