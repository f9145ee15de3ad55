package antlia

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// page builds the shared page context. An empty title falls back to the
// site name; an empty description to the site description.
func (a *App) page(c echo.Context, title, description string) Page {
	if title == "" {
		title = a.Config.Name
	} else {
		title += " | " + a.Config.Name
	}
	if description == "" {
		description = a.Config.Description
	}
	path := c.Request().URL.Path
	return Page{
		Meta: PageMeta{
			Title:       title,
			Description: description,
			URL:         BuildURL(a.Config.URL, path),
			OGType:      "website",
			JSONLD:      OrganizationJsonLD(a.Config, a.Catalog),
		},
		Path:     path,
		Site:     a.Catalog,
		CSRF:     CsrfToken(c),
		Admin:    IsAdmin(c),
		WhatsApp: a.WhatsAppLink(),
	}
}

// adminPage is page with the queued flash notifications attached.
func (a *App) adminPage(c echo.Context, title string) Page {
	p := a.page(c, title, "")
	p.Flashes = popFlashes(c)
	return p
}
