// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"

	shareErrors "github.com/qolzam/telar-drive/sharelinks/errors"
	"github.com/qolzam/telar-drive/sharelinks/models"
	"github.com/qolzam/telar-drive/sharelinks/services"
)

// The public share pages are intentionally minimal, server-rendered
// HTML. Download links carry the signed URL or redirect through the
// download endpoint, so no client-side code is needed. The share
// password travels in POST bodies only, never in a URL, so it cannot
// leak through access logs, referrers, or browser history.
const passwordPageHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Protected share</title></head>
<body>
<h1>This share is password protected</h1>
{{if .Error}}<p>{{.Error}}</p>{{end}}
<form method="post" action="">
<input type="hidden" name="path" value="{{.Path}}">
<input type="password" name="password" autofocus>
<button type="submit">Open</button>
</form>
</body>
</html>`

const contentPageHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Content.Name}}</title></head>
<body>
{{if .Content.File}}
<h1>{{.Content.File.Name}}</h1>
<p>{{.Content.File.MimeType}}, {{.Content.File.Size}} bytes</p>
<p><a href="{{.Content.File.DownloadURL}}">Download</a></p>
{{else}}
<h1>{{.Content.Name}}{{if .Content.Folder.Path}} / {{.Content.Folder.Path}}{{end}}</h1>
<ul>
{{range .Content.Folder.Folders}}
<li>{{if $.Password}}<form method="post" action=""><input type="hidden" name="path" value="{{.Path}}"><input type="hidden" name="password" value="{{$.Password}}"><button type="submit">{{.Name}}/</button></form>{{else}}<a href="?path={{.Path}}">{{.Name}}/</a>{{end}}</li>
{{end}}
{{range .Content.Folder.Files}}
<li>{{if $.Password}}<form method="post" action="{{.DownloadURL}}"><input type="hidden" name="password" value="{{$.Password}}"><button type="submit">{{.Name}}</button></form>{{else}}<a href="{{.DownloadURL}}">{{.Name}}</a>{{end}} ({{.Size}} bytes)</li>
{{end}}
</ul>
{{end}}
</body>
</html>`

const errorPageHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Share unavailable</title></head>
<body>
<h1>{{.Message}}</h1>
</body>
</html>`

var (
	passwordPage = template.Must(template.New("password").Parse(passwordPageHTML))
	contentPage  = template.Must(template.New("content").Parse(contentPageHTML))
	errorPage    = template.Must(template.New("error").Parse(errorPageHTML))
)

// PublicShareHandler serves the unauthenticated share pages.
type PublicShareHandler struct {
	shareService services.ShareLinkService
}

// NewPublicShareHandler creates a new PublicShareHandler with injected dependencies
func NewPublicShareHandler(shareService services.ShareLinkService) *PublicShareHandler {
	return &PublicShareHandler{
		shareService: shareService,
	}
}

// ViewShare renders a shared file or folder listing
// GET /share/:token
func (h *PublicShareHandler) ViewShare(c *fiber.Ctx) error {
	token := c.Params("token")
	subPath := c.Query("path")

	info, err := h.shareService.Resolve(c.Context(), token)
	if err != nil {
		return h.renderFailure(c, err, token, subPath)
	}
	// Passwords are accepted through the POST form only. A password in
	// the query string is ignored, never checked, never echoed back.
	if info.PasswordRequired {
		return renderPasswordForm(c, http.StatusUnauthorized, subPath, "")
	}

	content, err := h.shareService.Access(c.Context(), token, "", subPath)
	if err != nil {
		return h.renderFailure(c, err, token, subPath)
	}
	return renderContent(c, content, "")
}

// SubmitPassword opens a password protected share
// POST /share/:token
func (h *PublicShareHandler) SubmitPassword(c *fiber.Ctx) error {
	token := c.Params("token")
	subPath := c.FormValue("path")
	password := formPassword(c)

	content, err := h.shareService.Access(c.Context(), token, password, subPath)
	if err != nil {
		return h.renderFailure(c, err, token, subPath)
	}
	return renderContent(c, content, password)
}

// DownloadSharedFile redirects to a signed URL for one file reachable
// through a share. Protected shares POST the password in the form body;
// unprotected shares use a plain GET.
// GET|POST /share/:token/download?file=...
func (h *PublicShareHandler) DownloadSharedFile(c *fiber.Ctx) error {
	token := c.Params("token")
	password := formPassword(c)

	fileID, err := uuid.FromString(c.Query("file"))
	if err != nil {
		return renderError(c, http.StatusBadRequest, "Invalid file reference")
	}

	shared, err := h.shareService.FetchFile(c.Context(), token, fileID, password)
	if err != nil {
		// The password entry form lives on the share page, so password
		// failures here get a plain error.
		switch {
		case errors.Is(err, shareErrors.ErrPasswordRequired):
			return renderError(c, http.StatusUnauthorized, "This share link is password protected")
		case errors.Is(err, shareErrors.ErrPasswordInvalid):
			return renderError(c, http.StatusForbidden, "The password is incorrect")
		}
		return h.renderFailure(c, err, token, "")
	}
	return c.Redirect(shared.DownloadURL, http.StatusFound)
}

func (h *PublicShareHandler) renderFailure(c *fiber.Ctx, err error, token string, subPath string) error {
	switch {
	case errors.Is(err, shareErrors.ErrShareNotFound):
		return renderError(c, http.StatusNotFound, "This share link does not exist or is no longer available")
	case errors.Is(err, shareErrors.ErrPasswordRequired):
		return renderPasswordForm(c, http.StatusUnauthorized, subPath, "")
	case errors.Is(err, shareErrors.ErrPasswordInvalid):
		return renderPasswordForm(c, http.StatusForbidden, subPath, "The password is incorrect")
	case errors.Is(err, shareErrors.ErrInvalidRequest):
		return renderError(c, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, shareErrors.ErrUpstreamUnavailable):
		return renderError(c, http.StatusServiceUnavailable, "The storage backend is unavailable, try again later")
	default:
		return renderError(c, http.StatusInternalServerError, "Something went wrong")
	}
}

// formPassword reads the password from the POST body only. FormValue
// would fall back to the query string, which must never carry it.
func formPassword(c *fiber.Ctx) string {
	return string(c.Request().PostArgs().Peek("password"))
}

func renderPasswordForm(c *fiber.Ctx, status int, subPath string, errMsg string) error {
	return renderPage(c, status, passwordPage, fiber.Map{
		"Path":  subPath,
		"Error": errMsg,
	})
}

func renderContent(c *fiber.Ctx, content *models.ShareContent, password string) error {
	return renderPage(c, http.StatusOK, contentPage, fiber.Map{
		"Content":  content,
		"Password": password,
	})
}

func renderError(c *fiber.Ctx, status int, message string) error {
	return renderPage(c, status, errorPage, fiber.Map{"Message": message})
}

func renderPage(c *fiber.Ctx, status int, page *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return c.Status(http.StatusInternalServerError).SendString("failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Status(status).SendString(buf.String())
}
