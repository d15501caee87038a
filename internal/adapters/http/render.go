package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"portal/internal/adapters/http/middleware"
	"portal/internal/application/projections"
	"portal/internal/domain/message"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// mdRenderer renders activity descriptions.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// pageTemplate is parsed once. csrfField is rebound per request via Clone.
var pageTemplate = template.Must(template.New("layout.html").Funcs(template.FuncMap{
	"csrfField":      func() template.HTML { return "" },
	"renderMarkdown": renderMarkdown,
	"pathEscape":     url.PathEscape,
}).ParseFS(templateFS, "templates/layout.html", "templates/index.html"))

// pageData is the whole page: board, banner, alert and the login overlay.
type pageData struct {
	Board       projections.ActivityBoard
	Message     *message.Message
	HideAfterMs int64
	Alert       string

	LoginOpen  bool
	LoginError string
	LoginEmail string

	SignupActivity string
	SignupEmail    string
}

// render writes the page with status. Unless data already carries a message,
// the banner comes from the client's board with whatever time it has left.
func (p *Portal) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	if data.Message != nil {
		data.HideAfterMs = p.messages.TTL().Milliseconds()
	} else if msg, left, ok := p.messages.Remaining(middleware.GetClientID(r.Context())); ok {
		data.Message = &msg
		data.HideAfterMs = max(left.Milliseconds(), 1)
	}

	tpl, err := pageTemplate.Clone()
	if err != nil {
		internalError(w, err)
		return
	}
	tpl.Funcs(template.FuncMap{
		"csrfField": func() template.HTML { return csrf.TemplateField(r) },
	})

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
