package chi

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/httplog"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Title string
}

// getIndex handles GET / with the registration form
func getIndex() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTemplate.Execute(w, indexData{Title: "Webhook Relay"}); err != nil {
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Msg("rendering index")
		}
	})
}
