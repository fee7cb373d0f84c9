package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexPage struct {
	Title      string
	DefaultURL string
	Filename   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := indexPage{
		Title:      "IMDb Web Scraper",
		DefaultURL: s.cfg.TargetURL,
		Filename:   DownloadFilename,
	}
	if err := indexTemplate.Execute(w, page); err != nil {
		slog.Error("render index", slog.Any("error", err))
	}
}
