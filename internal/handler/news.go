package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/vaccine-portal/internal/service"
)

// NewsHandler serves the public news feed.
type NewsHandler struct {
	news   *service.NewsService
	logger *slog.Logger
}

func NewNewsHandler(news *service.NewsService, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{news: news, logger: logger}
}

// HandleList returns one page of articles.
//
// HTTP: GET /api/news?page=2&filter=covid
// A missing or malformed page number means page 1.
func (h *NewsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}

	res, err := h.news.Page(r.Context(), page, q.Get("filter"))
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to fetch news")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
