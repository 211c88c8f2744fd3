package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
)

// SPAHandler отдает статику фронтенда; неизвестные пути получают index.html
// (маршрутизация на клиенте). Неизвестные /api/ пути получают 404 JSON
type SPAHandler struct {
	responder
	files  fs.FS
	server http.Handler
}

// NewSPAHandler создает handler статики из каталога root
func NewSPAHandler(logger *slog.Logger, root string) *SPAHandler {
	return newSPAHandler(logger, os.DirFS(root))
}

func newSPAHandler(logger *slog.Logger, files fs.FS) *SPAHandler {
	return &SPAHandler{
		responder: responder{logger: logger},
		files:     files,
		server:    http.FileServerFS(files),
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		h.sendError(w, "not found", http.StatusNotFound)
		return
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "."
	}

	if _, err := fs.Stat(h.files, name); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.serveIndex(w, r)
		return
	}

	h.server.ServeHTTP(w, r)
}

func (h *SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	index, err := fs.ReadFile(h.files, "index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(index)
}
