package server

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// StaticHandler serves the built front end from a directory. With history
// fallback enabled, extensionless paths that don't match a file are answered
// with index.html so client-side routes survive a reload.
type StaticHandler struct {
	fileServer      http.Handler
	filesystem      fs.FS
	historyFallback bool
}

func NewStaticHandler(dir string, historyFallback bool) (*StaticHandler, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WithMessagef(err, "stat static dir %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("static path %s is not a directory", dir)
	}
	return newStaticHandler(os.DirFS(dir), historyFallback), nil
}

func newStaticHandler(filesystem fs.FS, historyFallback bool) *StaticHandler {
	return &StaticHandler{
		fileServer:      http.FileServer(http.FS(filesystem)),
		filesystem:      filesystem,
		historyFallback: historyFallback,
	}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path
	if urlPath == "/" || !h.historyFallback {
		h.fileServer.ServeHTTP(w, r)
		return
	}

	filePath := strings.TrimPrefix(path.Clean(urlPath), "/")
	if _, err := fs.Stat(h.filesystem, filePath); err == nil {
		h.fileServer.ServeHTTP(w, r)
		return
	}

	// a missing file with an extension is a real 404, not a client route
	if path.Ext(urlPath) != "" {
		http.NotFound(w, r)
		return
	}

	r.URL.Path = "/"
	h.fileServer.ServeHTTP(w, r)
}
