package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// WithStaticFiles serves a built dashboard bundle from dir for routes the API
// does not own. An empty dir means no bundle is deployed and the server stays
// API-only. Requests for paths that do not exist on disk fall back to
// index.html so client-side routes resolve after a hard reload.
func WithStaticFiles(next http.Handler, dir string) http.Handler {
	if dir == "" {
		return next
	}

	fileServer := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			r.URL.Path == "/healthz" ||
			r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, index)
	})
}
