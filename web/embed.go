// Package web embeds the built dashboard (dist/) and serves it as a
// single-page application. dist/ ships with a placeholder index.html until
// the frontend build replaces it.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

const (
	indexFile       = "index.html"
	assetsDir       = "assets/"
	cacheRevalidate = "no-cache"
	cacheImmutable  = "public, max-age=31536000, immutable"
)

// SPAHandler serves the embedded dashboard.
func SPAHandler() http.Handler {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return Handler(sub)
}

// Handler serves the dashboard build in fsys. Page routes without a matching
// file get index.html so the client router can take over. A missing file
// with an extension, or anything under /api/, is a real 404. The build
// fingerprints files under assets/, so those are cached for a year while
// index.html is revalidated on every load.
func Handler(fsys fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "api" || strings.HasPrefix(name, "api/") {
			http.NotFound(w, r)
			return
		}
		if name == "" || name == indexFile {
			serveIndex(w, r, fileServer)
			return
		}

		if !exists(fsys, name) {
			if path.Ext(name) != "" {
				http.NotFound(w, r)
				return
			}
			serveIndex(w, r, fileServer)
			return
		}

		if strings.HasPrefix(name, assetsDir) {
			w.Header().Set("Cache-Control", cacheImmutable)
		}
		fileServer.ServeHTTP(w, r)
	})
}

// serveIndex rewrites to "/" because FileServer redirects explicit
// /index.html requests.
func serveIndex(w http.ResponseWriter, r *http.Request, fileServer http.Handler) {
	w.Header().Set("Cache-Control", cacheRevalidate)
	r2 := r.Clone(r.Context())
	r2.URL.Path = "/"
	fileServer.ServeHTTP(w, r2)
}

func exists(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	// Directories are client routes, not listings.
	return !info.IsDir()
}
