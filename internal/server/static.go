package server

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var embeddedAssets embed.FS

// dashboardFS is the embedded dashboard shell, rooted at the asset files.
var dashboardFS = mustSub(embeddedAssets, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("dashboard assets: " + err.Error())
	}
	return sub
}

// serveIndex serves the dashboard shell for the root path.
func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFileFS(w, r, dashboardFS, "index.html")
}

// assetHandler serves the remaining embedded assets under /assets/.
func assetHandler() http.Handler {
	files := http.StripPrefix("/assets/", http.FileServerFS(dashboardFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
