package worker

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static/*
var staticFS embed.FS

// pages is the embedded dashboard rooted at static/.
var pages fs.FS

func init() {
	var err error
	pages, err = fs.Sub(staticFS, "static")
	if err != nil {
		panic("failed to open embedded dashboard: " + err.Error())
	}
}

// serveIndex serves the dashboard page.
func serveIndex(w http.ResponseWriter, r *http.Request) {
	serveFile(w, "index.html")
}

// serveAssets serves /static/<name> from the embedded files.
func serveAssets(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/static/")
	serveFile(w, name)
}

func serveFile(w http.ResponseWriter, name string) {
	content, err := fs.ReadFile(pages, name)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_, _ = w.Write(content)
}
