package handlers

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

//go:embed static/*
var staticAssets embed.FS

// startedAt is the Last-Modified time of embedded assets.
var startedAt = time.Now()

// StaticHandler serves embedded static assets such as the placeholder event image.
type StaticHandler struct {
	files fs.FS
}

// NewStaticHandler creates a new static assets handler
func NewStaticHandler() *StaticHandler {
	staticFS, err := fs.Sub(staticAssets, "static")
	if err != nil {
		panic("failed to get static subdirectory: " + err.Error())
	}
	return &StaticHandler{files: staticFS}
}

// ServeHTTP serves the asset named by the last path element. The content
// type is sniffed from the bytes, not the extension.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Base(path.Clean("/" + r.URL.Path))
	if name == "/" || name == "." || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	data, err := fs.ReadFile(h.files, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Set cache headers for static assets (1 year)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	http.ServeContent(w, r, name, startedAt, bytes.NewReader(data))
}
