// Package web serves the static front page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed public
var embedded embed.FS

// Handler serves files from dir, or the embedded page when dir is empty.
func Handler(dir string) http.Handler {
	if strings.TrimSpace(dir) != "" {
		return http.FileServer(http.Dir(dir))
	}
	public, err := fs.Sub(embedded, "public")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(public))
}
