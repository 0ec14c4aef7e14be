// Package views holds the embedded django templates and static assets.
package views

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed templates public
var embedded embed.FS

// Extension of every template file.
const Extension = ".html"

// Engine returns a django engine over the embedded templates. reload is
// enabled in development so edits to a disk override show up without a
// restart.
func Engine(reload bool) *django.Engine {
	engine := django.NewPathForwardingFileSystem(http.FS(embedded), "/templates", Extension)
	engine.Reload(reload)
	return engine
}

// Templates exposes the raw template tree, rooted at templates/.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Assets exposes the static files, rooted at public/.
func Assets() fs.FS {
	sub, err := fs.Sub(embedded, "public")
	if err != nil {
		panic(err)
	}
	return sub
}
