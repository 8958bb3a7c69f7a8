// Package web holds the server-rendered HTML templates.
package web

import (
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates
var files embed.FS

// URLResolver turns stored media paths into public URLs.
type URLResolver interface {
	URL(path string) string
}

// Templates parses every page and include into one set; pages are looked up
// by their path relative to templates/, e.g. "posts/index.html".
func Templates(media URLResolver) (*template.Template, error) {
	return template.New("").Funcs(Funcs(media)).ParseFS(files,
		"templates/includes/*.html",
		"templates/posts/*.html",
		"templates/about/*.html",
		"templates/core/*.html",
		"templates/auth/*.html",
	)
}

func Funcs(media URLResolver) template.FuncMap {
	return template.FuncMap{
		"mediaURL": func(path string) string {
			if path == "" || media == nil {
				return ""
			}
			return media.URL(path)
		},
		"thumbURL": func(path string) string {
			if path == "" || media == nil {
				return ""
			}
			return media.URL(strings.TrimSuffix(path, pathExt(path)) + "_thumb.jpg")
		},
		"date": func(t time.Time) string { return t.Format("2 January 2006") },
		"linebreaks": func(s string) template.HTML {
			escaped := template.HTMLEscapeString(s)
			return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
		},
		"truncatewords": func(s string, n int) string {
			words := strings.Fields(s)
			if len(words) <= n {
				return s
			}
			return strings.Join(words[:n], " ") + " …"
		},
		"deref": func(p *uint) uint {
			if p == nil {
				return 0
			}
			return *p
		},
	}
}

func pathExt(p string) string {
	i := strings.LastIndexByte(p, '.')
	if i < strings.LastIndexByte(p, '/') || i < 0 {
		return ""
	}
	return p[i:]
}
