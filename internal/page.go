package gsp

import (
	"embed"
	"html/template"
)

//go:embed page.html
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "page.html"))

type portalPage struct {
	Title      string
	LoginPath  string
	LogoutPath string
	UserPath   string
}

func pageData() portalPage {
	return portalPage{
		Title:      "Sign in with Google",
		LoginPath:  "/login",
		LogoutPath: "/logout",
		UserPath:   "/api/user",
	}
}
