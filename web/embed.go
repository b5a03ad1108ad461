// Package web holds the ledger page template and its static assets.
package web

import "embed"

// TemplatesFS embeds the HTML templates rendered by internal/http.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and the entry form script.
//
//go:embed static/*
var StaticFS embed.FS
