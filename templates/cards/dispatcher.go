// Package cards holds the HTML fragment templates for rendered embed cards.
// Each resolved-media shape has its own template; the dispatcher routes on the
// CardTemplate value computed by the renderer.
package cards

// Dispatcher routes to the appropriate card template based on .CardTemplate.
// Routing is purely mechanical; no provider logic lives here.
var Dispatcher = `{{define "card-dispatcher"}}
{{if eq .CardTemplate "card-tweet"}}{{template "card-tweet" .}}
{{else if eq .CardTemplate "card-stream"}}{{template "card-stream" .}}
{{else if eq .CardTemplate "card-frame"}}{{template "card-frame" .}}
{{else if eq .CardTemplate "card-media"}}{{template "card-media" .}}
{{else if eq .CardTemplate "card-textmedia"}}{{template "card-textmedia" .}}
{{else}}{{template "card-fallback" .}}
{{end}}
{{end}}`

// GetAllTemplates returns all card templates concatenated for parsing.
func GetAllTemplates() string {
	return GetPartials() +
		Tweet +
		Stream +
		Frame +
		Media +
		TextMedia +
		Fallback +
		Dispatcher
}
