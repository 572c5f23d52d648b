package cards

// Media renders bare media results: direct files and image-host pages.
var Media = `{{define "card-media"}}
{{template "wrapper-open" .}}
{{template "media-group" .}}
{{template "origin-link" .}}
{{template "wrapper-close" .}}
{{end}}`

// TextMedia renders results carrying body text alongside media (discussion
// posts, social photo pages).
var TextMedia = `{{define "card-textmedia"}}
{{template "wrapper-open" .}}
<div class="embed-textmedia-header">
  {{if .Title}}<span class="embed-title">{{.Title}}</span>{{end}}
  {{if .Author}}<span class="embed-author">{{.Author}}</span>{{end}}
</div>
{{if .TextHTML}}<div class="embed-body-text">{{.TextHTML}}</div>{{end}}
{{template "media-group" .}}
{{template "origin-link" .}}
{{template "wrapper-close" .}}
{{end}}`

// Fallback renders the minimal plain-link card used when resolution failed.
var Fallback = `{{define "card-fallback"}}
{{template "wrapper-open" .}}
<a href="{{.OriginURL}}" class="embed-fallback-link" target="_blank" rel="noopener noreferrer external">{{.OriginURL}}</a>
{{template "wrapper-close" .}}
{{end}}`
