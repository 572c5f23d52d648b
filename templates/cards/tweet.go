package cards

// Tweet renders a resolved social post: author line, sanitized text with safe
// inline links, then the media group.
var Tweet = `{{define "card-tweet"}}
{{template "wrapper-open" .}}
<div class="embed-tweet-header">
  {{if .Author}}<span class="embed-author">{{.Author}}</span>{{end}}
  {{if .Title}}<span class="embed-handle">{{.Title}}</span>{{end}}
  {{if .CreatedAt}}<time datetime="{{.CreatedAt}}">{{.CreatedAtHuman}}</time>{{end}}
</div>
{{if .TextHTML}}<div class="embed-tweet-text">{{.TextHTML}}</div>{{end}}
{{template "media-group" .}}
{{template "origin-link" .}}
{{template "wrapper-close" .}}
{{end}}`
