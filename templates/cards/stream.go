package cards

// Stream renders a channel card for the stream platforms: thumbnail, live
// badge, title, and a link out to the player.
var Stream = `{{define "card-stream"}}
{{template "wrapper-open" .}}
<div class="embed-stream-thumb{{if .Spoiler}} spoilered{{end}}">
  {{if .Spoiler}}
  <button type="button" class="spoiler-overlay" data-card="{{.WrapperID}}" data-action="spoiler" aria-label="Reveal hidden media">
    <span class="spoiler-label">{{if .SensitivityLabel}}{{.SensitivityLabel}}{{else}}hidden{{end}}</span>
  </button>
  {{end}}
  {{if .Thumbnail}}
  <img src="{{.Thumbnail}}" alt="{{.Title}}" loading="lazy" data-card="{{.WrapperID}}">
  {{else}}
  <div class="embed-stream-placeholder"><span>{{if .Live}}LIVE{{else}}offline{{end}}</span></div>
  {{end}}
  {{if .Live}}<span class="live-badge live">LIVE</span>{{end}}
</div>
<div class="embed-stream-body">
  <span class="embed-stream-title">{{.Title}}</span>
  {{if .EmbedURL}}
  <a href="{{.EmbedURL}}" class="embed-watch" target="_blank" rel="noopener noreferrer external">watch</a>
  {{end}}
  {{template "origin-link" .}}
</div>
{{template "wrapper-close" .}}
{{end}}`

// Frame renders providers embedded as an iframe (youtube-style players).
var Frame = `{{define "card-frame"}}
{{template "wrapper-open" .}}
<div class="embed-frame{{if .Spoiler}} spoilered{{end}}">
  {{if .Spoiler}}
  <button type="button" class="spoiler-overlay" data-card="{{.WrapperID}}" data-action="spoiler" aria-label="Reveal hidden media">
    <span class="spoiler-label">{{if .SensitivityLabel}}{{.SensitivityLabel}}{{else}}hidden{{end}}</span>
  </button>
  {{end}}
  <iframe src="{{.EmbedURL}}" loading="lazy" allowfullscreen referrerpolicy="no-referrer" style="max-width:{{.RenderCap}}px" data-card="{{.WrapperID}}"></iframe>
</div>
{{template "origin-link" .}}
{{template "wrapper-close" .}}
{{end}}`
