package cards

// Shared partial templates used by multiple card templates.

// PartialWrapperOpen opens the card wrapper. The wrapper carries the origin
// URL (duplicate-insertion guard reads it) and the sensitivity label.
var PartialWrapperOpen = `{{define "wrapper-open"}}
<div class="embed-card embed-{{.Kind}}" id="{{.WrapperID}}" data-origin="{{.OriginURL}}"{{if .Sensitivity}} data-sensitivity="{{.Sensitivity}}"{{end}} style="max-width:{{.Width}}px">
{{end}}`

var PartialWrapperClose = `{{define "wrapper-close"}}
</div>
{{end}}`

// PartialMediaGroup renders the media items with the pager and spoiler
// overlay. Exactly one item is visible at a time; clicking a non-terminal
// image advances the pager, the terminal item is inert. Videos keep their
// clicks for playback controls and get a separate advance button instead.
var PartialMediaGroup = `{{define "media-group"}}
{{if .Items}}
<div class="embed-media-group{{if .Spoiler}} spoilered{{end}}" data-card="{{.WrapperID}}">
  {{if .Spoiler}}
  <button type="button" class="spoiler-overlay" data-card="{{.WrapperID}}" data-action="spoiler" aria-label="Reveal hidden media">
    <span class="spoiler-label">{{if .SensitivityLabel}}{{.SensitivityLabel}}{{else}}hidden{{end}}</span>
  </button>
  {{end}}
  {{range .Items}}
  <div class="embed-media-item{{if not .Active}} hidden{{end}}" data-index="{{.Index}}">
    {{if eq .Type "video"}}
    <video src="{{.URL}}" type="{{.Mime}}" controls preload="metadata" style="max-width:{{$.RenderCap}}px" data-card="{{$.WrapperID}}"></video>
    {{if not .Terminal}}<button type="button" class="media-advance" data-card="{{$.WrapperID}}" data-action="pager-next" aria-label="Next item">&rsaquo;</button>{{end}}
    {{else}}
    <img src="{{.URL}}" alt="{{if $.Title}}{{$.Title}}{{else}}embedded media{{end}}" loading="lazy" style="max-width:{{$.RenderCap}}px"{{if not .Terminal}} data-card="{{$.WrapperID}}" data-action="pager-next"{{end}}>
    {{end}}
  </div>
  {{end}}
  {{template "pager" .}}
</div>
{{end}}
{{end}}`

// PartialPager renders the previous/next controls. Controls clamp at the
// ends: the buttons disable rather than wrap.
var PartialPager = `{{define "pager"}}
{{if .PagerEnabled}}
<div class="embed-pager" data-card="{{.WrapperID}}">
  <button type="button" class="pager-prev" data-card="{{.WrapperID}}" data-action="pager-prev"{{if .AtFirst}} disabled{{end}} aria-label="Previous item">&lsaquo;</button>
  <span class="pager-status">{{.PagerHuman}} / {{.PagerCount}}</span>
  <button type="button" class="pager-next" data-card="{{.WrapperID}}" data-action="pager-next"{{if .AtLast}} disabled{{end}} aria-label="Next item">&rsaquo;</button>
</div>
{{end}}
{{end}}`

// PartialOriginLink renders the "open original" anchor. Card anchors always
// open in a new context with non-leaking referrer attributes.
var PartialOriginLink = `{{define "origin-link"}}
<a href="{{.OriginURL}}" class="embed-origin" target="_blank" rel="noopener noreferrer external">open original</a>
{{end}}`

// GetPartials returns all partial templates concatenated.
func GetPartials() string {
	return PartialWrapperOpen +
		PartialWrapperClose +
		PartialMediaGroup +
		PartialPager +
		PartialOriginLink
}
