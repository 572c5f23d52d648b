// Package types provides shared type definitions used across internal packages.
package types

import "time"

// IntentKind identifies what a classified link is expected to resolve into.
// The set is closed: every resolver and card template dispatches on it.
type IntentKind string

const (
	KindTweet                  IntentKind = "tweet"
	KindPicShortlink           IntentKind = "pic-shortlink"
	KindDirectImage            IntentKind = "direct-image"
	KindDirectVideo            IntentKind = "direct-video"
	KindYouTube                IntentKind = "youtube"
	KindTwitch                 IntentKind = "twitch"
	KindKick                   IntentKind = "kick"
	KindTwitchBigscreenChannel IntentKind = "twitch-bigscreen"
	KindImgur                  IntentKind = "imgur"
	KindInstagram              IntentKind = "instagram"
	KindRedditPost             IntentKind = "reddit-post"
	KindRedditMediaRedirect    IntentKind = "reddit-media-redirect"
	KindUnsupported            IntentKind = "unsupported"
)

// Sensitivity is the content label derived from the message text surrounding
// a link at classification time.
type Sensitivity string

const (
	SensitivityNone Sensitivity = ""
	SensitivityNSFW Sensitivity = "nsfw"
	SensitivityNSFL Sensitivity = "nsfl"
)

// MediaIntent is the classified purpose of one anchor, produced exactly once
// per anchor and never re-classified. Node references are carried as document
// IDs so the intent stays valid (and discardable) after detachment.
type MediaIntent struct {
	Kind        IntentKind
	URL         string
	SourceID    string // provider-specific: tweet id, video id, channel name, post id
	AnchorID    string
	ContainerID string
	Sensitivity Sensitivity
}

// Supported reports whether the intent should enter the resolver chain.
func (mi MediaIntent) Supported() bool {
	return mi.Kind != KindUnsupported && mi.Kind != ""
}

// VideoItem is one playable video source inside a resolved result.
type VideoItem struct {
	URL  string `json:"url"`
	Mime string `json:"mime"`
}

// ResolvedMedia is the normalized output of a resolver chain run. One
// MediaIntent yields at most one ResolvedMedia; a failed resolution yields
// none and the renderer falls back to a plain-link card.
type ResolvedMedia struct {
	Kind      IntentKind `json:"kind"`
	Title     string     `json:"title,omitempty"`
	Author    string     `json:"author,omitempty"`
	Text      string     `json:"text,omitempty"` // sanitized HTML, may contain safe inline links
	Photos    []string   `json:"photos,omitempty"`
	Videos    []VideoItem `json:"videos,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	OriginURL string     `json:"origin_url"`

	// Stream-platform fields.
	Live         bool          `json:"live,omitempty"`
	Thumbnail    string        `json:"thumbnail,omitempty"`
	EmbedURL     string        `json:"embed_url,omitempty"` // iframe target for youtube/twitch/kick
	RefreshEvery time.Duration `json:"refresh_every,omitempty"`
}

// HasMedia reports whether the result carries at least one photo or video.
func (rm *ResolvedMedia) HasMedia() bool {
	return len(rm.Photos) > 0 || len(rm.Videos) > 0
}

// MediaCount returns the number of items a pager would page through.
func (rm *ResolvedMedia) MediaCount() int {
	return len(rm.Photos) + len(rm.Videos)
}
