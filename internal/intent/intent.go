// Package intent classifies chat anchors into media intents. Classification
// is pure: given the parsed URL, the anchor's visible text, and the
// surrounding message, it returns exactly one intent (possibly Unsupported)
// and never touches the network.
package intent

import (
	"net/url"
	"regexp"
	"strings"

	"embed-server/internal/types"
)

// Input carries everything a single classification needs. Values are captured
// once at scan time so the decision cannot change under the resolver.
type Input struct {
	URL           string
	AnchorText    string
	ContainerText string
	AnchorID      string
	ContainerID   string

	// LoggedOut is the page-level heuristic: a login prompt is present and no
	// logout affordance is. When true every link classifies as Unsupported.
	LoggedOut bool

	Settings types.Settings
}

// sourceMarker is the visible text of citation links that are never embedded.
const sourceMarker = "(source)"

var (
	tweetPathRe     = regexp.MustCompile(`^/[^/]+/status(?:es)?/(\d+)`)
	youtubeIDRe     = regexp.MustCompile(`^[\w-]{6,16}$`)
	twitchVideoRe   = regexp.MustCompile(`^/videos/(\d+)`)
	channelNameRe   = regexp.MustCompile(`^/([A-Za-z0-9_]{2,32})/?$`)
	imgurPageRe     = regexp.MustCompile(`^/(?:gallery/|a/)?([A-Za-z0-9]{5,10})/?$`)
	instagramPathRe = regexp.MustCompile(`^/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)
	redditPostRe    = regexp.MustCompile(`^/r/[^/]+/comments/([a-z0-9]+)`)
	nsfwWordRe      = regexp.MustCompile(`(?i)\bnsfw\b`)
	nsflWordRe      = regexp.MustCompile(`(?i)\bnsfl\b`)
)

// shortlinkHosts are expanded by the resolver before classification runs a
// second (and final) time on the destination.
var shortlinkHosts = map[string]bool{
	"t.co":            true,
	"pic.twitter.com": true,
	"pic.x.com":       true,
}

// directMediaHosts is the allow-list for extension-based direct file embeds.
var directMediaHosts = map[string]bool{
	"i.imgur.com":     true,
	"pbs.twimg.com":   true,
	"video.twimg.com": true,
	"i.redd.it":       true,
	"v.redd.it":       true,
	"files.catbox.moe": true,
	"media.tenor.com": true,
	"media.giphy.com": true,
	"i.ibb.co":        true,
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
var videoExts = map[string]string{".mp4": "video/mp4", ".webm": "video/webm", ".mov": "video/quicktime"}

// Classify maps one anchor to exactly one MediaIntent. Precedence: shortlink
// deferral, source-marker skip, sensitivity policy, unauthenticated page,
// host/path tables behind the host allow-list.
func Classify(in Input) types.MediaIntent {
	mi := types.MediaIntent{
		Kind:        types.KindUnsupported,
		URL:         in.URL,
		AnchorID:    in.AnchorID,
		ContainerID: in.ContainerID,
		Sensitivity: sensitivityOf(in.ContainerText),
	}

	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil {
		return mi
	}
	// Only web URLs are embeddable: direct media goes into src attributes
	// with no fetch step in between, so the scheme check is the last gate.
	// Host-relative links qualify only through the bigscreen hash syntax.
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		if u.Host == "" {
			return mi
		}
	case u.Scheme == "" && u.Host == "" && isBigscreen(u):
	default:
		return mi
	}
	host := strings.ToLower(u.Hostname())

	if shortlinkHosts[host] {
		if !in.Settings.EmbedTweets {
			return mi
		}
		mi.Kind = types.KindPicShortlink
		return applyPolicy(mi, in)
	}

	if strings.TrimSpace(in.AnchorText) == sourceMarker {
		return mi
	}

	if in.Settings.Hides(mi.Sensitivity) {
		return mi
	}

	if in.LoggedOut {
		return mi
	}

	kind, sourceID := classifyHost(u, host)
	if kind == types.KindUnsupported {
		return mi
	}
	if !in.Settings.Allows(kind) {
		return mi
	}
	mi.Kind = kind
	mi.SourceID = sourceID
	return mi
}

// applyPolicy re-checks the marker/sensitivity/auth rules for the shortlink
// path, where kind is decided before the generic table runs.
func applyPolicy(mi types.MediaIntent, in Input) types.MediaIntent {
	if strings.TrimSpace(in.AnchorText) == sourceMarker ||
		in.Settings.Hides(mi.Sensitivity) ||
		in.LoggedOut {
		mi.Kind = types.KindUnsupported
		mi.SourceID = ""
	}
	return mi
}

func sensitivityOf(text string) types.Sensitivity {
	switch {
	case nsflWordRe.MatchString(text):
		return types.SensitivityNSFL
	case nsfwWordRe.MatchString(text):
		return types.SensitivityNSFW
	default:
		return types.SensitivityNone
	}
}

func isBigscreen(u *url.URL) bool {
	return strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/bigscreen") &&
		strings.HasPrefix(u.Fragment, "twitch/")
}

// classifyHost runs the host/path pattern tables. Anything not matched by an
// allow-listed host stays Unsupported; that is the safety boundary.
func classifyHost(u *url.URL, host string) (types.IntentKind, string) {
	// In-site bigscreen hash syntax: /bigscreen#twitch/<channel>
	if isBigscreen(u) {
		return types.KindTwitchBigscreenChannel, strings.TrimPrefix(u.Fragment, "twitch/")
	}

	switch {
	case host == "twitter.com" || host == "x.com" ||
		strings.HasSuffix(host, ".twitter.com") || strings.HasSuffix(host, ".x.com"):
		if m := tweetPathRe.FindStringSubmatch(u.Path); m != nil {
			return types.KindTweet, m[1]
		}

	case host == "youtu.be":
		id := strings.Trim(u.Path, "/")
		if youtubeIDRe.MatchString(id) {
			return types.KindYouTube, id
		}

	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if id := youtubeID(u); id != "" {
			return types.KindYouTube, id
		}

	case host == "twitch.tv" || strings.HasSuffix(host, ".twitch.tv"):
		if m := twitchVideoRe.FindStringSubmatch(u.Path); m != nil {
			return types.KindTwitch, "video:" + m[1]
		}
		if m := channelNameRe.FindStringSubmatch(u.Path); m != nil && !reservedTwitchPath(m[1]) {
			return types.KindTwitch, m[1]
		}

	case host == "kick.com" || strings.HasSuffix(host, ".kick.com"):
		if m := channelNameRe.FindStringSubmatch(u.Path); m != nil {
			return types.KindKick, m[1]
		}

	case host == "imgur.com" || host == "www.imgur.com":
		if m := imgurPageRe.FindStringSubmatch(u.Path); m != nil {
			return types.KindImgur, m[1]
		}

	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		if m := instagramPathRe.FindStringSubmatch(u.Path); m != nil {
			return types.KindInstagram, m[1]
		}

	case host == "redd.it":
		if id := strings.Trim(u.Path, "/"); id != "" && !strings.Contains(id, "/") {
			return types.KindRedditPost, id
		}

	case host == "reddit.com" || strings.HasSuffix(host, ".reddit.com"):
		if u.Path == "/media" {
			if target := u.Query().Get("url"); target != "" {
				return types.KindRedditMediaRedirect, target
			}
			return types.KindUnsupported, ""
		}
		if m := redditPostRe.FindStringSubmatch(u.Path); m != nil {
			return types.KindRedditPost, m[1]
		}

	default:
		if directMediaHosts[host] {
			return classifyDirect(u)
		}
	}
	return types.KindUnsupported, ""
}

func classifyDirect(u *url.URL) (types.IntentKind, string) {
	path := strings.ToLower(u.Path)
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		ext := path[idx:]
		if imageExts[ext] {
			return types.KindDirectImage, ""
		}
		if mime, ok := videoExts[ext]; ok {
			return types.KindDirectVideo, mime
		}
	}
	return types.KindUnsupported, ""
}

func youtubeID(u *url.URL) string {
	if u.Path == "/watch" {
		if id := u.Query().Get("v"); youtubeIDRe.MatchString(id) {
			return id
		}
		return ""
	}
	for _, prefix := range []string{"/shorts/", "/live/", "/embed/"} {
		if strings.HasPrefix(u.Path, prefix) {
			id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
			if youtubeIDRe.MatchString(id) {
				return id
			}
		}
	}
	return ""
}

func reservedTwitchPath(name string) bool {
	switch strings.ToLower(name) {
	case "directory", "videos", "settings", "subscriptions", "wallet", "drops", "search":
		return true
	}
	return false
}
