package intent

import (
	"testing"

	"embed-server/internal/types"
)

func classify(t *testing.T, url string, mutate ...func(*Input)) types.MediaIntent {
	t.Helper()
	in := Input{
		URL:         url,
		AnchorID:    "a1",
		ContainerID: "m1",
		Settings:    types.DefaultSettings(),
	}
	for _, m := range mutate {
		m(&in)
	}
	return Classify(in)
}

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		kind     types.IntentKind
		sourceID string
	}{
		{"tweet", "https://twitter.com/someone/status/12345", types.KindTweet, "12345"},
		{"tweet x.com", "https://x.com/someone/statuses/987", types.KindTweet, "987"},
		{"tweet mobile", "https://mobile.twitter.com/a/status/42", types.KindTweet, "42"},
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", types.KindYouTube, "dQw4w9WgXcQ"},
		{"youtube short url", "https://youtu.be/dQw4w9WgXcQ", types.KindYouTube, "dQw4w9WgXcQ"},
		{"youtube shorts", "https://www.youtube.com/shorts/abc123xyz", types.KindYouTube, "abc123xyz"},
		{"twitch channel", "https://www.twitch.tv/somestreamer", types.KindTwitch, "somestreamer"},
		{"twitch vod", "https://www.twitch.tv/videos/123456789", types.KindTwitch, "video:123456789"},
		{"kick channel", "https://kick.com/somestreamer", types.KindKick, "somestreamer"},
		{"imgur gallery", "https://imgur.com/gallery/aB3dE9", types.KindImgur, "aB3dE9"},
		{"imgur album", "https://imgur.com/a/aB3dE9", types.KindImgur, "aB3dE9"},
		{"instagram post", "https://www.instagram.com/p/Cxyz_123/", types.KindInstagram, "Cxyz_123"},
		{"instagram reel", "https://instagram.com/reel/Babc-456", types.KindInstagram, "Babc-456"},
		{"reddit post", "https://www.reddit.com/r/golang/comments/1abc2d/title_here/", types.KindRedditPost, "1abc2d"},
		{"reddit shortlink", "https://redd.it/1abc2d", types.KindRedditPost, "1abc2d"},
		{"direct image", "https://i.imgur.com/abc.jpg", types.KindDirectImage, ""},
		{"direct video mp4", "https://files.catbox.moe/clip.mp4", types.KindDirectVideo, "video/mp4"},
		{"direct video webm", "https://i.redd.it/clip.webm", types.KindDirectVideo, "video/webm"},
		{"shortlink", "https://t.co/AbCdEf", types.KindPicShortlink, ""},
		{"bigscreen hash", "https://example.com/app/bigscreen#twitch/somestreamer", types.KindTwitchBigscreenChannel, "somestreamer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mi := classify(t, tc.url)
			if mi.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q", mi.Kind, tc.kind)
			}
			if mi.SourceID != tc.sourceID {
				t.Errorf("sourceID = %q, want %q", mi.SourceID, tc.sourceID)
			}
		})
	}
}

func TestClassifyUnknownHostsStayUnsupported(t *testing.T) {
	// The host allow-list is the safety boundary: a media-looking URL on an
	// unknown host must never classify.
	urls := []string{
		"https://evil.example.com/cat.jpg",
		"https://evil.example.com/clip.mp4",
		"https://not-twitter.com/a/status/123",
		"https://twitch.tv.evil.com/somestreamer",
		"ftp://i.imgur.com/abc.jpg",
		"not a url at all",
	}
	for _, u := range urls {
		if mi := classify(t, u); mi.Supported() {
			t.Errorf("%s classified as %q, want unsupported", u, mi.Kind)
		}
	}
}

func TestClassifySchemeGate(t *testing.T) {
	// Direct media URLs land in src attributes without a fetch step, so
	// non-web schemes must be rejected at classification time.
	rejected := []string{
		"ftp://i.imgur.com/abc.jpg",
		"data:image/png;base64,AAAA",
		"javascript:alert(1)",
		"file:///etc/passwd",
		"//i.imgur.com/abc.jpg",
	}
	for _, u := range rejected {
		if mi := classify(t, u); mi.Supported() {
			t.Errorf("%s classified as %q, want unsupported", u, mi.Kind)
		}
	}

	// The host-relative bigscreen hash link is the one scheme-less form
	// that still classifies.
	mi := classify(t, "/app/bigscreen#twitch/somestreamer")
	if mi.Kind != types.KindTwitchBigscreenChannel || mi.SourceID != "somestreamer" {
		t.Fatalf("relative bigscreen link = %q/%q", mi.Kind, mi.SourceID)
	}
}

func TestClassifyReservedTwitchPaths(t *testing.T) {
	if mi := classify(t, "https://www.twitch.tv/directory"); mi.Supported() {
		t.Fatalf("reserved path classified as %q", mi.Kind)
	}
}

func TestClassifySourceMarkerSkipped(t *testing.T) {
	mi := classify(t, "https://twitter.com/a/status/1", func(in *Input) {
		in.AnchorText = " (source) "
	})
	if mi.Supported() {
		t.Fatalf("citation link classified as %q", mi.Kind)
	}
}

func TestClassifyLoggedOutSkipped(t *testing.T) {
	mi := classify(t, "https://twitter.com/a/status/1", func(in *Input) {
		in.LoggedOut = true
	})
	if mi.Supported() {
		t.Fatalf("logged-out page classified as %q", mi.Kind)
	}
}

func TestClassifySensitivity(t *testing.T) {
	mi := classify(t, "https://i.imgur.com/abc.jpg", func(in *Input) {
		in.ContainerText = "careful, NSFW content"
	})
	if mi.Sensitivity != types.SensitivityNSFW {
		t.Fatalf("sensitivity = %q, want nsfw", mi.Sensitivity)
	}

	// nsfl outranks nsfw when both appear
	mi = classify(t, "https://i.imgur.com/abc.jpg", func(in *Input) {
		in.ContainerText = "nsfw and honestly nsfl"
	})
	if mi.Sensitivity != types.SensitivityNSFL {
		t.Fatalf("sensitivity = %q, want nsfl", mi.Sensitivity)
	}

	// the word must stand alone
	mi = classify(t, "https://i.imgur.com/abc.jpg", func(in *Input) {
		in.ContainerText = "transfers for the nsfwiki"
	})
	if mi.Sensitivity != types.SensitivityNone {
		t.Fatalf("sensitivity = %q, want none", mi.Sensitivity)
	}
}

func TestClassifyHiddenSensitivity(t *testing.T) {
	hideNSFW := func(in *Input) {
		in.Settings.HideNSFW = true
		in.ContainerText = "nsfw"
	}

	if mi := classify(t, "https://i.imgur.com/abc.jpg", hideNSFW); mi.Supported() {
		t.Fatalf("hidden-sensitivity link classified as %q", mi.Kind)
	}

	// show-removed overrides every hide flag
	mi := classify(t, "https://i.imgur.com/abc.jpg", hideNSFW, func(in *Input) {
		in.Settings.ShowRemoved = true
	})
	if mi.Kind != types.KindDirectImage {
		t.Fatalf("show-removed link = %q, want direct image", mi.Kind)
	}
}

func TestClassifySettingsGates(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		mutate func(*Input)
	}{
		{"tweets off", "https://twitter.com/a/status/1", func(in *Input) { in.Settings.EmbedTweets = false }},
		{"shortlink follows tweet gate", "https://t.co/abc", func(in *Input) { in.Settings.EmbedTweets = false }},
		{"media off", "https://i.imgur.com/abc.jpg", func(in *Input) { in.Settings.EmbedMedia = false }},
		{"imgur follows media gate", "https://imgur.com/gallery/aB3dE9", func(in *Input) { in.Settings.EmbedMedia = false }},
		{"youtube off", "https://youtu.be/dQw4w9WgXcQ", func(in *Input) { in.Settings.EmbedYouTube = false }},
		{"twitch off", "https://www.twitch.tv/somestreamer", func(in *Input) { in.Settings.EmbedTwitch = false }},
		{"kick off", "https://kick.com/somestreamer", func(in *Input) { in.Settings.EmbedKick = false }},
		{"instagram off", "https://instagram.com/p/Cxyz/", func(in *Input) { in.Settings.EmbedInstagram = false }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if mi := classify(t, tc.url, tc.mutate); mi.Supported() {
				t.Fatalf("classified as %q with feature off", mi.Kind)
			}
		})
	}
}

func TestClassifyRedditMediaRedirect(t *testing.T) {
	mi := classify(t, "https://www.reddit.com/media?url=https%3A%2F%2Fi.redd.it%2Fabc.jpg")
	if mi.Kind != types.KindRedditMediaRedirect {
		t.Fatalf("kind = %q, want reddit media redirect", mi.Kind)
	}
	if mi.SourceID != "https://i.redd.it/abc.jpg" {
		t.Errorf("sourceID = %q", mi.SourceID)
	}

	if mi := classify(t, "https://www.reddit.com/media"); mi.Supported() {
		t.Fatal("redirect without target classified")
	}
}
