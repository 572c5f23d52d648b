package types

// Settings mirrors the external settings store: a small record of booleans
// gating each intent kind plus display behavior. Read by every classifier and
// resolver call; written only by the settings-update notification handler.
type Settings struct {
	EmbedTweets    bool `json:"embed_tweets"`
	EmbedMedia     bool `json:"embed_media"` // direct files, imgur, reddit
	EmbedYouTube   bool `json:"embed_youtube"`
	EmbedTwitch    bool `json:"embed_twitch"`
	EmbedKick      bool `json:"embed_kick"`
	EmbedInstagram bool `json:"embed_instagram"`

	BlurAll  bool `json:"blur_all"`  // spoiler-overlay every media item
	HideNSFW bool `json:"hide_nsfw"` // suppress NSFW-labelled links entirely
	HideNSFL bool `json:"hide_nsfl"`

	// ShowRemoved is the page-level control that re-allows links whose
	// sensitivity would otherwise be hidden.
	ShowRemoved bool `json:"show_removed"`
}

// DefaultSettings enables every embed kind and hides nothing.
func DefaultSettings() Settings {
	return Settings{
		EmbedTweets:    true,
		EmbedMedia:     true,
		EmbedYouTube:   true,
		EmbedTwitch:    true,
		EmbedKick:      true,
		EmbedInstagram: true,
	}
}

// Allows reports whether embedding is enabled for the given kind.
func (s Settings) Allows(kind IntentKind) bool {
	switch kind {
	case KindTweet, KindPicShortlink:
		return s.EmbedTweets
	case KindDirectImage, KindDirectVideo, KindImgur, KindRedditPost, KindRedditMediaRedirect:
		return s.EmbedMedia
	case KindYouTube:
		return s.EmbedYouTube
	case KindTwitch, KindTwitchBigscreenChannel:
		return s.EmbedTwitch
	case KindKick:
		return s.EmbedKick
	case KindInstagram:
		return s.EmbedInstagram
	default:
		return false
	}
}

// Hides reports whether links carrying the given sensitivity label must be
// suppressed before resolution. The page-level show-removed control wins over
// the hide flags.
func (s Settings) Hides(sens Sensitivity) bool {
	if s.ShowRemoved {
		return false
	}
	switch sens {
	case SensitivityNSFW:
		return s.HideNSFW
	case SensitivityNSFL:
		return s.HideNSFL
	default:
		return false
	}
}
