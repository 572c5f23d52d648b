package util

// External service URLs
const (
	// YouTubeEmbedBaseURL is the base URL for YouTube embeds (privacy-enhanced mode)
	YouTubeEmbedBaseURL = "https://www.youtube-nocookie.com/embed"

	// TwitchEmbedBaseURL is the base URL for Twitch player embeds
	TwitchEmbedBaseURL = "https://player.twitch.tv"

	// KickEmbedBaseURL is the base URL for Kick player embeds
	KickEmbedBaseURL = "https://player.kick.com"
)
