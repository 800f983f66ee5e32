// Package classify decides what kind of media URL an input string denotes.
// Classification is pure and never touches the network.
package classify

import "regexp"

// Kind is the classification of an input string
type Kind string

const (
	KindInvalid  Kind = "invalid"
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
)

var (
	// youtu.be/<id> short links
	shortLinkRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtu\.be/([A-Za-z0-9_-]{11})(?:[?&#].*)?$`)

	// youtube.com/watch?v=<id> canonical links
	watchRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?youtube\.com/watch\?(?:.*&)?v=([A-Za-z0-9_-]{11})(?:[&#].*)?$`)

	// any youtube URL carrying a list identifier
	listRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?(?:youtube\.com|youtu\.be)/.*[?&]list=([A-Za-z0-9_-]+)`)

	playlistPageRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?youtube\.com/playlist\?(?:.*&)?list=([A-Za-z0-9_-]+)`)
)

// Classify reports whether raw is a valid media URL and whether it denotes a
// single video or a playlist. A playlist marker wins even when a video id is
// also present, since a playlist URL may embed a starting item.
func Classify(raw string) Kind {
	if raw == "" {
		return KindInvalid
	}
	if listRegex.MatchString(raw) || playlistPageRegex.MatchString(raw) {
		return KindPlaylist
	}
	if shortLinkRegex.MatchString(raw) || watchRegex.MatchString(raw) {
		return KindVideo
	}
	return KindInvalid
}

// VideoID extracts the 11-character video identifier from a single-video URL.
// Returns "" when raw is not a video URL.
func VideoID(raw string) string {
	if m := shortLinkRegex.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := watchRegex.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

// PlaylistID extracts the list identifier from a playlist URL.
// Returns "" when raw carries no list marker.
func PlaylistID(raw string) string {
	if m := playlistPageRegex.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := listRegex.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}
