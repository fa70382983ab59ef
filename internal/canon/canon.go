// Package canon normalizes and classifies incoming social-media URLs before
// any downloader is invoked, so the fingerprint used for deduplication is
// stable regardless of tracking query strings or host casing.
package canon

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

type Platform string

const (
	PlatformTikTok        Platform = "tiktok"
	PlatformInstagram     Platform = "instagram"
	PlatformYouTubeShorts Platform = "youtube_shorts"
	PlatformUnknown       Platform = "unknown"
)

type Classification string

const (
	ClassificationSingle           Classification = "single"
	ClassificationCarouselCandidate Classification = "carousel_candidate"
	ClassificationUnsupported      Classification = "unsupported"
)

// Normalize strips the query string and fragment, lowercases scheme and
// host, preserves the path, and removes any trailing slash.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

var (
	tiktokHost        = regexp.MustCompile(`(^|\.)tiktok\.com$`)
	instagramHost     = regexp.MustCompile(`(^|\.)instagram\.com$`)
	youtubeHost       = regexp.MustCompile(`(^|\.)(youtube\.com|youtu\.be)$`)
	tiktokPath        = regexp.MustCompile(`^/@[^/]+/video/\d+`)
	instagramReelPath = regexp.MustCompile(`^/(reel|p)/[^/]+`)
	youtubeShortsPath = regexp.MustCompile(`^/shorts/[^/]+`)
	instagramSlide    = regexp.MustCompile(`[?&]img_index=(\d+)`)
)

// DetectPlatform identifies which of the three recognized families a URL
// belongs to by host shape alone; path shape further narrows classify().
func DetectPlatform(raw string) Platform {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	switch {
	case tiktokHost.MatchString(host):
		return PlatformTikTok
	case instagramHost.MatchString(host):
		return PlatformInstagram
	case youtubeHost.MatchString(host):
		return PlatformYouTubeShorts
	default:
		return PlatformUnknown
	}
}

// Classify recognizes the three platform families by host+path shape.
// Carousel candidacy is a hint; the Downloader makes the final call once it
// has fetched the item.
func Classify(raw string) Classification {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ClassificationUnsupported
	}
	platform := DetectPlatform(raw)
	if platform == PlatformUnknown {
		return ClassificationUnsupported
	}

	path := u.Path
	switch platform {
	case PlatformTikTok:
		if tiktokPath.MatchString(path) {
			return ClassificationSingle
		}
		return ClassificationUnsupported
	case PlatformInstagram:
		if instagramReelPath.MatchString(path) {
			return ClassificationCarouselCandidate
		}
		return ClassificationUnsupported
	case PlatformYouTubeShorts:
		if youtubeShortsPath.MatchString(path) {
			return ClassificationSingle
		}
		return ClassificationUnsupported
	default:
		return ClassificationUnsupported
	}
}

// CarouselIndex returns the explicit per-item index a URL encodes, or false
// if the URL carries none (the common case for single-item posts).
func CarouselIndex(raw string) (int, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	m := instagramSlide.FindStringSubmatch("?" + u.RawQuery)
	if len(m) != 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n + 1, true
}
