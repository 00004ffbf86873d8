package media

import (
	"fmt"
	"strings"
)

// VideoBitsPerSecond is the target video bitrate for every export
const VideoBitsPerSecond = 8_000_000

// Profile is an encoding profile selectable for an export.
// The set is closed: WebM with VP9 or VP8.
type Profile int

const (
	// VP9 encodes VP9 video into a WebM container
	VP9 Profile = iota
	// VP8 encodes VP8 video into a WebM container
	VP8
)

// Profiles lists every selectable profile in display order
func Profiles() []Profile {
	return []Profile{VP9, VP8}
}

// Label returns the user-facing name of the profile
func (p Profile) Label() string {
	switch p {
	case VP9:
		return "WebM (VP9)"
	case VP8:
		return "WebM (VP8)"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// String implements fmt.Stringer
func (p Profile) String() string {
	return p.Label()
}

// Codec returns the short codec name
func (p Profile) Codec() string {
	switch p {
	case VP9:
		return "vp9"
	case VP8:
		return "vp8"
	default:
		return ""
	}
}

// MimeType returns the full encoder configuration string
func (p Profile) MimeType() string {
	return BaseMimeType + ";codecs=" + p.Codec()
}

// BaseMimeType returns the container mime type without codec parameters
func (p Profile) BaseMimeType() string {
	return strings.SplitN(p.MimeType(), ";", 2)[0]
}

// Valid reports whether p is one of the known profiles
func (p Profile) Valid() bool {
	return p == VP9 || p == VP8
}

// BaseMimeType is the container type of every artifact
const BaseMimeType = "video/webm"

// ParseProfile resolves a short codec name, a label or a mime string
func ParseProfile(s string) (Profile, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, p := range Profiles() {
		if needle == p.Codec() || needle == strings.ToLower(p.Label()) || needle == p.MimeType() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedProfile, s)
}

// SuggestedFilename returns the download name for an export of original
func SuggestedFilename(original string) string {
	if original == "" {
		original = "video"
	}
	return "trimmed_" + original + ".webm"
}
