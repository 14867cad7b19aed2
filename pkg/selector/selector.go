package selector

import (
	"regexp"

	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/media"
)

// OutputKind is the kind of file the relay produces for a Selection.
type OutputKind string

const (
	// AudioOutput is an mp3 file transcoded from an audio-only source.
	AudioOutput OutputKind = "audio"
	// VideoOutput is a fragmented mp4 file.
	VideoOutput OutputKind = "video"
)

// formatIDPattern covers the identifiers yt-dlp emits, e.g. "137",
// "hls-1080p" or "dash-video_eng=1000000".
var formatIDPattern = regexp.MustCompile(`^[A-Za-z0-9._=+-]{1,64}$`)

// ValidateFormatID rejects identifiers that no extractor produces. The empty
// id is valid and asks for the best video.
func ValidateFormatID(id string) error {
	if id == "" || formatIDPattern.MatchString(id) {
		return nil
	}
	return errors.Newf(errors.InvalidInput, errors.ErrInvalidFormatID, "expected letters, digits or ._=+-")
}

// Selection names the concrete streams needed to satisfy a request.
type Selection struct {
	// Video is nil for audio output.
	Video *media.FormatEntry
	// Audio is the separate audio source. It is set for audio output and
	// whenever the video entry has no audio track of its own.
	Audio *media.FormatEntry
	// NeedsMux is true when Video and Audio are separate inputs that must be
	// interleaved. It is never true without an Audio source.
	NeedsMux bool
	Kind     OutputKind
}

// Select picks the streams for requestedID out of c.
//
// The reserved id media.AudioFormatID selects the best-effort audio-only
// entry. Any other id is looked up directly; when it is missing or empty the
// highest video entry is used instead. An explicitly requested audio-only id
// produces audio output from that entry. A video entry without audio is
// paired with the best-effort audio-only entry.
func Select(c *media.Catalog, requestedID string) (Selection, error) {
	if c == nil {
		return Selection{}, errors.Newf(errors.FormatNotFound, errors.ErrNoMatchingFormat, "empty catalog")
	}

	if requestedID == media.AudioFormatID {
		audio, ok := BestAudio(c.Formats)
		if !ok {
			return Selection{}, errors.Newf(errors.FormatNotFound, errors.ErrNoAudioSource, "no audio-only entry with a source URL")
		}
		return Selection{Audio: &audio, Kind: AudioOutput}, nil
	}

	video, ok := findFetchable(c.Formats, requestedID)
	if ok && video.AudioOnly() {
		return Selection{Audio: &video, Kind: AudioOutput}, nil
	}
	if !ok {
		video, ok = BestVideo(c.Formats)
	}
	if !ok {
		return Selection{}, errors.Newf(errors.FormatNotFound, errors.ErrNoVideoSource, "requested format: "+requestedID)
	}

	sel := Selection{Video: &video, Kind: VideoOutput}
	if !video.HasAudio {
		if audio, found := BestAudio(c.Formats); found {
			sel.Audio = &audio
			sel.NeedsMux = true
		}
	}
	return sel, nil
}

// BestAudio returns the last fetchable audio-only entry in catalog order.
// Callers must not rely on which of several equivalent entries wins.
func BestAudio(formats []media.FormatEntry) (media.FormatEntry, bool) {
	for i := len(formats) - 1; i >= 0; i-- {
		if formats[i].AudioOnly() && formats[i].Fetchable() {
			return formats[i], true
		}
	}
	return media.FormatEntry{}, false
}

// BestVideo returns the fetchable entry with a video track and the greatest
// height. Ties go to the entry listed last, which is how the extraction tool
// orders formats from worst to best.
func BestVideo(formats []media.FormatEntry) (media.FormatEntry, bool) {
	best := -1
	for i, f := range formats {
		if !f.HasVideo || !f.Fetchable() {
			continue
		}
		if best < 0 || f.Height >= formats[best].Height {
			best = i
		}
	}
	if best < 0 {
		return media.FormatEntry{}, false
	}
	return formats[best], true
}

func findFetchable(formats []media.FormatEntry, id string) (media.FormatEntry, bool) {
	if id == "" {
		return media.FormatEntry{}, false
	}
	for _, f := range formats {
		if f.ID == id && f.Fetchable() {
			return f, true
		}
	}
	return media.FormatEntry{}, false
}
