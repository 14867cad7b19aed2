package relay

import (
	"sort"
	"strings"

	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/media"
	"github.com/heyjunin/StreamGrab/pkg/selector"
)

// BuildArgs returns the ffmpeg argument list for sel. The output is always
// written to stdout. extra is placed just before the output format.
func BuildArgs(sel selector.Selection, extra []string) ([]string, error) {
	args := []string{"-hide_banner", "-nostdin"}

	switch sel.Kind {
	case selector.AudioOutput:
		if sel.Audio == nil {
			return nil, errors.Newf(errors.TranscodeFailed, errors.ErrEmptySelection, "audio output without an audio source")
		}
		args = appendInput(args, sel.Audio)
		args = append(args, "-vn", "-c:a", "libmp3lame", "-q:a", "2")
		args = append(args, extra...)
		args = append(args, "-f", "mp3", "pipe:1")

	case selector.VideoOutput:
		if sel.Video == nil {
			return nil, errors.Newf(errors.TranscodeFailed, errors.ErrEmptySelection, "video output without a video source")
		}
		args = appendInput(args, sel.Video)
		if sel.NeedsMux && sel.Audio != nil {
			args = appendInput(args, sel.Audio)
			args = append(args, "-c:v", "copy", "-c:a", "aac", "-map", "0:v:0", "-map", "1:a:0")
		} else {
			args = append(args, "-c:v", "copy", "-c:a", "copy")
		}
		args = append(args, "-movflags", "frag_keyframe+empty_moov")
		args = append(args, extra...)
		args = append(args, "-f", "mp4", "pipe:1")

	default:
		return nil, errors.Newf(errors.TranscodeFailed, errors.ErrEmptySelection, "unknown output kind "+string(sel.Kind))
	}

	return args, nil
}

// appendInput adds "-headers" (when the origin wants any) and "-i" for f.
func appendInput(args []string, f *media.FormatEntry) []string {
	if h := headerBlock(f.Headers); h != "" {
		args = append(args, "-headers", h)
	}
	return append(args, "-i", f.SourceURL)
}

// headerBlock renders headers in the CRLF-terminated form ffmpeg expects,
// sorted by name.
func headerBlock(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
		b.WriteString("\r\n")
	}
	return b.String()
}

// ContentType is the MIME type of the bytes produced for kind.
func ContentType(kind selector.OutputKind) string {
	if kind == selector.AudioOutput {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// Extension is the file extension, without the dot, for kind.
func Extension(kind selector.OutputKind) string {
	if kind == selector.AudioOutput {
		return "mp3"
	}
	return "mp4"
}
