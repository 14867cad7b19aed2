package media

import (
	"regexp"
	"strings"
)

var (
	unsafeTitleChars = regexp.MustCompile(`[^A-Za-z0-9_\s-]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// maxTitleLen keeps "<title>.<ext>" under common 255 byte filesystem limits.
const maxTitleLen = 200

// SafeTitle strips a title down to ASCII word characters, spaces and dashes
// so it can be used in a Content-Disposition header and as a file name.
func SafeTitle(title string) string {
	cleaned := unsafeTitleChars.ReplaceAllString(title, "")
	cleaned = strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))
	if len(cleaned) > maxTitleLen {
		cleaned = strings.TrimSpace(cleaned[:maxTitleLen])
	}
	if cleaned == "" {
		return "video"
	}
	return cleaned
}

// Filename returns the attachment name for a title and extension.
func Filename(title, ext string) string {
	return SafeTitle(title) + "." + ext
}
