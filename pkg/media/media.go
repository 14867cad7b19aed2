// Package media holds the request-scoped catalog model shared by the extractor,
// the selector and the HTTP layer.
package media

import "strconv"

// AudioFormatID is the reserved format identifier meaning "audio only, best effort".
const AudioFormatID = "mp3"

// Catalog is the normalized description of one source URL. It is produced per
// request and never persisted.
type Catalog struct {
	Title     string
	Thumbnail string
	Duration  float64
	Author    string
	ViewCount int64
	Formats   []FormatEntry
}

// FormatEntry is one encoded stream reported by the extraction tool.
// SourceURL and Headers are only ever used server-side.
type FormatEntry struct {
	ID           string
	QualityLabel string
	Container    string
	HasAudio     bool
	HasVideo     bool
	Height       int // 0 when unknown
	SourceURL    string
	Headers      map[string]string
}

// AudioOnly reports whether the entry carries audio and no video.
func (f FormatEntry) AudioOnly() bool {
	return f.HasAudio && !f.HasVideo
}

// Fetchable reports whether the entry has a source URL the transcoder can pull.
func (f FormatEntry) Fetchable() bool {
	return f.SourceURL != ""
}

// QualityKey is the key the listing deduplicates on: "<height>p" when the
// height is known, the quality label otherwise.
func (f FormatEntry) QualityKey() string {
	if f.Height > 0 {
		return strconv.Itoa(f.Height) + "p"
	}
	return f.QualityLabel
}

// Find returns the entry with the given identifier.
func (c *Catalog) Find(id string) (FormatEntry, bool) {
	for _, f := range c.Formats {
		if f.ID == id {
			return f, true
		}
	}
	return FormatEntry{}, false
}
