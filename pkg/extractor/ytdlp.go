package extractor

import (
	"strconv"

	"github.com/heyjunin/StreamGrab/pkg/media"
)

// ytdlpFormat is the subset of a yt-dlp format object we read.
type ytdlpFormat struct {
	FormatID    string            `json:"format_id"`
	FormatNote  string            `json:"format_note"`
	Ext         string            `json:"ext"`
	VCodec      string            `json:"vcodec"`
	ACodec      string            `json:"acodec"`
	Height      float64           `json:"height"`
	URL         string            `json:"url"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

// ytdlpInfo is the --dump-single-json document. Sites without a format list
// describe their single stream at the top level, hence the embedding.
type ytdlpInfo struct {
	ytdlpFormat
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  float64       `json:"duration"`
	Uploader  string        `json:"uploader"`
	Channel   string        `json:"channel"`
	ViewCount int64         `json:"view_count"`
	Formats   []ytdlpFormat `json:"formats"`
}

// toCatalog normalizes the yt-dlp document.
func (info *ytdlpInfo) toCatalog() *media.Catalog {
	c := &media.Catalog{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
		Author:    info.Uploader,
		ViewCount: info.ViewCount,
	}
	if c.Author == "" {
		c.Author = info.Channel
	}

	formats := info.Formats
	if len(formats) == 0 && info.URL != "" {
		formats = []ytdlpFormat{info.ytdlpFormat}
	}

	c.Formats = make([]media.FormatEntry, 0, len(formats))
	for _, f := range formats {
		if f.VCodec == "none" && f.ACodec == "none" {
			continue
		}
		c.Formats = append(c.Formats, f.toEntry())
	}
	return c
}

func (f ytdlpFormat) toEntry() media.FormatEntry {
	height := int(f.Height)
	label := f.FormatNote
	if label == "" {
		if height > 0 {
			label = strconv.Itoa(height) + "p"
		} else {
			label = "Audio"
		}
	}
	return media.FormatEntry{
		ID:           f.FormatID,
		QualityLabel: label,
		Container:    f.Ext,
		HasAudio:     f.ACodec != "none",
		HasVideo:     f.VCodec != "none",
		Height:       height,
		SourceURL:    f.URL,
		Headers:      f.HTTPHeaders,
	}
}
