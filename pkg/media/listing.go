package media

import "strconv"

// Info is the client-facing rendition of a Catalog, as served by GET /info.
type Info struct {
	Title        string        `json:"title"`
	Thumbnail    string        `json:"thumbnail"`
	VideoDetails VideoDetails  `json:"videoDetails"`
	Formats      []FormatLabel `json:"formats"`
}

// VideoDetails carries the descriptive metadata of the source.
type VideoDetails struct {
	Author        string `json:"author"`
	LengthSeconds string `json:"lengthSeconds"`
	ViewCount     string `json:"viewCount"`
}

// FormatLabel is one selectable option. Source URLs are never part of it.
type FormatLabel struct {
	QualityLabel string `json:"qualityLabel"`
	Itag         string `json:"itag"`
	Container    string `json:"container"`
	HasAudio     bool   `json:"hasAudio"`
	HasVideo     bool   `json:"hasVideo"`
}

// AudioOption is the synthetic entry appended to every listing.
var AudioOption = FormatLabel{
	QualityLabel: "Audio Only (MP3)",
	Itag:         AudioFormatID,
	Container:    "mp3",
	HasAudio:     true,
	HasVideo:     false,
}

// NewInfo builds the listing for c: deduplicated video options, highest first,
// followed by the audio-only option.
func NewInfo(c *Catalog) Info {
	listing := VideoListing(c.Formats)
	labels := make([]FormatLabel, 0, len(listing)+1)
	for _, f := range listing {
		labels = append(labels, FormatLabel{
			QualityLabel: f.QualityKey(),
			Itag:         f.ID,
			Container:    f.Container,
			HasAudio:     f.HasAudio,
			HasVideo:     f.HasVideo,
		})
	}
	labels = append(labels, AudioOption)

	return Info{
		Title:     c.Title,
		Thumbnail: c.Thumbnail,
		VideoDetails: VideoDetails{
			Author:        c.Author,
			LengthSeconds: strconv.FormatInt(int64(c.Duration), 10),
			ViewCount:     strconv.FormatInt(c.ViewCount, 10),
		},
		Formats: labels,
	}
}
