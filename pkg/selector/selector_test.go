package selector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/heyjunin/StreamGrab/pkg/media"
)

func entry(id string, height int, video, audio bool) media.FormatEntry {
	return media.FormatEntry{
		ID:        id,
		Height:    height,
		HasVideo:  video,
		HasAudio:  audio,
		Container: "mp4",
		SourceURL: "https://media.example.com/" + id,
	}
}

func testCatalog() *media.Catalog {
	return &media.Catalog{
		Title: "clip",
		Formats: []media.FormatEntry{
			entry("139", 0, false, true),
			entry("140", 0, false, true),
			entry("18", 360, true, true),
			entry("135", 480, true, false),
			entry("137", 1080, true, false),
		},
	}
}

func TestSelectAudioToken(t *testing.T) {
	sel, err := Select(testCatalog(), media.AudioFormatID)
	require.NoError(t, err)

	assert.Equal(t, AudioOutput, sel.Kind)
	assert.Nil(t, sel.Video)
	require.NotNil(t, sel.Audio)
	assert.Equal(t, "140", sel.Audio.ID, "last audio-only entry wins")
	assert.False(t, sel.NeedsMux)
}

func TestSelectAudioTokenWithoutAudioSource(t *testing.T) {
	c := &media.Catalog{Formats: []media.FormatEntry{entry("18", 360, true, true)}}

	_, err := Select(c, media.AudioFormatID)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.FormatNotFound))

	se, _ := errors.As(err)
	assert.Equal(t, errors.ErrNoAudioSource, se.Code)
}

func TestSelectMuxedEntry(t *testing.T) {
	sel, err := Select(testCatalog(), "18")
	require.NoError(t, err)

	assert.Equal(t, VideoOutput, sel.Kind)
	require.NotNil(t, sel.Video)
	assert.Equal(t, "18", sel.Video.ID)
	assert.Nil(t, sel.Audio)
	assert.False(t, sel.NeedsMux)
}

func TestSelectVideoOnlyPairsAudio(t *testing.T) {
	sel, err := Select(testCatalog(), "135")
	require.NoError(t, err)

	require.NotNil(t, sel.Video)
	assert.Equal(t, "135", sel.Video.ID)
	require.NotNil(t, sel.Audio)
	assert.Equal(t, "140", sel.Audio.ID)
	assert.True(t, sel.NeedsMux)
}

func TestSelectUnknownFallsBackToHighestVideo(t *testing.T) {
	for _, id := range []string{"does-not-exist", ""} {
		sel, err := Select(testCatalog(), id)
		require.NoError(t, err)
		require.NotNil(t, sel.Video)
		assert.Equal(t, "137", sel.Video.ID)
		assert.True(t, sel.NeedsMux)
	}
}

func TestSelectExplicitAudioOnlyID(t *testing.T) {
	sel, err := Select(testCatalog(), "139")
	require.NoError(t, err)

	assert.Equal(t, AudioOutput, sel.Kind)
	require.NotNil(t, sel.Audio)
	assert.Equal(t, "139", sel.Audio.ID)
}

func TestSelectSkipsEntriesWithoutSourceURL(t *testing.T) {
	c := testCatalog()
	c.Formats[4].SourceURL = ""
	c.Formats[1].SourceURL = ""

	sel, err := Select(c, "137")
	require.NoError(t, err)
	assert.Equal(t, "135", sel.Video.ID)
	assert.Equal(t, "139", sel.Audio.ID)
}

func TestSelectNoVideoAtAll(t *testing.T) {
	c := &media.Catalog{Formats: []media.FormatEntry{entry("140", 0, false, true)}}

	_, err := Select(c, "137")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.FormatNotFound))

	_, err = Select(nil, "137")
	assert.True(t, errors.IsType(err, errors.FormatNotFound))
}

func TestSelectVideoOnlyWithoutAnyAudio(t *testing.T) {
	c := &media.Catalog{Formats: []media.FormatEntry{entry("137", 1080, true, false)}}

	sel, err := Select(c, "137")
	require.NoError(t, err)
	assert.Nil(t, sel.Audio)
	assert.False(t, sel.NeedsMux)
}

func TestBestVideoTieGoesToLast(t *testing.T) {
	formats := []media.FormatEntry{
		entry("a", 720, true, false),
		entry("b", 720, true, true),
		entry("c", 360, true, true),
	}

	best, ok := BestVideo(formats)
	require.True(t, ok)
	assert.Equal(t, "b", best.ID)
}

// A mux is never requested without a paired audio source, whatever the catalog.
func TestSelectNeverMuxesWithoutAudio(t *testing.T) {
	catalogs := []*media.Catalog{
		testCatalog(),
		{Formats: []media.FormatEntry{entry("137", 1080, true, false)}},
		{Formats: []media.FormatEntry{entry("137", 1080, true, false), entry("140", 0, false, true)}},
		{Formats: []media.FormatEntry{entry("18", 360, true, true), entry("22", 720, true, true)}},
		{Formats: []media.FormatEntry{entry("140", 0, false, true)}},
	}
	ids := []string{"", "137", "18", "22", "140", "mp3", "unknown"}

	for _, c := range catalogs {
		hasAudioOnly := false
		for _, f := range c.Formats {
			if f.AudioOnly() {
				hasAudioOnly = true
			}
		}
		for _, id := range ids {
			sel, err := Select(c, id)
			if err != nil {
				continue
			}
			if sel.NeedsMux {
				assert.NotNil(t, sel.Audio, "id %q", id)
			}
			if sel.Video != nil && !sel.Video.HasAudio && hasAudioOnly {
				assert.True(t, sel.NeedsMux, "id %q", id)
			}
		}
	}
}

func TestValidateFormatID(t *testing.T) {
	for _, id := range []string{"", "137", media.AudioFormatID, "hls-1080p", "dash-video_eng=1000000", "137+140"} {
		assert.NoError(t, ValidateFormatID(id), id)
	}
	for _, id := range []string{"18; rm -rf /", "../137", "a b", strings.Repeat("9", 65)} {
		err := ValidateFormatID(id)
		require.Error(t, err, id)
		se, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.InvalidInput, se.Type)
		assert.Equal(t, errors.ErrInvalidFormatID, se.Code)
	}
}
