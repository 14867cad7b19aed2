package extractor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/heyjunin/StreamGrab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "title": "Big Buck Bunny",
  "thumbnail": "https://i.example/bbb.jpg",
  "duration": 596.5,
  "uploader": "Blender",
  "view_count": 12345,
  "formats": [
    {"format_id": "sb0", "format_note": "storyboard", "ext": "mhtml", "vcodec": "none", "acodec": "none", "url": "https://cdn.example/sb"},
    {"format_id": "140", "format_note": "medium", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "height": null, "url": "https://cdn.example/140",
     "http_headers": {"User-Agent": "Mozilla/5.0"}},
    {"format_id": "18", "format_note": "", "ext": "mp4", "vcodec": "avc1", "acodec": "mp4a", "height": 360, "url": "https://cdn.example/18"},
    {"format_id": "137", "ext": "mp4", "vcodec": "avc1.640028", "acodec": "none", "height": 1080, "url": "https://cdn.example/137"},
    {"format_id": "hls-audio", "ext": "mp4", "vcodec": "none", "acodec": "aac", "url": "https://cdn.example/hls"}
  ]
}`

// fakeYtDlp writes an executable stand-in for yt-dlp.
func fakeYtDlp(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a unix shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "info.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGetInfoNormalizesFormats(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeYtDlp(t, `printf '%s\n' "$@" > `+argsFile+`
cat `+writeFixture(t, fixture))

	c := New(Options{Binary: bin})
	catalog, err := c.GetInfo(context.Background(), "https://www.youtube.com/watch?v=aqz-KE-bpKQ")
	require.NoError(t, err)

	assert.Equal(t, "Big Buck Bunny", catalog.Title)
	assert.Equal(t, "https://i.example/bbb.jpg", catalog.Thumbnail)
	assert.Equal(t, 596.5, catalog.Duration)
	assert.Equal(t, "Blender", catalog.Author)
	assert.Equal(t, int64(12345), catalog.ViewCount)

	require.Len(t, catalog.Formats, 4, "storyboard entry must be dropped")

	audio := catalog.Formats[0]
	assert.Equal(t, "140", audio.ID)
	assert.Equal(t, "medium", audio.QualityLabel)
	assert.True(t, audio.AudioOnly())
	assert.Equal(t, 0, audio.Height)
	assert.Equal(t, map[string]string{"User-Agent": "Mozilla/5.0"}, audio.Headers)

	muxed := catalog.Formats[1]
	assert.Equal(t, "360p", muxed.QualityLabel)
	assert.True(t, muxed.HasAudio)
	assert.True(t, muxed.HasVideo)

	videoOnly := catalog.Formats[2]
	assert.Equal(t, "1080p", videoOnly.QualityLabel)
	assert.False(t, videoOnly.HasAudio)
	assert.Equal(t, "https://cdn.example/137", videoOnly.SourceURL)

	assert.Equal(t, "Audio", catalog.Formats[3].QualityLabel)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "--dump-single-json\n--no-playlist\n--no-warnings\n--skip-download\n--\nhttps://www.youtube.com/watch?v=aqz-KE-bpKQ\n", string(recorded))
}

func TestGetInfoSingleFormatDocument(t *testing.T) {
	doc := `{"title": "clip", "channel": "someone", "format_id": "0", "ext": "mp4", "url": "https://cdn.example/clip.mp4", "height": 720}`
	bin := fakeYtDlp(t, "cat "+writeFixture(t, doc))

	catalog, err := New(Options{Binary: bin}).GetInfo(context.Background(), "https://example.com/clip")
	require.NoError(t, err)

	assert.Equal(t, "someone", catalog.Author)
	require.Len(t, catalog.Formats, 1)
	assert.Equal(t, "0", catalog.Formats[0].ID)
	assert.Equal(t, 720, catalog.Formats[0].Height)
	assert.True(t, catalog.Formats[0].HasAudio, "missing codec fields count as present")
	assert.True(t, catalog.Formats[0].HasVideo)
}

func TestGetInfoRejectsBadURLWithoutSpawning(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	bin := fakeYtDlp(t, "touch "+marker)
	c := New(Options{Binary: bin})

	for _, raw := range []string{"", "   ", "ftp://example.com/x", "not a url", "https://", "--exec=rm"} {
		_, err := c.GetInfo(context.Background(), raw)
		require.Error(t, err, raw)
		assert.True(t, errors.IsType(err, errors.InvalidInput), raw)
	}

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGetInfoNonZeroExit(t *testing.T) {
	bin := fakeYtDlp(t, `echo 'ERROR: [youtube] abc: Video unavailable' >&2
exit 1`)

	_, err := New(Options{Binary: bin}).GetInfo(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.Error(t, err)

	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ExtractionError, se.Type)
	assert.Equal(t, errors.ErrExtractorExitStatus, se.Code)
	assert.Contains(t, se.Details, "Video unavailable")
}

func TestGetInfoMalformedJSON(t *testing.T) {
	bin := fakeYtDlp(t, `echo '{"title": '`)

	_, err := New(Options{Binary: bin}).GetInfo(context.Background(), "https://example.com/v")
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrExtractorBadOutput, se.Code)
}

func TestGetInfoMissingBinary(t *testing.T) {
	c := New(Options{Binary: filepath.Join(t.TempDir(), "nope")})

	_, err := c.GetInfo(context.Background(), "https://example.com/v")
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ExtractionError, se.Type)
	assert.Equal(t, errors.ErrExtractorStartFailed, se.Code)
}

func TestGetInfoTimeout(t *testing.T) {
	bin := fakeYtDlp(t, "exec sleep 10")
	c := New(Options{Binary: bin, Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := c.GetInfo(context.Background(), "https://example.com/v")
	assert.Less(t, time.Since(start), 5*time.Second)

	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrExtractorTimeout, se.Code)
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://youtu.be/abc"))
	assert.NoError(t, ValidateURL(" http://example.com/watch?v=1 "))

	err := ValidateURL("")
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrMissingURL, se.Code)

	err = ValidateURL("file:///etc/passwd")
	se, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrUnsupportedScheme, se.Code)
	assert.True(t, strings.Contains(se.Details, "file"))
}
