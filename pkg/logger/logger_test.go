package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(msg string, _ string, _ map[string]interface{}) {
	r.lines = append(r.lines, msg)
}
func (r *recordingLogger) Info(string, string, map[string]interface{})  {}
func (r *recordingLogger) Warn(string, string, map[string]interface{})  {}
func (r *recordingLogger) Error(string, string, map[string]interface{}) {}
func (r *recordingLogger) Fatal(string, string, map[string]interface{}) {}

func TestInitWithWriterEmitsJSON(t *testing.T) {
	var out bytes.Buffer
	InitWithWriter("debug", &out)
	defer InitWithWriter("info", &bytes.Buffer{})

	Info("extraction finished", "extractor", map[string]interface{}{"formats": 3})

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &event))
	assert.Equal(t, "info", event["level"])
	assert.Equal(t, "extractor", event["component"])
	assert.Equal(t, "extraction finished", event["message"])
	assert.EqualValues(t, 3, event["formats"])
}

func TestInitLevelFiltersDebug(t *testing.T) {
	var out bytes.Buffer
	InitWithWriter("warn", &out)
	defer InitWithWriter("info", &bytes.Buffer{})

	Debug("hidden", "test", nil)
	Info("hidden too", "test", nil)
	Warn("shown", "test", nil)

	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), "shown")
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, "info", parseLevel("loud").String())
	assert.Equal(t, "debug", parseLevel(" DEBUG ").String())
	assert.Equal(t, "info", parseLevel("").String())
}

func TestLineWriterSplitsLines(t *testing.T) {
	rec := &recordingLogger{}
	w := NewLineWriter(rec, "ffmpeg", nil)

	_, err := w.Write([]byte("frame=  10 fps=0.0\rframe=  20"))
	require.NoError(t, err)
	_, err = w.Write([]byte(" fps=25\nInput #0, mov\n\npartial"))
	require.NoError(t, err)

	assert.Equal(t, []string{"frame=  10 fps=0.0", "frame=  20 fps=25", "Input #0, mov"}, rec.lines)

	w.Flush()
	assert.Equal(t, "partial", rec.lines[len(rec.lines)-1])
}

func TestLineWriterTail(t *testing.T) {
	w := NewLineWriter(&recordingLogger{}, "ytdlp", nil)
	for i := 0; i < defaultTailLines+5; i++ {
		_, _ = w.Write([]byte("noise\n"))
	}
	_, _ = w.Write([]byte("ERROR: [youtube] abc: Video unavailable\n"))

	tail := w.Tail()
	assert.Equal(t, defaultTailLines, strings.Count(tail, "\n")+1)
	assert.True(t, strings.HasSuffix(tail, "ERROR: [youtube] abc: Video unavailable"))
}

func TestLineWriterOnLine(t *testing.T) {
	var seen []string
	w := NewLineWriter(&recordingLogger{}, "ffmpeg", nil)
	w.OnLine(func(line string) { seen = append(seen, line) })

	_, _ = w.Write([]byte("frame=1 time=00:00:01.00\rframe=2 time=00:00:02.00\r\n"))

	assert.Equal(t, []string{"frame=1 time=00:00:01.00", "frame=2 time=00:00:02.00"}, seen)
}
