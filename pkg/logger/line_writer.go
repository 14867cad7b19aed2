package logger

import (
	"bytes"
	"strings"
	"sync"
)

// defaultTailLines is how many trailing lines a LineWriter retains for Tail.
const defaultTailLines = 20

// LineWriter is an io.Writer that emits one debug event per complete line.
// It is meant to sit on a child process' stderr and remembers the last lines
// so they can be attached to an error.
type LineWriter struct {
	logger    Logger
	component string
	data      map[string]interface{}
	keep      int
	onLine    func(string)

	mu   sync.Mutex
	buf  bytes.Buffer
	tail []string
}

// NewLineWriter returns a LineWriter logging through l under component.
// data is attached to every event.
func NewLineWriter(l Logger, component string, data map[string]interface{}) *LineWriter {
	if l == nil {
		l = NewLogger()
	}
	return &LineWriter{logger: l, component: component, data: data, keep: defaultTailLines}
}

// Write implements io.Writer.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		idx := bytes.IndexAny(w.buf.Bytes(), "\r\n")
		if idx < 0 {
			break
		}
		line := string(w.buf.Next(idx + 1)[:idx])
		w.emit(line)
	}
	return len(p), nil
}

// Flush emits whatever partial line is still buffered.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

// OnLine registers fn to be called with every non-empty line after it is
// logged. It must be set before the first Write.
func (w *LineWriter) OnLine(fn func(string)) {
	w.onLine = fn
}

// Tail returns the last retained lines joined by newlines.
func (w *LineWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.tail, "\n")
}

// emit requires w.mu to be held.
func (w *LineWriter) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	w.logger.Debug(line, w.component, w.data)
	if w.onLine != nil {
		w.onLine(line)
	}
	w.tail = append(w.tail, line)
	if len(w.tail) > w.keep {
		w.tail = w.tail[len(w.tail)-w.keep:]
	}
}
