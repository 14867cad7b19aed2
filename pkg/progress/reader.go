package progress

import "io"

// Reader counts bytes flowing through an io.Reader and reports them.
type Reader struct {
	r     io.Reader
	rep   Reporter
	step  string
	stage string
	n     int64
}

// NewReader wraps r. A nil rep only counts.
func NewReader(r io.Reader, rep Reporter, step, stage string) *Reader {
	return &Reader{r: r, rep: rep, step: step, stage: stage}
}

// Read implements io.Reader.
func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.n += int64(n)
		if pr.rep != nil {
			pr.rep.Update(pr.n, pr.step, pr.stage)
		}
	}
	return n, err
}

// N returns the number of bytes read so far.
func (pr *Reader) N() int64 {
	return pr.n
}
