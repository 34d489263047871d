package executor

import (
	"bytes"
	"io"
	"sync"
)

// outputBuffer collects a process stream as it is produced. Writes
// come from the pipe pump goroutine while reads may come from the
// grader thread (live display, handle polling), so all access is
// locked. An optional tee writer gets every chunk as it arrives.
type outputBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	tee io.Writer
}

func newOutputBuffer(tee io.Writer) *outputBuffer {
	return &outputBuffer{tee: tee}
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	n, err := b.buf.Write(p)
	b.mu.Unlock()
	if b.tee != nil {
		_, _ = b.tee.Write(p)
	}
	return n, err
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
