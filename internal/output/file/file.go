package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/output"
)

const (
	defaultBufSize = 64 * 1024
	maxBackups     = 9
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size in bytes past which the history file is
// rotated. 0 disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output appends one JSON line per result bundle to a history file.
// Repeated runs accumulate in the same file until it is rotated.
type Output struct {
	mu      sync.Mutex
	w       *bufio.Writer
	f       *os.File
	path    string
	maxSize int64
	written int64
	bufSize int
}

// New opens (or creates) path for appending.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{path: path, bufSize: defaultBufSize}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) Write(_ context.Context, res *model.Result) error {
	data, err := json.Marshal(output.FormatResult(res))
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.maxSize > 0 && o.written > 0 && o.written+int64(len(data)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}
	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.written = info.Size()
	return nil
}

// rotate shifts path.N to path.N+1, moves the current file to path.1 and
// reopens path. The oldest backup past maxBackups is overwritten.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}
	for i := maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", o.path, i)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, fmt.Sprintf("%s.%d", o.path, i+1)); err != nil {
			return err
		}
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}
	return o.open()
}
