package buildlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// Log file names inside a build directory.
const (
	LogFile           = "log"
	CompressedLogFile = "log.gz"
)

// FileMethod writes the log to <dir>/log.
type FileMethod struct {
	job  JobData
	dir  string
	opts Options

	mu          sync.Mutex
	sink        *fileSink
	openErr     error
	finalized   bool
	finalizeErr error
}

// NewFileMethod creates a file method for job writing under dir.
func NewFileMethod(job JobData, dir string, opts Options) *FileMethod {
	return &FileMethod{job: job, dir: dir, opts: opts}
}

// Name implements Method.
func (m *FileMethod) Name() string { return KindFile }

// Path returns the uncompressed log path.
func (m *FileMethod) Path() string {
	return filepath.Join(m.dir, LogFile)
}

// Logger implements Method.
func (m *FileMethod) Logger() (Sink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return nil, &SinkError{Method: m.Name(), Job: m.job, Err: ErrSinkClosed}
	}
	if m.sink != nil {
		return m.sink, nil
	}
	if m.openErr != nil {
		return nil, m.openErr
	}

	sink, err := m.open()
	if err != nil {
		m.openErr = &SinkError{Method: m.Name(), Job: m.job, Err: err}
		return nil, m.openErr
	}
	m.sink = sink
	m.opts.Destinations.add(sink)
	m.opts.sinkOpened()
	return sink, nil
}

func (m *FileMethod) open() (*fileSink, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(m.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	size := m.opts.BufferSize
	if size <= 0 {
		size = 4096
	}
	return &fileSink{
		f:      f,
		w:      bufio.NewWriterSize(f, size),
		handle: Handle{Kind: KindFile, Job: m.job, Path: m.Path()},
		wrote:  func(n int) { m.opts.wrote(KindFile, n) },
	}, nil
}

// Finalize implements Method. Method state is locked before the sink so a
// write in flight completes before the file is flushed and closed.
func (m *FileMethod) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return m.finalizeErr
	}
	m.finalized = true
	if m.sink == nil {
		return nil
	}

	err := m.sink.close()
	m.opts.Destinations.remove(m.sink.handle)
	m.opts.sinkClosed()
	if err == nil && m.opts.Compress {
		err = compress(m.Path(), filepath.Join(m.dir, CompressedLogFile))
	}
	if err != nil {
		m.finalizeErr = fmt.Errorf("finalize %s: %w", m.Path(), err)
	}
	return m.finalizeErr
}

type fileSink struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	closed bool
	handle Handle
	wrote  func(int)
}

func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSinkClosed
	}
	n, err := s.w.Write(p)
	s.wrote(n)
	return n, err
}

func (s *fileSink) Handle() Handle { return s.handle }

func (s *fileSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	ferr := s.w.Flush()
	serr := s.f.Sync()
	cerr := s.f.Close()
	return errors.Join(ferr, serr, cerr)
}

// compress gzips src into dst and removes src.
func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := errors.Join(gz.Close(), out.Close()); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
