package buildlog

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dialer opens the remote writer for a unit of work.
type Dialer func(ctx context.Context, job JobData) (io.WriteCloser, error)

const streamQueueSize = 256

// StreamMethod queues writes and pumps them to a dialed remote writer.
type StreamMethod struct {
	job  JobData
	dial Dialer
	opts Options

	mu        sync.Mutex
	sink      *streamSink
	openErr   error
	finalized bool

	finalizeOnce sync.Once
	finalizeErr  error
}

// NewStreamMethod creates a stream method for job.
func NewStreamMethod(job JobData, dial Dialer, opts Options) *StreamMethod {
	return &StreamMethod{job: job, dial: dial, opts: opts}
}

// Name implements Method.
func (m *StreamMethod) Name() string { return KindStream }

// Logger implements Method.
func (m *StreamMethod) Logger() (Sink, error) {
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

	conn, err := m.dial(context.Background(), m.job)
	if err != nil {
		m.openErr = &SinkError{Method: m.Name(), Job: m.job, Err: err}
		return nil, m.openErr
	}

	s := &streamSink{
		conn:   conn,
		queue:     make(chan []byte, streamQueueSize),
		done:      make(chan struct{}),
		abandoned: make(chan struct{}),
		handle:    Handle{Kind: KindStream, Job: m.job, Token: uuid.NewString()},
		opts:      m.opts,
	}
	if bps := m.opts.BytesPerSecond; bps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(bps), bps)
	}
	go s.pump()

	m.sink = s
	m.opts.Destinations.add(s)
	m.opts.sinkOpened()
	return s, nil
}

// Finalize implements Method. It stops accepting writes and waits up to the
// drain timeout for queued output. On timeout ErrDrainTimeout is returned,
// writers still blocked on a full queue are released with the same error, and
// the queue keeps draining in the background until the remote writer is
// closed. Concurrent callers wait for the first call and share its result.
func (m *StreamMethod) Finalize() error {
	m.finalizeOnce.Do(func() {
		m.finalizeErr = m.finalize()
	})
	return m.finalizeErr
}

func (m *StreamMethod) finalize() error {
	m.mu.Lock()
	m.finalized = true
	s := m.sink
	m.mu.Unlock()
	if s == nil {
		return nil
	}

	timer := time.NewTimer(m.opts.drainTimeout())
	defer timer.Stop()

	release := sync.OnceFunc(func() {
		m.opts.Destinations.remove(s.handle)
		m.opts.sinkClosed()
	})
	s.stop()
	go func() {
		<-s.done
		release()
	}()

	select {
	case <-s.done:
		release()
		return s.err()
	case <-timer.C:
		s.abandon()
		m.opts.logger().Warn("Build log still draining",
			zap.String("item", m.job.Item),
			zap.Int("number", m.job.Number),
			zap.Int("queued", len(s.queue)))
		return ErrDrainTimeout
	}
}

// Drained is closed once every queued write was delivered and the remote
// writer was closed. It is nil before the sink is opened.
func (m *StreamMethod) Drained() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink == nil {
		return nil
	}
	return m.sink.done
}

type streamSink struct {
	conn      io.WriteCloser
	queue     chan []byte
	done      chan struct{}
	abandoned chan struct{}
	limiter   *rate.Limiter
	handle    Handle
	opts      Options

	// mu guards closed; writers register in inflight while holding it so the
	// queue is closed only after every accepted write was enqueued.
	mu          sync.RWMutex
	closed      bool
	inflight    sync.WaitGroup
	abandonOnce sync.Once

	errMu   sync.Mutex
	pumpErr error
}

func (s *streamSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := append([]byte(nil), p...)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, ErrSinkClosed
	}
	s.inflight.Add(1)
	s.mu.RUnlock()
	defer s.inflight.Done()

	select {
	case s.queue <- buf:
		return len(p), nil
	case <-s.abandoned:
		return 0, ErrDrainTimeout
	}
}

func (s *streamSink) Handle() Handle { return s.handle }

// stop rejects new writes and closes the queue once in-flight writes are
// enqueued or abandoned. It never blocks.
func (s *streamSink) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	go func() {
		s.inflight.Wait()
		close(s.queue)
	}()
}

// abandon releases writers still blocked on a full queue.
func (s *streamSink) abandon() {
	s.abandonOnce.Do(func() { close(s.abandoned) })
}

func (s *streamSink) pump() {
	defer close(s.done)
	for buf := range s.queue {
		if s.err() != nil {
			// The remote side failed; keep draining so writers never block.
			continue
		}
		if err := s.send(buf); err != nil {
			s.setErr(err)
		}
	}
	if err := s.conn.Close(); err != nil {
		s.setErr(err)
	}
}

func (s *streamSink) send(buf []byte) error {
	for len(buf) > 0 {
		chunk := buf
		if s.limiter != nil {
			if burst := s.limiter.Burst(); len(chunk) > burst {
				chunk = chunk[:burst]
			}
			if err := s.limiter.WaitN(context.Background(), len(chunk)); err != nil {
				return err
			}
		}
		n, err := s.conn.Write(chunk)
		s.opts.wrote(KindStream, n)
		if err != nil {
			return err
		}
		if n < len(chunk) {
			return io.ErrShortWrite
		}
		buf = buf[len(chunk):]
	}
	return nil
}

func (s *streamSink) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.pumpErr = errors.Join(s.pumpErr, err)
}

func (s *streamSink) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.pumpErr
}
