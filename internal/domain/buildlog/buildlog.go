package buildlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/config"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/id"
)

var (
	// ErrSinkClosed is returned for writes after the sink was finalized.
	ErrSinkClosed = errors.New("log sink closed")
	// ErrDrainTimeout is returned by Finalize when queued output did not
	// drain within the grace period. Draining continues in the background.
	ErrDrainTimeout = errors.New("log drain timed out")
	// ErrUnknownDestination is returned by Reattach for a handle with no live sink.
	ErrUnknownDestination = errors.New("unknown log destination")
)

// Handle kinds.
const (
	KindFile   = "file"
	KindStream = "stream"
)

// JobData describes the unit of work a log belongs to. Methods never modify it.
type JobData struct {
	Item    string     `json:"item"`
	Number  int        `json:"number"`
	BuildID id.BuildID `json:"build_id"`
}

func (j JobData) String() string {
	return fmt.Sprintf("%s #%d", j.Item, j.Number)
}

// Sink is the writer for one unit of work.
type Sink interface {
	io.Writer
	Handle() Handle
}

// Method produces and releases the sink of one unit of work.
type Method interface {
	// Name identifies the method in logs and metrics.
	Name() string
	// Logger returns the sink, opening it on first use. Later calls return
	// the same sink.
	Logger() (Sink, error)
	// Finalize flushes and releases the sink. Only the first call does work;
	// later calls return the first result.
	Finalize() error
}

// SinkError reports a sink that could not be opened.
type SinkError struct {
	Method string
	Job    JobData
	Err    error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("open %s log for %s: %v", e.Method, e.Job, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Handle is a serializable reference to a sink destination.
type Handle struct {
	Kind  string  `json:"kind"`
	Job   JobData `json:"job"`
	Path  string  `json:"path,omitempty"`
	Token string  `json:"token,omitempty"`
}

func (h Handle) key() string {
	if h.Kind == KindFile {
		return KindFile + ":" + h.Path
	}
	return h.Kind + ":" + h.Token
}

// Reattach returns a writer for the same destination as the sink that
// produced h. A live sink registered in dest is returned as is. A file
// handle with no live sink is reopened for appending; the caller must Close
// the returned sink, which implements io.Closer in that case.
func (h Handle) Reattach(dest *Destinations) (Sink, error) {
	if dest != nil {
		if s, ok := dest.lookup(h); ok {
			return s, nil
		}
	}
	switch h.Kind {
	case KindFile:
		f, err := os.OpenFile(h.Path, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("reattach %s: %w", h.Path, err)
		}
		return &appendSink{File: f, handle: h}, nil
	case KindStream:
		return nil, fmt.Errorf("%w: stream %s", ErrUnknownDestination, h.Token)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnknownDestination, h.Kind)
	}
}

type appendSink struct {
	*os.File
	handle Handle
}

func (s *appendSink) Handle() Handle { return s.handle }

// EncodeHandle serializes h.
func EncodeHandle(h Handle) ([]byte, error) {
	return sonic.Marshal(h)
}

// DecodeHandle parses a handle produced by EncodeHandle.
func DecodeHandle(data []byte) (Handle, error) {
	var h Handle
	if err := sonic.Unmarshal(data, &h); err != nil {
		return Handle{}, fmt.Errorf("failed to decode log handle: %w", err)
	}
	switch {
	case h.Kind == KindFile && h.Path != "":
	case h.Kind == KindStream && h.Token != "":
	default:
		return Handle{}, fmt.Errorf("%w: incomplete handle %q", ErrUnknownDestination, h.Kind)
	}
	return h, nil
}

// Destinations is the table of live sinks used by Reattach.
type Destinations struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewDestinations creates an empty table.
func NewDestinations() *Destinations {
	return &Destinations{sinks: make(map[string]Sink)}
}

func (d *Destinations) add(s Sink) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.sinks[s.Handle().key()] = s
	d.mu.Unlock()
}

func (d *Destinations) remove(h Handle) {
	if d == nil {
		return
	}
	d.mu.Lock()
	delete(d.sinks, h.key())
	d.mu.Unlock()
}

func (d *Destinations) lookup(h Handle) (Sink, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sinks[h.key()]
	return s, ok
}

// Len returns the number of live sinks.
func (d *Destinations) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sinks)
}

// Options configure the methods. Zero values are valid.
type Options struct {
	Compress       bool
	BufferSize     int
	DrainTimeout   time.Duration
	BytesPerSecond int
	Destinations   *Destinations
	Metrics        *monitoring.Metrics
	Logger         *logging.Logger
}

// OptionsFrom builds options from the build log configuration.
func OptionsFrom(cfg config.BuildLogConfig) Options {
	return Options{
		Compress:       cfg.Compress,
		BufferSize:     cfg.BufferSize,
		DrainTimeout:   cfg.DrainTimeout,
		BytesPerSecond: cfg.StreamBytesPS,
	}
}

func (o Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

func (o Options) drainTimeout() time.Duration {
	if o.DrainTimeout <= 0 {
		return 5 * time.Second
	}
	return o.DrainTimeout
}

func (o Options) sinkOpened() {
	if o.Metrics != nil {
		o.Metrics.SinkOpened()
	}
}

func (o Options) sinkClosed() {
	if o.Metrics != nil {
		o.Metrics.SinkClosed()
	}
}

func (o Options) wrote(method string, n int) {
	if o.Metrics != nil && n > 0 {
		o.Metrics.AddBytesWritten(method, n)
	}
}

// Execute runs work against the sink of m. A sink that cannot be opened fails
// the unit of work. The method is always finalized; a finalize failure is
// logged and counted but does not change the result of work.
func Execute(ctx context.Context, m Method, opts Options, work func(ctx context.Context, w io.Writer) error) (err error) {
	log := opts.logger()
	defer func() {
		if ferr := m.Finalize(); ferr != nil {
			log.Warn("Failed to finalize build log", zap.String("method", m.Name()), zap.Error(ferr))
			if opts.Metrics != nil {
				opts.Metrics.IncFinalizeErrors(m.Name())
			}
		}
	}()

	sink, err := m.Logger()
	if err != nil {
		return err
	}
	return work(ctx, sink)
}
