package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many probes while half-open")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxProbes is the number of calls let through while half-open. That
	// many consecutive successes close the breaker again.
	MaxProbes uint32
	// Interval clears the counts periodically while closed.
	Interval time.Duration
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// Trip decides, after a failure while closed, whether to open.
	Trip func(counts Counts) bool
	// OnStateChange is called with the lock held; it must not call back
	// into the breaker.
	OnStateChange func(name string, from State, to State)
}

// Counts holds the statistics for the current generation.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// ConsecutiveFailures returns a Trip function that opens after n failures in a row.
func ConsecutiveFailures(n uint32) func(Counts) bool {
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

// Breaker fails calls fast once a dependency has failed repeatedly.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

// New creates a closed breaker. Zero settings get defaults: one probe, a one
// minute interval and cooldown, and tripping after five consecutive failures.
func New(name string, settings Settings) *Breaker {
	return newBreaker(name, settings, time.Now)
}

func newBreaker(name string, settings Settings, now func() time.Time) *Breaker {
	if settings.MaxProbes == 0 {
		settings.MaxProbes = 1
	}
	if settings.Interval <= 0 {
		settings.Interval = time.Minute
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = time.Minute
	}
	if settings.Trip == nil {
		settings.Trip = ConsecutiveFailures(5)
	}
	return &Breaker{
		name:     name,
		settings: settings,
		now:      now,
		state:    StateClosed,
		expiry:   now().Add(settings.Interval),
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, _ := b.current(b.now())
	return state
}

// Counts returns a copy of the counts of the current generation.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current(b.now())
	return b.counts
}

// Do runs fn unless the breaker rejects it. A rejected call returns
// ErrCircuitOpen or ErrTooManyRequests without running fn. A panic in fn
// counts as a failure and is re-raised.
func (b *Breaker) Do(fn func() error) error {
	generation, err := b.before()
	if err != nil {
		return err
	}

	ok := false
	defer func() { b.after(generation, ok) }()

	err = fn()
	ok = err == nil
	return err
}

// Execute is Do for calls that produce a value.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	err := b.Do(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, generation := b.current(b.now())
	switch {
	case state == StateOpen:
		return generation, ErrCircuitOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.MaxProbes:
		return generation, ErrTooManyRequests
	}
	b.counts.Requests++
	return generation, nil
}

// after records an outcome. Outcomes from an earlier generation are dropped
// so a slow call cannot close a breaker that has since been reopened.
func (b *Breaker) after(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	state, generation := b.current(now)
	if generation != before {
		return
	}

	if success {
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxProbes {
			b.setState(StateClosed, now)
		}
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	switch state {
	case StateClosed:
		if b.settings.Trip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

// current advances time based transitions. Caller holds mu.
func (b *Breaker) current(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if now.After(b.expiry) {
			b.newGeneration(now)
		}
	case StateOpen:
		if now.After(b.expiry) {
			b.setState(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.newGeneration(now)

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) newGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}
	switch b.state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Cooldown)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}
}
