package circuit_breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Status uint8

const (
	Closed Status = iota + 1
	Open
	HalfOpen
)

func (s Status) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

var ErrOpenCB = errors.New("circuit breaker is open")

// Settings tune a breaker. Window is the number of most recent calls whose
// outcome is kept; the breaker opens once FailureRatio of them failed.
type Settings struct {
	Window       int           `envconfig:"CB_WINDOW" default:"20"`
	FailureRatio float64       `envconfig:"CB_FAILURE_RATIO" default:"0.5"`
	OpenTimeout  time.Duration `envconfig:"CB_OPEN_TIMEOUT" default:"30s"`
	// successful probes in half-open needed to close again
	Probes int `envconfig:"CB_PROBES" default:"2"`

	OnStateChange func(from, to Status) `ignored:"true" json:"-"`
}

type CircuitBreaker interface {
	Call(ctx context.Context, fn func(ctx context.Context) error) error
	State() Status
	Reset()
}

type circuitBreaker struct {
	mu       sync.Mutex
	set      Settings
	state    Status
	openedAt time.Time
	outcomes []bool // true means failed
	pos      int
	probes   int
	now      func() time.Time
}

func New(s Settings) CircuitBreaker {
	return newWithClock(s, time.Now)
}

func newWithClock(s Settings, now func() time.Time) *circuitBreaker {
	if s.Window <= 0 {
		s.Window = 1
	}
	if s.Probes <= 0 {
		s.Probes = 1
	}
	return &circuitBreaker{
		set:      s,
		state:    Closed,
		outcomes: make([]bool, s.Window),
		now:      now,
	}
}

// Call runs fn unless the breaker is open. A call abandoned by the caller
// (context.Canceled) is not recorded as an outcome.
func (cb *circuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn(ctx)
	if errors.Is(err, context.Canceled) {
		return err
	}
	cb.after(err != nil)
	return err
}

func (cb *circuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != Open {
		return nil
	}
	if cb.now().Sub(cb.openedAt) <= cb.set.OpenTimeout {
		return ErrOpenCB
	}
	cb.probes = 0
	cb.setState(HalfOpen)
	return nil
}

func (cb *circuitBreaker) after(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.outcomes[cb.pos] = failed
	cb.pos = (cb.pos + 1) % len(cb.outcomes)

	switch cb.state {
	case HalfOpen:
		if failed {
			cb.trip()
			return
		}
		if cb.probes++; cb.probes >= cb.set.Probes {
			cb.reset()
		}
	case Closed:
		if failed && cb.failureRatio() >= cb.set.FailureRatio {
			cb.trip()
		}
	}
}

func (cb *circuitBreaker) failureRatio() float64 {
	n := 0
	for _, failed := range cb.outcomes {
		if failed {
			n++
		}
	}
	return float64(n) / float64(len(cb.outcomes))
}

func (cb *circuitBreaker) State() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

func (cb *circuitBreaker) trip() {
	cb.openedAt = cb.now()
	cb.setState(Open)
}

func (cb *circuitBreaker) reset() {
	for i := range cb.outcomes {
		cb.outcomes[i] = false
	}
	cb.pos = 0
	cb.probes = 0
	cb.setState(Closed)
}

func (cb *circuitBreaker) setState(to Status) {
	from := cb.state
	cb.state = to
	if from != to && cb.set.OnStateChange != nil {
		cb.set.OnStateChange(from, to)
	}
}
