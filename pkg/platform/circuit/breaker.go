// Package circuit provides a count-based circuit breaker for external
// dependencies. Callers record outcomes; the breaker decides when to route
// around the dependency and when to resume.
package circuit

import "sync"

// State is the breaker position.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 1
)

// StateChange reports a transition caused by the recorded outcome, so callers
// can log or count transitions without polling.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker tracks consecutive failures and successes for one named dependency.
// A success in the closed state resets the failure count; a failure in the
// open state resets the recovery count.
type Breaker struct {
	mu   sync.Mutex
	name string

	failureThreshold int
	successThreshold int

	state     State
	failures  int
	successes int
}

type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open
// circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// RecordFailure counts one failed call. It returns whether the caller should
// use its fallback, and any state transition this failure caused.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successes = 0
		return true, StateChange{}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.failures = 0
		b.successes = 0
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess counts one successful call. It returns whether the caller
// should use the primary path, and any state transition this success caused.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		b.failures = 0
		return true, StateChange{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		return true, StateChange{Closed: true}
	}
	return false, StateChange{}
}

// Reset forces the breaker closed and clears all counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
