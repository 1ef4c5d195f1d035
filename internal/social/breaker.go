package social

import (
	"sync"
	"time"
)

type state int

const (
	closed state = iota
	open
	halfOpen
)

// Breaker stops calling a failing upstream for openFor after failThreshold
// consecutive failures, then lets a single trial call through.
type Breaker struct {
	mu               sync.Mutex
	st               state
	consecutiveFails int
	failThreshold    int
	openFor          time.Duration
	nextTryAt        time.Time
	trialInFlight    bool
	now              func() time.Time
}

// NewBreaker returns a closed breaker that opens after threshold consecutive failures.
func NewBreaker(threshold int, openFor time.Duration) *Breaker {
	return &Breaker{failThreshold: threshold, openFor: openFor, now: time.Now}
}

// TryAcquire reports whether a call may proceed. While open it admits one
// trial call once openFor has elapsed.
func (b *Breaker) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case closed:
		return true
	case open:
		if b.now().After(b.nextTryAt) && !b.trialInFlight {
			b.st = halfOpen
			b.trialInFlight = true
			return true
		}
		return false
	case halfOpen:
		if !b.trialInFlight {
			b.trialInFlight = true
			return true
		}
		return false
	default:
		return true
	}
}

// OnSuccess closes the breaker and resets the failure count.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	b.consecutiveFails = 0
	b.st = closed
	b.trialInFlight = false
	b.mu.Unlock()
}

// OnFailure records a failed call. A failed trial call reopens the breaker.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == halfOpen {
		b.trip()
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.failThreshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.st = open
	b.nextTryAt = b.now().Add(b.openFor)
	b.trialInFlight = false
}
