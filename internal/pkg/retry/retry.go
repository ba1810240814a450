// Package retry classifies job errors and computes backoff delays between attempts.
package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// PermanentError indicates that an error should not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	if e == nil || e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error to indicate it should not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent checks if an error is permanent (should not be retried).
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// Backoff configures exponential delays between attempts.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
	// Multiplier defaults to 2.
	Multiplier float64
	// JitterFactor in [0,1] spreads the delay by +/- that fraction.
	JitterFactor float64
}

// Delay returns the wait before the attempt following attempt number `attempt` (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := float64(b.Base) * math.Pow(mult, float64(attempt-1))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.JitterFactor > 0 {
		j := math.Min(b.JitterFactor, 1)
		delta := d * j
		d = d - delta + rand.Float64()*2*delta
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
