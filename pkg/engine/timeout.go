package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout is the limit for a single evaluation when none is
// configured.
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")

	// ErrSuperseded is returned when a newer evaluation started on the same
	// engine before this one finished.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

// evalResult passes evaluation results through channels.
type evalResult struct {
	result *Result
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns ErrTimeout if the
// evaluation exceeds timeout. It uses a generation counter to discard stale
// results from previous evaluations.
//
// On timeout the goroutine may still be running; the generation check
// discards its result when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Result, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.result, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
