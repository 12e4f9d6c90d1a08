package script

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

type evalResult struct {
	result *Result
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, giving up after timeout. A
// result whose generation is no longer current is discarded.
//
// On timeout the goroutine may still be running; the generation check
// drops its result when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
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
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.result, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}

// errAbandoned is returned by save once Evaluate has given up on the
// evaluation that called it.
var errAbandoned = errors.New("evaluation abandoned, nothing written")

// writeGuard serializes filesystem writes from an evaluation with the
// moment Evaluate returns. After close, no write is in flight and none
// will start, so callers may remove the engine directory.
type writeGuard struct {
	mu     sync.Mutex
	closed bool
}

// do runs write unless the guard is closed. A nil guard always runs it.
func (g *writeGuard) do(write func() error) error {
	if g == nil {
		return write()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return errAbandoned
	}
	return write()
}

// close waits for a write in progress and refuses later ones.
func (g *writeGuard) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}
