package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chazu/usdlive/pkg/scene"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned when a newer Evaluate call started while
	// this one was running.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// evalResult carries one sandbox run back to the caller.
type evalResult struct {
	prims  []*scene.Prim
	errors []EvalError
	err    error
}

// await returns the result from ch unless limit passes first or latest has
// moved past gen. A timed-out sandbox keeps running in its goroutine; its
// result lands in the buffered channel and is dropped.
func await(ch <-chan evalResult, gen uint64, latest *atomic.Uint64, limit time.Duration) ([]*scene.Prim, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	case res := <-ch:
		if latest.Load() != gen {
			return nil, nil, ErrSuperseded
		}
		return res.prims, res.errors, res.err
	}
}
