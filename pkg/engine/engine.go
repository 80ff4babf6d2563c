// Package engine provides the script evaluation engine for usdlive.
// It wraps zygomys in a sandboxed environment and produces a prim forest
// from user source code, which can then be written out as USDA text.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"

	"github.com/chazu/usdlive/pkg/scene"
	"github.com/chazu/usdlive/pkg/usda"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	generation atomic.Uint64
	timeout    time.Duration
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger used for evaluation diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate takes script source and produces the prims it defines.
// Prims that were never passed to another prim as a child are returned as
// roots, in the order they were created.
//
// Return semantics:
//   - On success: returns prims + nil errors + nil error
//   - On parse/eval failure: returns nil prims + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) ([]*scene.Prim, []EvalError, error) {
	gen := e.generation.Add(1)

	ch := make(chan evalResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		prims, evalErrs, err := e.evaluate(source)
		ch <- evalResult{prims: prims, errors: evalErrs, err: err}
	}()

	prims, evalErrs, err := await(ch, gen, &e.generation, e.timeout)
	e.log.Debug("script evaluated",
		zap.Uint64("generation", gen),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("roots", len(prims)),
		zap.Int("errors", len(evalErrs)),
		zap.Error(err))
	return prims, evalErrs, err
}

// EvaluateUSDA evaluates source and writes the resulting prims as a USDA
// layer. The text is empty whenever Evaluate reports errors.
func (e *Engine) EvaluateUSDA(source string) (string, []EvalError, error) {
	prims, evalErrs, err := e.Evaluate(source)
	if err != nil || len(evalErrs) > 0 {
		return "", evalErrs, err
	}
	return usda.Format(prims), nil, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) ([]*scene.Prim, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return []*scene.Prim{}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	return b.roots(), nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
