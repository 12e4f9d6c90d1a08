// Package script provides a small Lisp for building and editing meshes.
// It wraps zygomys in a sandboxed environment; programs load STL files,
// model solids through a kernel, and save the results.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/stlkit/pkg/kernel"
	"github.com/chazu/stlkit/pkg/kernel/sdfx"
	"github.com/chazu/stlkit/pkg/mesh"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the output of a successful evaluation.
type Result struct {
	// Meshes holds the meshes named with defmesh, in definition order.
	Meshes []*mesh.Mesh
	// Written lists the files written by save, in call order.
	Written []string
}

// Lookup returns the mesh defined under name, or nil.
func (r *Result) Lookup(name string) *mesh.Mesh {
	m, _ := lo.Find(r.Meshes, func(m *mesh.Mesh) bool { return m.Name == name })
	return m
}

// define adds m under its name. Redefining a name replaces the earlier
// mesh in place.
func (r *Result) define(m *mesh.Mesh) {
	_, i, ok := lo.FindIndexOf(r.Meshes, func(o *mesh.Mesh) bool { return o.Name == m.Name })
	if ok {
		r.Meshes[i] = m
		return
	}
	r.Meshes = append(r.Meshes, m)
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment.
type Engine struct {
	// Kernel models box, cylinder and friends. Nil means an sdfx kernel
	// with the default resolution.
	Kernel kernel.Kernel
	// Dir is the directory load and save resolve relative paths against.
	// When set, paths may not escape it.
	Dir string
	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine rooted at dir.
func NewEngine(dir string) *Engine {
	return &Engine{Dir: dir}
}

func (e *Engine) kernel() kernel.Kernel {
	if e.Kernel == nil {
		return sdfx.New(sdfx.DefaultCells)
	}
	return e.Kernel
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout <= 0 {
		return EvalTimeout
	}
	return e.Timeout
}

// Evaluate runs source in a fresh sandbox.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
//
// Files written by save before a failure stay on disk. Once Evaluate has
// returned, an evaluation still running after a timeout can no longer
// write files.
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	guard := &writeGuard{}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, evalErrs, err := e.evaluate(source, guard)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	res, evalErrs, err := waitWithTimeout(ch, gen, e.timeout(), &e.mu, &e.generation)
	guard.close()
	return res, evalErrs, err
}

func (e *Engine) evaluate(source string, guard *writeGuard) (*Result, []EvalError, error) {
	res := &Result{}
	if strings.TrimSpace(source) == "" {
		return res, nil, nil
	}

	// The sandbox keeps user code away from the filesystem; load and save
	// go through the builtins instead.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &builtins{
		kernel: e.kernel(),
		dir:    e.Dir,
		result: res,
		writes: guard,
	})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return res, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
