// Package engine runs mesh pipeline scripts. Scripts are zygomys Lisp
// evaluated in a fresh sandbox per call; builtins build solids, load and
// clean meshes, refine them and emit named results.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/quadsplit/pkg/kernel"
	"github.com/chazu/quadsplit/pkg/kernel/sdfx"
	"github.com/chazu/quadsplit/pkg/mesh"
	zygo "github.com/glycerine/zygomys/zygo"
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

// Output is a mesh a script emitted under a name.
type Output struct {
	Name string
	Mesh *mesh.Mesh
}

// Result holds the meshes a script emitted, in emission order.
type Result struct {
	Outputs []Output
}

// Output returns the mesh emitted under name, or nil.
func (r *Result) Output(name string) *mesh.Mesh {
	for _, o := range r.Outputs {
		if o.Name == name {
			return o.Mesh
		}
	}
	return nil
}

// Engine evaluates scripts. It is safe for concurrent use; each call to
// Evaluate creates a fresh sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	kernel  kernel.Kernel
	timeout time.Duration
	baseDir string
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel sets the kernel used by the solid builtins.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) { e.kernel = k }
}

// WithTimeout sets the evaluation time limit. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithBaseDir sets the directory `load` resolves relative paths against.
// Scripts cannot load files outside it.
func WithBaseDir(dir string) Option {
	return func(e *Engine) { e.baseDir = dir }
}

// NewEngine creates an Engine. Without options it uses the sdfx kernel,
// DefaultTimeout and the working directory.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, baseDir: "."}
	for _, o := range opts {
		o(e)
	}
	if e.kernel == nil {
		e.kernel = sdfx.New()
	}
	return e
}

// Evaluate runs a script and collects the meshes it emits.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()

		res, evalErrs, err := e.evaluate(source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, e.timeout, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Result, []EvalError, error) {
	// Empty source is a valid program that emits nothing.
	if strings.TrimSpace(source) == "" {
		return &Result{}, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls;
	// `load` is the only way in and it is confined to baseDir.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	st := &state{kernel: e.kernel, baseDir: e.baseDir}
	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return &Result{Outputs: st.outputs}, nil, nil
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
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
