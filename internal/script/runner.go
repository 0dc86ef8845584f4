package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stepundo/internal/engine"
	"github.com/dshills/stepundo/internal/engine/jsondoc"
	"github.com/dshills/stepundo/internal/logging"
)

// Default limits for a script run.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultCallStackSize = 256
)

// Runner executes scripts against one engine.
//
// A Runner may be shared between goroutines; every run uses its own Lua
// state, and the engine and editor serialize their own access.
type Runner struct {
	engine *engine.Engine
	json   *jsondoc.Editor
	logger *logging.Logger

	timeout       time.Duration
	callStackSize int
}

// Option configures a Runner.
type Option func(*Runner)

// WithDocument attaches a JSON editor, exposed to scripts as doc.
func WithDocument(ed *jsondoc.Editor) Option {
	return func(r *Runner) {
		r.json = ed
	}
}

// WithTimeout bounds each run. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithCallStackSize sets the Lua call stack size.
func WithCallStackSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.callStackSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner for e.
func NewRunner(e *engine.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:        e,
		timeout:       DefaultTimeout,
		callStackSize: DefaultCallStackSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNull(r.logger).WithComponent("script")
	return r
}

// Result describes a finished run.
type Result struct {
	// Name is the script name or path.
	Name string
	// Output holds the lines written with print.
	Output []string
	// Text is the buffer content after the run.
	Text string
	// JSON is the document content after the run, if an editor is attached.
	JSON string
	// UndoCount and RedoCount are the buffer history sizes after the run.
	UndoCount int
	RedoCount int
	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// RunFile reads and runs the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) (*Result, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return r.Run(ctx, filepath.Base(path), string(code))
}

// Run executes code. The returned Result is populated even when the
// script fails, reflecting whatever edits were committed before the error.
func (r *Runner) Run(ctx context.Context, name, code string) (*Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: r.callStackSize,
	})
	defer L.Close()
	L.SetContext(ctx)

	s := &session{L: L, runner: r}
	s.install()

	start := time.Now()
	runErr := s.protect(func() error { return L.DoString(code) })
	res := r.result(name, s, time.Since(start))

	if runErr != nil {
		err := s.wrap(ctx, name, runErr)
		r.logger.Debug("script %s failed: %v", name, err)
		return res, err
	}
	r.logger.Debug("script %s finished in %s", name, res.Elapsed)
	return res, nil
}

func (r *Runner) result(name string, s *session, elapsed time.Duration) *Result {
	res := &Result{
		Name:      name,
		Output:    s.output,
		Text:      r.engine.Text(),
		UndoCount: r.engine.UndoCount(),
		RedoCount: r.engine.RedoCount(),
		Elapsed:   elapsed,
	}
	if r.json != nil {
		res.JSON = r.json.String()
	}
	return res
}

// session is the state of a single run.
type session struct {
	L      *lua.LState
	runner *Runner

	// Open transactions; nil outside one.
	btx *engine.Tx
	dtx *jsondoc.Tx

	output []string

	// lastErr is the most recent Go error raised into Lua.
	lastErr error
}

func (s *session) install() {
	lua.OpenBase(s.L)
	lua.OpenTable(s.L)
	lua.OpenString(s.L)
	lua.OpenMath(s.L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.L.SetGlobal("print", s.L.NewFunction(s.print))
	s.L.SetGlobal("buf", s.bufModule())
	s.L.SetGlobal("doc", s.docModule())
}

func (s *session) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	s.output = append(s.output, strings.Join(parts, "\t"))
	return 0
}

// raise reports err to Lua. It does not return.
func (s *session) raise(err error) {
	s.lastErr = err
	s.L.RaiseError("%s", err.Error())
}

// call invokes a Lua function with no arguments in protected mode.
func (s *session) call(fn *lua.LFunction) error {
	return s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
}

func (s *session) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

func (s *session) wrap(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &Error{Script: name, Message: ErrTimeout.Error(), Err: ErrTimeout}
		}
		return &Error{Script: name, Message: ctxErr.Error(), Err: ctxErr}
	}
	msg := message(err)
	var cause error
	if s.lastErr != nil && strings.Contains(msg, s.lastErr.Error()) {
		cause = s.lastErr
	}
	return &Error{Script: name, Message: msg, Err: cause}
}

// message strips the traceback from a Lua error.
func message(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	return err.Error()
}
