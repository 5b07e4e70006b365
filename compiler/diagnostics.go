package compiler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chazu/groovypp/ast"
)

// ErrUnsupported is wrapped by diagnostics for constructs the compiler
// refuses to lower.
var ErrUnsupported = errors.New("unsupported construct")

// Severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is a user-facing problem attached to a class or method.
type Diagnostic struct {
	Severity Severity
	Class    string
	Method   string
	Line     int
	Message  string
	// Err is the underlying cause, if any.
	Err error
}

func (d *Diagnostic) Error() string {
	var sb strings.Builder
	if d.Class != "" {
		sb.WriteString(d.Class)
		if d.Method != "" {
			sb.WriteByte('.')
			sb.WriteString(d.Method)
		}
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d", d.Line)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

func (d *Diagnostic) Unwrap() error { return d.Err }

// InternalError wraps a panic recovered while lowering a method.
type InternalError struct {
	Method string
	Value  any
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error in %s: %v", e.Method, e.Value)
}

// Unwrap exposes a panic value that was itself an error.
func (e *InternalError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Diagnostics collects diagnostics from any number of goroutines.
type Diagnostics struct {
	mu         sync.Mutex
	items      []*Diagnostic
	errorCount int
	warnCount  int
}

// NewDiagnostics returns an empty bag.
func NewDiagnostics() *Diagnostics { return &Diagnostics{} }

// Add records d.
func (ds *Diagnostics) Add(d *Diagnostic) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.items = append(ds.items, d)
	switch d.Severity {
	case Error:
		ds.errorCount++
	case Warning:
		ds.warnCount++
	}
}

// HasErrors reports whether any error has been recorded.
func (ds *Diagnostics) HasErrors() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.errorCount > 0
}

// ErrorCount returns the number of errors.
func (ds *Diagnostics) ErrorCount() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.errorCount
}

// WarningCount returns the number of warnings.
func (ds *Diagnostics) WarningCount() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.warnCount
}

// All returns a copy of the recorded diagnostics.
func (ds *Diagnostics) All() []*Diagnostic {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make([]*Diagnostic, len(ds.items))
	copy(out, ds.items)
	return out
}

// Err returns the recorded errors as a *MultipleErrors, or nil.
func (ds *Diagnostics) Err() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.errorCount == 0 {
		return nil
	}
	me := &MultipleErrors{}
	for _, d := range ds.items {
		if d.Severity == Error {
			me.Errors = append(me.Errors, d)
		}
	}
	return me
}

// MultipleErrors reports a batch of compile errors at once.
type MultipleErrors struct {
	Errors []*Diagnostic
}

func (e *MultipleErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d compile errors:", len(e.Errors))
	for _, d := range e.Errors {
		sb.WriteString("\n\t")
		sb.WriteString(d.Error())
	}
	return sb.String()
}

// Unwrap lets errors.Is and errors.As see every contained diagnostic.
func (e *MultipleErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, d := range e.Errors {
		out[i] = d
	}
	return out
}

func classMethod(m *ast.Method) (string, string) {
	if m == nil {
		return "", ""
	}
	owner := ""
	if m.Owner != nil {
		owner = m.Owner.Name
	}
	return owner, m.Name
}
