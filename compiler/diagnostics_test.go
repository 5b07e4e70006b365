package compiler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestDiagnosticError(t *testing.T) {
	tests := []struct {
		d    *Diagnostic
		want string
	}{
		{&Diagnostic{Severity: Error, Class: "demo.A", Method: "run", Line: 3, Message: "boom"}, "demo.A.run:3: error: boom"},
		{&Diagnostic{Severity: Warning, Class: "demo.A", Message: "odd"}, "demo.A: warning: odd"},
		{&Diagnostic{Severity: Error, Message: "bare"}, "error: bare"},
	}
	for _, tt := range tests {
		if got := tt.d.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestDiagnosticsErr(t *testing.T) {
	ds := NewDiagnostics()
	ds.Add(&Diagnostic{Severity: Warning, Message: "just a warning"})
	if err := ds.Err(); err != nil {
		t.Fatalf("warnings alone produced %v", err)
	}

	ds.Add(&Diagnostic{Severity: Error, Message: "first", Err: ErrUnsupported})
	ds.Add(&Diagnostic{Severity: Error, Message: "second"})

	if ds.ErrorCount() != 2 || ds.WarningCount() != 1 {
		t.Errorf("counts = %d errors, %d warnings", ds.ErrorCount(), ds.WarningCount())
	}
	err := ds.Err()
	if !errors.Is(err, ErrUnsupported) {
		t.Error("errors.Is does not see the wrapped cause")
	}
	var me *MultipleErrors
	if !errors.As(err, &me) || len(me.Errors) != 2 {
		t.Fatalf("err = %#v", err)
	}
	if !strings.HasPrefix(err.Error(), "2 compile errors:") {
		t.Errorf("message = %q", err.Error())
	}
	var d *Diagnostic
	if !errors.As(err, &d) || d.Message != "first" {
		t.Errorf("errors.As(*Diagnostic) = %v", d)
	}
}

func TestDiagnosticsConcurrentAdd(t *testing.T) {
	ds := NewDiagnostics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds.Add(&Diagnostic{Severity: Severity(i % 2), Message: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()
	if got := len(ds.All()); got != 50 {
		t.Errorf("recorded %d diagnostics, want 50", got)
	}
	if ds.ErrorCount() != 25 || ds.WarningCount() != 25 {
		t.Errorf("counts = %d/%d, want 25/25", ds.ErrorCount(), ds.WarningCount())
	}
}

func TestInternalErrorUnwrap(t *testing.T) {
	cause := errors.New("index out of range")
	err := &InternalError{Method: "demo.A.run()V", Value: cause}
	if !errors.Is(err, cause) {
		t.Error("InternalError hides an error panic value")
	}
	if (&InternalError{Value: "text"}).Unwrap() != nil {
		t.Error("non-error panic value unwrapped to an error")
	}
	if !strings.Contains(err.Error(), "demo.A.run()V") {
		t.Errorf("message = %q", err.Error())
	}
}
