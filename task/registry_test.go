package task_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/task"
)

func noop(context.Context, task.Args, task.Context) (any, error) { return nil, nil }

func newRegistry(t *testing.T) *task.Registry {
	t.Helper()
	reg, err := task.NewRegistry(
		task.Method("leads", "rescore", noop),
		task.Method("leads", "archive", noop),
		task.Method("bookings", "remind", noop),
		task.Function("ping", noop),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestRegistry_Lookup(t *testing.T) {
	reg := newRegistry(t)

	if _, err := reg.Method("leads", "rescore"); err != nil {
		t.Errorf("Method(leads, rescore): %v", err)
	}
	if _, err := reg.Function("ping"); err != nil {
		t.Errorf("Function(ping): %v", err)
	}

	if got := strings.Join(reg.Targets(), ","); got != "bookings,leads" {
		t.Errorf("Targets = %q", got)
	}
	if got := strings.Join(reg.Methods("leads"), ","); got != "archive,rescore" {
		t.Errorf("Methods(leads) = %q", got)
	}
	if got := strings.Join(reg.Functions(), ","); got != "ping" {
		t.Errorf("Functions = %q", got)
	}
}

func TestRegistry_UnknownTargetListsTargets(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Method("invoices", "send")
	if !errors.Is(err, jobs.ErrTaskNotRegistered) {
		t.Fatalf("err = %v, want ErrTaskNotRegistered", err)
	}
	var lerr *task.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("err is %T, want *task.LookupError", err)
	}
	if lerr.Kind != task.LookupTarget {
		t.Errorf("Kind = %v, want LookupTarget", lerr.Kind)
	}
	for _, name := range []string{"bookings", "leads"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention target %q", err, name)
		}
	}
}

func TestRegistry_UnknownMethodListsMethods(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Method("leads", "delete")
	if !errors.Is(err, jobs.ErrTaskNotRegistered) {
		t.Fatalf("err = %v, want ErrTaskNotRegistered", err)
	}
	msg := err.Error()
	for _, name := range []string{"archive", "rescore"} {
		if !strings.Contains(msg, name) {
			t.Errorf("error %q does not mention method %q", msg, name)
		}
	}
	if strings.Contains(msg, "remind") {
		t.Errorf("error %q lists methods of another target", msg)
	}
}

func TestRegistry_UnknownFunctionListsFunctions(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Function("pong")
	if !errors.Is(err, jobs.ErrTaskNotRegistered) {
		t.Fatalf("err = %v, want ErrTaskNotRegistered", err)
	}
	if !strings.Contains(err.Error(), "ping") {
		t.Errorf("error %q does not mention ping", err)
	}
}

func TestRegistry_Duplicates(t *testing.T) {
	tests := []struct {
		name    string
		entries []task.Entry
	}{
		{"method", []task.Entry{task.Method("a", "b", noop), task.Method("a", "b", noop)}},
		{"function", []task.Entry{task.Function("f", noop), task.Function("f", noop)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := task.NewRegistry(tt.entries...)
			if !errors.Is(err, jobs.ErrDuplicateTask) {
				t.Errorf("err = %v, want ErrDuplicateTask", err)
			}
		})
	}
}

func TestRegistry_SameNameDifferentKinds(t *testing.T) {
	_, err := task.NewRegistry(task.Method("report", "run", noop), task.Function("report", noop))
	if err != nil {
		t.Errorf("method and function with the same name should coexist: %v", err)
	}
}

func TestRegistry_InvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry task.Entry
	}{
		{"empty target", task.Method("", "m", noop)},
		{"empty method", task.Method("t", "", noop)},
		{"nil method fn", task.MethodEntry{Target: "t", Method: "m"}},
		{"empty function name", task.Function("", noop)},
		{"nil function fn", task.FunctionEntry{Name: "f"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := task.NewRegistry(tt.entry); err == nil {
				t.Error("expected error")
			}
		})
	}
}
