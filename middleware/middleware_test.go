package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/KennethAtchon/Loctelli-sub005/id"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	mw "github.com/KennethAtchon/Loctelli-sub005/middleware"
)

func newTestJob() *job.Job {
	return &job.Job{
		ID:          id.NewJobID(),
		Type:        job.TypeBulkSend,
		Attempts:    2,
		MaxAttempts: 3,
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) mw.Middleware {
		return func(ctx context.Context, _ *job.Job, next mw.Handler) (any, error) {
			order = append(order, name+">")
			res, err := next(ctx)
			order = append(order, "<"+name)
			return res, err
		}
	}

	chain := mw.Chain(tag("a"), tag("b"), tag("c"))
	res, err := chain(context.Background(), newTestJob(), func(context.Context) (any, error) {
		order = append(order, "handler")
		return 42, nil
	})
	if err != nil || res != 42 {
		t.Fatalf("chain = %v, %v", res, err)
	}

	want := "a>,b>,c>,handler,<c,<b,<a"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestChain_Empty(t *testing.T) {
	res, err := mw.Chain()(context.Background(), newTestJob(), func(context.Context) (any, error) {
		return "done", nil
	})
	if err != nil || res != "done" {
		t.Fatalf("empty chain = %v, %v", res, err)
	}
}

func TestRecover_ConvertsPanic(t *testing.T) {
	var buf bytes.Buffer
	m := mw.Recover(slog.New(slog.NewTextHandler(&buf, nil)))

	res, err := m(context.Background(), newTestJob(), func(context.Context) (any, error) {
		panic("nil map")
	})
	if err == nil || !strings.Contains(err.Error(), "nil map") {
		t.Fatalf("error = %v, want panic converted", err)
	}
	if res != nil {
		t.Errorf("result = %v, want nil", res)
	}
	if !strings.Contains(buf.String(), "processor panicked") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	m := mw.Recover(slog.Default())
	want := errors.New("provider down")
	_, err := m(context.Background(), newTestJob(), func(context.Context) (any, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestLogging_LogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	m := mw.Logging(slog.New(slog.NewTextHandler(&buf, nil)))
	j := newTestJob()

	_, _ = m(context.Background(), j, func(context.Context) (any, error) { return nil, nil })
	_, _ = m(context.Background(), j, func(context.Context) (any, error) { return nil, errors.New("boom") })

	out := buf.String()
	for _, want := range []string{"job started", "job processed", "job attempt failed", "boom", j.ID} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
