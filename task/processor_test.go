package task_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/task"
)

func mustPayload(t *testing.T, p task.Payload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func mustArgs(t *testing.T, values ...any) task.Args {
	t.Helper()
	args, err := task.NewArgs(values...)
	if err != nil {
		t.Fatalf("NewArgs: %v", err)
	}
	return args
}

func TestProcessor_Method(t *testing.T) {
	var gotArgs task.Args
	var gotCtx task.Context
	reg, err := task.NewRegistry(task.Method("leads", "rescore", func(_ context.Context, args task.Args, tc task.Context) (any, error) {
		gotArgs, gotCtx = args, tc
		id, _ := args.Int(0)
		return map[string]int{"leadId": id, "score": 42}, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	p := task.NewProcessor(reg, nil)
	out, err := p.Process(context.Background(), mustPayload(t, task.Payload{
		TaskName:   "rescore-lead",
		TargetName: "leads",
		MethodName: "rescore",
		Args:       mustArgs(t, 7),
		Context:    task.Context{UserID: "u1"},
	}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	res, ok := out.(task.Result)
	if !ok {
		t.Fatalf("result is %T", out)
	}
	if !res.Success || res.TaskName != "rescore-lead" || res.FunctionName != "rescore" || res.TargetName != "leads" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.ExecutedAt.IsZero() {
		t.Error("ExecutedAt not set")
	}
	if gotArgs.Len() != 1 || gotCtx.UserID != "u1" {
		t.Errorf("args=%v ctx=%+v", gotArgs, gotCtx)
	}
}

func TestProcessor_Function(t *testing.T) {
	reg, _ := task.NewRegistry(task.Builtins(task.Deps{})...)
	p := task.NewProcessor(reg, nil)

	out, err := p.Process(context.Background(), mustPayload(t, task.Payload{
		TaskName:     "sum",
		FunctionName: task.FnCalculateSum,
		Args:         mustArgs(t, []float64{1, 2, 3}),
	}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	res := out.(task.Result)
	if res.TargetName != "" || res.FunctionName != task.FnCalculateSum {
		t.Errorf("unexpected result %+v", res)
	}
	sum := res.Result.(task.SumResult)
	if sum.Sum != 6 || sum.Count != 3 || sum.Average != 2 {
		t.Errorf("sum = %+v", sum)
	}
}

func TestProcessor_LookupFailureIsPermanent(t *testing.T) {
	reg, _ := task.NewRegistry(task.Method("leads", "rescore", noop))
	p := task.NewProcessor(reg, nil)

	_, err := p.Process(context.Background(), mustPayload(t, task.Payload{
		TaskName:   "x",
		TargetName: "leads",
		MethodName: "nope",
	}))
	if !jobs.IsPermanent(err) {
		t.Errorf("err = %v, want permanent", err)
	}
	if !errors.Is(err, jobs.ErrTaskNotRegistered) {
		t.Errorf("err = %v, want ErrTaskNotRegistered", err)
	}
}

func TestProcessor_InvocationErrorUnchanged(t *testing.T) {
	boom := errors.New("downstream unavailable")
	reg, _ := task.NewRegistry(task.Function("flaky", func(context.Context, task.Args, task.Context) (any, error) {
		return nil, boom
	}))
	p := task.NewProcessor(reg, nil)

	_, err := p.Process(context.Background(), mustPayload(t, task.Payload{FunctionName: "flaky"}))
	if err != boom {
		t.Errorf("err = %v, want the invocation error itself", err)
	}
	if jobs.IsPermanent(err) {
		t.Error("invocation errors must stay retryable")
	}
}

func TestProcessor_BadPayload(t *testing.T) {
	reg, _ := task.NewRegistry()
	p := task.NewProcessor(reg, nil)

	_, err := p.Process(context.Background(), json.RawMessage(`{"args": 5}`))
	if !errors.Is(err, jobs.ErrInvalidPayload) || !jobs.IsPermanent(err) {
		t.Errorf("err = %v, want permanent ErrInvalidPayload", err)
	}
}

func TestRegistry_Check(t *testing.T) {
	reg, _ := task.NewRegistry(task.Function("ping", noop))

	if err := reg.Check(task.Payload{FunctionName: "ping"}); err != nil {
		t.Errorf("Check(ping): %v", err)
	}
	if err := reg.Check(task.Payload{TargetName: "x", MethodName: "y"}); !errors.Is(err, jobs.ErrTaskNotRegistered) {
		t.Errorf("Check(x.y) = %v", err)
	}
}
