package job_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

type exportPayload struct {
	Entity string `json:"entity"`
	Format string `json:"format"`
}

func nopProcessor() job.Processor {
	return job.ProcessorFunc(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
}

func TestRegistry_BindAndGet(t *testing.T) {
	r := job.NewRegistry()

	var got exportPayload
	p := job.Typed(func(_ context.Context, in exportPayload) (any, error) {
		got = in
		return "ok", nil
	})
	if err := r.Bind(job.TypeDataExport, p); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	bound, ok := r.Get(job.TypeDataExport)
	if !ok {
		t.Fatal("expected processor to be bound")
	}

	payload, _ := json.Marshal(exportPayload{Entity: "leads", Format: "csv"})
	res, err := bound.Process(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result = %v, want ok", res)
	}
	if got.Entity != "leads" || got.Format != "csv" {
		t.Errorf("decoded payload = %+v", got)
	}
}

func TestRegistry_BindDuplicate(t *testing.T) {
	r := job.NewRegistry()
	if err := r.Bind(job.TypeGenericTask, nopProcessor()); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	err := r.Bind(job.TypeGenericTask, nopProcessor())
	if !errors.Is(err, jobs.ErrDuplicateProcessor) {
		t.Fatalf("second Bind error = %v, want ErrDuplicateProcessor", err)
	}
}

func TestRegistry_BindUnknownType(t *testing.T) {
	r := job.NewRegistry()
	err := r.Bind(job.Type("fax-blast"), nopProcessor())
	if !errors.Is(err, jobs.ErrUnknownJobType) {
		t.Fatalf("Bind error = %v, want ErrUnknownJobType", err)
	}
}

func TestRegistry_Types(t *testing.T) {
	r := job.NewRegistry()
	for _, typ := range job.Types() {
		if err := r.Bind(typ, nopProcessor()); err != nil {
			t.Fatalf("Bind(%s): %v", typ, err)
		}
	}
	got := r.Types()
	want := []job.Type{job.TypeDataExport, job.TypeGenericTask, job.TypeBulkSend}
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTyped_InvalidJSONIsPermanent(t *testing.T) {
	p := job.Typed(func(_ context.Context, _ exportPayload) (any, error) {
		t.Fatal("handler should not be called with invalid JSON")
		return nil, nil
	})
	_, err := p.Process(context.Background(), []byte(`{bad`))
	if !errors.Is(err, jobs.ErrInvalidPayload) {
		t.Fatalf("error = %v, want ErrInvalidPayload", err)
	}
	if !jobs.IsPermanent(err) {
		t.Fatal("expected decode failure to be permanent")
	}
}
