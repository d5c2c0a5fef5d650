package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

// Payload is the body of a generic-task job. TargetName selects a bound
// method; otherwise FunctionName selects a standalone function.
type Payload struct {
	TaskName     string  `json:"taskName"`
	FunctionName string  `json:"functionName,omitempty"`
	TargetName   string  `json:"targetName,omitempty"`
	MethodName   string  `json:"methodName,omitempty"`
	Args         Args    `json:"args,omitempty"`
	Context      Context `json:"context"`
}

// Result is the stored outcome of a generic-task job. For method entries
// FunctionName holds the method name.
type Result struct {
	TaskName     string    `json:"taskName"`
	FunctionName string    `json:"functionName"`
	TargetName   string    `json:"targetName,omitempty"`
	Result       any       `json:"result"`
	ExecutedAt   time.Time `json:"executedAt"`
	Success      bool      `json:"success"`
}

type invoker func(ctx context.Context, args Args, tc Context) (any, error)

// resolve finds the entry p refers to.
func (r *Registry) resolve(p Payload) (invoker, string, error) {
	if p.TargetName != "" {
		fn, err := r.Method(p.TargetName, p.MethodName)
		if err != nil {
			return nil, "", err
		}
		return invoker(fn), p.MethodName, nil
	}
	fn, err := r.Function(p.FunctionName)
	if err != nil {
		return nil, "", err
	}
	return invoker(fn), p.FunctionName, nil
}

// Check reports whether p names a registered entry. The error is the same
// *LookupError Process would fail with.
func (r *Registry) Check(p Payload) error {
	_, _, err := r.resolve(p)
	return err
}

// Processor runs generic-task jobs against a Registry.
type Processor struct {
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

var _ job.Processor = (*Processor)(nil)

// NewProcessor returns a generic-task processor over registry.
func NewProcessor(registry *Registry, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{registry: registry, logger: logger, now: time.Now}
}

// Process decodes the payload, resolves the entry and invokes it. Lookup
// and decode failures are permanent. Invocation errors are returned
// unchanged so the store's retry accounting applies.
func (p *Processor) Process(ctx context.Context, raw json.RawMessage) (any, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, jobs.Permanent(fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err))
	}

	fn, name, err := p.registry.resolve(payload)
	if err != nil {
		return nil, jobs.Permanent(err)
	}

	p.logger.Debug("executing task",
		slog.String("task", payload.TaskName),
		slog.String("target", payload.TargetName),
		slog.String("function", name),
		slog.Int("args", payload.Args.Len()),
	)

	out, err := fn(ctx, payload.Args, payload.Context)
	if err != nil {
		return nil, err
	}

	return Result{
		TaskName:     payload.TaskName,
		FunctionName: name,
		TargetName:   payload.TargetName,
		Result:       out,
		ExecutedAt:   p.now().UTC(),
		Success:      true,
	}, nil
}
