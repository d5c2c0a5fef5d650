package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/task"
)

const maxBodyBytes = 1 << 20

// JobOptions are the per-job enqueue options accepted in request bodies.
type JobOptions struct {
	DelayMs     int64 `json:"delayMs" validate:"gte=0"`
	MaxAttempts int   `json:"maxAttempts" validate:"gte=0,lte=100"`
	Priority    int   `json:"priority"`
}

func (o *JobOptions) toOptions() []job.Option {
	if o == nil {
		return nil
	}
	var opts []job.Option
	if o.DelayMs > 0 {
		opts = append(opts, job.WithDelay(time.Duration(o.DelayMs)*time.Millisecond))
	}
	if o.MaxAttempts > 0 {
		opts = append(opts, job.WithMaxAttempts(o.MaxAttempts))
	}
	if o.Priority != 0 {
		opts = append(opts, job.WithPriorityHint(o.Priority))
	}
	return opts
}

// EnqueueRequest is the body of POST /v1/jobs/{type}.
type EnqueueRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
	Options *JobOptions     `json:"options"`
}

// EnqueueResponse is returned by every enqueueing route.
type EnqueueResponse struct {
	JobID string `json:"jobId"`
}

// ExecuteTaskRequest is the body of POST /v1/tasks.
type ExecuteTaskRequest struct {
	TaskName     string       `json:"taskName" validate:"required"`
	FunctionName string       `json:"functionName" validate:"required"`
	Args         []any        `json:"args"`
	Context      task.Context `json:"context"`
	Options      *JobOptions  `json:"options"`
}

// ExecuteServiceMethodRequest is the body of POST /v1/tasks/service.
type ExecuteServiceMethodRequest struct {
	TaskName   string       `json:"taskName" validate:"required"`
	TargetName string       `json:"targetName" validate:"required"`
	MethodName string       `json:"methodName" validate:"required"`
	Args       []any        `json:"args"`
	Context    task.Context `json:"context"`
	Options    *JobOptions  `json:"options"`
}

var errBadRequest = errors.New("bad request")

// decode reads a JSON body into v and validates it.
func (a *API) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := a.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// pathType reads and checks the {type} URL parameter.
func pathType(r *http.Request) (job.Type, error) {
	t := job.Type(chi.URLParam(r, "type"))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", jobs.ErrUnknownJobType, t)
	}
	return t, nil
}
