package task

import (
	"context"
	"encoding/json"
	"fmt"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
)

// MethodFunc is a capability bound to a live collaborator instance.
type MethodFunc func(ctx context.Context, args Args, tc Context) (any, error)

// FunctionFunc is a standalone stateless operation.
type FunctionFunc func(ctx context.Context, args Args, tc Context) (any, error)

// Entry is a registry entry. It is either a MethodEntry or a
// FunctionEntry; no other implementations exist.
type Entry interface {
	key() string
	validate() error
}

// MethodEntry registers Fn under (Target, Method).
type MethodEntry struct {
	Target string
	Method string
	Fn     MethodFunc
}

func (e MethodEntry) key() string { return "m:" + e.Target + "." + e.Method }

func (e MethodEntry) validate() error {
	if e.Target == "" || e.Method == "" {
		return fmt.Errorf("task: method entry needs target and method (got %q.%q)", e.Target, e.Method)
	}
	if e.Fn == nil {
		return fmt.Errorf("task: method entry %s.%s has no function", e.Target, e.Method)
	}
	return nil
}

// FunctionEntry registers Fn under Name.
type FunctionEntry struct {
	Name string
	Fn   FunctionFunc
}

func (e FunctionEntry) key() string { return "f:" + e.Name }

func (e FunctionEntry) validate() error {
	if e.Name == "" {
		return fmt.Errorf("task: function entry needs a name")
	}
	if e.Fn == nil {
		return fmt.Errorf("task: function entry %s has no function", e.Name)
	}
	return nil
}

// Method returns a MethodEntry. It reads well in registration lists.
func Method(target, method string, fn MethodFunc) Entry {
	return MethodEntry{Target: target, Method: method, Fn: fn}
}

// Function returns a FunctionEntry.
func Function(name string, fn FunctionFunc) Entry {
	return FunctionEntry{Name: name, Fn: fn}
}

// Context is caller metadata forwarded to every invocation.
type Context struct {
	UserID       string         `json:"userId,omitempty"`
	SubAccountID string         `json:"subAccountId,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Args holds the positional arguments of an invocation as raw JSON.
type Args []json.RawMessage

// NewArgs encodes values into Args.
func NewArgs(values ...any) (Args, error) {
	args := make(Args, 0, len(values))
	for i, v := range values {
		if raw, ok := v.(json.RawMessage); ok {
			args = append(args, raw)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %v", jobs.ErrInvalidPayload, i, err)
		}
		args = append(args, raw)
	}
	return args, nil
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a) }

// Has reports whether argument i is present and not JSON null.
func (a Args) Has(i int) bool {
	return i >= 0 && i < len(a) && string(a[i]) != "null" && len(a[i]) > 0
}

// Decode unmarshals argument i into v. A missing argument is an
// ErrInvalidPayload error.
func (a Args) Decode(i int, v any) error {
	if i < 0 || i >= len(a) {
		return fmt.Errorf("%w: missing argument %d", jobs.ErrInvalidPayload, i)
	}
	if err := json.Unmarshal(a[i], v); err != nil {
		return fmt.Errorf("%w: argument %d: %v", jobs.ErrInvalidPayload, i, err)
	}
	return nil
}

// String decodes argument i as a string.
func (a Args) String(i int) (string, error) {
	var s string
	err := a.Decode(i, &s)
	return s, err
}

// Int decodes argument i as an integer.
func (a Args) Int(i int) (int, error) {
	var n int
	err := a.Decode(i, &n)
	return n, err
}

// Float decodes argument i as a float64.
func (a Args) Float(i int) (float64, error) {
	var f float64
	err := a.Decode(i, &f)
	return f, err
}
