package task

import (
	"fmt"
	"sort"
	"strings"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
)

// Registry is an immutable lookup table of task entries. Build it once
// at startup with NewRegistry and share it by reference.
type Registry struct {
	methods   map[string]map[string]MethodFunc
	functions map[string]FunctionFunc
}

// NewRegistry builds a registry from entries. An invalid entry or a
// duplicate key is a configuration error.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		methods:   make(map[string]map[string]MethodFunc),
		functions: make(map[string]FunctionFunc),
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil {
			return nil, fmt.Errorf("task: nil entry")
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[e.key()]; dup {
			return nil, fmt.Errorf("%w: %s", jobs.ErrDuplicateTask, describe(e))
		}
		seen[e.key()] = struct{}{}

		switch e := e.(type) {
		case MethodEntry:
			if r.methods[e.Target] == nil {
				r.methods[e.Target] = make(map[string]MethodFunc)
			}
			r.methods[e.Target][e.Method] = e.Fn
		case FunctionEntry:
			r.functions[e.Name] = e.Fn
		}
	}
	return r, nil
}

func describe(e Entry) string {
	switch e := e.(type) {
	case MethodEntry:
		return "method " + e.Target + "." + e.Method
	case FunctionEntry:
		return "function " + e.Name
	}
	return "unknown entry"
}

// Method looks up a bound method. The error is a *LookupError listing the
// known targets, or the target's known methods.
func (r *Registry) Method(target, method string) (MethodFunc, error) {
	methods, ok := r.methods[target]
	if !ok {
		return nil, &LookupError{Kind: LookupTarget, Name: target, Known: r.Targets()}
	}
	fn, ok := methods[method]
	if !ok {
		return nil, &LookupError{Kind: LookupMethod, Target: target, Name: method, Known: r.Methods(target)}
	}
	return fn, nil
}

// Function looks up a standalone function.
func (r *Registry) Function(name string) (FunctionFunc, error) {
	fn, ok := r.functions[name]
	if !ok {
		return nil, &LookupError{Kind: LookupFunction, Name: name, Known: r.Functions()}
	}
	return fn, nil
}

// Targets returns the registered target names, sorted.
func (r *Registry) Targets() []string {
	return sortedKeys(r.methods)
}

// Methods returns the methods registered for target, sorted.
func (r *Registry) Methods(target string) []string {
	return sortedKeys(r.methods[target])
}

// Functions returns the registered function names, sorted.
func (r *Registry) Functions() []string {
	return sortedKeys(r.functions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LookupKind says which lookup failed.
type LookupKind int

const (
	LookupTarget LookupKind = iota + 1
	LookupMethod
	LookupFunction
)

// LookupError reports a missing registry entry together with the names
// that do exist. It matches jobs.ErrTaskNotRegistered.
type LookupError struct {
	Kind   LookupKind
	Target string
	Name   string
	Known  []string
}

func (e *LookupError) Error() string {
	known := "none"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, ", ")
	}
	switch e.Kind {
	case LookupTarget:
		return fmt.Sprintf("task: target %q not registered; available targets: %s", e.Name, known)
	case LookupMethod:
		return fmt.Sprintf("task: method %q not registered on target %q; available methods: %s", e.Name, e.Target, known)
	default:
		return fmt.Sprintf("task: function %q not registered; available functions: %s", e.Name, known)
	}
}

// Is makes errors.Is(err, jobs.ErrTaskNotRegistered) hold.
func (e *LookupError) Is(target error) bool { return target == jobs.ErrTaskNotRegistered }
