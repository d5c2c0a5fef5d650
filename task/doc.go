// Package task runs named operations asynchronously through generic-task
// jobs.
//
// A [Registry] is built once at startup from entries of two kinds: a
// [MethodEntry] binds (target, method) to a capability of a live
// collaborator, and a [FunctionEntry] binds a name to a stateless
// operation. Registries are immutable and carry no global state.
//
//	reg, err := task.NewRegistry(append(
//	    task.Builtins(task.Deps{Cleaner: pg}),
//	    task.Method("leads", "rescore", leadSvc.Rescore),
//	)...)
//
// The generic-task [Processor] decodes a [Payload], resolves its entry and
// invokes it with the positional [Args] and caller [Context]. A missing
// entry fails permanently with a [LookupError] that lists what is
// registered.
package task
