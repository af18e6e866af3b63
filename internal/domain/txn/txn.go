// Package txn defines the transaction boundary used by the engine services.
package txn

import "context"

// UnitOfWork groups repository operations in an all-or-nothing boundary.
//
// Implementations must support nesting: a RunInTx call made with a context
// that already carries a transaction joins it instead of starting a new one.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Func adapts a plain function to UnitOfWork.
type Func func(ctx context.Context, fn func(ctx context.Context) error) error

// RunInTx calls f.
func (f Func) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Direct runs fn without any transaction. It is meant for tests and for
// stores that provide their own isolation.
var Direct UnitOfWork = Func(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
