// Package storage defines the transaction-boundary and locking contracts the
// dispatch engine and write services run against. Concrete stores live in
// the memory and postgres subpackages.
package storage

import "context"

// UnitOfWork runs fn inside one transaction boundary. If fn returns an
// error, every write staged inside it is rolled back; otherwise all writes
// commit atomically. The transaction handle travels inside the context, so
// repository calls made with the ctx passed to fn participate in it.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes critical sections keyed by aggregate identity. The
// in-process implementation below covers a single instance; the redislock
// package provides the multi-instance variant.
//
// Lock ordering: a Locker key must be acquired before opening a unit of
// work, never inside one. Stores hold their own locks for the duration of
// Do, so taking a Locker key from within a unit of work while another
// goroutine holds that key and is entering Do would deadlock. Callers that
// may already run inside a unit of work check InUnitOfWork and rely on the
// store's transaction discipline instead.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type uowKey struct{}

// MarkUnitOfWork tags ctx as running inside a unit of work. Stores call it
// on the context they hand to the Do callback.
func MarkUnitOfWork(ctx context.Context) context.Context {
	return context.WithValue(ctx, uowKey{}, struct{}{})
}

// InUnitOfWork reports whether ctx runs inside a unit of work.
func InUnitOfWork(ctx context.Context) bool {
	return ctx.Value(uowKey{}) != nil
}
