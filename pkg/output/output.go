// Package output provides a write-once asynchronous value. An Output starts
// Pending and settles exactly once, either Resolved with a value or Failed
// with an error. Consumers wait on it with Await and derive new outputs with
// Apply and All.
package output

import (
	"context"
	"errors"
	"sync"
)

// ErrNilRejection is the failure recorded when Reject is called with a nil
// error.
var ErrNilRejection = errors.New("output rejected with nil error")

type State int

const (
	Pending State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Output[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New creates a pending output.
func New[T any]() *Output[T] {
	return &Output[T]{done: make(chan struct{})}
}

// Of creates an output that is already resolved with v.
func Of[T any](v T) *Output[T] {
	o := New[T]()
	o.Resolve(v)
	return o
}

// Rejected creates an output that has already failed with err.
func Rejected[T any](err error) *Output[T] {
	o := New[T]()
	o.Reject(err)
	return o
}

// Go runs fn in a new goroutine and settles the returned output with its
// result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Output[T] {
	o := New[T]()
	go func() {
		v, err := fn(ctx)
		if err != nil {
			o.Reject(err)
			return
		}
		o.Resolve(v)
	}()
	return o
}

// Resolve settles the output with v. It returns false if the output was
// already settled.
func (o *Output[T]) Resolve(v T) bool {
	return o.settle(v, nil)
}

// Reject settles the output with err. It returns false if the output was
// already settled.
func (o *Output[T]) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	var zero T
	return o.settle(zero, err)
}

func (o *Output[T]) settle(v T, err error) bool {
	settled := false
	o.once.Do(func() {
		o.value, o.err = v, err
		close(o.done)
		settled = true
	})
	return settled
}

// Done returns a channel that is closed once the output has settled.
func (o *Output[T]) Done() <-chan struct{} {
	return o.done
}

func (o *Output[T]) State() State {
	select {
	case <-o.done:
		if o.err != nil {
			return Failed
		}
		return Resolved
	default:
		return Pending
	}
}

// Await blocks until the output settles or ctx is done. A settled output
// always wins over a concurrently cancelled context.
func (o *Output[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	default:
	}
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
