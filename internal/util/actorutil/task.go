package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// taskTimeoutGrace lets the context deadline of a task expire before the
// hard timeout abandons it.
const taskTimeoutGrace = 1 * time.Second

// SafeBackgroundTask runs a blocking function outside of the actor and sends
// its result back as a message. Panics and timeouts are turned into errors.
type SafeBackgroundTask[T any] struct {
	system    *actor.ActorSystem
	parent    context.Context
	fn        func(context.Context) (*T, error)
	timeout   *time.Duration
	recover   func(error) T
	onSuccess func(T)
}

func NewBackgroundTask[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		system: ctx.ActorSystem(),
		fn:     fn,
	}
}

// WithContext sets the parent of the context handed to the task function.
// Cancelling it cancels the task.
func (t *SafeBackgroundTask[T]) WithContext(parent context.Context) *SafeBackgroundTask[T] {
	t.parent = parent
	return t
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo runs the task in its own goroutine and sends the result to pid.
// Without Recover a failed task sends nothing.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	t.onSuccess = func(value T) {
		t.system.Root.Send(pid, value)
	}
	go t.run()
}

func (t *SafeBackgroundTask[T]) run() {
	parent := t.parent
	if parent == nil {
		parent = context.Background()
	}
	runCtx, cancel := context.WithCancel(parent)
	defer cancel()
	if t.timeout != nil {
		runCtx, cancel = context.WithTimeout(runCtx, *t.timeout)
		defer cancel()
	}

	bgFn := io.Eval(func() (*T, error) {
		return t.fn(runCtx)
	})
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(errors.New("result is nil"))
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout + taskTimeoutGrace)(bg)
	}
	result := io.RunSync(bg)
	finalValue := result.Value
	if result.Error != nil {
		if t.recover == nil {
			return
		}
		finalValue = t.recover(result.Error)
	}

	if t.onSuccess != nil {
		t.onSuccess(finalValue)
	}
}
