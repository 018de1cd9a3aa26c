package ctxutil

import "context"

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Detach returns a context that keeps ctx's values but ignores its
// cancellation. Used where work must finish server-side after the
// caller disconnects.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(Default(ctx))
}
