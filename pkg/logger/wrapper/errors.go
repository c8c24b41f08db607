package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx wraps an error together with the LogCtx active where it happened.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// Error attaches the LogCtx of ctx to err. A nil err stays nil.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &errorWithLogCtx{
		err:    err,
		logCtx: fromCtx(ctx),
	}
}

// ErrorCtx returns ctx enriched with the LogCtx carried by err, if any.
// The innermost fields win over the ones already present in ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
