package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action      string
		User        string
		RequestType string
		Sequence    int
		RequestID   string
	}

	// logCtxKeyStruct is an unexported type for context keys defined in this package.
	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

func fromCtx(ctx context.Context) LogCtx {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return lc
	}
	return LogCtx{}
}

// WithLogCtx returns a new context with the provided LogCtx merged over the existing one.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	lc := fromCtx(ctx)
	if newLc.Action == "" {
		newLc.Action = lc.Action
	}
	if newLc.User == "" {
		newLc.User = lc.User
	}
	if newLc.RequestType == "" {
		newLc.RequestType = lc.RequestType
	}
	if newLc.Sequence == 0 {
		newLc.Sequence = lc.Sequence
	}
	if newLc.RequestID == "" {
		newLc.RequestID = lc.RequestID
	}
	return context.WithValue(ctx, LogCtxKey, newLc)
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	lc := fromCtx(ctx)
	lc.Action = action
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithUser adds or updates the passenger nickname in the LogCtx within the context
func WithUser(ctx context.Context, user string) context.Context {
	lc := fromCtx(ctx)
	lc.User = user
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRequest adds or updates the request type and sequence in the LogCtx within the context
func WithRequest(ctx context.Context, requestType string, sequence int) context.Context {
	lc := fromCtx(ctx)
	lc.RequestType = requestType
	lc.Sequence = sequence
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRequestID adds or updates the RequestID in the LogCtx within the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := fromCtx(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, LogCtxKey, lc)
}
