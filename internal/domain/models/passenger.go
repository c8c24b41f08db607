package models

import "context"

type passengerKey struct{}

// WithPassenger stores the authenticated passenger nickname in ctx.
func WithPassenger(ctx context.Context, nickname string) context.Context {
	return context.WithValue(ctx, passengerKey{}, nickname)
}

// PassengerFromContext returns the authenticated passenger, empty when anonymous.
func PassengerFromContext(ctx context.Context) string {
	nickname, _ := ctx.Value(passengerKey{}).(string)
	return nickname
}
