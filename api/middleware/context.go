package middleware

import "context"

type contextKey string

const (
	ctxCarrierID contextKey = "carrier_id"
)

func CarrierIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCarrierID).(string); ok {
		return v
	}
	return ""
}

// WithCarrierID injects the carrier identifier into the context.
func WithCarrierID(ctx context.Context, carrierID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCarrierID, carrierID)
}
