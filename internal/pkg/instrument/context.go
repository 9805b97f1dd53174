package instrument

import "context"

type correlationIDKey struct{}

// InvalidCorrelationID marks a context value that is not a string.
const InvalidCorrelationID = "[invalid_chain_id]"

// SetCorrelationID stores the request correlation ID in the context.
func SetCorrelationID(ctx context.Context, cID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cID)
}

// GetCorrelationID returns the correlation ID from the context, or "" when absent.
func GetCorrelationID(ctx context.Context) string {
	val := ctx.Value(correlationIDKey{})
	if val == nil {
		return ""
	}

	cID, ok := val.(string)
	if !ok {
		return InvalidCorrelationID
	}

	return cID
}
