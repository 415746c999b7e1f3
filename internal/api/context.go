package api

import "context"

type contextKey string

const customerContextKey contextKey = "customer_id"

// CustomerFromContext extracts the customer ID from context
func CustomerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(customerContextKey).(string)
	return id
}

// ContextWithCustomer adds the customer ID to context
func ContextWithCustomer(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerContextKey, customerID)
}
