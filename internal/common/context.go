package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID   contextKey = "run_id"
	ContextKeyLoanKey contextKey = "loan_key"
)

// WithRunID adds a pipeline-run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the pipeline-run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithLoanKey adds a loan key to the context
func WithLoanKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ContextKeyLoanKey, key)
}

// LoanKeyFromContext extracts the loan key from context
func LoanKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(ContextKeyLoanKey).(string); ok {
		return key
	}
	return ""
}
