package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fingov/model/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("fingov", "0.0.1", exporter))

	ctx, parent := Start(context.Background(), "commit", Internal, attribute.String(KeyLock, "transaction/tx-1"))
	_, child := Start(ctx, "gate", Internal)
	child.End(types.NewPreconditionFailure("DRAFT", types.Reason{Code: "receipt_required"}))
	parent.End(errors.New("disk full"))
	_, server := Start(context.Background(), "POST /transactions", Server)
	server.Set(KeyRoute, "/transactions").EndHTTP(503)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "gate", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String(KeyOutcome, OutcomePrecondition))
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Contains(t, spans[2].Attributes, attribute.Int(KeyStatus, 503))
	assert.Equal(t, codes.Error, spans[2].Status.Code)
}

func TestOutcome(t *testing.T) {
	type testCase struct {
		name     string
		err      error
		expected string
	}
	tests := []testCase{
		{name: "nil", expected: OutcomeOK},
		{name: "validation", err: types.NewValidationError("amount", "must be positive"), expected: OutcomeValidation},
		{name: "conflict", err: types.NewConflictError("transaction", "t1", "APPROVED", "already decided"), expected: OutcomeConflict},
		{name: "retryable", err: &types.RetryableError{Op: "commit", Err: errors.New("lock wait")}, expected: OutcomeRetryable},
		{name: "configuration", err: types.NewConfigurationError("team", "no approver"), expected: OutcomeConfiguration},
		{name: "wrapped precondition", err: errors.Join(errors.New("gate"), types.NewPreconditionFailure("", types.Reason{Code: "x"})), expected: OutcomePrecondition},
		{name: "other", err: errors.New("boom"), expected: OutcomeError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Outcome(tc.err))
		})
	}
}
